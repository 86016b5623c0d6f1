package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dwarfield/sleekrender/internal/video"
)

func newStitchCommand(cctx *commandContext) *cobra.Command {
	var fpsFlag int
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "stitch <scene-dir>",
		Short: "Assemble an existing run directory into output.mov",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := cctx.load(cmd); err != nil {
				return err
			}
			sceneDir := args[0]

			ext, first, count, err := scanSequence(filepath.Join(sceneDir, "images"))
			if err != nil {
				return err
			}

			stitcher := &video.FFmpegStitcher{}
			err = stitcher.Stitch(cmd.Context(), video.StitchParams{
				SceneDir:   sceneDir,
				Ext:        ext,
				FPS:        fpsFlag,
				FirstFrame: first,
				FrameCount: count,
				OutputPath: outputFlag,
			})
			if err != nil {
				return err
			}

			output := outputFlag
			if output == "" {
				output = filepath.Join(sceneDir, video.OutputFileName)
			}
			fmt.Printf("Stitched %d frames to %s\n", count, output)
			return nil
		},
	}

	cmd.Flags().IntVar(&fpsFlag, "fps", 24, "Frame rate of the assembled video")
	cmd.Flags().StringVar(&outputFlag, "output", "", "Output video path (default <scene-dir>/output.mov)")

	return cmd
}

// scanSequence inspects an images directory of <frame>.<ext> files and
// reports the extension, the first frame number and the frame count.
func scanSequence(imagesDir string) (string, int, int, error) {
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return "", 0, 0, fmt.Errorf("read images directory: %w", err)
	}

	ext := ""
	first := 0
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		dot := strings.LastIndexByte(name, '.')
		if dot <= 0 {
			continue
		}
		frame, err := strconv.Atoi(name[:dot])
		if err != nil {
			continue
		}
		entryExt := name[dot+1:]
		if ext == "" {
			ext = entryExt
		} else if entryExt != ext {
			return "", 0, 0, fmt.Errorf("mixed image extensions in %s: %s and %s", imagesDir, ext, entryExt)
		}
		if count == 0 || frame < first {
			first = frame
		}
		count++
	}

	if count == 0 {
		return "", 0, 0, fmt.Errorf("no frame images found in %s", imagesDir)
	}
	return ext, first, count, nil
}
