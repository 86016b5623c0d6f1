package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dwarfield/sleekrender/internal/blender"
	"github.com/dwarfield/sleekrender/internal/detect"
	"github.com/dwarfield/sleekrender/internal/engine"
	"github.com/dwarfield/sleekrender/internal/report"
	"github.com/dwarfield/sleekrender/internal/system"
)

func newAnalyzeCommand(cctx *commandContext) *cobra.Command {
	var frameFlag int
	var rowsFlag int

	cmd := &cobra.Command{
		Use:   "analyze [scene.blend]",
		Short: "Preview how many frames a render run would skip, without writing files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := cctx.load(cmd)
			if err != nil {
				return err
			}
			blendPath, err := resolveBlend(args)
			if err != nil {
				return err
			}
			host, err := blender.NewCLI(blendPath, cfg.BlenderPath, log)
			if err != nil {
				return err
			}

			scene, err := host.Probe(cmd.Context())
			if err != nil {
				return err
			}

			start, end := scene.FrameStart, scene.FrameEnd
			if cmd.Flags().Changed("frame") {
				start, end, err = singleFrameRange(scene, frameFlag)
				if err != nil {
					return err
				}
			}

			plan, err := detect.BuildPlan(scene.Sampler(), start, end, cfg.Tolerance)
			if err != nil {
				return err
			}

			// A mixdown from an earlier run lets the report relate the
			// sequence length to the audio track.
			audioSeconds := 0.0
			audioPath := filepath.Join(cfg.OutputRoot, scene.Name, engine.AudioFileName)
			if _, statErr := os.Stat(audioPath); statErr == nil {
				if d, durErr := system.AudioDuration(audioPath); durErr != nil {
					log.Warn().Err(durErr).Msg("audio duration unavailable")
				} else {
					audioSeconds = d
				}
			}

			report.Render(os.Stdout, report.Analysis{
				SceneName:    scene.Name,
				FPS:          scene.FPS,
				AudioSeconds: audioSeconds,
				Plan:         plan,
			}, rowsFlag)
			return nil
		},
	}

	cmd.Flags().IntVar(&frameFlag, "frame", 0, "Analyze a single frame instead of the full scene range")
	cmd.Flags().IntVar(&rowsFlag, "rows", 30, "Maximum frame rows to print (0 for all)")

	return cmd
}

// singleFrameRange narrows the scan to frame and its successor, so the
// readout says whether the next frame would copy. The frame must lie inside
// the scene's range.
func singleFrameRange(scene *blender.Scene, frame int) (int, int, error) {
	if frame < scene.FrameStart || frame > scene.FrameEnd {
		return 0, 0, fmt.Errorf("frame %d is outside the scene range %d-%d",
			frame, scene.FrameStart, scene.FrameEnd)
	}
	end := frame + 1
	if end > scene.FrameEnd {
		end = scene.FrameEnd
	}
	return frame, end, nil
}
