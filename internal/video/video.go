// Package video assembles a finished image sequence and its audio bounce
// into a video file with ffmpeg.
package video

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
)

// OutputFileName is written into the scene directory by Stitch.
const OutputFileName = "output.mov"

// Stitcher turns a per-scene output directory into a video.
type Stitcher interface {
	Stitch(ctx context.Context, params StitchParams) error
}

// StitchParams describe one assembly: the scene directory produced by a
// render run plus the sequence geometry ffmpeg needs.
type StitchParams struct {
	SceneDir   string
	Ext        string
	FPS        int
	FirstFrame int
	FrameCount int
	// OutputPath defaults to <SceneDir>/output.mov when empty.
	OutputPath string
}

type FFmpegStitcher struct{}

func (s *FFmpegStitcher) Stitch(ctx context.Context, params StitchParams) error {
	args := s.buildArgs(params)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg stitch error: %w, output: %s", err, out)
	}
	return nil
}

func (s *FFmpegStitcher) buildArgs(params StitchParams) []string {
	output := params.OutputPath
	if output == "" {
		output = filepath.Join(params.SceneDir, OutputFileName)
	}
	return []string{
		"-y",
		"-i", filepath.Join(params.SceneDir, "audio.flac"),
		"-framerate", strconv.Itoa(params.FPS),
		"-start_number", strconv.Itoa(params.FirstFrame),
		"-i", filepath.Join(params.SceneDir, "images", "%d."+params.Ext),
		"-frames:v", strconv.Itoa(params.FrameCount),
		output,
	}
}
