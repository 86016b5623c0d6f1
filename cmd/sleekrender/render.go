package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dwarfield/sleekrender/internal/blender"
	"github.com/dwarfield/sleekrender/internal/detect"
	"github.com/dwarfield/sleekrender/internal/engine"
	"github.com/dwarfield/sleekrender/internal/sequence"
	"github.com/dwarfield/sleekrender/internal/system"
	"github.com/dwarfield/sleekrender/internal/video"
)

func newRenderCommand(cctx *commandContext) *cobra.Command {
	var resumeFlag, stitchFlag, verifyFlag bool

	cmd := &cobra.Command{
		Use:   "render [scene.blend]",
		Short: "Render the scene's frame range, copying static frames",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := cctx.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("resume") {
				cfg.Resume = resumeFlag
			}
			if cmd.Flags().Changed("stitch") {
				cfg.Stitch = stitchFlag
			}
			if cmd.Flags().Changed("verify") {
				cfg.Verify = verifyFlag
			}

			blendPath, err := resolveBlend(args)
			if err != nil {
				return err
			}
			host, err := blender.NewCLI(blendPath, cfg.BlenderPath, log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			scene, err := host.Probe(ctx)
			if err != nil {
				return err
			}
			plan, err := detect.BuildPlan(scene.Sampler(), scene.FrameStart, scene.FrameEnd, cfg.Tolerance)
			if err != nil {
				return err
			}
			log.Info().
				Str("scene", scene.Name).
				Int("frames", len(plan.Records)).
				Int("renders", plan.NewCount()).
				Int("copies", plan.DuplicateCount()).
				Msg("frame range classified")

			if res, err := system.Snapshot(cfg.OutputRoot); err != nil {
				log.Warn().Err(err).Msg("resource snapshot unavailable")
			} else {
				log.Debug().
					Int("cpus", res.CPUCount).
					Str("mem_free", humanize.Bytes(res.MemoryFree)).
					Str("disk_free", humanize.Bytes(res.DiskFree)).
					Msg("resources before render")
			}

			bar := progressbar.NewOptions(len(plan.Records),
				progressbar.OptionSetDescription("rendering"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(30),
				progressbar.OptionThrottle(100*time.Millisecond),
			)

			pipeline := &engine.Pipeline{
				Host: host,
				Opts: engine.Options{OutputRoot: cfg.OutputRoot, Resume: cfg.Resume},
				Log:  log,
				Progress: func(r engine.FrameResult) {
					if r.ETA > 0 {
						bar.Describe(fmt.Sprintf("rendering (ETA %s)", r.ETA.Round(time.Second)))
					}
					bar.Add(1)
				},
			}

			job, err := pipeline.Run(ctx, scene, plan)
			if errors.Is(err, context.Canceled) {
				finishCancelled(os.Stdout, bar, job)
				return nil
			}
			if err != nil {
				return err
			}
			bar.Finish()
			fmt.Println()

			if cfg.Verify {
				rep, err := sequence.Verify(job.ImagesDir, scene.Ext, scene.FrameStart, scene.FrameEnd)
				if err != nil {
					return fmt.Errorf("sequence verification: %w", err)
				}
				log.Info().Int("frames", rep.Frames).Msg("sequence verified")
			}

			if cfg.Stitch {
				log.Info().Msg("stitching output.mov")
				stitcher := &video.FFmpegStitcher{}
				err := stitcher.Stitch(ctx, video.StitchParams{
					SceneDir:   job.SceneDir,
					Ext:        scene.Ext,
					FPS:        scene.FPS,
					FirstFrame: scene.FrameStart,
					FrameCount: scene.FrameCount(),
				})
				if err != nil {
					return err
				}
			}

			fmt.Printf("Done: %d rendered, %d copied, %d reused in %s (avg render %s)\n",
				job.Rendered, job.Copied, job.Skipped,
				job.Elapsed().Round(time.Second), job.AverageRenderTime().Round(time.Millisecond))
			fmt.Printf("Output: %s\n", job.SceneDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&resumeFlag, "resume", false, "Reuse frames already rendered by a previous run")
	cmd.Flags().BoolVar(&stitchFlag, "stitch", false, "Assemble output.mov after rendering")
	cmd.Flags().BoolVar(&verifyFlag, "verify", false, "Verify the finished image sequence")

	return cmd
}

// finishCancelled clears the progress bar before reporting what survived,
// so the notice does not land on the bar's line.
func finishCancelled(w io.Writer, bar *progressbar.ProgressBar, job *engine.Job) {
	bar.Exit()
	fmt.Fprintf(w, "\nCancelled after %d of %d frames; finished frames kept in %s\n",
		job.Completed, job.Total, job.ImagesDir)
}
