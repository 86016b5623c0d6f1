// Package engine walks a classified frame range in order, rendering new
// frames through the host and copying duplicates, while tracking run state
// and progress.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dwarfield/sleekrender/internal/blender"
	"github.com/dwarfield/sleekrender/internal/detect"
)

// AudioFileName is the per-scene audio bounce written once per run.
const AudioFileName = "audio.flac"

// Job is the state of one render run. It is created when a run starts and
// discarded when the run ends; nothing is persisted beyond the files on disk.
type Job struct {
	SceneName  string
	OutputRoot string
	SceneDir   string
	ImagesDir  string

	Total        int
	Completed    int
	Rendered     int
	Copied       int
	Skipped      int
	newRemaining int

	started time.Time
	state   State
}

// State reports the job's current lifecycle state.
func (j *Job) State() State { return j.state }

// Elapsed reports wall time since the run started.
func (j *Job) Elapsed() time.Duration { return time.Since(j.started) }

// AverageRenderTime reports the running mean cost of an actual render.
// Zero until the first frame has been rendered.
func (j *Job) AverageRenderTime() time.Duration {
	if j.Rendered == 0 {
		return 0
	}
	return j.Elapsed() / time.Duration(j.Rendered)
}

// ETA estimates time remaining as average render cost times the new frames
// still outstanding. Copies are assumed near-free, so the estimate is
// deliberately coarse and reads zero until a first render has completed.
func (j *Job) ETA() time.Duration {
	return j.AverageRenderTime() * time.Duration(j.newRemaining)
}

// FrameResult reports one completed frame to the progress callback.
type FrameResult struct {
	Frame     int
	Class     detect.Class
	Skipped   bool
	Completed int
	Total     int
	ETA       time.Duration
}

// ProgressFunc observes per-frame completion. Called from the render loop,
// never concurrently.
type ProgressFunc func(FrameResult)

// Options configure a pipeline run.
type Options struct {
	OutputRoot string
	// Resume skips rendering a new frame whose output file already exists
	// from an earlier run. Duplicates are still copied so the sequence
	// stays complete.
	Resume bool
}

// Pipeline renders a classified plan through a host.
type Pipeline struct {
	Host     blender.Host
	Opts     Options
	Progress ProgressFunc
	Log      zerolog.Logger
}

// Run executes the full pipeline for one scene: create the per-scene
// directory tree, bounce audio once, then satisfy every frame of the plan
// in increasing order. Cancellation is honoured at frame boundaries; frames
// already written stay on disk.
func (p *Pipeline) Run(ctx context.Context, scene *blender.Scene, plan *detect.Plan) (*Job, error) {
	job := &Job{
		SceneName:    scene.Name,
		OutputRoot:   p.Opts.OutputRoot,
		SceneDir:     filepath.Join(p.Opts.OutputRoot, scene.Name),
		Total:        len(plan.Records),
		newRemaining: plan.NewCount(),
		started:      time.Now(),
		state:        StateIdle,
	}
	job.ImagesDir = filepath.Join(job.SceneDir, "images")

	job.state = StateCreatingDirectories
	if err := os.MkdirAll(job.ImagesDir, 0o755); err != nil {
		return p.fail(ctx, job, fmt.Errorf("create output directories: %w", err))
	}

	job.state = StateExtractingAudio
	p.Log.Info().Str("scene", scene.Name).Msg("extracting audio")
	if err := p.Host.Mixdown(ctx, filepath.Join(job.SceneDir, AudioFileName)); err != nil {
		return p.fail(ctx, job, err)
	}

	job.state = StateRendering
	if err := p.renderLoop(ctx, job, scene, plan); err != nil {
		return p.fail(ctx, job, err)
	}

	job.state = StateDone
	p.Log.Info().
		Int("rendered", job.Rendered).
		Int("copied", job.Copied).
		Int("skipped", job.Skipped).
		Dur("elapsed", job.Elapsed()).
		Msg("run complete")
	return job, nil
}

func (p *Pipeline) fail(ctx context.Context, job *Job, err error) (*Job, error) {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		job.state = StateCancelled
		p.Log.Warn().Int("completed", job.Completed).Msg("run cancelled, partial output kept")
		return job, err
	}
	job.state = StateFailed
	return job, err
}

// renderLoop walks plan records in frame order. Rendering is delegated to a
// single host invocation over the new frames; duplicates are copied as soon
// as their reference frame's image exists, which by construction is before
// the next new frame completes.
func (p *Pipeline) renderLoop(ctx context.Context, job *Job, scene *blender.Scene, plan *detect.Plan) error {
	skipped := make(map[int]bool)
	var toRender []int
	for _, frame := range plan.NewFrames() {
		if p.Opts.Resume {
			if _, err := os.Stat(p.framePath(job, scene, frame)); err == nil {
				skipped[frame] = true
				continue
			}
		}
		toRender = append(toRender, frame)
	}
	if len(skipped) > 0 {
		p.Log.Info().Int("frames", len(skipped)).Msg("reusing frames from previous run")
	}

	cursor := 0
	advance := func(rendered int) error {
		for cursor < len(plan.Records) {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := plan.Records[cursor]
			switch {
			case rec.Class == detect.ClassNew && skipped[rec.Frame]:
				p.finishFrame(job, rec, true)
			case rec.Class == detect.ClassNew && rec.Frame == rendered:
				job.Rendered++
				p.finishFrame(job, rec, false)
			case rec.Class == detect.ClassNew:
				// Not rendered yet; wait for the next completion.
				return nil
			default:
				if err := p.copyFrame(job, scene, rec); err != nil {
					return err
				}
				p.finishFrame(job, rec, false)
			}
			cursor++
		}
		return nil
	}

	if err := p.Host.RenderFrames(ctx, scene, toRender, job.ImagesDir, advance); err != nil {
		return err
	}
	// Drain trailing skipped and duplicate records once the host is done.
	if err := advance(-1); err != nil {
		return err
	}
	if job.Completed != job.Total {
		return fmt.Errorf("render loop stopped after %d of %d frames", job.Completed, job.Total)
	}
	return nil
}

func (p *Pipeline) finishFrame(job *Job, rec detect.Record, skipped bool) {
	job.Completed++
	switch {
	case skipped:
		job.Skipped++
	case rec.Class == detect.ClassDuplicate:
		job.Copied++
	}
	if rec.Class == detect.ClassNew {
		job.newRemaining--
	}
	if p.Progress != nil {
		p.Progress(FrameResult{
			Frame:     rec.Frame,
			Class:     rec.Class,
			Skipped:   skipped,
			Completed: job.Completed,
			Total:     job.Total,
			ETA:       job.ETA(),
		})
	}
}

func (p *Pipeline) copyFrame(job *Job, scene *blender.Scene, rec detect.Record) error {
	src := p.framePath(job, scene, rec.Ref)
	dst := p.framePath(job, scene, rec.Frame)
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copy frame %d from %d: %w", rec.Frame, rec.Ref, err)
	}
	return nil
}

func (p *Pipeline) framePath(job *Job, scene *blender.Scene, frame int) string {
	return filepath.Join(job.ImagesDir, fmt.Sprintf("%d.%s", frame, scene.Ext))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
