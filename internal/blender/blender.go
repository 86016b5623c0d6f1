// Package blender drives a Blender installation in background mode through
// an embedded Python bridge script, exposing the scene capabilities the
// render pipeline needs: probing F-curve samples, rendering frames and
// bouncing audio.
package blender

import (
	"context"

	"github.com/dwarfield/sleekrender/internal/detect"
)

// Host abstracts the render engine behind the pipeline. The production
// implementation is CLI; tests substitute in-memory fakes.
type Host interface {
	// Probe reads scene metadata and per-frame parameter samples without
	// writing any files.
	Probe(ctx context.Context) (*Scene, error)
	// RenderFrames renders the given frames, in the order supplied, into
	// imagesDir as <frame>.<ext>. done is invoked after each frame's image
	// exists on disk; a non-nil return aborts the render.
	RenderFrames(ctx context.Context, scene *Scene, frames []int, imagesDir string, done func(frame int) error) error
	// Mixdown bounces the scene's audio track to path.
	Mixdown(ctx context.Context, path string) error
}

// Scene is the probed state of a Blender scene.
type Scene struct {
	Name       string
	FrameStart int
	FrameEnd   int
	FPS        int
	Ext        string
	Tracks     []Track
}

// Track carries the sampled values of one F-curve across the scene range.
// Values is indexed from FrameStart.
type Track struct {
	Ref    detect.TrackRef
	Values []float64
}

// FrameCount returns the number of frames in the scene range, inclusive.
func (s *Scene) FrameCount() int {
	return s.FrameEnd - s.FrameStart + 1
}

// Sampler adapts the probed tracks to the detector's capability interface.
func (s *Scene) Sampler() detect.Sampler {
	return &sceneSampler{scene: s}
}

type sceneSampler struct {
	scene *Scene
}

func (s *sceneSampler) Tracks() []detect.TrackRef {
	refs := make([]detect.TrackRef, len(s.scene.Tracks))
	for i, track := range s.scene.Tracks {
		refs[i] = track.Ref
	}
	return refs
}

func (s *sceneSampler) Sample(ref detect.TrackRef, frame int) (float64, bool, error) {
	for _, track := range s.scene.Tracks {
		if track.Ref != ref {
			continue
		}
		i := frame - s.scene.FrameStart
		if i < 0 || i >= len(track.Values) {
			return 0, false, nil
		}
		return track.Values[i], true, nil
	}
	return 0, false, nil
}
