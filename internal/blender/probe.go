package blender

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dwarfield/sleekrender/internal/detect"
)

type probeDoc struct {
	Scene      string       `json:"scene"`
	FrameStart int          `json:"frame_start"`
	FrameEnd   int          `json:"frame_end"`
	FPS        int          `json:"fps"`
	Ext        string       `json:"ext"`
	Tracks     []probeTrack `json:"tracks"`
}

type probeTrack struct {
	Owner  string    `json:"owner"`
	Path   string    `json:"path"`
	Index  int       `json:"index"`
	Values []float64 `json:"values"`
}

// parseProbeOutput extracts the JSON document the bridge prints between its
// sentinel markers. Blender writes its own startup noise around it, so the
// markers are searched for anywhere in the output.
func parseProbeOutput(out []byte) (*Scene, error) {
	text := string(out)
	begin := strings.Index(text, probeBegin)
	end := strings.Index(text, probeEnd)
	if begin < 0 || end < 0 || end < begin {
		return nil, fmt.Errorf("probe markers not found in blender output")
	}
	payload := strings.TrimSpace(text[begin+len(probeBegin) : end])

	var doc probeDoc
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("decode probe document: %w", err)
	}
	if doc.FrameEnd < doc.FrameStart {
		return nil, fmt.Errorf("probed frame range [%d, %d] is inverted", doc.FrameStart, doc.FrameEnd)
	}
	if doc.Ext == "" {
		doc.Ext = "png"
	}

	scene := &Scene{
		Name:       doc.Scene,
		FrameStart: doc.FrameStart,
		FrameEnd:   doc.FrameEnd,
		FPS:        doc.FPS,
		Ext:        doc.Ext,
		Tracks:     make([]Track, 0, len(doc.Tracks)),
	}
	for _, t := range doc.Tracks {
		scene.Tracks = append(scene.Tracks, Track{
			Ref:    detect.TrackRef{Owner: t.Owner, Path: t.Path, Index: t.Index},
			Values: t.Values,
		})
	}
	return scene, nil
}
