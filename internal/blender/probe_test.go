package blender

import (
	"testing"

	"github.com/dwarfield/sleekrender/internal/detect"
)

const probeOutput = `Blender 4.1.1 (hash e1743a0317bc built 2024-04-15 23:34:40)
Read blend: /work/scenes/explainer.blend
SLEEK_PROBE_BEGIN
{"scene":"Scene","frame_start":1,"frame_end":5,"fps":24,"ext":"png","tracks":[{"owner":"Cube","path":"location","index":0,"values":[0,0,0,1,1]},{"owner":"Material/nodes","path":"nodes[\"Mix\"].inputs[0].default_value","index":-1,"values":[0.5,0.5,0.5,0.5,0.5]}]}
SLEEK_PROBE_END

Blender quit`

func TestParseProbeOutput(t *testing.T) {
	scene, err := parseProbeOutput([]byte(probeOutput))
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}

	if scene.Name != "Scene" {
		t.Errorf("scene name = %q, want Scene", scene.Name)
	}
	if scene.FrameStart != 1 || scene.FrameEnd != 5 {
		t.Errorf("frame range = [%d, %d], want [1, 5]", scene.FrameStart, scene.FrameEnd)
	}
	if scene.FrameCount() != 5 {
		t.Errorf("FrameCount = %d, want 5", scene.FrameCount())
	}
	if scene.FPS != 24 {
		t.Errorf("fps = %d, want 24", scene.FPS)
	}
	if scene.Ext != "png" {
		t.Errorf("ext = %q, want png", scene.Ext)
	}
	if len(scene.Tracks) != 2 {
		t.Fatalf("track count = %d, want 2", len(scene.Tracks))
	}

	want := detect.TrackRef{Owner: "Cube", Path: "location", Index: 0}
	if scene.Tracks[0].Ref != want {
		t.Errorf("track ref = %+v, want %+v", scene.Tracks[0].Ref, want)
	}
	if scene.Tracks[1].Ref.Index != -1 {
		t.Errorf("scalar track index = %d, want -1", scene.Tracks[1].Ref.Index)
	}
}

func TestParseProbeOutputMissingMarkers(t *testing.T) {
	if _, err := parseProbeOutput([]byte("Blender quit\n")); err == nil {
		t.Error("expected error for output without markers")
	}
}

func TestParseProbeOutputInvertedRange(t *testing.T) {
	out := "SLEEK_PROBE_BEGIN\n{\"scene\":\"S\",\"frame_start\":10,\"frame_end\":2,\"tracks\":[]}\nSLEEK_PROBE_END"
	if _, err := parseProbeOutput([]byte(out)); err == nil {
		t.Error("expected error for inverted frame range")
	}
}

func TestSceneSampler(t *testing.T) {
	scene, err := parseProbeOutput([]byte(probeOutput))
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}
	s := scene.Sampler()

	refs := s.Tracks()
	if len(refs) != 2 {
		t.Fatalf("sampler tracks = %d, want 2", len(refs))
	}

	value, present, err := s.Sample(refs[0], 4)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if !present || value != 1 {
		t.Errorf("Sample(frame 4) = (%g, %v), want (1, true)", value, present)
	}

	// Outside the probed range the parameter is reported absent.
	if _, present, _ := s.Sample(refs[0], 99); present {
		t.Error("expected absent sample outside scene range")
	}

	// Unknown refs are absent, not an error.
	unknown := detect.TrackRef{Owner: "Ghost", Path: "location", Index: 1}
	if _, present, _ := s.Sample(unknown, 1); present {
		t.Error("expected absent sample for unknown track")
	}
}

func TestParseRenderedLine(t *testing.T) {
	cases := []struct {
		line  string
		frame int
		ok    bool
	}{
		{"SLEEK_RENDERED 17", 17, true},
		{"  SLEEK_RENDERED 3\r", 3, true},
		{"Fra:17 Mem:120M | Rendering", 0, false},
		{"SLEEK_RENDERED seventeen", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		frame, ok := parseRenderedLine(tc.line)
		if ok != tc.ok || frame != tc.frame {
			t.Errorf("parseRenderedLine(%q) = (%d, %v), want (%d, %v)", tc.line, frame, ok, tc.frame, tc.ok)
		}
	}
}
