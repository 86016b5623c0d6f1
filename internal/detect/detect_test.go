package detect

import (
	"errors"
	"testing"
)

// mapSampler backs the Sampler interface onto plain maps so plans can be
// built without a live host.
type mapSampler struct {
	tracks []TrackRef
	values map[TrackRef]map[int]float64
	errs   map[int]error
}

func (s *mapSampler) Tracks() []TrackRef { return s.tracks }

func (s *mapSampler) Sample(ref TrackRef, frame int) (float64, bool, error) {
	if err, ok := s.errs[frame]; ok {
		return 0, false, err
	}
	frames, ok := s.values[ref]
	if !ok {
		return 0, false, nil
	}
	value, ok := frames[frame]
	if !ok {
		return 0, false, nil
	}
	return value, true, nil
}

func singleTrack(values map[int]float64) *mapSampler {
	ref := TrackRef{Owner: "Cube", Path: "location", Index: 0}
	return &mapSampler{
		tracks: []TrackRef{ref},
		values: map[TrackRef]map[int]float64{ref: values},
	}
}

func classes(p *Plan) []Class {
	out := make([]Class, len(p.Records))
	for i, rec := range p.Records {
		out[i] = rec.Class
	}
	return out
}

func TestFirstFrameAlwaysNew(t *testing.T) {
	s := singleTrack(map[int]float64{1: 5, 2: 5})
	plan, err := BuildPlan(s, 1, 2, 1e-6)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if plan.Records[0].Class != ClassNew {
		t.Errorf("first frame classified %s, want new", plan.Records[0].Class)
	}
}

func TestConstantTrackCollapsesToOneRender(t *testing.T) {
	s := singleTrack(map[int]float64{1: 2.5, 2: 2.5, 3: 2.5, 4: 2.5, 5: 2.5})
	plan, err := BuildPlan(s, 1, 5, 1e-6)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if got := plan.NewCount(); got != 1 {
		t.Errorf("NewCount = %d, want 1", got)
	}
	if got := plan.DuplicateCount(); got != 4 {
		t.Errorf("DuplicateCount = %d, want 4", got)
	}
	for _, rec := range plan.Records[1:] {
		if rec.Ref != 1 {
			t.Errorf("frame %d references %d, want 1", rec.Frame, rec.Ref)
		}
	}
}

func TestLocationStepSequence(t *testing.T) {
	// Range [1,5], location values [0,0,0,1,1]:
	// expected NEW,DUP,DUP,NEW,DUP with renders {1,4} and copies 2->1, 3->1, 5->4.
	s := singleTrack(map[int]float64{1: 0, 2: 0, 3: 0, 4: 1, 5: 1})
	plan, err := BuildPlan(s, 1, 5, 1e-6)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}

	want := []Class{ClassNew, ClassDuplicate, ClassDuplicate, ClassNew, ClassDuplicate}
	got := classes(plan)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d classified %s, want %s", plan.Records[i].Frame, got[i], want[i])
		}
	}

	renders := plan.NewFrames()
	if len(renders) != 2 || renders[0] != 1 || renders[1] != 4 {
		t.Errorf("NewFrames = %v, want [1 4]", renders)
	}

	wantRefs := map[int]int{2: 1, 3: 1, 5: 4}
	for frame, ref := range wantRefs {
		rec, ok := plan.Record(frame)
		if !ok {
			t.Fatalf("no record for frame %d", frame)
		}
		if rec.Ref != ref {
			t.Errorf("frame %d copies from %d, want %d", frame, rec.Ref, ref)
		}
	}
}

func TestDuplicatesNeverReferenceDuplicates(t *testing.T) {
	s := singleTrack(map[int]float64{1: 0, 2: 0, 3: 1, 4: 1, 5: 0, 6: 0, 7: 0})
	plan, err := BuildPlan(s, 1, 7, 1e-6)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	for _, rec := range plan.Records {
		if rec.Class != ClassDuplicate {
			continue
		}
		ref, ok := plan.Record(rec.Ref)
		if !ok {
			t.Fatalf("frame %d references %d, outside plan", rec.Frame, rec.Ref)
		}
		if ref.Class != ClassNew {
			t.Errorf("frame %d references %d which is %s, want new", rec.Frame, rec.Ref, ref.Class)
		}
	}
}

func TestToleranceAbsorbsFloatNoise(t *testing.T) {
	s := singleTrack(map[int]float64{1: 1.0, 2: 1.0 + 5e-7, 3: 1.01})
	plan, err := BuildPlan(s, 1, 3, 1e-6)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	want := []Class{ClassNew, ClassDuplicate, ClassNew}
	got := classes(plan)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d classified %s, want %s", i+1, got[i], want[i])
		}
	}
}

func TestMissingParameterPolicy(t *testing.T) {
	// Track exists only on frames 3-4: absent==absent keeps frames 1-2
	// collapsed; the absent->present edge at frame 3 and the
	// present->absent edge at frame 5 both force a render.
	s := singleTrack(map[int]float64{3: 1, 4: 1})
	plan, err := BuildPlan(s, 1, 5, 1e-6)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	want := []Class{ClassNew, ClassDuplicate, ClassNew, ClassDuplicate, ClassNew}
	got := classes(plan)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d classified %s, want %s", i+1, got[i], want[i])
		}
	}
}

func TestSampleErrorDegradesToNew(t *testing.T) {
	s := singleTrack(map[int]float64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0})
	s.errs = map[int]error{3: errors.New("unreadable fcurve")}

	plan, err := BuildPlan(s, 1, 5, 1e-6)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}

	// Frame 3 must render (uncertain data never skips a render), and frame
	// 4 re-establishes the reference rather than copying from frame 3.
	want := []Class{ClassNew, ClassDuplicate, ClassNew, ClassNew, ClassDuplicate}
	got := classes(plan)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d classified %s, want %s", i+1, got[i], want[i])
		}
	}
	if rec, _ := plan.Record(5); rec.Ref != 4 {
		t.Errorf("frame 5 references %d, want 4", rec.Ref)
	}
}

func TestMultipleTracksAnyChangeForcesRender(t *testing.T) {
	loc := TrackRef{Owner: "Cube", Path: "location", Index: 0}
	rot := TrackRef{Owner: "Cube", Path: "rotation_euler", Index: 2}
	s := &mapSampler{
		tracks: []TrackRef{loc, rot},
		values: map[TrackRef]map[int]float64{
			loc: {1: 0, 2: 0, 3: 0},
			rot: {1: 0, 2: 0, 3: 0.5},
		},
	}
	plan, err := BuildPlan(s, 1, 3, 1e-6)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	want := []Class{ClassNew, ClassDuplicate, ClassNew}
	got := classes(plan)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d classified %s, want %s", i+1, got[i], want[i])
		}
	}
}

func TestBuildPlanRejectsBadInput(t *testing.T) {
	s := singleTrack(map[int]float64{1: 0})
	if _, err := BuildPlan(s, 5, 1, 1e-6); err == nil {
		t.Error("expected error for inverted range")
	}
	if _, err := BuildPlan(s, 1, 1, -0.5); err == nil {
		t.Error("expected error for negative tolerance")
	}
}

func TestSingleFrameRange(t *testing.T) {
	s := singleTrack(map[int]float64{7: 3})
	plan, err := BuildPlan(s, 7, 7, 1e-6)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if len(plan.Records) != 1 || plan.Records[0].Class != ClassNew {
		t.Errorf("single-frame plan = %+v, want one new record", plan.Records)
	}
}
