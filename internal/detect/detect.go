package detect

import (
	"fmt"
)

// Class labels a frame within a scanned range.
type Class uint8

const (
	// ClassNew marks a frame whose tracked parameters differ from the last
	// reference frame, so it needs an actual render.
	ClassNew Class = iota
	// ClassDuplicate marks a frame whose tracked parameters match an
	// earlier ClassNew frame; its image is produced by copying that
	// frame's file.
	ClassDuplicate
)

func (c Class) String() string {
	switch c {
	case ClassNew:
		return "new"
	case ClassDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// TrackRef identifies one tracked animation parameter: the owning
// datablock, its data path and the array index within that path
// (-1 for scalar paths).
type TrackRef struct {
	Owner string
	Path  string
	Index int
}

func (r TrackRef) String() string {
	if r.Index < 0 {
		return fmt.Sprintf("%s.%s", r.Owner, r.Path)
	}
	return fmt.Sprintf("%s.%s[%d]", r.Owner, r.Path, r.Index)
}

// Sampler exposes per-frame parameter values of a scene. Implementations
// back onto a live host dump or, in tests, onto plain maps.
type Sampler interface {
	// Tracks enumerates every tracked parameter.
	Tracks() []TrackRef
	// Sample returns the value of ref at frame. present is false when the
	// parameter does not exist at that frame (object added or removed
	// mid-range).
	Sample(ref TrackRef, frame int) (value float64, present bool, err error)
}

// Record classifies a single frame. Ref is meaningful only for duplicates
// and always points at a frame classified ClassNew.
type Record struct {
	Frame int
	Class Class
	Ref   int
}

// Plan is the classification of every frame in [Start, End], in order.
type Plan struct {
	Start   int
	End     int
	Records []Record
}

// NewCount returns the number of frames that need an actual render.
func (p *Plan) NewCount() int {
	n := 0
	for _, rec := range p.Records {
		if rec.Class == ClassNew {
			n++
		}
	}
	return n
}

// DuplicateCount returns the number of frames satisfied by copying.
func (p *Plan) DuplicateCount() int {
	return len(p.Records) - p.NewCount()
}

// NewFrames returns the frame numbers classified ClassNew, in order.
func (p *Plan) NewFrames() []int {
	var frames []int
	for _, rec := range p.Records {
		if rec.Class == ClassNew {
			frames = append(frames, rec.Frame)
		}
	}
	return frames
}

// Record returns the record for a frame number within the plan range.
func (p *Plan) Record(frame int) (Record, bool) {
	if frame < p.Start || frame > p.End {
		return Record{}, false
	}
	return p.Records[frame-p.Start], true
}

type sample struct {
	value   float64
	present bool
}

// BuildPlan scans [start, end] and classifies every frame. The first frame
// is always ClassNew. Each later frame is compared against the samples of
// the most recent ClassNew frame: if every tracked value matches within
// tolerance (and absence matches absence), the frame is a duplicate of that
// reference; otherwise it becomes the new reference.
//
// A sampling error never skips a render: the affected frame is classified
// ClassNew and the reference is re-established on the next cleanly sampled
// frame.
func BuildPlan(s Sampler, start, end int, tolerance float64) (*Plan, error) {
	if start > end {
		return nil, fmt.Errorf("invalid frame range [%d, %d]", start, end)
	}
	if tolerance < 0 {
		return nil, fmt.Errorf("negative tolerance %g", tolerance)
	}

	tracks := s.Tracks()
	plan := &Plan{
		Start:   start,
		End:     end,
		Records: make([]Record, 0, end-start+1),
	}

	var (
		refFrame   int
		refSamples []sample
		refKnown   bool
	)

	for frame := start; frame <= end; frame++ {
		samples, err := sampleFrame(s, tracks, frame)

		if frame == start || err != nil || !refKnown || !framesEqual(refSamples, samples, tolerance) {
			plan.Records = append(plan.Records, Record{Frame: frame, Class: ClassNew})
			refFrame = frame
			refSamples = samples
			refKnown = err == nil
			continue
		}

		plan.Records = append(plan.Records, Record{
			Frame: frame,
			Class: ClassDuplicate,
			Ref:   refFrame,
		})
	}

	return plan, nil
}

func sampleFrame(s Sampler, tracks []TrackRef, frame int) ([]sample, error) {
	samples := make([]sample, len(tracks))
	for i, ref := range tracks {
		value, present, err := s.Sample(ref, frame)
		if err != nil {
			return nil, fmt.Errorf("sample %s at frame %d: %w", ref, frame, err)
		}
		samples[i] = sample{value: value, present: present}
	}
	return samples, nil
}

func framesEqual(a, b []sample, tolerance float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].present != b[i].present {
			return false
		}
		if !a[i].present {
			continue
		}
		diff := a[i].value - b[i].value
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			return false
		}
	}
	return true
}
