// Package report renders the analyze-mode output: how many frames need a
// real render versus a copy, and what that saves.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dwarfield/sleekrender/internal/detect"
)

// Analysis is the read-only result of scanning a scene. Nothing is written
// to disk when producing it.
type Analysis struct {
	SceneName string
	FPS       int
	// AudioSeconds is the duration of the scene's mixed-down audio track,
	// when one exists from an earlier run. Zero means unknown.
	AudioSeconds float64
	Plan         *detect.Plan
}

// Render writes a human-readable summary and a per-frame classification
// table. maxRows caps the table; 0 means every frame.
func Render(w io.Writer, a Analysis, maxRows int) {
	plan := a.Plan
	total := len(plan.Records)
	newCount := plan.NewCount()
	dupCount := plan.DuplicateCount()

	saved := 0.0
	if total > 0 {
		saved = float64(dupCount) / float64(total) * 100
	}

	fmt.Fprintf(w, "Scene %q, frames %d-%d (%s frames",
		a.SceneName, plan.Start, plan.End, humanize.Comma(int64(total)))
	if a.FPS > 0 {
		length := time.Duration(float64(total) / float64(a.FPS) * float64(time.Second))
		fmt.Fprintf(w, ", %s at %d fps", length.Round(time.Millisecond), a.FPS)
	}
	fmt.Fprintf(w, ")\n")
	if a.AudioSeconds > 0 && a.FPS > 0 {
		audio := time.Duration(a.AudioSeconds * float64(time.Second))
		ratio := float64(total) / float64(a.FPS) / a.AudioSeconds
		fmt.Fprintf(w, "Audio track: %s, sequence covers %.2fx of it\n",
			audio.Round(time.Millisecond), ratio)
	}
	fmt.Fprintf(w, "Renders needed: %s   Copies: %s   Renders avoided: %.1f%%\n\n",
		humanize.Comma(int64(newCount)), humanize.Comma(int64(dupCount)), saved)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Frame", "Classification", "Copies From"})

	rows := plan.Records
	truncated := 0
	if maxRows > 0 && len(rows) > maxRows {
		truncated = len(rows) - maxRows
		rows = rows[:maxRows]
	}
	for _, rec := range rows {
		ref := "-"
		if rec.Class == detect.ClassDuplicate {
			ref = fmt.Sprintf("%d", rec.Ref)
		}
		t.AppendRow(table.Row{rec.Frame, rec.Class.String(), ref})
	}
	t.Render()

	if truncated > 0 {
		fmt.Fprintf(w, "... %s more frames not shown\n", humanize.Comma(int64(truncated)))
	}
}
