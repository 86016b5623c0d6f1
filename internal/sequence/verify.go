// Package sequence checks a rendered image sequence for completeness:
// exactly one readable image per frame number, with consistent dimensions.
package sequence

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// decodableExts are formats the verifier can open. Targa and OpenEXR
// sequences are only checked for presence and non-zero size.
var decodableExts = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"bmp":  true,
	"tiff": true,
}

// Report summarizes a verified sequence.
type Report struct {
	Frames int
	Width  int
	Height int
}

// Verify walks frames [start, end] in imagesDir and fails on the first
// missing, empty or undecodable file, or on a dimension mismatch between
// frames.
func Verify(imagesDir, ext string, start, end int) (*Report, error) {
	if start > end {
		return nil, fmt.Errorf("invalid frame range [%d, %d]", start, end)
	}

	report := &Report{}
	for frame := start; frame <= end; frame++ {
		path := filepath.Join(imagesDir, fmt.Sprintf("%d.%s", frame, ext))
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", frame, err)
		}
		if info.Size() == 0 {
			return nil, fmt.Errorf("frame %d: %s is empty", frame, path)
		}

		if decodableExts[ext] {
			width, height, err := decodeSize(path)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", frame, err)
			}
			if report.Frames == 0 {
				report.Width, report.Height = width, height
			} else if width != report.Width || height != report.Height {
				return nil, fmt.Errorf("frame %d: dimensions %dx%d differ from %dx%d",
					frame, width, height, report.Width, report.Height)
			}
		}
		report.Frames++
	}
	return report, nil
}

func decodeSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}
