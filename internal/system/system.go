// Package system wraps the OS-level odds and ends: opening folders in the
// file browser, locating scene files, probing media durations and taking
// resource snapshots before long renders.
package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// OpenFolder opens path in the OS file browser.
func OpenFolder(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open folder: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		return exec.Command("explorer", path).Start()
	case "darwin":
		return exec.Command("open", path).Start()
	default:
		return exec.Command("xdg-open", path).Start()
	}
}

// FindLatestBlend returns the most recently modified .blend file in dir.
func FindLatestBlend(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(strings.ToLower(f.Name()), ".blend") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no .blend files found in %s", dir)
	}
	return latestFile, nil
}

// AudioDuration reads the duration of an audio file via ffprobe.
func AudioDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDuration(out)
}

func parseDuration(out []byte) (float64, error) {
	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}

// Resources is a point-in-time snapshot taken before a render run.
type Resources struct {
	CPUCount    int
	MemoryTotal uint64
	MemoryFree  uint64
	DiskFree    uint64
}

// Snapshot collects CPU, memory and free-disk figures for the output root.
// Long renders fill disks; the caller logs this so failures are explainable.
func Snapshot(outputRoot string) (*Resources, error) {
	res := &Resources{}

	count, err := cpu.Counts(true)
	if err != nil {
		return nil, fmt.Errorf("cpu count: %w", err)
	}
	res.CPUCount = count

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("memory stats: %w", err)
	}
	res.MemoryTotal = vm.Total
	res.MemoryFree = vm.Available

	// The output root may not exist yet; fall back to its parent.
	target := outputRoot
	if _, err := os.Stat(target); err != nil {
		target = filepath.Dir(target)
	}
	usage, err := disk.Usage(target)
	if err != nil {
		return nil, fmt.Errorf("disk usage for %s: %w", target, err)
	}
	res.DiskFree = usage.Free

	return res, nil
}
