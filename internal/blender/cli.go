package blender

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

//go:embed bridge.py
var bridgeScript []byte

const (
	probeBegin     = "SLEEK_PROBE_BEGIN"
	probeEnd       = "SLEEK_PROBE_END"
	renderedPrefix = "SLEEK_RENDERED "
)

// CLI talks to a Blender binary found on PATH (or configured explicitly),
// loading the scene file once per invocation with the bridge script.
type CLI struct {
	exe   string
	blend string
	log   zerolog.Logger
}

// NewCLI resolves the Blender binary and binds it to a .blend file.
func NewCLI(blendPath, blenderPath string, log zerolog.Logger) (*CLI, error) {
	if _, err := os.Stat(blendPath); err != nil {
		return nil, fmt.Errorf("scene file: %w", err)
	}
	if blenderPath == "" {
		blenderPath = "blender"
	}
	exe, err := exec.LookPath(blenderPath)
	if err != nil {
		return nil, fmt.Errorf("blender not found in PATH: %w", err)
	}
	return &CLI{exe: exe, blend: blendPath, log: log}, nil
}

// command builds a background Blender invocation running the bridge script
// with bridgeArgs passed after the -- separator.
func (c *CLI) command(ctx context.Context, scriptPath string, bridgeArgs ...string) *exec.Cmd {
	args := []string{"--background", c.blend, "--python", scriptPath, "--"}
	args = append(args, bridgeArgs...)
	return exec.CommandContext(ctx, c.exe, args...)
}

// writeBridge materializes the embedded bridge script into a temp file for
// one invocation. The caller removes it.
func writeBridge() (string, error) {
	f, err := os.CreateTemp("", "sleek_bridge_*.py")
	if err != nil {
		return "", fmt.Errorf("bridge temp file: %w", err)
	}
	if _, err := f.Write(bridgeScript); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write bridge script: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close bridge script: %w", err)
	}
	return f.Name(), nil
}

func (c *CLI) Probe(ctx context.Context) (*Scene, error) {
	script, err := writeBridge()
	if err != nil {
		return nil, err
	}
	defer os.Remove(script)

	cmd := c.command(ctx, script, "probe")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("blender probe failed: %w\n%s", err, tail(out))
	}

	scene, err := parseProbeOutput(out)
	if err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}
	c.log.Debug().
		Str("scene", scene.Name).
		Int("frame_start", scene.FrameStart).
		Int("frame_end", scene.FrameEnd).
		Int("tracks", len(scene.Tracks)).
		Msg("scene probed")
	return scene, nil
}

func (c *CLI) RenderFrames(ctx context.Context, scene *Scene, frames []int, imagesDir string, done func(frame int) error) error {
	if len(frames) == 0 {
		return nil
	}

	script, err := writeBridge()
	if err != nil {
		return err
	}
	defer os.Remove(script)

	list := make([]string, len(frames))
	for i, f := range frames {
		list[i] = strconv.Itoa(f)
	}

	cmd := c.command(ctx, script, "render", imagesDir, scene.Ext, strings.Join(list, ","))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("blender start: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			frame, ok := parseRenderedLine(scanner.Text())
			if !ok {
				continue
			}
			c.log.Debug().Int("frame", frame).Msg("frame rendered")
			if err := done(frame); err != nil {
				return err
			}
		}
		return scanner.Err()
	})

	scanErr := g.Wait()
	if scanErr != nil {
		// The done callback aborted; stop the renderer mid-run.
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	if scanErr != nil {
		return scanErr
	}
	if waitErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("blender render failed: %w\n%s", waitErr, tail(stderr.Bytes()))
	}
	return nil
}

func (c *CLI) Mixdown(ctx context.Context, path string) error {
	script, err := writeBridge()
	if err != nil {
		return err
	}
	defer os.Remove(script)

	cmd := c.command(ctx, script, "mixdown", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("audio mixdown failed: %w\n%s", err, tail(out))
	}
	return nil
}

// parseRenderedLine matches the bridge's per-frame completion marker.
func parseRenderedLine(line string) (int, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, renderedPrefix) {
		return 0, false
	}
	frame, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, renderedPrefix)))
	if err != nil {
		return 0, false
	}
	return frame, true
}

// tail keeps error output readable: Blender is chatty on stdout, the last
// lines carry the actual failure.
func tail(out []byte) string {
	const maxLines = 15
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}

var _ Host = (*CLI)(nil)
