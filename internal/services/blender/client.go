package blender

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"plinth/internal/services"
)

//go:embed driver.py
var driverScript string

// diagnosticTailLines bounds how much renderer output is kept for error
// messages.
const diagnosticTailLines = 40

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*CLI)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *CLI) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// CLI wraps Blender command-line invocations.
type CLI struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// NewCLI constructs a Blender client.
func NewCLI(binary string, timeoutSeconds int, opts ...Option) (*CLI, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("blender binary required")
	}
	client := &CLI{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Render executes Blender in background mode against a generated scene spec
// and returns the produced frame sequence. A non-zero exit or timeout is a
// render failure carrying the tail of Blender's output as its diagnostic.
func (c *CLI) Render(ctx context.Context, req Request) (Result, error) {
	if req.SourcePath == "" {
		return Result{}, errors.New("source path required")
	}
	if req.FramesDir == "" {
		return Result{}, errors.New("frames directory required")
	}
	if err := os.MkdirAll(req.FramesDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create frames directory: %w", err)
	}

	specPath, driverPath, err := c.writeScene(req)
	if err != nil {
		return Result{}, err
	}
	result := Result{FramesDir: req.FramesDir, SpecPath: specPath, DriverPath: driverPath}

	renderCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var tail diagnosticTail
	args := []string{"--background", "--python", driverPath, "--", specPath}
	runErr := c.exec.Run(renderCtx, c.binary, args, tail.add)
	if runErr != nil {
		marker := services.ErrRender
		if errors.Is(renderCtx.Err(), context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return result, services.Wrap(marker, "render", "blender", tail.String(), runErr)
	}

	count, err := countFrames(req.FramesDir)
	if err != nil {
		return result, services.Wrap(services.ErrRender, "render", "inspect frames", "", err)
	}
	if count == 0 {
		return result, services.Wrap(services.ErrRender, "render", "blender", "no frames produced", nil)
	}
	result.FrameCount = count
	return result, nil
}

// writeScene serializes the request next to the frame output and drops the
// embedded driver alongside it. Both paths are returned for later cleanup.
func (c *CLI) writeScene(req Request) (string, string, error) {
	specJSON, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode scene spec: %w", err)
	}

	specPath := filepath.Join(req.FramesDir, "scene_spec.json")
	if err := os.WriteFile(specPath, specJSON, 0o644); err != nil {
		return "", "", fmt.Errorf("write scene spec: %w", err)
	}

	driverPath := filepath.Join(req.FramesDir, "render_driver.py")
	if err := os.WriteFile(driverPath, []byte(driverScript), 0o644); err != nil {
		return "", "", fmt.Errorf("write render driver: %w", err)
	}
	return specPath, driverPath, nil
}

func countFrames(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasPrefix(name, "frame_") && strings.HasSuffix(name, ".png") {
			count++
		}
	}
	return count, nil
}

type diagnosticTail struct {
	mu    sync.Mutex
	lines []string
}

func (t *diagnosticTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > diagnosticTailLines {
		t.lines = t.lines[len(t.lines)-diagnosticTailLines:]
	}
}

func (t *diagnosticTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(strings.Join(t.lines, "\n"))
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

var _ Renderer = (*CLI)(nil)
