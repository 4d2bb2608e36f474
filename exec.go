package mpisys

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env replaces the process environment when non-nil.
	Env []string
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Name, c.Args)
}

// Result holds the captured streams of a finished command.
type Result struct {
	Stdout []byte
	Stderr []byte
	// Combined interleaves both streams in write order, when the executor
	// captures it.
	Combined []byte
}

// Output returns everything the command printed. cl.exe and lib.exe write
// their diagnostics to stdout, so failures carry both streams.
func (r Result) Output() string {
	if len(r.Combined) > 0 {
		return string(r.Combined)
	}
	out := string(r.Stdout)
	if out != "" && len(r.Stderr) > 0 && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + string(r.Stderr)
}

// Executor runs external tools. The default implementation uses os/exec;
// tests substitute a recorder.
type Executor interface {
	// LookPath resolves name to an executable path.
	LookPath(name string) (string, error)
	// Execute runs cmd to completion.
	Execute(ctx context.Context, cmd Command) (Result, error)
}

// OSExecutor runs commands on the host.
type OSExecutor struct{}

// LookPath wraps [exec.LookPath].
func (OSExecutor) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found in PATH", ErrToolNotFound, name)
	}
	return path, nil
}

// Execute runs cmd with stdout and stderr captured separately.
func (OSExecutor) Execute(ctx context.Context, cmd Command) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if cmd.Env != nil {
		c.Env = cmd.Env
	}

	var stdout, stderr bytes.Buffer
	combined := &lockedBuffer{}
	c.Stdout = io.MultiWriter(&stdout, combined)
	c.Stderr = io.MultiWriter(&stderr, combined)
	err := c.Run()
	return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Combined: combined.Bytes()}, err
}

// lockedBuffer is written from the stdout and stderr copy goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}
