package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/comigor/bertbot/internal/logger"
)

const (
	bashTimeout   = 10 * time.Second
	bashMaxOutput = 1 << 20 // 1 MiB combined stdout+stderr
)

// BashTool runs sandboxed shell commands with a wall-clock timeout and a
// capped output buffer.
type BashTool struct {
	timeout   time.Duration
	maxOutput int
}

// NewBashTool creates the bash tool with default limits.
func NewBashTool() *BashTool {
	return &BashTool{timeout: bashTimeout, maxOutput: bashMaxOutput}
}

// Name returns the name of the tool.
func (t *BashTool) Name() string { return "bash" }

// Description returns the description surfaced to the model.
func (t *BashTool) Description() string { return "Run a shell command" }

// Run executes the command if the sandbox policy allows it. Output is
// collected through a writer that never retains more than maxOutput
// bytes and kills the process as soon as the cap is crossed, so a
// chatty command cannot balloon memory before the timeout fires.
func (t *BashTool) Run(input string) (string, error) {
	if !IsCommandAllowed(input) {
		logger.L.Warn("bash command denied by sandbox", "command", input)
		return "", fmt.Errorf("command not allowed by sandbox policy: %s", firstToken(input))
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	out := &cappedWriter{limit: t.maxOutput, cancel: cancel}
	cmd := exec.CommandContext(ctx, "sh", "-c", input)
	cmd.Stdout = out
	cmd.Stderr = out
	err := cmd.Run()

	if out.exceeded() {
		return "", errors.New("command output exceeds buffer limit")
	}
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %s", t.timeout)
	}
	if err != nil {
		return "", fmt.Errorf("command failed: %w: %s", err, out.String())
	}
	return out.String(), nil
}

// cappedWriter buffers at most limit bytes. The first write past the
// limit trips the overflow flag and cancels the command's context,
// killing the process; everything after that is discarded.
type cappedWriter struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	limit    int
	overflow bool
	cancel   context.CancelFunc
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.overflow {
		return len(p), nil
	}
	if w.buf.Len()+len(p) > w.limit {
		w.overflow = true
		w.buf.Write(p[:w.limit-w.buf.Len()])
		w.cancel()
		return len(p), nil
	}
	w.buf.Write(p)
	return len(p), nil
}

func (w *cappedWriter) exceeded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.overflow
}

func (w *cappedWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func firstToken(command string) string {
	for i := 0; i < len(command); i++ {
		if command[i] == ' ' || command[i] == '\t' {
			return command[:i]
		}
	}
	return command
}
