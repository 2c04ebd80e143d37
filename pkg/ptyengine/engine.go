// Package ptyengine allocates and drives a single pseudo-terminal-backed
// child process: the lowest layer of the session stack, responsible for
// nothing but bytes in, bytes out, and lifecycle.
package ptyengine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/kadirpekel/ccswarmd/pkg/ccerrors"
)

// Status reports the engine's current lifecycle state.
type Status struct {
	Running  bool
	Pid      int
	Rows     uint16
	Cols     uint16
	ExitCode int
	ExitedAt time.Time
}

// StartConfig describes the child process an Engine should launch.
type StartConfig struct {
	Command string
	Args    []string
	Env     []string
	Dir     string
	Rows    uint16
	Cols    uint16
}

// Engine drives one PTY-backed child process.
type Engine interface {
	Start(ctx context.Context, cfg StartConfig) error
	Write(p []byte) (int, error)
	ReadBuffer(limitLines int) []byte
	Resize(rows, cols uint16) error
	Stop() error
	Status() Status
}

// writeQueueCapacity bounds the input channel per the core's resource
// caps: a session that is not being read from should not let a runaway
// writer grow memory unbounded.
const writeQueueCapacity = 100

type engine struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	ptmx    *os.File
	buf     *Buffer
	writeCh chan []byte
	done    chan struct{}

	status Status
}

// New constructs an idle Engine with the given scrollback capacity in
// bytes (0 selects DefaultCapacity).
func New(scrollbackBytes int) Engine {
	return &engine{
		buf: NewBuffer(scrollbackBytes),
	}
}

func (e *engine) Start(ctx context.Context, cfg StartConfig) error {
	e.mu.Lock()
	if e.cmd != nil {
		e.mu.Unlock()
		return ccerrors.New(ccerrors.InvalidState, "engine already started")
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = cfg.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	rows, cols := cfg.Rows, cfg.Cols
	if rows == 0 {
		rows = 24
	}
	if cols == 0 {
		cols = 80
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		e.mu.Unlock()
		return ccerrors.Wrap(ccerrors.PtyError, err, "start pty")
	}

	e.cmd = cmd
	e.ptmx = ptmx
	e.writeCh = make(chan []byte, writeQueueCapacity)
	e.done = make(chan struct{})
	e.status = Status{Running: true, Pid: cmd.Process.Pid, Rows: rows, Cols: cols}
	e.mu.Unlock()

	go e.readLoop()
	go e.writeLoop()

	return nil
}

func (e *engine) readLoop() {
	buf := make([]byte, 32*1024)
	var pending []byte
	for {
		n, err := e.ptmx.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if len(pending) > 0 {
				chunk = append(append([]byte{}, pending...), chunk...)
				pending = nil
			}
			if tail := incompleteUTF8Tail(chunk); tail > 0 {
				pending = append([]byte{}, chunk[len(chunk)-tail:]...)
				chunk = chunk[:len(chunk)-tail]
			}
			if len(chunk) > 0 {
				_, _ = e.buf.Write(chunk)
			}
		}
		if err != nil {
			if len(pending) > 0 {
				_, _ = e.buf.Write(pending)
			}
			break
		}
	}

	state, _ := e.cmd.Process.Wait()
	exitCode := 0
	if state != nil {
		exitCode = state.ExitCode()
	}

	e.mu.Lock()
	e.status.Running = false
	e.status.ExitCode = exitCode
	e.status.ExitedAt = time.Now()
	e.mu.Unlock()
	close(e.done)
}

func (e *engine) writeLoop() {
	for {
		select {
		case p, ok := <-e.writeCh:
			if !ok {
				return
			}
			_, _ = e.ptmx.Write(p)
		case <-e.done:
			return
		}
	}
}

func (e *engine) Write(p []byte) (int, error) {
	e.mu.Lock()
	if e.ptmx == nil || !e.status.Running {
		e.mu.Unlock()
		return 0, ccerrors.New(ccerrors.InvalidState, "engine not running")
	}
	ch := e.writeCh
	e.mu.Unlock()

	cp := append([]byte{}, p...)
	select {
	case ch <- cp:
		return len(p), nil
	default:
		return 0, ccerrors.New(ccerrors.ResourceKind, "input queue full")
	}
}

func (e *engine) ReadBuffer(limitLines int) []byte {
	return e.buf.Tail(limitLines)
}

func (e *engine) Resize(rows, cols uint16) error {
	e.mu.Lock()
	ptmx := e.ptmx
	running := e.status.Running
	e.mu.Unlock()

	if ptmx == nil || !running {
		return ccerrors.New(ccerrors.InvalidState, "engine not running")
	}

	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) {
			return ccerrors.New(ccerrors.Unsupported, "resize not supported on this platform")
		}
		return ccerrors.Wrap(ccerrors.PtyError, err, "resize pty")
	}

	e.mu.Lock()
	e.status.Rows, e.status.Cols = rows, cols
	e.mu.Unlock()
	return nil
}

// Stop terminates the child process and releases the PTY. It is
// idempotent: calling Stop on an already-stopped or never-started engine
// returns nil.
func (e *engine) Stop() error {
	e.mu.Lock()
	cmd := e.cmd
	ptmx := e.ptmx
	running := e.status.Running
	e.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if running {
		_ = cmd.Process.Kill()
	}
	if ptmx != nil {
		_ = ptmx.Close()
	}

	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
	return nil
}

func (e *engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// incompleteUTF8Tail returns the number of trailing bytes of p that form
// an incomplete UTF-8 sequence, so callers can hold them back until more
// bytes arrive rather than emit U+FFFD replacement characters mid-rune.
func incompleteUTF8Tail(p []byte) int {
	n := len(p)
	if n == 0 {
		return 0
	}
	max := n
	if max > 4 {
		max = 4
	}
	for i := 1; i <= max; i++ {
		b := p[n-i]
		if b&0xC0 != 0x80 { // lead byte (or ASCII)
			want := utf8SeqLen(b)
			if want > i {
				return i
			}
			return 0
		}
	}
	return 0
}

func utf8SeqLen(b byte) int {
	switch {
	case b&0x80 == 0x00:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}
