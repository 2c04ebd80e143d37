// Package session implements the PTY-backed session: a shell process, its
// context history, and the state machine that governs its lifecycle.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/ccswarmd/pkg/bus"
	"github.com/kadirpekel/ccswarmd/pkg/ccerrors"
	cctx "github.com/kadirpekel/ccswarmd/pkg/context"
	"github.com/kadirpekel/ccswarmd/pkg/ptyengine"
)

// Status is one of the finite set of session lifecycle states.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusRunning      Status = "running"
	StatusPaused       Status = "paused"
	StatusTerminating  Status = "terminating"
	StatusTerminated   Status = "terminated"
	StatusError        Status = "error"
)

// ErrSessionNotFound is the sentinel the manager surfaces for a missing
// session id.
var ErrSessionNotFound = errors.New("session not found")

// ErrStateKeyNotExist is returned by the whiteboard when a key is absent.
var ErrStateKeyNotExist = errors.New("state key does not exist")

// Config describes how a Session's PTY child process should be launched
// and governed.
type Config struct {
	WorkingDir      string
	Env             map[string]string
	ShellCommand    string
	ShellArgs       []string
	Rows            uint16
	Cols            uint16
	OutputBufferCap int // bytes; 0 selects ptyengine.DefaultCapacity
	Timeout         time.Duration
	Compress        bool
	AIFeatures      bool
	Context         cctx.Config
}

func (c *Config) setDefaults() {
	if c.ShellCommand == "" {
		c.ShellCommand = "/bin/bash"
	}
	if c.Rows == 0 {
		c.Rows = 24
	}
	if c.Cols == 0 {
		c.Cols = 80
	}
}

// Session is a single PTY-backed shell driven through a state machine.
// The embedded engine and child process are exclusively owned by the
// Session; the Session itself may be shared by multiple holders via the
// pointer handed out by sessionmanager.
type Session struct {
	id        string
	createdAt time.Time

	mu            sync.RWMutex
	status        Status
	lastActivity  time.Time
	attached      bool
	cfg           Config
	engine        ptyengine.Engine
	compactor     *cctx.Compactor
	metadata      map[string]json.RawMessage
	whiteboard    map[string]any
	bus           *bus.Bus
	terminateOnce sync.Once
}

// New constructs a Session in Initializing state. The caller must call
// Start before any I/O operation succeeds.
func New(cfg Config) *Session {
	cfg.setDefaults()
	return &Session{
		id:         uuid.NewString(),
		createdAt:  time.Now(),
		status:     StatusInitializing,
		cfg:        cfg,
		engine:     ptyengine.New(cfg.OutputBufferCap),
		compactor:  cctx.NewCompactor(cfg.Context),
		metadata:   make(map[string]json.RawMessage),
		whiteboard: make(map[string]any),
	}
}

// Restore constructs a Session with a caller-supplied id and creation
// time, used when reconstituting a session from a checkpoint. It starts
// in Initializing state exactly like New.
func Restore(id string, createdAt time.Time, cfg Config) *Session {
	cfg.setDefaults()
	return &Session{
		id:         id,
		createdAt:  createdAt,
		status:     StatusInitializing,
		cfg:        cfg,
		engine:     ptyengine.New(cfg.OutputBufferCap),
		compactor:  cctx.NewCompactor(cfg.Context),
		metadata:   make(map[string]json.RawMessage),
		whiteboard: make(map[string]any),
	}
}

// SetBus wires the session to the coordination bus so whiteboard writes
// are gossiped to the rest of the swarm as Coordination messages. A
// session with no bus set (the default) keeps the whiteboard purely
// local, matching a one-shot TaskCmd run that never stands up a bus.
func (s *Session) SetBus(b *bus.Bus) {
	s.mu.Lock()
	s.bus = b
	s.mu.Unlock()
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// canTransition enforces the lifecycle diagram: Initializing ->
// Running|Error; Running -> Paused|Terminating|Error; Paused ->
// Running|Terminating|Error; Terminating -> Terminated|Error. Terminated
// and Error are absorbing.
func canTransition(from, to Status) bool {
	switch from {
	case StatusInitializing:
		return to == StatusRunning || to == StatusError
	case StatusRunning:
		return to == StatusPaused || to == StatusTerminating || to == StatusError
	case StatusPaused:
		return to == StatusRunning || to == StatusTerminating || to == StatusError
	case StatusTerminating:
		return to == StatusTerminated || to == StatusError
	default: // Terminated, Error
		return false
	}
}

func (s *Session) transition(to Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canTransition(s.status, to) {
		return false
	}
	s.status = to
	return true
}

// Start allocates the PTY and launches the configured shell command.
func (s *Session) Start(ctx context.Context) error {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}

	err := s.engine.Start(ctx, ptyengine.StartConfig{
		Command: cfg.ShellCommand,
		Args:    cfg.ShellArgs,
		Env:     env,
		Dir:     cfg.WorkingDir,
		Rows:    cfg.Rows,
		Cols:    cfg.Cols,
	})
	if err != nil {
		s.transition(StatusError)
		return err
	}

	if !s.transition(StatusRunning) {
		return ccerrors.New(ccerrors.InvalidState, "session cannot start from current state").WithID(s.id)
	}
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
	return nil
}

// Pause marks the session Paused. The engine keeps running; pausing only
// gates higher layers (auto-accept, bus forwarding) that check status.
func (s *Session) Pause() error {
	if !s.transition(StatusPaused) {
		return ccerrors.New(ccerrors.InvalidState, "cannot pause from current state").WithID(s.id)
	}
	return nil
}

// Resume transitions a Paused session back to Running.
func (s *Session) Resume() error {
	if !s.transition(StatusRunning) {
		return ccerrors.New(ccerrors.InvalidState, "cannot resume from current state").WithID(s.id)
	}
	return nil
}

// Stop transitions through Terminating, signals the engine, awaits child
// exit, then settles on Terminated. Idempotent: calling Stop on an
// already-terminated (or errored) session is a no-op.
func (s *Session) Stop() error {
	s.mu.RLock()
	cur := s.status
	s.mu.RUnlock()
	if cur == StatusTerminated || cur == StatusError {
		return nil
	}

	if !s.transition(StatusTerminating) {
		return ccerrors.New(ccerrors.InvalidState, "cannot stop from current state").WithID(s.id)
	}

	var stopErr error
	s.terminateOnce.Do(func() {
		stopErr = s.engine.Stop()
	})
	if stopErr != nil {
		s.transition(StatusError)
		return stopErr
	}

	s.mu.Lock()
	s.status = StatusTerminated
	s.mu.Unlock()
	return nil
}

// SendInput writes to the shell's stdin. Requires Running; updates
// LastActivity only after a successful write.
func (s *Session) SendInput(p []byte) error {
	if s.Status() != StatusRunning {
		return ccerrors.New(ccerrors.InvalidState, "session is not running").WithID(s.id)
	}
	if _, err := s.engine.Write(p); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
	return nil
}

// ReadOutput returns a snapshot of the current output buffer. Requires
// Running.
func (s *Session) ReadOutput() ([]byte, error) {
	if s.Status() != StatusRunning {
		return nil, ccerrors.New(ccerrors.InvalidState, "session is not running").WithID(s.id)
	}
	return s.engine.ReadBuffer(0), nil
}

// Resize forwards to the underlying engine.
func (s *Session) Resize(rows, cols uint16) error {
	return s.engine.Resize(rows, cols)
}

// Attach and Detach toggle whether the bus forwards this session's live
// output to a subscriber. They are no-ops on Status: detaching a Running
// session leaves it Running.
func (s *Session) Attach() {
	s.mu.Lock()
	s.attached = true
	s.mu.Unlock()
}

func (s *Session) Detach() {
	s.mu.Lock()
	s.attached = false
	s.mu.Unlock()
}

func (s *Session) Attached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attached
}

// Compactor exposes the session's context compactor for the orchestrator
// and IPC layers that need to inspect or force compaction.
func (s *Session) Compactor() *cctx.Compactor {
	return s.compactor
}

// SetMetadata stores an opaque JSON value under key.
func (s *Session) SetMetadata(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return ccerrors.Wrap(ccerrors.IoError, err, "marshal metadata value")
	}
	s.mu.Lock()
	s.metadata[key] = raw
	s.mu.Unlock()
	return nil
}

// GetMetadata unmarshals the value stored under key into out.
func (s *Session) GetMetadata(key string, out any) error {
	s.mu.RLock()
	raw, ok := s.metadata[key]
	s.mu.RUnlock()
	if !ok {
		return ccerrors.New(ccerrors.NotFound, "metadata key not found").WithID(key)
	}
	return json.Unmarshal(raw, out)
}

// AllMetadata iterates over every stored metadata key/value pair.
func (s *Session) AllMetadata() iter.Seq2[string, json.RawMessage] {
	return func(yield func(string, json.RawMessage) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for k, v := range s.metadata {
			if !yield(k, v) {
				return
			}
		}
	}
}

// whiteboardCoordination is the payload gossiped over the bus whenever
// a whiteboard key changes.
type whiteboardCoordination struct {
	SessionID string `json:"session_id"`
	Key       string `json:"key"`
	Value     any    `json:"value"`
}

// WhiteboardSet writes a scratch-state entry. Distinct from metadata: the
// whiteboard is the coordination surface agents gossip over via the bus,
// not session-private bookkeeping. If the session has a bus set, the
// write is also published as a Coordination message so other sessions
// watching the bus see it.
func (s *Session) WhiteboardSet(key string, value any) {
	s.mu.Lock()
	s.whiteboard[key] = value
	b := s.bus
	id := s.id
	s.mu.Unlock()

	if b == nil {
		return
	}
	msg, err := bus.New(bus.VariantCoordination, "whiteboard_set", whiteboardCoordination{
		SessionID: id,
		Key:       key,
		Value:     value,
	})
	if err != nil {
		return
	}
	b.Send(msg)
}

// WhiteboardGet reads a scratch-state entry.
func (s *Session) WhiteboardGet(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.whiteboard[key]
	if !ok {
		return nil, ErrStateKeyNotExist
	}
	return v, nil
}

// WhiteboardAll iterates over every scratch-state key/value pair.
func (s *Session) WhiteboardAll() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for k, v := range s.whiteboard {
			if !yield(k, v) {
				return
			}
		}
	}
}

// Config returns a copy of the session's configuration.
func (s *Session) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}
