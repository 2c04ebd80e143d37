// Package sessionmanager holds the concurrent id -> Session registry that
// every other component (bus, ipc, orchestrator) looks sessions up
// through.
package sessionmanager

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/kadirpekel/ccswarmd/pkg/bus"
	"github.com/kadirpekel/ccswarmd/pkg/ccerrors"
	"github.com/kadirpekel/ccswarmd/pkg/checkpoint"
	"github.com/kadirpekel/ccswarmd/pkg/session"
)

// Manager is a concurrent SessionId -> *session.Session registry with
// at-most-one-per-id and stop-before-drop semantics. Unlike
// registry.BaseRegistry[T], Remove invokes a lifecycle hook (Session.Stop)
// on the entry being dropped, and CreateSession/RestoreSession own id
// generation instead of taking a caller-supplied name.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session

	store *checkpoint.Store
	bus   *bus.Bus
}

// New constructs an empty Manager.
func New() *Manager {
	return &Manager{sessions: make(map[string]*session.Session)}
}

// SetCheckpointStore wires a checkpoint store into the manager. Once
// set, Remove saves a checkpoint of the session's whiteboard state
// before stopping it. Passing nil (the default) disables checkpointing.
func (m *Manager) SetCheckpointStore(store *checkpoint.Store) {
	m.mu.Lock()
	m.store = store
	m.mu.Unlock()
}

// SetBus wires the coordination bus into the manager; every session
// created or restored afterward gossips its whiteboard writes over it.
func (m *Manager) SetBus(b *bus.Bus) {
	m.mu.Lock()
	m.bus = b
	m.mu.Unlock()
}

// CreateSession builds a fresh Session, starts its PTY, and registers it
// under a freshly generated id. On start failure the session is not
// registered.
func (m *Manager) CreateSession(ctx context.Context, cfg session.Config) (*session.Session, error) {
	s := session.New(cfg)

	m.mu.RLock()
	s.SetBus(m.bus)
	m.mu.RUnlock()

	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, nil
}

// RestoreSession reconstructs a Session under a caller-supplied id
// (typically from a checkpoint) and registers it. Returns AlreadyExists
// if the id is already registered; the restored session is not started
// automatically, matching checkpoint reload semantics where the caller
// decides when to relaunch the PTY.
func (m *Manager) RestoreSession(id string, createdAt time.Time, cfg session.Config) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, ccerrors.New(ccerrors.AlreadyExists, "session already registered").WithID(id)
	}

	s := session.Restore(id, createdAt, cfg)
	s.SetBus(m.bus)
	m.sessions[id] = s
	return s, nil
}

// Get returns the registered session for id, if any.
func (m *Manager) Get(id string) (*session.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns every registered session id.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// ListRefs returns a shared-ownership handle to every registered session.
func (m *Manager) ListRefs() []*session.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Remove drops id from the registry, checkpointing and stopping its
// session first. Removing an unknown id is a no-op, not an error — a
// caller racing a cleanup pass against an already-removed session
// should not have to special-case that. A caller already holding a
// *session.Session reference may continue to use it after Remove
// returns; only the registry's own slot is cleared.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	store := m.store
	delete(m.sessions, id)
	m.mu.Unlock()

	m.checkpointOnStop(store, id, s)

	return s.Stop()
}

// checkpointOnStop saves a best-effort snapshot of s's whiteboard state
// before it is stopped and dropped, so a later "ccswarmd checkpoints"
// lookup has something to show for a session that is already gone.
// Failures are logged, not returned: a checkpoint write must never
// block a session from being removed.
func (m *Manager) checkpointOnStop(store *checkpoint.Store, id string, s *session.Session) {
	if store == nil {
		return
	}
	state := make(map[string]any)
	for k, v := range s.WhiteboardAll() {
		state[k] = v
	}
	data, err := json.Marshal(state)
	if err != nil {
		slog.Warn("checkpoint-on-stop: marshal whiteboard state failed", "session", id, "error", err)
		return
	}
	if err := store.Save(&checkpoint.Checkpoint{SessionID: id, Label: "auto-stop", State: data}); err != nil {
		slog.Warn("checkpoint-on-stop: save failed", "session", id, "error", err)
	}
}

// CleanupTerminated removes every registered session whose status is
// Terminated, via a non-blocking snapshot read, and reports how many
// were removed.
func (m *Manager) CleanupTerminated() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.Status() == session.StatusTerminated {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
