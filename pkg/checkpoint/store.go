package checkpoint

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/kadirpekel/ccswarmd/pkg/ccerrors"
)

const (
	indexFileName = "index.json"
	forksFileName = "forks.json"
	sessionsDir   = "sessions"
)

// Store persists Checkpoints and ForkInfo entries under Config.BaseDir
// using the layout:
//
//	<base>/sessions/<session_id>/<checkpoint_id>.json
//	<base>/index.json
//	<base>/forks.json
type Store struct {
	cfg Config

	mu    sync.RWMutex
	index map[string]indexEntry // checkpoint id -> entry
	forks *forkRegistry
	sql   *sqliteIndex // non-nil when cfg.IndexBackend == IndexBackendSQLite

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore creates (or opens) a checkpoint store rooted at cfg.BaseDir.
// On startup it loads index.json and forks.json if present.
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, ccerrors.Wrap(ccerrors.Configuration, err, "invalid checkpoint config")
	}

	if err := os.MkdirAll(filepath.Join(cfg.BaseDir, sessionsDir), 0o755); err != nil {
		return nil, ccerrors.Wrap(ccerrors.IoError, err, "create checkpoint base directory")
	}

	s := &Store{
		cfg:   *cfg,
		index: make(map[string]indexEntry),
		forks: newForkRegistry(),
	}

	if cfg.IndexBackend == IndexBackendSQLite {
		idx, err := openSQLiteIndex(cfg.BaseDir)
		if err != nil {
			return nil, err
		}
		s.sql = idx
		entries, err := idx.all()
		if err != nil {
			return nil, ccerrors.Wrap(ccerrors.IoError, err, "load sqlite checkpoint index")
		}
		s.index = entries
	} else if err := s.loadIndex(); err != nil {
		return nil, err
	}
	if err := s.loadForks(); err != nil {
		return nil, err
	}

	if cfg.ShouldWatch() {
		if err := s.startWatch(); err != nil {
			slog.Warn("checkpoint store: failed to start directory watch", "error", err)
		}
	}

	return s, nil
}

func (s *Store) loadIndex() error {
	path := filepath.Join(s.cfg.BaseDir, indexFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return ccerrors.Wrap(ccerrors.IoError, err, "read checkpoint index")
	}
	var idx map[string]indexEntry
	if err := json.Unmarshal(data, &idx); err != nil {
		return ccerrors.Wrap(ccerrors.IoError, err, "parse checkpoint index")
	}
	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
	return nil
}

func (s *Store) loadForks() error {
	path := filepath.Join(s.cfg.BaseDir, forksFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return ccerrors.Wrap(ccerrors.IoError, err, "read fork registry")
	}
	reg := newForkRegistry()
	if err := json.Unmarshal(data, reg); err != nil {
		return ccerrors.Wrap(ccerrors.IoError, err, "parse fork registry")
	}
	s.mu.Lock()
	s.forks = reg
	s.mu.Unlock()
	return nil
}

// writeAtomic writes data to a temp file in dir and renames it into
// place, so readers never observe a partially-written file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// persistIndexEntryLocked writes a single index entry through to whichever
// backend is configured. Callers hold s.mu.
func (s *Store) persistIndexEntryLocked(id string, entry indexEntry) error {
	if s.sql != nil {
		if err := s.sql.put(id, entry); err != nil {
			return ccerrors.Wrap(ccerrors.IoError, err, "persist checkpoint index entry")
		}
		return nil
	}
	return s.persistIndexLocked()
}

// persistIndexLocked writes the full in-memory index to index.json.
// Callers hold s.mu. Not used for the sqlite backend, which persists one
// row at a time via persistIndexEntryLocked.
func (s *Store) persistIndexLocked() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return ccerrors.Wrap(ccerrors.IoError, err, "marshal checkpoint index")
	}
	return writeAtomic(filepath.Join(s.cfg.BaseDir, indexFileName), data)
}

func (s *Store) persistForksLocked() error {
	data, err := json.MarshalIndent(s.forks, "", "  ")
	if err != nil {
		return ccerrors.Wrap(ccerrors.IoError, err, "marshal fork registry")
	}
	return writeAtomic(filepath.Join(s.cfg.BaseDir, forksFileName), data)
}

// Save atomically writes the checkpoint file and updates the index.
// If ckpt.ID is empty, a new id is generated.
func (s *Store) Save(ckpt *Checkpoint) error {
	if ckpt.SessionID == "" {
		return ccerrors.New(ccerrors.InvalidState, "checkpoint requires a session id")
	}
	if ckpt.ID == "" {
		ckpt.ID = uuid.NewString()
	}
	if ckpt.CreatedAt.IsZero() {
		ckpt.CreatedAt = time.Now()
	}
	ckpt.Metadata.StateSizeBytes = len(ckpt.State)

	sessionDir := filepath.Join(s.cfg.BaseDir, sessionsDir, ckpt.SessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return ccerrors.Wrap(ccerrors.IoError, err, "create session checkpoint directory")
	}

	relPath := filepath.Join(sessionsDir, ckpt.SessionID, ckpt.ID+".json")
	fullPath := filepath.Join(s.cfg.BaseDir, relPath)

	data, err := json.MarshalIndent(ckpt, "", "  ")
	if err != nil {
		return ccerrors.Wrap(ccerrors.IoError, err, "marshal checkpoint")
	}
	if err := writeAtomic(fullPath, data); err != nil {
		return ccerrors.Wrap(ccerrors.IoError, err, "write checkpoint file")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry := indexEntry{
		SessionID:    ckpt.SessionID,
		Label:        ckpt.Label,
		CreatedAt:    ckpt.CreatedAt,
		RelativePath: relPath,
		SizeBytes:    int64(len(data)),
	}
	s.index[ckpt.ID] = entry
	return s.persistIndexEntryLocked(ckpt.ID, entry)
}

// Load retrieves a checkpoint by id.
func (s *Store) Load(id string) (*Checkpoint, error) {
	s.mu.RLock()
	entry, ok := s.index[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ccerrors.New(ccerrors.NotFound, "checkpoint not found").WithID(id)
	}

	data, err := os.ReadFile(filepath.Join(s.cfg.BaseDir, entry.RelativePath))
	if err != nil {
		return nil, ccerrors.Wrap(ccerrors.IoError, err, "read checkpoint file").WithID(id)
	}
	var ckpt Checkpoint
	if err := json.Unmarshal(data, &ckpt); err != nil {
		return nil, ccerrors.Wrap(ccerrors.IoError, err, "parse checkpoint file").WithID(id)
	}
	return &ckpt, nil
}

// ListForSession returns every checkpoint id belonging to sessionID,
// newest first.
func (s *Store) ListForSession(sessionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		id string
		at time.Time
	}
	var rows []row
	for id, e := range s.index {
		if e.SessionID == sessionID {
			rows = append(rows, row{id, e.CreatedAt})
		}
	}
	for i := 1; i < len(rows); i++ {
		j := i
		for j > 0 && rows[j-1].at.Before(rows[j].at) {
			rows[j-1], rows[j] = rows[j], rows[j-1]
			j--
		}
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	return ids
}

// ListAll returns every known checkpoint id.
func (s *Store) ListAll() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	return ids
}

// GetLatest returns the most recently created checkpoint for a session.
func (s *Store) GetLatest(sessionID string) (*Checkpoint, error) {
	ids := s.ListForSession(sessionID)
	if len(ids) == 0 {
		return nil, ccerrors.New(ccerrors.NotFound, "no checkpoints for session").WithID(sessionID)
	}
	return s.Load(ids[0])
}

// Delete removes a checkpoint's file and index entry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[id]
	if !ok {
		return ccerrors.New(ccerrors.NotFound, "checkpoint not found").WithID(id)
	}
	if err := os.Remove(filepath.Join(s.cfg.BaseDir, entry.RelativePath)); err != nil && !os.IsNotExist(err) {
		return ccerrors.Wrap(ccerrors.IoError, err, "remove checkpoint file").WithID(id)
	}
	delete(s.index, id)
	if s.sql != nil {
		if err := s.sql.delete(id); err != nil {
			return ccerrors.Wrap(ccerrors.IoError, err, "remove checkpoint index entry").WithID(id)
		}
		return nil
	}
	return s.persistIndexLocked()
}

// CreateFork verifies checkpointID exists and registers a new, Active
// ForkInfo for it.
func (s *Store) CreateFork(parentSessionID, checkpointID, branchName string) (*ForkInfo, error) {
	if _, err := s.Load(checkpointID); err != nil {
		return nil, ccerrors.Wrap(ccerrors.NotFound, err, "checkpoint missing for fork").WithID(checkpointID)
	}

	fork := &ForkInfo{
		ForkID:          uuid.NewString(),
		ParentSessionID: parentSessionID,
		CheckpointID:    checkpointID,
		BranchName:      branchName,
		CreatedAt:       time.Now(),
		Status:          ForkStatusActive,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.forks.Forks[fork.ForkID] = fork
	s.forks.Children[parentSessionID] = append(s.forks.Children[parentSessionID], fork.ForkID)
	if err := s.persistForksLocked(); err != nil {
		return nil, err
	}
	return fork, nil
}

func (s *Store) setForkStatus(forkID string, status ForkStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fork, ok := s.forks.Forks[forkID]
	if !ok {
		return ccerrors.New(ccerrors.NotFound, "fork not found").WithID(forkID)
	}
	fork.Status = status
	return s.persistForksLocked()
}

// AbandonFork marks a fork Abandoned.
func (s *Store) AbandonFork(forkID string) error { return s.setForkStatus(forkID, ForkStatusAbandoned) }

// ArchiveFork marks a fork Archived.
func (s *Store) ArchiveFork(forkID string) error { return s.setForkStatus(forkID, ForkStatusArchived) }

// MergeFork marks a fork Merged.
func (s *Store) MergeFork(forkID string) error { return s.setForkStatus(forkID, ForkStatusMerged) }

// DeleteFork removes a fork entry entirely, unlike the status-mutating
// operations above.
func (s *Store) DeleteFork(forkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fork, ok := s.forks.Forks[forkID]
	if !ok {
		return ccerrors.New(ccerrors.NotFound, "fork not found").WithID(forkID)
	}
	delete(s.forks.Forks, forkID)
	children := s.forks.Children[fork.ParentSessionID]
	for i, id := range children {
		if id == forkID {
			s.forks.Children[fork.ParentSessionID] = append(children[:i], children[i+1:]...)
			break
		}
	}
	return s.persistForksLocked()
}

// ForksForSession returns every fork whose parent session is sessionID.
func (s *Store) ForksForSession(sessionID string) []*ForkInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.forks.Children[sessionID]
	out := make([]*ForkInfo, 0, len(ids))
	for _, id := range ids {
		if f, ok := s.forks.Forks[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// startWatch watches BaseDir for externally-written checkpoint/index
// files (a second ccswarmd process, or a restored backup) and reloads
// the in-memory index/forks cache.
func (s *Store) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.cfg.BaseDir); err != nil {
		w.Close()
		return err
	}
	s.watcher = w
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				name := filepath.Base(event.Name)
				if name != indexFileName && name != forksFileName {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if name == indexFileName {
					if err := s.loadIndex(); err != nil {
						slog.Warn("checkpoint store: failed to reload index", "error", err)
					}
				} else {
					if err := s.loadForks(); err != nil {
						slog.Warn("checkpoint store: failed to reload forks", "error", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("checkpoint store: watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the directory watcher and sqlite handle, if any.
func (s *Store) Close() error {
	var watchErr error
	if s.watcher != nil {
		watchErr = s.watcher.Close()
		<-s.done
	}
	if s.sql != nil {
		if err := s.sql.close(); err != nil && watchErr == nil {
			return err
		}
	}
	return watchErr
}
