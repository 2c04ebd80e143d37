package checkpoint

import (
	"database/sql"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kadirpekel/ccswarmd/pkg/ccerrors"
)

// sqliteIndex is an alternate index.json replacement backed by SQLite,
// for installations with enough sessions that a linear index.json scan
// becomes a bottleneck. It mirrors the shape of indexEntry exactly so
// Store can swap backends without changing its own logic.
type sqliteIndex struct {
	db *sql.DB
}

func openSQLiteIndex(baseDir string) (*sqliteIndex, error) {
	path := filepath.Join(baseDir, "index.sqlite3")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, ccerrors.Wrap(ccerrors.IoError, err, "open sqlite checkpoint index")
	}

	const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	label TEXT,
	created_at TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	size_bytes INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, ccerrors.Wrap(ccerrors.IoError, err, "create sqlite checkpoint schema")
	}
	return &sqliteIndex{db: db}, nil
}

func (s *sqliteIndex) put(id string, entry indexEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO checkpoints (id, session_id, label, created_at, relative_path, size_bytes)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   session_id=excluded.session_id, label=excluded.label,
		   created_at=excluded.created_at, relative_path=excluded.relative_path,
		   size_bytes=excluded.size_bytes`,
		id, entry.SessionID, entry.Label, entry.CreatedAt.Format(time.RFC3339Nano), entry.RelativePath, entry.SizeBytes,
	)
	return err
}

func (s *sqliteIndex) get(id string) (indexEntry, bool, error) {
	row := s.db.QueryRow(`SELECT session_id, label, created_at, relative_path, size_bytes FROM checkpoints WHERE id = ?`, id)
	var e indexEntry
	var createdAt string
	if err := row.Scan(&e.SessionID, &e.Label, &createdAt, &e.RelativePath, &e.SizeBytes); err != nil {
		if err == sql.ErrNoRows {
			return indexEntry{}, false, nil
		}
		return indexEntry{}, false, err
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return e, true, nil
}

func (s *sqliteIndex) delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM checkpoints WHERE id = ?`, id)
	return err
}

func (s *sqliteIndex) listSession(sessionID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM checkpoints WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqliteIndex) all() (map[string]indexEntry, error) {
	rows, err := s.db.Query(`SELECT id, session_id, label, created_at, relative_path, size_bytes FROM checkpoints`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]indexEntry)
	for rows.Next() {
		var id, createdAt string
		var e indexEntry
		if err := rows.Scan(&id, &e.SessionID, &e.Label, &createdAt, &e.RelativePath, &e.SizeBytes); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out[id] = e
	}
	return out, rows.Err()
}

func (s *sqliteIndex) close() error {
	return s.db.Close()
}
