package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/logging"
)

// SQLite stores journal entries in a single table of a SQLite database.
type SQLite struct {
	db     *sql.DB
	logger logging.Logger
}

var _ core.Journal = (*SQLite)(nil)

// NewSQLite opens (or creates) the database at path. The schema is created
// if it doesn't exist and parent directories are created if needed. The
// path ":memory:" opens a private in-memory database.
func NewSQLite(path string, logger logging.Logger) (*SQLite, error) {
	logger = logging.OrNoOp(logger)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLite{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite journal initialized", "path", path)
	return s, nil
}

func (s *SQLite) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS journal (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			prompt TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_journal_task
			ON journal(task_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append implements core.Journal.
func (s *SQLite) Append(e core.JournalEntry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO journal (task_id, kind, prompt, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.TaskID, string(e.Kind), e.Prompt, e.Message, ts.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// Entries implements core.Journal.
func (s *SQLite) Entries(taskID string) ([]core.JournalEntry, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT kind, prompt, message, created_at FROM journal WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var entries []core.JournalEntry
	for rows.Next() {
		var kind, prompt, message, created string
		if err := rows.Scan(&kind, &prompt, &message, &created); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parsing journal timestamp: %w", err)
		}
		entries = append(entries, core.JournalEntry{
			TaskID:    taskID,
			Timestamp: ts,
			Kind:      core.EntryKind(kind),
			Prompt:    prompt,
			Message:   message,
		})
	}
	return entries, rows.Err()
}

// Close implements core.Journal.
func (s *SQLite) Close() error {
	return s.db.Close()
}
