package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agenttask/core"
)

// DefaultDir is the directory File writes to when none is configured.
const DefaultDir = "logs"

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

var labels = map[core.EntryKind]string{
	core.EntryStarted: "Started",
	core.EntryInterim: "Interim Update",
	core.EntryFinal:   "Final Response",
}

// File writes every task to <dir>/agent_<task id>.log, one line per entry:
//
//	2024-05-01T10:00:00.000Z - Interim Update: message
//
// Newlines and backslashes in messages are escaped so an entry always stays
// on one line. Prompts are not persisted.
type File struct {
	dir string
	mu  sync.Mutex
}

var _ core.Journal = (*File)(nil)

// NewFile creates a file journal under dir, creating the directory.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// Path returns the log file of a task.
func (f *File) Path(taskID string) string {
	return filepath.Join(f.dir, "agent_"+filepath.Base(taskID)+".log")
}

// Append implements core.Journal.
func (f *File) Append(e core.JournalEntry) error {
	label, ok := labels[e.Kind]
	if !ok {
		return fmt.Errorf("unknown journal entry kind %q", e.Kind)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.Path(e.TaskID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal file: %w", err)
	}
	line := fmt.Sprintf("%s - %s: %s\n", e.Timestamp.UTC().Format(timeLayout), label, escape(e.Message))
	if _, err := fh.WriteString(line); err != nil {
		fh.Close()
		return fmt.Errorf("writing journal file: %w", err)
	}
	return fh.Close()
}

// Entries implements core.Journal by parsing the task's log file. A task
// without a file has no entries.
func (f *File) Entries(taskID string) ([]core.JournalEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.Open(f.Path(taskID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var entries []core.JournalEntry
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		e, err := parseLine(taskID, sc.Text())
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// Close implements core.Journal.
func (f *File) Close() error { return nil }

func parseLine(taskID, line string) (core.JournalEntry, error) {
	ts, rest, ok := strings.Cut(line, " - ")
	if !ok {
		return core.JournalEntry{}, fmt.Errorf("malformed journal line %q", line)
	}
	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return core.JournalEntry{}, fmt.Errorf("malformed journal timestamp: %w", err)
	}
	for kind, label := range labels {
		if msg, found := strings.CutPrefix(rest, label+": "); found {
			return core.JournalEntry{TaskID: taskID, Timestamp: t, Kind: kind, Message: unescape(msg)}, nil
		}
	}
	return core.JournalEntry{}, fmt.Errorf("unknown journal label in %q", line)
}

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")
)

func escape(s string) string   { return escaper.Replace(s) }
func unescape(s string) string { return unescaper.Replace(s) }
