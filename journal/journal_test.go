package journal

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenttask/core"
)

func newJournals(t *testing.T) map[string]core.Journal {
	t.Helper()

	file, err := NewFile(filepath.Join(t.TempDir(), "logs"))
	require.NoError(t, err)

	db, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]core.Journal{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": db,
	}
}

func lifecycle(taskID string) []core.JournalEntry {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []core.JournalEntry{
		{TaskID: taskID, Timestamp: base, Kind: core.EntryStarted, Message: "Agent started"},
		{TaskID: taskID, Timestamp: base.Add(time.Second), Kind: core.EntryInterim, Message: "line one\nline two \\n literal"},
		{TaskID: taskID, Timestamp: base.Add(2 * time.Second), Kind: core.EntryFinal, Message: "done"},
	}
}

func TestJournals_RoundTripLifecycle(t *testing.T) {
	for name, j := range newJournals(t) {
		t.Run(name, func(t *testing.T) {
			want := lifecycle("task-1")
			for _, e := range want {
				require.NoError(t, j.Append(e))
			}
			require.NoError(t, j.Append(core.JournalEntry{TaskID: "task-2", Timestamp: time.Now(), Kind: core.EntryFinal, Message: "other"}))

			got, err := j.Entries("task-1")
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].Kind, got[i].Kind)
				assert.Equal(t, want[i].Message, got[i].Message)
				assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
			}

			missing, err := j.Entries("unknown")
			require.NoError(t, err)
			assert.Empty(t, missing)
		})
	}
}

func TestJournals_ConcurrentAppends(t *testing.T) {
	for name, j := range newJournals(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, j.Append(core.JournalEntry{TaskID: "busy", Timestamp: time.Now(), Kind: core.EntryInterim, Message: "tick"}))
				}()
			}
			wg.Wait()

			got, err := j.Entries("busy")
			require.NoError(t, err)
			assert.Len(t, got, 20)
		})
	}
}

func TestFile_HumanReadableLayout(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFile(dir)
	require.NoError(t, err)

	for _, e := range lifecycle("abc") {
		require.NoError(t, j.Append(e))
	}

	assert.Equal(t, filepath.Join(dir, "agent_abc.log"), j.Path("abc"))
	data, err := os.ReadFile(j.Path("abc"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2024-05-01T10:00:00.000Z - Started: Agent started", lines[0])
	assert.Equal(t, `2024-05-01T10:00:01.000Z - Interim Update: line one\nline two \\n literal`, lines[1])
	assert.Equal(t, "2024-05-01T10:00:02.000Z - Final Response: done", lines[2])
}

func TestFile_RejectsUnknownKind(t *testing.T) {
	j, err := NewFile(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, j.Append(core.JournalEntry{TaskID: "x", Kind: "bogus"}))
}

func TestSQLite_PersistsPromptAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	db, err := NewSQLite(path, nil)
	require.NoError(t, err)
	require.NoError(t, db.Append(core.JournalEntry{TaskID: "t", Timestamp: time.Now(), Kind: core.EntryStarted, Prompt: "list files", Message: "Agent started"}))
	require.NoError(t, db.Close())

	db, err = NewSQLite(path, nil)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Entries("t")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "list files", got[0].Prompt)
}
