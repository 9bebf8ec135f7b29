package agenttask

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agenttask/config"
	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/internal/testutil"
	"github.com/hupe1980/agenttask/journal"
	"github.com/hupe1980/agenttask/model"
	"github.com/hupe1980/agenttask/runner"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Knowledge.DuckDuckGo.Enabled = false
	cfg.Journal.Backend = config.JournalMemory
	return cfg
}

func newTestApp(t *testing.T, llm model.Model, notifier core.Notifier) *AgentTask {
	t.Helper()
	app, err := New(testConfig(), func(o *Options) {
		o.Model = llm
		o.Notifier = notifier
		o.Registerer = prometheus.NewRegistry()
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func respond(text string) model.Turn {
	return model.Turn{Message: core.NewAssistantMessage("", testutil.ToolCall("response", map[string]any{"text": text}))}
}

func TestAgentTask_RunsTaskWithMemoryTool(t *testing.T) {
	llm := model.NewScriptedModel(
		model.Turn{Message: core.NewAssistantMessage("Saving that.", testutil.ToolCall("memory", map[string]any{"memorize": "the sky is blue"}))},
		respond("Saved."),
	)
	notifier := &testutil.RecordingNotifier{}
	app := newTestApp(t, llm, notifier)

	res, err := app.Runner().Run(t.Context(), runner.StartRequest{
		Prompt:  "remember the sky",
		Timeout: time.Minute,
		Notify:  &core.NotifyTarget{ConversationID: "c1", DeviceID: "d1"},
	})
	require.NoError(t, err)
	assert.Equal(t, runner.StatusCompleted, res.Status)
	assert.Equal(t, "Saved.", res.Response)
	assert.Equal(t, 0, app.Runner().Len())

	entries, err := app.Journal().Entries(res.TaskID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, core.EntryInterim, entries[1].Kind)
	assert.Equal(t, "Saving that.", entries[1].Message)

	finals := notifier.Finals()
	require.Len(t, finals, 1)
	assert.Equal(t, "Saved.", finals[0].Message)

	recalled, err := app.Recall(t.Context(), "sky blue", 5, 0.1)
	require.NoError(t, err)
	assert.Contains(t, recalled, "the sky is blue")

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	names := make([]string, 0, len(reqs[0].Tools))
	for _, def := range reqs[0].Tools {
		names = append(names, def.Function.Name)
	}
	assert.Equal(t, []string{"code_execution", "knowledge", "memory", "online_knowledge", "response"}, names)
}

func TestAgentTask_MemoryHelpers(t *testing.T) {
	app := newTestApp(t, model.NewScriptedModel(), nil)
	ctx := t.Context()

	saved, err := app.Remember(ctx, "Alice prefers green tea")
	require.NoError(t, err)
	assert.Contains(t, saved, "Memory has been saved with id")

	found, err := app.Recall(ctx, "green tea", 5, 0.1)
	require.NoError(t, err)
	assert.Contains(t, found, "Alice prefers green tea")

	forgotten, err := app.Forget(ctx, "green tea")
	require.NoError(t, err)
	assert.Equal(t, "1 memories have been deleted.", forgotten)

	missing, err := app.Recall(ctx, "green tea", 5, 0.1)
	require.NoError(t, err)
	assert.Equal(t, "No memories found for specified query: green tea", missing)

	assert.Equal(t, []string{"default"}, app.Memory().Namespaces())
}

func TestAgentTask_ResearchUsesMemory(t *testing.T) {
	app := newTestApp(t, model.NewScriptedModel(), nil)
	ctx := t.Context()

	_, err := app.Remember(ctx, "The deployment window is Friday evening")
	require.NoError(t, err)

	report, err := app.Research(ctx, "deployment window")
	require.NoError(t, err)
	assert.Contains(t, report, "Friday evening")
}

func TestAgentTask_OnlineSearchNotConfigured(t *testing.T) {
	app := newTestApp(t, model.NewScriptedModel(), nil)

	msg, err := app.OnlineSearch(t.Context(), "what is new")
	require.NoError(t, err)
	assert.Equal(t, "Online knowledge is not configured.", msg)
}

func TestNewModel(t *testing.T) {
	for _, provider := range []string{config.ProviderOpenAI, config.ProviderAnthropic} {
		m, err := NewModel(config.ModelConfig{Provider: provider, Name: "test-model", APIKey: "k"})
		require.NoError(t, err, provider)
		assert.NotNil(t, m)
	}

	_, err := NewModel(config.ModelConfig{Provider: "llama"})
	assert.ErrorContains(t, err, "unsupported model provider")
}

func TestNewJournal(t *testing.T) {
	dir := t.TempDir()

	file, err := NewJournal(config.JournalConfig{Backend: config.JournalFile, Dir: filepath.Join(dir, "logs")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &journal.File{}, file)

	sqlite, err := NewJournal(config.JournalConfig{Backend: config.JournalSQLite, Path: filepath.Join(dir, "j.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &journal.SQLite{}, sqlite)
	require.NoError(t, sqlite.Close())

	mem, err := NewJournal(config.JournalConfig{Backend: config.JournalMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &journal.Memory{}, mem)

	_, err = NewJournal(config.JournalConfig{Backend: "kafka"}, nil)
	assert.Error(t, err)
}

func TestNew_RejectsUnknownMemoryBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Memory.Backend = "redis"

	_, err := New(cfg, func(o *Options) {
		o.Model = model.NewScriptedModel()
		o.Registerer = prometheus.NewRegistry()
	})
	assert.ErrorContains(t, err, "unsupported memory backend")
}
