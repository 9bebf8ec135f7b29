// Package agenttask wires the runner, agents, tools, memory, knowledge
// providers, journal and notifier described by a config.Config into one
// application. The HTTP server and the CLI both build on it:
//
//  1. Load a configuration (config.Load or config.Default)
//  2. Create the application with New, optionally overriding the model,
//     notifier or metrics registry
//  3. Run tasks through Runner, or use the memory and research helpers
//
// Close releases the journal and every open task.
package agenttask

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/agenttask/agent"
	"github.com/hupe1980/agenttask/config"
	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/journal"
	"github.com/hupe1980/agenttask/knowledge"
	"github.com/hupe1980/agenttask/logging"
	"github.com/hupe1980/agenttask/memory"
	"github.com/hupe1980/agenttask/metrics"
	"github.com/hupe1980/agenttask/model"
	anthropicmodel "github.com/hupe1980/agenttask/model/anthropic"
	openaimodel "github.com/hupe1980/agenttask/model/openai"
	"github.com/hupe1980/agenttask/notify"
	"github.com/hupe1980/agenttask/runner"
	"github.com/hupe1980/agenttask/session"
	"github.com/hupe1980/agenttask/tool"
)

// Version is reported by the CLI.
const Version = "0.1.0"

// Options overrides components New would otherwise build from the
// configuration.
type Options struct {
	// Model replaces the configured chat model.
	Model model.Model
	// Embedder replaces the OpenAI embedder of the chromem memory backend.
	Embedder memory.Embedder
	// Notifier replaces the webhook notifier.
	Notifier core.Notifier
	// Journal replaces the configured journal.
	Journal core.Journal
	// Registerer receives the Prometheus collectors. Defaults to the global
	// registry.
	Registerer prometheus.Registerer
	// Logger replaces the logger built from the logging section.
	Logger logging.Logger
	// NewShell replaces the local shell of the code execution tool.
	NewShell func() tool.Shell
}

// AgentTask is the assembled application.
type AgentTask struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics

	llm        model.Model
	memory     *memory.Registry
	aggregator *knowledge.Aggregator
	perplexity *knowledge.Perplexity
	journal    core.Journal
	runner     *runner.Runner

	memoryTool *tool.Memory
	knowledge  *tool.Knowledge
	online     *tool.OnlineKnowledge
	code       *tool.CodeExecution
}

// New assembles an application from cfg.
func New(cfg *config.Config, optFns ...func(o *Options)) (*AgentTask, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(cfg.Logging)
	}

	var m *metrics.Metrics
	if opts.Registerer != nil {
		m = metrics.MustNew(opts.Registerer)
	} else {
		m = metrics.Default()
	}

	llm := opts.Model
	if llm == nil {
		var err error
		if llm, err = NewModel(cfg.Model); err != nil {
			return nil, err
		}
	}

	registry, err := newRegistry(cfg.Memory, opts.Embedder, logging.WithComponent(logger, "memory"))
	if err != nil {
		return nil, err
	}

	j := opts.Journal
	if j == nil {
		if j, err = NewJournal(cfg.Journal, logging.WithComponent(logger, "journal")); err != nil {
			return nil, err
		}
	}

	notifier := opts.Notifier
	if notifier == nil && cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Notify.WebhookURL, func(o *notify.WebhookOptions) {
			o.Headers = cfg.Notify.Headers
			o.Logger = logging.WithComponent(logger, "notify")
		})
	}

	a := &AgentTask{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		llm:     llm,
		memory:  registry,
		journal: j,
	}

	openMemory := a.openMemory
	a.perplexity = knowledge.NewPerplexity(func(o *knowledge.PerplexityOptions) {
		o.APIKey = cfg.Knowledge.Perplexity.APIKey
		if cfg.Knowledge.Perplexity.Model != "" {
			o.Model = cfg.Knowledge.Perplexity.Model
		}
		if cfg.Knowledge.Perplexity.BaseURL != "" {
			o.BaseURL = cfg.Knowledge.Perplexity.BaseURL
		}
	})
	ddg := knowledge.NewDuckDuckGo(func(o *knowledge.DuckDuckGoOptions) {
		o.Enabled = cfg.Knowledge.DuckDuckGo.Enabled
		if cfg.Knowledge.DuckDuckGo.MaxResults > 0 {
			o.MaxResults = cfg.Knowledge.DuckDuckGo.MaxResults
		}
	})
	a.aggregator = knowledge.New(
		[]knowledge.Provider{a.perplexity, ddg},
		knowledge.NewMemoryProvider(openMemory),
		func(o *knowledge.Options) {
			o.ProviderTimeout = cfg.Knowledge.ProviderTimeout
			o.Logger = logging.WithComponent(logger, "knowledge")
			o.Metrics = m
		},
	)

	a.memoryTool = tool.NewMemory(openMemory, func(o *tool.MemoryOptions) {
		o.Logger = logger
		o.Metrics = m
	})
	a.knowledge = tool.NewKnowledge(a.aggregator, logger)
	a.online = tool.NewOnlineKnowledge(a.perplexity)
	codeLogger := logging.WithComponent(logger, "code_execution")
	a.code = tool.NewCodeExecution(func(o *tool.CodeExecutionOptions) {
		o.Logger = codeLogger
		o.Detector = &session.Detector{
			PollInterval:      cfg.CodeExecution.PollInterval,
			IdleWithOutput:    cfg.CodeExecution.IdleWithOutput,
			IdleWithoutOutput: cfg.CodeExecution.IdleWithoutOutput,
		}
		o.NewShell = opts.NewShell
		if o.NewShell == nil {
			o.NewShell = func() tool.Shell {
				return session.NewLocal(func(so *session.Options) {
					so.Shell = cfg.CodeExecution.Shell
					so.Dir = cfg.CodeExecution.WorkDir
					so.Logger = codeLogger
				})
			}
		}
	})

	a.runner = runner.New(a.NewAgent, func(o *runner.Options) {
		o.Journal = j
		o.Notifier = notifier
		o.NotifyTimeout = cfg.Notify.Timeout
		o.Logger = logging.WithComponent(logger, "runner")
		o.Metrics = m
	})

	return a, nil
}

// Config returns the configuration the application was built from.
func (a *AgentTask) Config() *config.Config { return a.cfg }

// Runner returns the task runner.
func (a *AgentTask) Runner() *runner.Runner { return a.runner }

// Memory returns the memory namespace registry.
func (a *AgentTask) Memory() *memory.Registry { return a.memory }

// Journal returns the task journal.
func (a *AgentTask) Journal() core.Journal { return a.journal }

// Metrics returns the application's collectors.
func (a *AgentTask) Metrics() *metrics.Metrics { return a.metrics }

// Logger returns the application logger.
func (a *AgentTask) Logger() logging.Logger { return a.logger }

// NewAgent creates an agent with the full tool set. It is the runner's
// agent factory.
func (a *AgentTask) NewAgent(number int) *agent.Agent {
	return agent.New(a.llm, func(o *agent.Options) {
		o.Number = number
		o.Tools = []tool.Tool{
			a.memoryTool,
			a.code,
			a.knowledge,
			a.online,
			tool.NewResponse(),
		}
		o.MaxToolResponseLength = a.cfg.Agent.MaxToolResponseLength
		o.MaxModelCalls = a.cfg.Agent.MaxModelCalls
		o.Stream = a.cfg.Model.Stream
		o.Logger = a.logger
		o.Metrics = a.metrics
	})
}

// Remember stores text in the configured memory namespace.
func (a *AgentTask) Remember(ctx context.Context, text string) (string, error) {
	return a.callTool(ctx, a.memoryTool, map[string]any{"memorize": text})
}

// Forget deletes memories similar to query.
func (a *AgentTask) Forget(ctx context.Context, query string) (string, error) {
	return a.callTool(ctx, a.memoryTool, map[string]any{"forget": query})
}

// Recall searches memories similar to query.
func (a *AgentTask) Recall(ctx context.Context, query string, count int, threshold float32) (string, error) {
	return a.callTool(ctx, a.memoryTool, map[string]any{
		"query":     query,
		"count":     count,
		"threshold": float64(threshold),
	})
}

// Research asks every knowledge provider and the memory.
func (a *AgentTask) Research(ctx context.Context, question string) (string, error) {
	return a.callTool(ctx, a.knowledge, map[string]any{"question": question})
}

// OnlineSearch asks Perplexity alone.
func (a *AgentTask) OnlineSearch(ctx context.Context, question string) (string, error) {
	return a.callTool(ctx, a.online, map[string]any{"question": question})
}

// Close closes the journal. Running tasks are cancelled first.
func (a *AgentTask) Close() error {
	for _, t := range a.runner.List() {
		_ = a.runner.Cancel(t.ID)
	}
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

func (a *AgentTask) openMemory(ctx context.Context) (core.MemoryStore, error) {
	return a.memory.Open(ctx, a.cfg.Agent.MemorySubdir)
}

func (a *AgentTask) callTool(ctx context.Context, t tool.Tool, args map[string]any) (string, error) {
	resp, err := t.Call(core.NewToolContext(ctx, func(o *core.ToolContextOptions) {
		o.Logger = a.logger
	}), args)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// NewLogger builds the structured logger described by cfg. Unknown levels
// fall back to info.
func NewLogger(cfg config.LoggingConfig) *logging.StructuredLogger {
	level, _ := logging.ParseLevel(cfg.Level)
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Format,
		Output:    os.Stderr,
		AddSource: cfg.AddSource,
		Component: "agenttask",
	})
}

// NewModel creates the configured chat model.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.Model = cfg.Name
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.Model = anthropic.Model(cfg.Name)
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		}), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

// NewJournal opens the configured journal.
func NewJournal(cfg config.JournalConfig, logger logging.Logger) (core.Journal, error) {
	switch cfg.Backend {
	case config.JournalFile, "":
		return journal.NewFile(cfg.Dir)
	case config.JournalSQLite:
		return journal.NewSQLite(cfg.Path, logger)
	case config.JournalMemory:
		return journal.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported journal backend %q", cfg.Backend)
	}
}

func newRegistry(cfg config.MemoryConfig, embedder memory.Embedder, logger logging.Logger) (*memory.Registry, error) {
	var factory memory.IndexFactory
	switch cfg.Backend {
	case config.MemoryKeyword, "":
		factory = memory.KeywordIndexFactory()
	case config.MemoryChromem:
		if embedder == nil {
			embedder = memory.NewOpenAIEmbedder(func(o *memory.OpenAIEmbedderOptions) {
				o.Model = cfg.EmbeddingModel
				o.APIKey = cfg.EmbeddingAPIKey
				o.BaseURL = cfg.EmbeddingBaseURL
			})
		}
		if cfg.EmbeddingCache > 0 {
			cached, err := memory.NewCachedEmbedder(embedder, cfg.EmbeddingCache)
			if err != nil {
				return nil, fmt.Errorf("embedding cache: %w", err)
			}
			embedder = cached
		}
		factory = memory.ChromemIndexFactory(embedder, logger, func(o *memory.ChromemIndexOptions) {
			o.Compress = cfg.CompressDocuments
		})
	default:
		return nil, fmt.Errorf("unsupported memory backend %q", cfg.Backend)
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating memory directory: %w", err)
		}
	}

	return memory.NewRegistry(func(o *memory.RegistryOptions) {
		o.BaseDir = cfg.Dir
		o.Factory = factory
		o.Logger = logger
	}), nil
}
