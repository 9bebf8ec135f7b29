package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agenttask"
	"github.com/hupe1980/agenttask/config"
	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/logging"
	"github.com/hupe1980/agenttask/runner"
	"github.com/hupe1980/agenttask/server"
)

// newApp builds the application; tests replace it.
var newApp = func(cfg *config.Config) (*agenttask.AgentTask, error) {
	return agenttask.New(cfg)
}

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "agenttask",
		Short: "Run tool-using agents with memory, knowledge search and code execution",
		Long: `agenttask runs conversational agents that use tools to answer a prompt.

Examples:
  agenttask serve -c config.yaml          # HTTP API on the configured address
  agenttask run "summarize the README"    # one task, answer on stdout
  agenttask config -c config.yaml         # print the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCommand(flags),
		newRunCommand(flags),
		newConfigCommand(flags),
		newVersionCommand(),
	)
	return cmd
}

func (f *rootFlags) load() (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			srv := server.New(app, func(o *server.Options) {
				o.Addr = cfg.Server.Addr
				o.DefaultTimeout = cfg.Agent.DefaultTimeout
				o.Logger = logging.WithComponent(app.Logger(), "server")
				if cfg.Metrics.Enabled {
					o.MetricsPath = cfg.Metrics.Path
				} else {
					o.MetricsPath = ""
				}
				o.Debug = cfg.Logging.Level == "debug"
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Override server.addr")
	return cmd
}

type runFlags struct {
	timeout        time.Duration
	conversationID string
	deviceID       string
	updates        bool
}

func newRunCommand(flags *rootFlags) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <prompt>...",
		Short: "Run one task and print the final response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			timeout := rf.timeout
			if !cmd.Flags().Changed("timeout") {
				timeout = cfg.Agent.DefaultTimeout
			}
			req := runner.StartRequest{
				Prompt:  strings.Join(args, " "),
				Timeout: timeout,
				Updates: rf.updates,
			}
			if rf.conversationID != "" || rf.deviceID != "" {
				req.Notify = &core.NotifyTarget{ConversationID: rf.conversationID, DeviceID: rf.deviceID}
			}

			res, err := app.Runner().Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Response)
			if res.Status != runner.StatusCompleted {
				fmt.Fprintf(cmd.ErrOrStderr(), "task %s ended with status %s\n", res.TaskID, res.Status)
				return errors.New("task did not complete")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&rf.timeout, "timeout", 0, "Agent timeout (defaults to agent.default_timeout)")
	cmd.Flags().StringVar(&rf.conversationID, "conversation-id", "", "Conversation to notify")
	cmd.Flags().StringVar(&rf.deviceID, "device-id", "", "Device to notify")
	cmd.Flags().BoolVar(&rf.updates, "updates", false, "Forward interim updates to the notifier")
	return cmd
}

func newConfigCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(redact(*cfg))
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "agenttask", agenttask.Version)
		},
	}
}

const redacted = "REDACTED"

// redact blanks credentials and renders parsed durations back into their
// raw fields.
func redact(cfg config.Config) config.Config {
	for _, s := range []*string{
		&cfg.Model.APIKey,
		&cfg.Memory.EmbeddingAPIKey,
		&cfg.Knowledge.Perplexity.APIKey,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	if len(cfg.Notify.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Notify.Headers))
		for k := range cfg.Notify.Headers {
			headers[k] = redacted
		}
		cfg.Notify.Headers = headers
	}

	cfg.Agent.DefaultTimeoutRaw = cfg.Agent.DefaultTimeout.String()
	cfg.CodeExecution.PollIntervalRaw = cfg.CodeExecution.PollInterval.String()
	cfg.Knowledge.ProviderTimeoutRaw = cfg.Knowledge.ProviderTimeout.String()
	cfg.Notify.TimeoutRaw = cfg.Notify.Timeout.String()
	return cfg
}
