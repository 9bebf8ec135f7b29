package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/internal/prompts"
	"github.com/hupe1980/agenttask/internal/util"
	"github.com/hupe1980/agenttask/logging"
	"github.com/hupe1980/agenttask/session"
)

// CodeExecutionStateKey is the scratch key holding an agent's shell.
const CodeExecutionStateKey = "code_execution_state"

// Shell is the interactive process a CodeExecution tool drives.
// *session.Local implements it.
type Shell interface {
	session.Reader
	Connect(ctx context.Context) error
	Send(command string) error
	Close() error
}

// codeState is cached in the agent scratch; Scratch.Close closes the shell
// when the agent is closed.
type codeState struct {
	mu    sync.Mutex
	shell Shell
}

func (s *codeState) Close() error { return s.shell.Close() }

// CodeExecutionOptions configures NewCodeExecution.
type CodeExecutionOptions struct {
	// NewShell creates the per-agent shell. Defaults to session.NewLocal.
	NewShell func() Shell
	// Detector decides when command output is complete.
	Detector *session.Detector
	Logger   logging.Logger
}

// CodeExecution runs Python, Node.js and shell commands in a persistent
// per-agent terminal session.
type CodeExecution struct {
	mu       sync.Mutex
	newShell func() Shell
	detector *session.Detector
	logger   logging.Logger
}

// NewCodeExecution creates the tool.
func NewCodeExecution(optFns ...func(o *CodeExecutionOptions)) *CodeExecution {
	opts := CodeExecutionOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)
	if opts.NewShell == nil {
		opts.NewShell = func() Shell {
			return session.NewLocal(func(o *session.Options) { o.Logger = logger })
		}
	}
	if opts.Detector == nil {
		opts.Detector = session.NewDetector()
	}
	return &CodeExecution{newShell: opts.NewShell, detector: opts.Detector, logger: logger}
}

// Name implements Tool.
func (c *CodeExecution) Name() string { return "code_execution" }

// Description implements Tool.
func (c *CodeExecution) Description() string {
	return "Execute code in a persistent terminal. runtime is one of python, nodejs, terminal " +
		"(shell command) or output (wait for more output of a running command)."
}

type codeExecutionArgs struct {
	Runtime string `json:"runtime" enum:"python,nodejs,terminal,output"`
	Code    string `json:"code,omitempty" description:"Code or command to run"`
}

// Parameters implements Tool.
func (c *CodeExecution) Parameters() map[string]any {
	return util.CreateSchema(codeExecutionArgs{})
}

// Call implements Tool.
func (c *CodeExecution) Call(tc *core.ToolContext, args map[string]any) (Response, error) {
	if tc.Intervened() {
		return Response{}, nil
	}

	runtime, _ := stringArg(args, "runtime")
	runtime = strings.ToLower(strings.TrimSpace(runtime))
	code, _ := stringArg(args, "code")

	var command string
	switch runtime {
	case "python":
		command = "python3 -c " + ShellQuote(code)
	case "nodejs":
		command = "node -e " + ShellQuote(code)
	case "terminal":
		command = code
	case "output":
	default:
		return Response{Message: prompts.MustRender(prompts.CodeRuntimeWrong, map[string]any{"Runtime": runtime})}, nil
	}

	state, err := c.state(tc)
	if err != nil {
		return Response{Message: fmt.Sprintf("Terminal session failed: %v", err)}, nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	var out string
	if runtime == "output" {
		out, err = c.drain(tc, state.shell)
	} else {
		out, err = c.execute(tc, state.shell, command)
	}
	if err != nil {
		if errors.Is(err, session.ErrSessionClosed) || errors.Is(err, session.ErrNotConnected) {
			c.logger.Warn("Terminal session lost", "agent", tc.AgentName(), "error", err)
			c.drop(tc, state)
			return Response{Message: strings.TrimSpace(out + "\n" + fmt.Sprintf("Terminal session failed: %v", err))}, nil
		}
		return Response{}, err
	}

	if out == "" {
		out = prompts.MustRender(prompts.CodeNoOutput, nil)
	}
	return Response{Message: out}, nil
}

func (c *CodeExecution) execute(tc *core.ToolContext, shell Shell, command string) (string, error) {
	if tc.Intervened() {
		return "", nil
	}
	if err := shell.Send(command); err != nil {
		return "", err
	}
	return c.drain(tc, shell)
}

func (c *CodeExecution) drain(tc *core.ToolContext, shell Shell) (string, error) {
	return c.detector.Drain(tc.Context(), shell, session.DrainOptions{
		Intervene: tc.Intervention().Check,
		OnOutput: func(chunk string) {
			c.logger.Debug("Code execution output", "agent", tc.AgentName(), "chunk", chunk)
		},
	})
}

// state returns the agent's cached shell, starting one on first use.
func (c *CodeExecution) state(tc *core.ToolContext) (*codeState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := tc.Scratch().Get(CodeExecutionStateKey); ok {
		if st, ok := v.(*codeState); ok {
			return st, nil
		}
	}

	shell := c.newShell()
	if err := shell.Connect(tc.Context()); err != nil {
		return nil, err
	}
	st := &codeState{shell: shell}
	tc.Scratch().Set(CodeExecutionStateKey, st)
	return st, nil
}

func (c *CodeExecution) drop(tc *core.ToolContext, st *codeState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := tc.Scratch().Get(CodeExecutionStateKey); ok && v == any(st) {
		tc.Scratch().Delete(CodeExecutionStateKey)
	}
	_ = st.shell.Close()
}
