package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agenttask/logging"
)

var (
	// ErrNotConnected is returned by Send before Connect succeeded.
	ErrNotConnected = errors.New("session not connected")
	// ErrSessionClosed reports that the backing process is no longer usable.
	ErrSessionClosed = errors.New("session not usable")
)

// Reader is the read side of a session as consumed by the Detector.
type Reader interface {
	// ReadOutput returns the cumulative output and the part of it not
	// returned by any previous call.
	ReadOutput() (full, partial string)
	// Err reports a non-nil error once the session can no longer produce
	// output.
	Err() error
}

// Options configures a Local session.
type Options struct {
	// Shell is the interactive program to spawn.
	Shell string
	// Args are passed to Shell.
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env entries (KEY=VALUE) appended to the inherited environment.
	Env []string
	// Logger for lifecycle messages.
	Logger logging.Logger
}

// Local is an interactive session over a locally spawned process.
type Local struct {
	opts   Options
	logger logging.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	connected bool
	exitErr   error
	done      chan struct{}

	outMu  sync.Mutex
	output strings.Builder
	cursor int
}

// NewLocal creates an unconnected session. Defaults to /bin/bash.
func NewLocal(optFns ...func(o *Options)) *Local {
	opts := Options{Shell: "/bin/bash"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Local{opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

// Connect spawns the backing process. It is a no-op when already connected.
// The process outlives ctx; ctx only bounds the spawn itself.
func (s *Local) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(s.opts.Shell, s.opts.Args...)
	cmd.Dir = s.opts.Dir
	cmd.Env = append(os.Environ(), s.opts.Env...)
	// Background children may keep the output pipe open after the shell exits.
	cmd.WaitDelay = time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("creating stdin pipe: %w", err)
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.opts.Shell, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.connected = true
	s.exitErr = nil
	s.done = make(chan struct{})

	go s.pump(pr)
	go s.wait(pw)

	s.logger.Debug("process session connected", "shell", s.opts.Shell, "pid", cmd.Process.Pid)
	return nil
}

// pump copies process output into the buffer until the pipe closes.
func (s *Local) pump(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.outMu.Lock()
			s.output.Write(buf[:n])
			s.outMu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (s *Local) wait(pw *io.PipeWriter) {
	err := s.cmd.Wait()
	_ = pw.Close()

	s.mu.Lock()
	if err == nil {
		err = errors.New("process exited")
	}
	s.exitErr = err
	close(s.done)
	s.mu.Unlock()

	s.logger.Debug("process session ended", "error", err)
}

// Send writes command followed by a newline to the process. It does not wait
// for the command to finish.
func (s *Local) Send(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if s.exitErr != nil {
		return fmt.Errorf("%w: %v", ErrSessionClosed, s.exitErr)
	}
	if _, err := io.WriteString(s.stdin, command+"\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	return nil
}

// ReadOutput implements Reader. It never blocks on the process.
func (s *Local) ReadOutput() (full, partial string) {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	full = s.output.String()
	partial = full[s.cursor:]
	s.cursor = len(full)
	return full, partial
}

// Err implements Reader.
func (s *Local) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if s.exitErr != nil {
		return fmt.Errorf("%w: %v", ErrSessionClosed, s.exitErr)
	}
	return nil
}

// Close terminates the process. Closing an unconnected or already closed
// session is a no-op.
func (s *Local) Close() error {
	s.mu.Lock()
	if !s.connected || s.exitErr != nil {
		s.mu.Unlock()
		return nil
	}
	cmd, stdin, done := s.cmd, s.stdin, s.done
	s.mu.Unlock()

	_ = stdin.Close()
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing process: %w", err)
	}
	<-done
	return nil
}
