package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agenttask/agent"
	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/logging"
	"github.com/hupe1980/agenttask/metrics"
)

// DefaultTimeout applies when a request carries a negative timeout.
const DefaultTimeout = 600 * time.Second

// StartedMessage is journaled and sent when a task begins.
const StartedMessage = "Agent started"

var (
	// ErrTaskNotFound is returned for ids that are not (or no longer) live.
	ErrTaskNotFound = errors.New("task not found")
	// ErrEmptyPrompt rejects requests without a prompt.
	ErrEmptyPrompt = errors.New("prompt must not be empty")
	// ErrPanic wraps a panic recovered from an agent loop.
	ErrPanic = errors.New("agent loop panicked")
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusTimedOut  Status = "timed_out"
	StatusFailed    Status = "failed"
)

// StartRequest describes a task to run.
type StartRequest struct {
	Prompt string
	// Timeout bounds the agent loop. Zero is an already expired deadline;
	// a negative value selects DefaultTimeout.
	Timeout time.Duration
	// Notify, when valid, receives the started and final notifications.
	Notify *core.NotifyTarget
	// Updates forwards interim progress to Notify.
	Updates bool
}

// Result is the outcome of a task.
type Result struct {
	TaskID   string `json:"task_id"`
	Response string `json:"response"`
	Status   Status `json:"status"`
}

// TaskInfo is a point-in-time view of a live task.
type TaskInfo struct {
	ID        string             `json:"id"`
	AgentName string             `json:"agent_name"`
	Prompt    string             `json:"prompt"`
	Timeout   time.Duration      `json:"timeout"`
	Notify    *core.NotifyTarget `json:"notify,omitempty"`
	Updates   bool               `json:"updates"`
	Status    Status             `json:"status"`
	Paused    bool               `json:"paused"`
	CreatedAt time.Time          `json:"created_at"`
}

// AgentFactory creates the agent of a new task. number is the count of live
// tasks at creation time.
type AgentFactory func(number int) *agent.Agent

// Options configures a Runner.
type Options struct {
	// Journal records started, interim and final entries. Optional.
	Journal core.Journal
	// Notifier delivers updates to a task's NotifyTarget. Optional.
	Notifier core.Notifier
	// NotifyTimeout bounds a single notification.
	NotifyTimeout time.Duration
	Logger        logging.Logger
	Metrics       *metrics.Metrics
	// Now is the clock used for task and journal timestamps.
	Now func() time.Time
}

type task struct {
	id        string
	agent     *agent.Agent
	prompt    string
	timeout   time.Duration
	notify    *core.NotifyTarget
	updates   bool
	status    Status
	createdAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// Runner owns the registry of live tasks and drives each task's agent
// under its timeout. Public methods are safe for concurrent use.
type Runner struct {
	newAgent AgentFactory

	journal       core.Journal
	notifier      core.Notifier
	notifyTimeout time.Duration
	logger        logging.Logger
	metrics       *metrics.Metrics
	now           func() time.Time

	tasks map[string]*task
	mu    sync.RWMutex
}

// New constructs a Runner creating agents with newAgent.
func New(newAgent AgentFactory, optFns ...func(o *Options)) *Runner {
	opts := Options{
		NotifyTimeout: 10 * time.Second,
		Now:           time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		newAgent:      newAgent,
		journal:       opts.Journal,
		notifier:      opts.Notifier,
		notifyTimeout: opts.NotifyTimeout,
		logger:        logging.OrNoOp(opts.Logger),
		metrics:       opts.Metrics,
		now:           opts.Now,
		tasks:         make(map[string]*task),
	}
}

// Start registers a task and runs it in the background. The task outlives
// ctx; use Cancel to stop it.
func (r *Runner) Start(ctx context.Context, req StartRequest) (string, error) {
	t, err := r.register(context.WithoutCancel(ctx), req)
	if err != nil {
		return "", err
	}
	go r.execute(t)
	return t.id, nil
}

// Run registers a task and waits for its result. Cancelling ctx cancels
// the task.
func (r *Runner) Run(ctx context.Context, req StartRequest) (Result, error) {
	t, err := r.register(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return r.execute(t), nil
}

// Get returns a snapshot of the live task id.
func (r *Runner) Get(id string) (TaskInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return TaskInfo{}, false
	}
	return t.info(), true
}

// List returns snapshots of all live tasks, oldest first.
func (r *Runner) List() []TaskInfo {
	r.mu.RLock()
	infos := make([]TaskInfo, 0, len(r.tasks))
	for _, t := range r.tasks {
		infos = append(infos, t.info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Len returns the number of live tasks.
func (r *Runner) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Cancel cancels the context of a live task. Cancellation is cooperative:
// the agent stops at its next checkpoint.
func (r *Runner) Cancel(id string) error {
	t, err := r.lookup(id)
	if err != nil {
		return err
	}
	t.cancel()
	return nil
}

// Intervene delivers msg to the task's agent at its next checkpoint.
func (r *Runner) Intervene(id, msg string) error {
	t, err := r.lookup(id)
	if err != nil {
		return err
	}
	t.agent.Intervention().Intervene(msg)
	return nil
}

// Pause blocks the task's agent at its next checkpoint until Resume.
func (r *Runner) Pause(id string) error {
	t, err := r.lookup(id)
	if err != nil {
		return err
	}
	t.agent.Intervention().Pause()
	return nil
}

// Resume releases a paused task.
func (r *Runner) Resume(id string) error {
	t, err := r.lookup(id)
	if err != nil {
		return err
	}
	t.agent.Intervention().Resume()
	return nil
}

func (r *Runner) lookup(id string) (*task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

func (r *Runner) register(base context.Context, req StartRequest) (*task, error) {
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}
	timeout := req.Timeout
	if timeout < 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(base)
	t := &task{
		id:        uuid.NewString(),
		prompt:    req.Prompt,
		timeout:   timeout,
		notify:    req.Notify,
		updates:   req.Updates,
		status:    StatusRunning,
		createdAt: r.now(),
		ctx:       ctx,
		cancel:    cancel,
	}

	r.mu.Lock()
	t.agent = r.newAgent(len(r.tasks))
	r.tasks[t.id] = t
	r.mu.Unlock()

	r.metrics.TaskStarted()
	r.logger.Info(StartedMessage, "task", t.id, "agent", t.agent.Name(), "timeout", timeout)
	r.record(t, core.EntryStarted, StartedMessage)

	return t, nil
}

// execute drives a registered task to completion. The task is deregistered
// and its agent closed on every path, panics included.
func (r *Runner) execute(t *task) (res Result) {
	res = Result{TaskID: t.id}

	defer func() {
		r.mu.Lock()
		delete(r.tasks, t.id)
		r.mu.Unlock()

		t.cancel()
		if err := t.agent.Close(); err != nil {
			r.logger.Warn("Closing agent failed", "task", t.id, "error", err)
		}
		r.metrics.TaskFinished(string(res.Status))
	}()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Agent task panicked", "task", t.id, "panic", p)
			res.Status = StatusFailed
			res.Response = failedMessage(fmt.Errorf("%w: %v", ErrPanic, p))
		}
	}()

	r.send(t, StartedMessage, false)

	t.agent.AppendMessage(t.prompt, true)

	res.Response, res.Status = r.runLoop(t)
	r.setStatus(t, res.Status)

	r.logger.Info("Agent finished", "task", t.id, "status", res.Status)
	r.record(t, core.EntryFinal, res.Response)
	r.send(t, res.Response, true)

	return res
}

type loopOutcome struct {
	response string
	err      error
}

// runLoop runs the agent's message loop on its own goroutine and waits for
// it or the deadline, whichever comes first. After the deadline the loop's
// eventual result is discarded.
func (r *Runner) runLoop(t *task) (string, Status) {
	ctx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()

	update, closeUpdates := r.interimSink(ctx, t)
	defer closeUpdates()

	done := make(chan loopOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("Agent loop panicked", "task", t.id, "panic", p)
				done <- loopOutcome{err: fmt.Errorf("%w: %v", ErrPanic, p)}
			}
		}()
		resp, err := t.agent.MessageLoop(ctx, update)
		done <- loopOutcome{response: resp, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil {
			return out.response, StatusCompleted
		}
		if errors.Is(out.err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timeoutMessage(t.timeout), StatusTimedOut
		}
		r.logger.Error("Agent task failed", "task", t.id, "error", out.err)
		return failedMessage(out.err), StatusFailed
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.logger.Warn("Agent task timed out", "task", t.id, "timeout", t.timeout)
			return timeoutMessage(t.timeout), StatusTimedOut
		}
		return failedMessage(ctx.Err()), StatusFailed
	}
}

func (r *Runner) setStatus(t *task, s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.status = s
}

// interimSink returns the update callback of one loop run and the func that
// closes it. The loop goroutine may outlive the deadline, so updates after
// close or after ctx is done are dropped; close waits for an update in flight.
func (r *Runner) interimSink(ctx context.Context, t *task) (agent.UpdateFunc, func()) {
	var (
		mu     sync.Mutex
		closed bool
	)
	update := func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		if closed || ctx.Err() != nil {
			return
		}
		r.record(t, core.EntryInterim, msg)
		if t.updates {
			r.send(t, msg, false)
		}
	}
	closeSink := func() {
		mu.Lock()
		closed = true
		mu.Unlock()
	}
	return update, closeSink
}

// record appends a journal entry. Failures are logged and do not affect
// the task.
func (r *Runner) record(t *task, kind core.EntryKind, msg string) {
	if r.journal == nil {
		return
	}
	entry := core.JournalEntry{TaskID: t.id, Timestamp: r.now(), Kind: kind, Prompt: t.prompt, Message: msg}
	if err := r.journal.Append(entry); err != nil {
		r.logger.Warn("Journal write failed", "task", t.id, "kind", kind, "error", err)
	}
}

// send notifies the task's target, if any. Failures are logged and
// swallowed.
func (r *Runner) send(t *task, msg string, final bool) {
	if r.notifier == nil || !t.notify.Valid() {
		return
	}
	ctx := context.WithoutCancel(t.ctx)
	if r.notifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.notifyTimeout)
		defer cancel()
	}
	n := core.Notification{Target: *t.notify, Message: msg, OriginalPrompt: t.prompt, IsFinal: final}
	if err := r.notifier.Notify(ctx, n); err != nil {
		r.logger.Warn("Notification failed", "task", t.id, "final", final, "error", err)
	}
}

func (t *task) info() TaskInfo {
	return TaskInfo{
		ID:        t.id,
		AgentName: t.agent.Name(),
		Prompt:    t.prompt,
		Timeout:   t.timeout,
		Notify:    t.notify,
		Updates:   t.updates,
		Status:    t.status,
		Paused:    t.agent.Intervention().Paused(),
		CreatedAt: t.createdAt,
	}
}

func timeoutMessage(d time.Duration) string {
	return fmt.Sprintf("Agent task timed out after %d seconds.", int64(math.Round(d.Seconds())))
}

func failedMessage(err error) string {
	return fmt.Sprintf("Agent task failed: %v", err)
}
