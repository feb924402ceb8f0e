package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rshade/stagehand/internal/logging"
)

// Scheduler errors.
var (
	ErrDuplicateTask   = errors.New("task already scheduled")
	ErrTaskNotFound    = errors.New("task not found")
	ErrTaskRunning     = errors.New("task is already running")
	ErrSchedulerClosed = errors.New("scheduler is shut down")
)

// TaskFunc is the body of a scheduled task. ctx is cancelled when the run times
// out or the scheduler shuts down.
type TaskFunc func(ctx context.Context) error

// TaskInvocation names a task body.
type TaskInvocation struct {
	ID string
	Fn TaskFunc
}

// TaskRunner starts tasks on a fixed schedule.
type TaskRunner interface {
	Run(ctx context.Context, task TaskInvocation) error
}

// TaskDescriptor is a read-only view of a scheduled task.
type TaskDescriptor struct {
	ID        string
	Scope     string
	Frequency time.Duration
	Timeout   time.Duration
	Running   bool
	Runs      int
	LastRun   time.Time
	LastError string
}

// Options configures New.
type Options struct {
	Logger *zerolog.Logger

	// Registerer receives the task metrics. Nil disables registration.
	Registerer prometheus.Registerer
}

// Scheduler owns the goroutines of all scheduled tasks.
type Scheduler struct {
	logger  zerolog.Logger
	metrics *Metrics

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	tasks  map[string]*task
	closed bool
}

type task struct {
	id      string
	def     TaskScheduleDefinition
	fn      TaskFunc
	trigger chan struct{}

	mu      sync.Mutex
	running bool
	runs    int
	lastRun time.Time
	lastErr error
}

// New creates a scheduler.
func New(opts Options) (*Scheduler, error) {
	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("registering scheduler metrics: %w", err)
	}
	base := logging.Default()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	root, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:  logging.ComponentLogger(base, "scheduler"),
		metrics: metrics,
		root:    root,
		cancel:  cancel,
		tasks:   make(map[string]*task),
	}, nil
}

// CreateScheduledTaskRunner returns a runner bound to def.
func (s *Scheduler) CreateScheduledTaskRunner(def TaskScheduleDefinition) TaskRunner {
	return &scheduledRunner{scheduler: s, def: def}
}

type scheduledRunner struct {
	scheduler *Scheduler
	def       TaskScheduleDefinition
}

// Run implements TaskRunner.
func (r *scheduledRunner) Run(ctx context.Context, inv TaskInvocation) error {
	return r.scheduler.ScheduleTask(ctx, r.def, inv)
}

// ScheduleTask starts inv on def's cadence. The task stops when ctx is done or
// the scheduler shuts down. Runs of one task never overlap.
func (s *Scheduler) ScheduleTask(ctx context.Context, def TaskScheduleDefinition, inv TaskInvocation) error {
	if inv.ID == "" || inv.Fn == nil {
		return fmt.Errorf("%w: task id and function are required", ErrInvalidSchedule)
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("task %s: %w", inv.ID, err)
	}
	if def.Scope == "" {
		def.Scope = ScopeGlobal
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}
	if _, exists := s.tasks[inv.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, inv.ID)
	}

	t := &task{id: inv.ID, def: def, fn: inv.Fn, trigger: make(chan struct{}, 1)}
	s.tasks[inv.ID] = t

	taskCtx, cancel := context.WithCancel(s.root)
	stop := context.AfterFunc(ctx, cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		defer cancel()
		s.loop(taskCtx, t)
	}()

	s.logger.Info().
		Str("task", inv.ID).
		Dur("frequency", def.Frequency).
		Dur("timeout", def.Timeout).
		Dur("initial_delay", def.InitialDelay).
		Msg("task scheduled")
	return nil
}

// TriggerTask asks the task to run now instead of waiting for its next slot.
func (s *Scheduler) TriggerTask(_ context.Context, id string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	t.mu.Lock()
	running := t.running
	t.mu.Unlock()
	if running {
		return fmt.Errorf("%w: %s", ErrTaskRunning, id)
	}

	select {
	case t.trigger <- struct{}{}:
	default:
	}
	return nil
}

// Tasks lists scheduled tasks sorted by id.
func (s *Scheduler) Tasks() []TaskDescriptor {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	out := make([]TaskDescriptor, 0, len(tasks))
	for _, t := range tasks {
		t.mu.Lock()
		d := TaskDescriptor{
			ID:        t.id,
			Scope:     t.def.Scope,
			Frequency: t.def.Frequency,
			Timeout:   t.def.Timeout,
			Running:   t.running,
			Runs:      t.runs,
			LastRun:   t.lastRun,
		}
		if t.lastErr != nil {
			d.LastError = t.lastErr.Error()
		}
		t.mu.Unlock()
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown stops all tasks and waits for in-flight runs to return.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	timer := time.NewTimer(t.def.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-t.trigger:
			timer.Stop()
		}

		start := time.Now()
		s.runOnce(ctx, t)
		if ctx.Err() != nil {
			return
		}

		next := t.def.Frequency - time.Since(start)
		if next < 0 {
			next = 0
		}
		timer.Reset(next)
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t *task) {
	runID := logging.NewTraceID()
	logger := s.logger.With().Str("task", t.id).Str("run_id", runID).Logger()

	runCtx, cancel := context.WithTimeout(ctx, t.def.Timeout)
	defer cancel()
	runCtx = logging.ContextWithTraceID(logger.WithContext(runCtx), runID)

	t.mu.Lock()
	t.running = true
	t.mu.Unlock()
	s.metrics.running.WithLabelValues(t.id).Set(1)

	start := time.Now()
	logger.Debug().Msg("task run starting")
	err := safeCall(runCtx, t.fn)
	elapsed := time.Since(start)

	result := resultSuccess
	switch {
	case err == nil:
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result = resultTimeout
	default:
		result = resultFailure
	}

	t.mu.Lock()
	t.running = false
	t.runs++
	t.lastRun = start
	t.lastErr = err
	t.mu.Unlock()

	s.metrics.running.WithLabelValues(t.id).Set(0)
	s.metrics.runs.WithLabelValues(t.id, result).Inc()
	s.metrics.duration.WithLabelValues(t.id).Observe(elapsed.Seconds())

	if err != nil {
		logger.Error().Err(err).Str("result", result).Dur("duration_ms", elapsed).Msg("task run failed")
		return
	}
	logger.Info().Dur("duration_ms", elapsed).Msg("task run completed")
}

func safeCall(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}
