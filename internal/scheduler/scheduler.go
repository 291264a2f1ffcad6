// Package scheduler runs service operations off the interactive goroutine.
//
// Every mutation runs as its own task and every refresh as a single task.
// Tasks are fire-and-forget: they are never joined or cancelled once the OS
// call is issued. Results come back on one channel that only the owning
// (interactive) goroutine reads; tasks never touch presentation state.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/BrainStation-23/serman/internal/logging"
	"github.com/BrainStation-23/serman/internal/service"
)

// DefaultMaxConcurrency caps in-flight provider calls.
const DefaultMaxConcurrency = 8

// Verb is a mutation applied to one service.
type Verb string

const (
	VerbStart   Verb = "start"
	VerbStop    Verb = "stop"
	VerbRestart Verb = "restart"
	// VerbRefresh marks results produced by Refresh.
	VerbRefresh Verb = "refresh"
)

// ParseVerb validates a user-supplied mutation verb.
func ParseVerb(s string) (Verb, error) {
	switch v := Verb(s); v {
	case VerbStart, VerbStop, VerbRestart:
		return v, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// Operation is one verb applied to one service.
type Operation struct {
	Service string
	Verb    Verb
}

// Result is the state of a service after an operation or refresh.
// Err carries a launch failure or timeout of the mutation; Status and PID
// are always the re-queried values, observed at QueriedAt.
type Result struct {
	Service   string
	Verb      Verb
	Status    string
	PID       string
	Output    string
	Err       error
	QueriedAt time.Time
}

// Scheduler dispatches provider calls to background tasks.
type Scheduler struct {
	provider service.Provider
	sem      *semaphore.Weighted
	results  chan Result
	onBusy   func(name string)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxConcurrency bounds the number of tasks calling the provider at once.
func WithMaxConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n < 1 {
			n = 1
		}
		s.sem = semaphore.NewWeighted(int64(n))
	}
}

// WithBusyHook registers fn, called on the submitting goroutine for each
// service before its task is spawned.
func WithBusyHook(fn func(name string)) Option {
	return func(s *Scheduler) {
		s.onBusy = fn
	}
}

// WithBuffer sets the capacity of the results channel.
func WithBuffer(n int) Option {
	return func(s *Scheduler) {
		s.results = make(chan Result, n)
	}
}

// New creates a Scheduler for p.
func New(p service.Provider, opts ...Option) *Scheduler {
	s := &Scheduler{
		provider: p,
		sem:      semaphore.NewWeighted(DefaultMaxConcurrency),
		results:  make(chan Result, 64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Results is the channel every task delivers on. It is never closed.
// Every submitted operation yields exactly one Result, even after the
// submitting context ends.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Submit runs op in its own task: the busy hook fires, then the task issues
// the verb, re-queries status and PID, and delivers a Result. Submit returns
// as soon as the task is spawned.
//
// Two tasks for the same service are not serialised; callers must not
// resubmit a service whose result has not arrived yet.
func (s *Scheduler) Submit(ctx context.Context, op Operation) {
	if s.onBusy != nil {
		s.onBusy(op.Service)
	}
	go s.mutate(ctx, op)
}

// Mutate submits verb for every name.
func (s *Scheduler) Mutate(ctx context.Context, verb Verb, names ...string) {
	for _, name := range names {
		s.Submit(ctx, Operation{Service: name, Verb: verb})
	}
}

// Refresh re-queries status and PID of names in a single task, delivering one
// Result per service. It does not enumerate.
func (s *Scheduler) Refresh(ctx context.Context, names ...string) {
	names = append([]string(nil), names...)
	go s.refresh(ctx, names)
}

func (s *Scheduler) mutate(ctx context.Context, op Operation) {
	verb, name := op.Verb, op.Service
	ctx = logging.WithService(logging.WithComponent(ctx, "scheduler"), name)
	log := logging.FromContext(ctx)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.deliver(Result{Service: name, Verb: verb, Err: err, QueriedAt: time.Now()})
		return
	}
	defer s.sem.Release(1)

	// Once issued, an operation runs to completion (or to the runner timeout)
	// regardless of ctx.
	callCtx := context.WithoutCancel(ctx)

	log.Info().Str("verb", string(verb)).Msg("issuing service operation")

	var (
		output string
		err    error
	)
	switch verb {
	case VerbStart:
		output, err = s.provider.Start(callCtx, name)
	case VerbStop:
		output, err = s.provider.Stop(callCtx, name)
	case VerbRestart:
		output, err = s.provider.Restart(callCtx, name)
	default:
		err = fmt.Errorf("unknown operation %q", verb)
	}
	if err != nil {
		log.Warn().Err(err).Str("verb", string(verb)).Msg("service operation failed")
	}

	result := s.query(callCtx, name)
	result.Verb = verb
	result.Output = output
	result.Err = err

	log.Info().
		Str("verb", string(verb)).
		Str("status", result.Status).
		Str("pid", result.PID).
		Msg("service operation finished")

	s.deliver(result)
}

func (s *Scheduler) refresh(ctx context.Context, names []string) {
	ctx = logging.WithComponent(ctx, "scheduler")

	if err := s.sem.Acquire(ctx, 1); err != nil {
		for _, name := range names {
			s.deliver(Result{Service: name, Verb: VerbRefresh, Err: err, QueriedAt: time.Now()})
		}
		return
	}
	defer s.sem.Release(1)

	logging.FromContext(ctx).Debug().Int("count", len(names)).Msg("refreshing services")

	for _, name := range names {
		result := s.query(ctx, name)
		result.Verb = VerbRefresh
		s.deliver(result)
	}
}

func (s *Scheduler) query(ctx context.Context, name string) Result {
	queriedAt := time.Now()
	return Result{
		Service:   name,
		Status:    s.provider.StatusOf(ctx, name),
		PID:       s.provider.PIDOf(ctx, name),
		QueriedAt: queriedAt,
	}
}

// deliver hands r to the owning goroutine. It blocks until the result is
// taken or buffered; a task ends only after delivering.
func (s *Scheduler) deliver(r Result) {
	s.results <- r
}
