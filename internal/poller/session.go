// Package poller drives one generation job from submission to a terminal
// state by polling the service on a schedule.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/reelgen/internal/apperr"
	"github.com/kiranshivaraju/reelgen/internal/genapi"
	"github.com/kiranshivaraju/reelgen/internal/progress"
	"github.com/kiranshivaraju/reelgen/pkg/models"
)

// DefaultInterval is the poll cadence used when none is configured.
const DefaultInterval = 5 * time.Second

var (
	// ErrCanceled is returned by Wait after Cancel.
	ErrCanceled = errors.New("poll session canceled")
	// ErrAlreadyStarted is returned by Start or Track on a used session.
	ErrAlreadyStarted = errors.New("poll session already started")
)

// State is a session's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateCompleted
	StateJobFailed
	StateJobNotFound
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateJobFailed:
		return "failed"
	case StateJobNotFound:
		return "not_found"
	case StateCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Done reports whether no further transitions can happen.
func (s State) Done() bool {
	return s >= StateCompleted
}

// Callbacks receive session events. All are optional and are invoked outside
// the session lock, so they may call back into the session. Exactly one of
// OnCompleted or OnFailed fires per session unless it is canceled first.
type Callbacks struct {
	OnSubmitted func(job models.GenerationJob)
	OnProgress  func(est models.ProgressEstimate, snap models.StatusSnapshot)
	OnCompleted func(job models.GenerationJob, est models.ProgressEstimate)
	OnFailed    func(err error)
}

// Session tracks a single job. It is safe for concurrent use.
type Session struct {
	client   genapi.Client
	sched    Scheduler
	interval time.Duration
	cb       Callbacks
	now      func() time.Time

	mu       sync.Mutex
	state    State
	job      models.GenerationJob
	est      *progress.Estimator
	snap     models.StatusSnapshot
	err      error
	inFlight bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithScheduler replaces the default cron scheduler.
func WithScheduler(s Scheduler) Option {
	return func(sess *Session) { sess.sched = s }
}

// WithInterval sets the poll cadence.
func WithInterval(d time.Duration) Option {
	return func(sess *Session) {
		if d > 0 {
			sess.interval = d
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(sess *Session) { sess.now = now }
}

// NewSession creates an idle session.
func NewSession(client genapi.Client, cb Callbacks, opts ...Option) *Session {
	s := &Session{
		client:   client,
		interval: DefaultInterval,
		cb:       cb,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sched == nil {
		s.sched = NewCronScheduler()
	}
	return s
}

// Start submits req and, on acceptance, begins polling. It blocks for the
// submit round trip only. A submit failure moves the session to
// StateJobFailed, fires OnFailed and is also returned.
func (s *Session) Start(ctx context.Context, req models.GenerationRequest) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateSubmitting
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	submitCtx := s.ctx
	s.mu.Unlock()

	// The caller's ctx bounds only the submit; polling outlives it.
	stop := context.AfterFunc(ctx, s.cancelSubmit)
	job, err := s.client.Submit(submitCtx, req)
	stop()

	s.mu.Lock()
	if s.state != StateSubmitting {
		s.mu.Unlock()
		return ErrCanceled
	}
	if err != nil {
		s.finishLocked(StateJobFailed, err)
		s.mu.Unlock()
		slog.Warn("job submit failed", "error", err)
		s.emitFailed(err)
		close(s.done)
		return err
	}
	s.job = job
	s.est = progress.NewEstimator(job, s.startTime(job))
	s.state = StatePolling
	s.mu.Unlock()

	slog.Info("job submitted", "job_id", job.ID)
	if s.cb.OnSubmitted != nil {
		s.cb.OnSubmitted(job)
	}
	s.startPolling()
	return nil
}

// Track resumes polling a job that was submitted earlier.
func (s *Session) Track(ctx context.Context, job models.GenerationJob) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.job = job
	s.est = progress.NewEstimator(job, s.startTime(job))
	s.state = StatePolling
	s.mu.Unlock()

	slog.Info("tracking job", "job_id", job.ID)
	s.startPolling()
	return nil
}

// cancelSubmit aborts a submit whose caller context ended. The session then
// fails with the resulting network error.
func (s *Session) cancelSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting && s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) startPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePolling {
		s.sched.Start(s.interval, s.tick)
	}
}

// Tick polls once. The scheduler calls it; tests may too. A tick while a
// previous poll is still in flight, or after the session ended, does nothing.
func (s *Session) Tick() { s.tick() }

func (s *Session) tick() {
	s.mu.Lock()
	if s.state != StatePolling || s.inFlight {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	ctx, jobID := s.ctx, s.job.ID
	s.mu.Unlock()

	snap, err := s.client.Poll(ctx, jobID)

	s.mu.Lock()
	s.inFlight = false
	if s.state != StatePolling {
		// Canceled while the request was out; the result is stale.
		s.mu.Unlock()
		return
	}
	emit := s.applyLocked(snap, err)
	ended := s.state.Done()
	s.mu.Unlock()

	if emit != nil {
		emit()
	}
	if ended {
		close(s.done)
	}
}

// applyLocked advances the state machine for one poll result and returns the
// callback to fire once the lock is released.
func (s *Session) applyLocked(snap models.StatusSnapshot, err error) func() {
	job := s.job
	switch {
	case err != nil && apperr.KindOf(err) == apperr.KindDecode:
		slog.Warn("unreadable status response, will retry", "job_id", job.ID, "error", err)
		return nil
	case err != nil:
		s.finishLocked(StateJobFailed, err)
		slog.Warn("job poll failed", "job_id", job.ID, "error", err)
		return func() { s.emitFailed(err) }
	case !snap.Exists:
		nf := apperr.JobNotFound(job.ID)
		s.snap = snap
		s.finishLocked(StateJobNotFound, nf)
		slog.Warn("job not found", "job_id", job.ID)
		return func() { s.emitFailed(nf) }
	case snap.Error:
		gf := apperr.GenerationFailed(job.ID)
		s.snap = snap
		s.finishLocked(StateJobFailed, gf)
		slog.Warn("job failed on service", "job_id", job.ID, "phase", snap.Phase)
		return func() { s.emitFailed(gf) }
	case snap.Ready:
		s.snap = snap
		est := s.est.Complete(s.now())
		s.finishLocked(StateCompleted, nil)
		slog.Info("job completed", "job_id", job.ID, "elapsed_seconds", int(est.Elapsed.Seconds()))
		return func() {
			if s.cb.OnCompleted != nil {
				s.cb.OnCompleted(job, est)
			}
		}
	default:
		s.snap = snap
		est := s.est.Update(snap, s.now())
		attrs := []any{"job_id", job.ID, "phase", snap.Phase, "percent", est.Percent}
		if est.ETAKnown {
			attrs = append(attrs, "eta_seconds", int(est.ETA.Seconds()))
		}
		slog.Debug("job progress", attrs...)
		return func() {
			if s.cb.OnProgress != nil {
				s.cb.OnProgress(est, snap)
			}
		}
	}
}

// finishLocked enters a terminal state and releases the schedule and any
// request still in flight. The caller closes done once the terminal callback
// has returned.
func (s *Session) finishLocked(state State, err error) {
	s.state = state
	s.err = err
	s.sched.Stop()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) emitFailed(err error) {
	if s.cb.OnFailed != nil {
		s.cb.OnFailed(err)
	}
}

// Cancel stops polling without firing any callback. A response already in
// flight is discarded. Cancel is idempotent and a no-op once the session has
// ended.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Done() {
		return
	}
	slog.Info("job tracking canceled", "job_id", s.job.ID)
	s.finishLocked(StateCanceled, ErrCanceled)
	close(s.done)
}

// Wait blocks until the session ends or ctx is done. It returns nil for a
// completed job, ErrCanceled after Cancel, and the failure otherwise.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the session ends, after its terminal callback.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Job() models.GenerationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

// Estimate returns the latest progress estimate.
func (s *Session) Estimate() models.ProgressEstimate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.est == nil {
		return models.ProgressEstimate{}
	}
	return s.est.Last()
}

// Snapshot returns the latest status snapshot received.
func (s *Session) Snapshot() models.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Err returns the terminal error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) startTime(job models.GenerationJob) time.Time {
	if !job.SubmittedAt.IsZero() {
		return job.SubmittedAt
	}
	return s.now()
}
