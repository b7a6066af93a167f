// Package generation ties validation, submission, polling and history
// together for the CLI and the local API.
package generation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/reelgen/internal/genapi"
	"github.com/kiranshivaraju/reelgen/internal/history"
	"github.com/kiranshivaraju/reelgen/internal/poller"
	"github.com/kiranshivaraju/reelgen/internal/validate"
	"github.com/kiranshivaraju/reelgen/pkg/models"
)

// Service orchestrates generation jobs against one remote service.
type Service struct {
	client       genapi.Client
	history      *history.Store
	interval     time.Duration
	newScheduler func() poller.Scheduler
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSchedulerFactory supplies the scheduler for each new session.
func WithSchedulerFactory(f func() poller.Scheduler) Option {
	return func(s *Service) { s.newScheduler = f }
}

// NewService creates a Service. hist may be nil to skip recording history.
func NewService(client genapi.Client, hist *history.Store, interval time.Duration, opts ...Option) *Service {
	s := &Service{
		client:   client,
		history:  hist,
		interval: interval,
		newScheduler: func() poller.Scheduler {
			return poller.NewCronScheduler()
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate validates req and submits it, returning a session that is already
// polling. Validation errors are returned before any network call. A submit
// failure is returned and also delivered to cb.OnFailed.
func (s *Service) Generate(ctx context.Context, req models.GenerationRequest, cb poller.Callbacks) (*poller.Session, error) {
	clean, err := validate.Request(req)
	if err != nil {
		return nil, err
	}

	sess := s.newSession(cb)
	if err := sess.Start(ctx, clean); err != nil {
		return nil, err
	}
	return sess, nil
}

// Watch resumes polling a job submitted earlier, identified by id.
func (s *Service) Watch(ctx context.Context, job models.GenerationJob, cb poller.Callbacks) (*poller.Session, error) {
	if job.ID == "" {
		return nil, fmt.Errorf("job id is required")
	}
	sess := s.newSession(cb)
	if err := sess.Track(ctx, job); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) newSession(cb poller.Callbacks) *poller.Session {
	onCompleted := cb.OnCompleted
	cb.OnCompleted = func(job models.GenerationJob, est models.ProgressEstimate) {
		s.record(job)
		if onCompleted != nil {
			onCompleted(job, est)
		}
	}
	return poller.NewSession(s.client, cb,
		poller.WithScheduler(s.newScheduler()),
		poller.WithInterval(s.interval),
	)
}

// record adds a finished job to history. A history failure is logged and
// does not affect the job's outcome.
func (s *Service) record(job models.GenerationJob) {
	if s.history == nil {
		return
	}
	item := models.HistoryItem{
		ID:            uuid.NewString(),
		Prompt:        job.Request.Prompt,
		MediaLocation: job.DownloadURL,
		CreatedAt:     s.now().UTC(),
		Settings:      models.SettingsOf(job.Request),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.history.Record(ctx, item); err != nil {
		slog.Error("recording history failed", "job_id", job.ID, "error", err)
		return
	}
	slog.Info("history recorded", "job_id", job.ID, "history_id", item.ID)
}

// Download streams the media at location into w.
func (s *Service) Download(ctx context.Context, location string, w io.Writer) (int64, error) {
	return s.client.Download(ctx, location, w)
}

// DownloadJob streams the media for jobID from its conventional location.
func (s *Service) DownloadJob(ctx context.Context, jobID string, w io.Writer) (int64, error) {
	return s.client.Download(ctx, "/download/"+url.PathEscape(jobID), w)
}

// Ping checks that the remote service answers.
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// History returns the history store, which may be nil.
func (s *Service) History() *history.Store {
	return s.history
}
