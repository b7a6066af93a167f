package poller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler invokes tick at a fixed interval until stopped.
type Scheduler interface {
	Start(interval time.Duration, tick func())
	Stop()
}

// CronScheduler runs ticks on a robfig/cron constant-delay schedule. A tick
// still running when the next one is due is skipped, not queued.
type CronScheduler struct {
	mu sync.Mutex
	c  *cron.Cron
}

// NewCronScheduler returns a stopped scheduler.
func NewCronScheduler() *CronScheduler {
	return &CronScheduler{}
}

// Start begins ticking. cron.Every rounds interval down to whole seconds with
// a one-second minimum. Calling Start on a running scheduler replaces it.
func (s *CronScheduler) Start(interval time.Duration, tick func()) {
	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	c.Schedule(cron.Every(interval), cron.FuncJob(tick))

	s.mu.Lock()
	prev := s.c
	s.c = c
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	c.Start()
}

// Stop halts future ticks. It does not wait for a running tick, so it is safe
// to call from inside one.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()

	if c != nil {
		c.Stop()
	}
}

// cronLogger adapts cron's logger to slog. Cron's info output is per-tick
// noise, so it goes to debug.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(msg, append([]any{"component", "poller"}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(msg, append([]any{"component", "poller", "error", err}, keysAndValues...)...)
}

var _ Scheduler = (*CronScheduler)(nil)
