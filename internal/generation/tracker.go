package generation

import (
	"context"
	"errors"
	"sync"

	"github.com/kiranshivaraju/reelgen/internal/poller"
	"github.com/kiranshivaraju/reelgen/pkg/models"
)

// maxFinished bounds how many ended sessions the tracker keeps for lookup.
const maxFinished = 50

// JobView is a point-in-time report on one tracked job.
type JobView struct {
	Job      models.GenerationJob
	State    poller.State
	Estimate models.ProgressEstimate
	Snapshot models.StatusSnapshot
	Err      error
}

// Tracker runs any number of jobs concurrently, one independent session per
// job id.
type Tracker struct {
	svc *Service

	mu       sync.Mutex
	sessions map[string]*poller.Session
	finished []string
}

func NewTracker(svc *Service) *Tracker {
	return &Tracker{svc: svc, sessions: make(map[string]*poller.Session)}
}

// Submit validates and submits req and begins tracking the resulting job.
func (t *Tracker) Submit(ctx context.Context, req models.GenerationRequest) (models.GenerationJob, error) {
	sess, err := t.svc.Generate(ctx, req, poller.Callbacks{})
	if err != nil {
		return models.GenerationJob{}, err
	}
	job := sess.Job()
	t.add(job.ID, sess)
	return job, nil
}

func (t *Tracker) add(id string, sess *poller.Session) {
	t.mu.Lock()
	if prev, ok := t.sessions[id]; ok {
		prev.Cancel()
	}
	t.sessions[id] = sess
	t.mu.Unlock()

	go func() {
		<-sess.Done()
		t.retire(id, sess)
	}()
}

// retire remembers an ended session and drops the oldest ended ones past
// maxFinished.
func (t *Tracker) retire(id string, sess *poller.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessions[id] != sess {
		return
	}
	t.finished = append(t.finished, id)
	for len(t.finished) > maxFinished {
		old := t.finished[0]
		t.finished = t.finished[1:]
		if s, ok := t.sessions[old]; ok && s.State().Done() {
			delete(t.sessions, old)
		}
	}
}

// Get reports on a tracked job.
func (t *Tracker) Get(id string) (JobView, bool) {
	t.mu.Lock()
	sess, ok := t.sessions[id]
	t.mu.Unlock()
	if !ok {
		return JobView{}, false
	}
	return viewOf(sess), true
}

// List reports on every tracked job.
func (t *Tracker) List() []JobView {
	t.mu.Lock()
	sessions := make([]*poller.Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		sessions = append(sessions, s)
	}
	t.mu.Unlock()

	views := make([]JobView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, viewOf(s))
	}
	return views
}

// ErrNotTracked is returned for job ids the tracker does not know.
var ErrNotTracked = errors.New("job is not tracked")

// Cancel stops tracking id. The remote job keeps running.
func (t *Tracker) Cancel(id string) error {
	t.mu.Lock()
	sess, ok := t.sessions[id]
	t.mu.Unlock()
	if !ok {
		return ErrNotTracked
	}
	sess.Cancel()
	return nil
}

// Shutdown cancels every active session.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.sessions {
		s.Cancel()
	}
}

func viewOf(s *poller.Session) JobView {
	return JobView{
		Job:      s.Job(),
		State:    s.State(),
		Estimate: s.Estimate(),
		Snapshot: s.Snapshot(),
		Err:      s.Err(),
	}
}
