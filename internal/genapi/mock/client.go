// Package mock provides a scriptable genapi.Client for tests.
package mock

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/kiranshivaraju/reelgen/internal/apperr"
	"github.com/kiranshivaraju/reelgen/internal/genapi"
	"github.com/kiranshivaraju/reelgen/pkg/models"
)

// MockClient satisfies genapi.Client. Nil funcs return zero values.
type MockClient struct {
	SubmitFunc   func(ctx context.Context, req models.GenerationRequest) (models.GenerationJob, error)
	PollFunc     func(ctx context.Context, jobID string) (models.StatusSnapshot, error)
	DownloadFunc func(ctx context.Context, location string, w io.Writer) (int64, error)
	PingFunc     func(ctx context.Context) error
}

func (m *MockClient) Submit(ctx context.Context, req models.GenerationRequest) (models.GenerationJob, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return models.GenerationJob{}, nil
}

func (m *MockClient) Poll(ctx context.Context, jobID string) (models.StatusSnapshot, error) {
	if m.PollFunc != nil {
		return m.PollFunc(ctx, jobID)
	}
	return models.StatusSnapshot{}, nil
}

func (m *MockClient) Download(ctx context.Context, location string, w io.Writer) (int64, error) {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, location, w)
	}
	return 0, nil
}

func (m *MockClient) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// NewMockClient returns a MockClient that accepts every submission as job
// "job-1" and reports it finished on the first poll.
func NewMockClient() *MockClient {
	return &MockClient{
		SubmitFunc: func(_ context.Context, req models.GenerationRequest) (models.GenerationJob, error) {
			minutes := req.LengthSeconds * req.FPS / 10
			return models.GenerationJob{
				ID:               "job-1",
				StatusURL:        "http://mock/status/job-1",
				DownloadURL:      "http://mock/download/job-1",
				EstimatedMinutes: &minutes,
				Request:          req,
				SubmittedAt:      time.Now().UTC(),
			}, nil
		},
		PollFunc: func(_ context.Context, jobID string) (models.StatusSnapshot, error) {
			return models.StatusSnapshot{
				JobID:     jobID,
				Exists:    true,
				Ready:     true,
				Phase:     models.PhaseCompleted,
				RawStatus: string(models.PhaseCompleted),
				Files:     []string{"output.mp4"},
			}, nil
		},
		DownloadFunc: func(_ context.Context, _ string, w io.Writer) (int64, error) {
			return io.Copy(w, strings.NewReader("mock-media"))
		},
	}
}

// NewUnreachableClient returns a MockClient whose every call fails with a
// network error.
func NewUnreachableClient() *MockClient {
	fail := apperr.Network(context.DeadlineExceeded)
	return &MockClient{
		SubmitFunc: func(context.Context, models.GenerationRequest) (models.GenerationJob, error) {
			return models.GenerationJob{}, fail
		},
		PollFunc: func(context.Context, string) (models.StatusSnapshot, error) {
			return models.StatusSnapshot{}, fail
		},
		DownloadFunc: func(context.Context, string, io.Writer) (int64, error) {
			return 0, fail
		},
		PingFunc: func(context.Context) error { return fail },
	}
}

var _ genapi.Client = (*MockClient)(nil)
