// Package genapi is the network boundary to the remote generation service.
package genapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kiranshivaraju/reelgen/internal/apperr"
	"github.com/kiranshivaraju/reelgen/pkg/models"
)

// maxErrorBody bounds how much of a failed download body is read for its message.
const maxErrorBody = 64 << 10

// Client is the interface for talking to the generation service.
// Every method is a single round trip with no retry; failures are returned
// as *apperr.Error.
type Client interface {
	Submit(ctx context.Context, req models.GenerationRequest) (models.GenerationJob, error)
	Poll(ctx context.Context, jobID string) (models.StatusSnapshot, error)
	Download(ctx context.Context, location string, w io.Writer) (int64, error)
	Ping(ctx context.Context) error
}

// HTTPClient implements Client over the service's HTTP API.
type HTTPClient struct {
	baseURL  *url.URL
	http     *resty.Client
	download *resty.Client
	now      func() time.Time
}

// NewHTTPClient creates a client for the service rooted at baseURL. token is
// sent as a bearer token when non-empty. timeout bounds submit/poll/ping;
// downloads are bounded only by their context.
func NewHTTPClient(baseURL, token string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("service url must be http or https, got %q", baseURL)
	}

	c := &HTTPClient{
		baseURL:  u,
		http:     newResty(u, token).SetTimeout(timeout),
		download: newResty(u, token).SetDoNotParseResponse(true),
		now:      time.Now,
	}
	return c, nil
}

func newResty(base *url.URL, token string) *resty.Client {
	r := resty.New().
		SetBaseURL(strings.TrimRight(base.String(), "/")).
		SetHeader("User-Agent", "reelgen/1").
		SetLogger(restyLogger{}).
		SetRetryCount(0)
	if token != "" {
		r.SetAuthToken(token)
	}
	return r
}

func (c *HTTPClient) Submit(ctx context.Context, req models.GenerationRequest) (models.GenerationJob, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetBody(submitRequest{
			Prompt:            req.Prompt,
			LengthSeconds:     req.LengthSeconds,
			FPS:               req.FPS,
			Width:             req.Width,
			Height:            req.Height,
			Seed:              req.Seed,
			NumInferenceSteps: req.QualitySteps,
		}).
		Post("/generate")
	if err != nil {
		return models.GenerationJob{}, classifyError(err)
	}
	if !resp.IsSuccess() {
		return models.GenerationJob{}, httpError(resp.StatusCode(), resp.Body())
	}

	var body submitResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return models.GenerationJob{}, apperr.Decode(fmt.Errorf("decoding submit response: %w", err))
	}
	if body.JobID == "" {
		return models.GenerationJob{}, apperr.Decode(errors.New("submit response has no job_id"))
	}

	statusURL := body.StatusURL
	if statusURL == "" {
		statusURL = "/status/" + url.PathEscape(body.JobID)
	}
	downloadURL := body.DownloadURL
	if downloadURL == "" {
		downloadURL = "/download/" + url.PathEscape(body.JobID)
	}

	return models.GenerationJob{
		ID:               body.JobID,
		StatusURL:        c.resolve(statusURL),
		DownloadURL:      c.resolve(downloadURL),
		EstimatedMinutes: body.EstimatedMinutes,
		Request:          req,
		SubmittedAt:      c.now().UTC(),
	}, nil
}

func (c *HTTPClient) Poll(ctx context.Context, jobID string) (models.StatusSnapshot, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetPathParam("jobID", jobID).
		Get("/status/{jobID}")
	if err != nil {
		return models.StatusSnapshot{}, classifyError(err)
	}
	if !resp.IsSuccess() {
		return models.StatusSnapshot{}, httpError(resp.StatusCode(), resp.Body())
	}

	snap, err := decodeStatus(resp.Body())
	if err != nil {
		return models.StatusSnapshot{}, err
	}
	if snap.JobID == "" {
		snap.JobID = jobID
	}
	return snap, nil
}

// Download streams the media at location into w. location may be absolute
// or relative to the service root.
func (c *HTTPClient) Download(ctx context.Context, location string, w io.Writer) (int64, error) {
	resp, err := c.download.R().
		SetContext(ctx).
		Get(c.resolve(location))
	if err != nil {
		return 0, classifyError(err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		return 0, httpError(resp.StatusCode(), raw)
	}

	n, err := io.Copy(w, body)
	if err != nil {
		return n, apperr.Network(fmt.Errorf("reading media body: %w", err))
	}
	return n, nil
}

// Ping checks that the service root answers with a 2xx status.
func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return classifyError(err)
	}
	if !resp.IsSuccess() {
		return httpError(resp.StatusCode(), resp.Body())
	}
	return nil
}

// resolve turns a server-root-relative location into an absolute URL.
func (c *HTTPClient) resolve(loc string) string {
	if loc == "" {
		return ""
	}
	ref, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	return c.baseURL.ResolveReference(ref).String()
}

// classifyError maps every transport-level failure (refused, DNS, TLS,
// timeout, canceled context) to a network error.
func classifyError(err error) error {
	return apperr.Network(err)
}

// httpError builds an HTTP error, preferring the message in the server body.
func httpError(status int, body []byte) error {
	return apperr.HTTP(status, serverMessage(status, body))
}

func serverMessage(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := detailMessage(payload.Detail); msg != "" {
			return msg
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("service returned %d %s", status, text)
	}
	return fmt.Sprintf("service returned status %d", status)
}

// detailMessage reads a FastAPI-style detail: either a string or a list of
// validation items carrying msg.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		return strings.TrimSpace(items[0].Msg)
	}
	return ""
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
