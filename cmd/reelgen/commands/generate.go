package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kiranshivaraju/reelgen/internal/generation"
	"github.com/kiranshivaraju/reelgen/internal/poller"
	"github.com/kiranshivaraju/reelgen/pkg/models"
	"github.com/urfave/cli/v3"
)

// GenerateAction submits a generation request and follows it to the end.
func GenerateAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	req := models.GenerationRequest{
		Prompt:        cmd.String("prompt"),
		LengthSeconds: cmd.Int("length"),
		FPS:           cmd.Int("fps"),
		Width:         cmd.Int("width"),
		Height:        cmd.Int("height"),
		QualitySteps:  cmd.Int("steps"),
	}
	if cmd.IsSet("seed") {
		seed := cmd.Int64("seed")
		req.Seed = &seed
	}

	out := cmd.Root().Writer
	sess, err := appCtx.Service.Generate(ctx, req, progressPrinter(out))
	if err != nil {
		return fmt.Errorf("submit generation: %w", err)
	}
	return follow(ctx, appCtx.Service, sess, cmd.String("download"), out)
}

// WatchAction resumes tracking a job submitted earlier.
func WatchAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	jobID := cmd.String("job-id")
	job := models.GenerationJob{
		ID:          jobID,
		StatusURL:   strings.TrimRight(appCtx.Config.Service.URL, "/") + "/status/" + url.PathEscape(jobID),
		DownloadURL: strings.TrimRight(appCtx.Config.Service.URL, "/") + "/download/" + url.PathEscape(jobID),
		SubmittedAt: time.Now(),
	}

	out := cmd.Root().Writer
	sess, err := appCtx.Service.Watch(ctx, job, progressPrinter(out))
	if err != nil {
		return err
	}
	return follow(ctx, appCtx.Service, sess, cmd.String("download"), out)
}

// DownloadAction saves the media of a finished job.
func DownloadAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	path := cmd.String("out")
	n, err := saveTo(path, func(w io.Writer) (int64, error) {
		return appCtx.Service.DownloadJob(ctx, cmd.String("job-id"), w)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "saved %s (%d bytes)\n", path, n)
	return nil
}

// follow waits for sess to end. An interrupt cancels tracking only; the
// remote job keeps running and can be resumed with watch.
func follow(ctx context.Context, svc *generation.Service, sess *poller.Session, downloadPath string, out io.Writer) error {
	select {
	case <-sess.Done():
	case <-ctx.Done():
		sess.Cancel()
		fmt.Fprintf(out, "stopped tracking %s; resume with: reelgen watch --job-id %s\n", sess.Job().ID, sess.Job().ID)
		return nil
	}

	if err := sess.Wait(context.Background()); err != nil {
		if errors.Is(err, poller.ErrCanceled) {
			return nil
		}
		return fmt.Errorf("generation %s: %w", sess.Job().ID, err)
	}

	job := sess.Job()
	fmt.Fprintf(out, "done: %s\n", job.DownloadURL)
	if downloadPath == "" {
		return nil
	}
	n, err := saveTo(downloadPath, func(w io.Writer) (int64, error) {
		return svc.Download(ctx, job.DownloadURL, w)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "saved %s (%d bytes)\n", downloadPath, n)
	return nil
}

// saveTo writes a download to path, removing the file if the transfer fails.
func saveTo(path string, fetch func(io.Writer) (int64, error)) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := fetch(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("download: %w", err)
	}
	return n, nil
}

// progressPrinter reports submission and progress. Failures are not printed
// here; they come back as the command's error and main reports them.
func progressPrinter(out io.Writer) poller.Callbacks {
	return poller.Callbacks{
		OnSubmitted: func(job models.GenerationJob) {
			fmt.Fprintf(out, "submitted %s\n", job.ID)
		},
		OnProgress: func(est models.ProgressEstimate, snap models.StatusSnapshot) {
			fmt.Fprintln(out, formatProgress(est, snap))
		},
	}
}

func formatProgress(est models.ProgressEstimate, snap models.StatusSnapshot) string {
	line := fmt.Sprintf("[%s] %5.1f%%  elapsed %s", snap.Phase, est.Percent, est.Elapsed.Round(time.Second))
	if est.ETAKnown {
		line += fmt.Sprintf("  eta %s", est.ETA.Round(time.Second))
	}
	if f := snap.Progress; f.FramesGenerated != nil && f.TotalFrames != nil {
		line += fmt.Sprintf("  frames %d/%d", *f.FramesGenerated, *f.TotalFrames)
	}
	return line
}
