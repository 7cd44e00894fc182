package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"exam_project/internal/models"
)

const SummaryFile = "last-run.yml"

type Authenticator interface {
	Login(ctx context.Context) ([]*http.Cookie, error)
}

type PageFetcher interface {
	FetchPage(ctx context.Context, page int) ([]models.ExamFile, error)
}

type Downloader interface {
	DownloadAll(ctx context.Context, files []models.ExamFile) []models.Result
}

type Exporter interface {
	Export(ctx context.Context, target string) ([]models.ExerciseLink, error)
}

type History interface {
	RecordRun(ctx context.Context, summary *models.Summary) error
}

type SummaryWriter interface {
	WriteSummary(rel string, summary models.Summary) error
}

type Metrics interface {
	ObservePage(err error)
	Push(ctx context.Context, gatewayURL string, resource string) error
}

type Notifier interface {
	Notify(summary models.Summary) error
}

// Pipeline runs Authenticate → [Export] → for each page {Fetch → DownloadAll}.
// Only a failed login aborts the run; page and file failures are logged and
// counted in the summary. Optional steps are skipped when nil.
type Pipeline struct {
	Resource  string
	PageStart int
	PageCount int

	Auth           Authenticator
	InstallCookies func([]*http.Cookie) error
	Fetcher        PageFetcher
	Downloader     Downloader

	Exporter     Exporter
	ExercisesURL string

	History        History
	Summaries      SummaryWriter
	Metrics        Metrics
	PushgatewayURL string
	Notifier       Notifier

	Log *slog.Logger
	Now func() time.Time
}

// Run returns the summary of all pages attempted. The error is non-nil only
// when login fails or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, runID string) (models.Summary, error) {
	summary := models.Summary{
		RunID:     runID,
		Resource:  p.Resource,
		StartedAt: p.now(),
	}
	log := p.Log.With(slog.String("run", runID))

	if err := p.authenticate(ctx); err != nil {
		return summary, err
	}

	if p.Exporter != nil {
		if _, err := p.Exporter.Export(ctx, p.ExercisesURL); err != nil {
			log.Error("suggested exercises export failed", slog.Any("error", err))
		}
	}

	for page := p.PageStart; page < p.PageStart+p.PageCount; page++ {
		if ctx.Err() != nil {
			break
		}

		summary.Pages++
		files, err := p.Fetcher.FetchPage(ctx, page)
		if p.Metrics != nil {
			p.Metrics.ObservePage(err)
		}
		if err != nil {
			summary.PagesFailed++
			log.Error("page failed", slog.Int("page", page), slog.Any("error", err))
			continue
		}

		log.Info("downloading page", slog.Int("page", page), slog.Int("files", len(files)))
		summary.Add(p.Downloader.DownloadAll(ctx, files))
	}

	summary.FinishedAt = p.now()
	p.report(ctx, log, &summary)

	log.Info("run finished",
		slog.Int("pages", summary.Pages),
		slog.Int("pages_failed", summary.PagesFailed),
		slog.Int("downloaded", summary.Downloaded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Int("cancelled", summary.Cancelled),
	)

	return summary, ctx.Err()
}

// Export authenticates and runs only the suggested exercises export.
func (p *Pipeline) Export(ctx context.Context) ([]models.ExerciseLink, error) {
	if p.Exporter == nil {
		return nil, fmt.Errorf("exercises export is not configured")
	}
	if err := p.authenticate(ctx); err != nil {
		return nil, err
	}
	return p.Exporter.Export(ctx, p.ExercisesURL)
}

func (p *Pipeline) authenticate(ctx context.Context) error {
	cookies, err := p.Auth.Login(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if p.InstallCookies != nil {
		if err := p.InstallCookies(cookies); err != nil {
			return fmt.Errorf("install cookies: %w", err)
		}
	}
	return nil
}

// report persists and publishes the summary. Failures here never fail the run.
func (p *Pipeline) report(ctx context.Context, log *slog.Logger, summary *models.Summary) {
	// Reporting must happen even after an interrupt.
	rctx := context.WithoutCancel(ctx)

	if p.History != nil {
		if err := p.History.RecordRun(rctx, summary); err != nil {
			log.Warn("record run history", slog.Any("error", err))
		}
	}
	if p.Summaries != nil {
		if err := p.Summaries.WriteSummary(SummaryFile, *summary); err != nil {
			log.Warn("write summary", slog.Any("error", err))
		}
	}
	if p.Metrics != nil && p.PushgatewayURL != "" {
		pctx, cancel := context.WithTimeout(rctx, 10*time.Second)
		defer cancel()
		if err := p.Metrics.Push(pctx, p.PushgatewayURL, p.Resource); err != nil {
			log.Warn("push metrics", slog.Any("error", err))
		}
	}
	if p.Notifier != nil {
		if err := p.Notifier.Notify(*summary); err != nil {
			log.Warn("notify", slog.Any("error", err))
		}
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
