package downloader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"exam_project/internal/models"
	"exam_project/internal/service"
)

// Opener returns the body of a successful GET.
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Store is the archive the files are written to.
type Store interface {
	Path(rel string) string
	Exists(rel string) (bool, error)
	Save(rel string, data io.Reader) (int64, error)
}

// Observer receives every finished Result.
type Observer interface {
	ObserveResult(models.Result)
}

// Options configures the manager.
type Options struct {
	// Workers is the size of the download pool. Default: 5
	Workers int

	// MaxRetries is the maximum number of attempts per file. Default: 3
	MaxRetries int

	// RetryBase is the delay after the first failed attempt; it doubles
	// after every further failure. Default: 1s
	RetryBase time.Duration

	Observer Observer
}

func DefaultOptions() Options {
	return Options{
		Workers:    5,
		MaxRetries: 3,
		RetryBase:  time.Second,
	}
}

type Manager struct {
	opener Opener
	store  Store
	opts   Options
	log    *slog.Logger
}

func NewManager(opener Opener, store Store, opts Options, log *slog.Logger) *Manager {
	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = def.RetryBase
	}

	return &Manager{
		opener: opener,
		store:  store,
		opts:   opts,
		log:    log,
	}
}

// DownloadAll processes files concurrently and returns one Result per
// file, in the same order. It never fails as a whole.
func (m *Manager) DownloadAll(ctx context.Context, files []models.ExamFile) []models.Result {
	results := make([]models.Result, len(files))

	var g errgroup.Group
	g.SetLimit(m.opts.Workers)

	for i, f := range files {
		g.Go(func() error {
			results[i] = m.Download(ctx, f)
			if m.opts.Observer != nil {
				m.opts.Observer.ObserveResult(results[i])
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Download fetches a single file unless it is already in the archive.
func (m *Manager) Download(ctx context.Context, f models.ExamFile) models.Result {
	rel := f.RelPath()
	res := models.Result{File: f, Path: m.store.Path(rel)}
	log := m.log.With(slog.String("path", res.Path))

	if ctx.Err() != nil {
		res.Status = models.StatusCancelled
		res.Err = ctx.Err()
		return res
	}

	exists, err := m.store.Exists(rel)
	if err != nil {
		res.Status = models.StatusFailed
		res.Err = err
		log.Error("download failed", slog.String("url", f.URL), slog.Any("error", err))
		return res
	}
	if exists {
		res.Status = models.StatusSkipped
		log.Info("file exists, skipping")
		return res
	}

	err = retry.Do(ctx, newBackoff(m.opts.MaxRetries, m.opts.RetryBase), func(ctx context.Context) error {
		res.Attempts++

		n, err := m.fetch(ctx, f.URL, rel)
		if err != nil {
			log.Debug("attempt failed",
				slog.Int("attempt", res.Attempts),
				slog.Int("max", m.opts.MaxRetries),
				slog.Any("error", err),
			)
			if !retryable(err) {
				return err
			}
			return retry.RetryableError(err)
		}

		res.Bytes = n
		return nil
	})

	if err != nil && ctx.Err() != nil {
		res.Status = models.StatusCancelled
		res.Err = err
		log.Warn("download interrupted", slog.Int("attempts", res.Attempts))
		return res
	}
	if err != nil {
		res.Status = models.StatusFailed
		res.Err = err
		log.Error("download failed",
			slog.String("url", f.URL),
			slog.Int("attempts", res.Attempts),
			slog.Any("error", err),
		)
		return res
	}

	res.Status = models.StatusDownloaded
	log.Info("downloaded", slog.Int64("bytes", res.Bytes), slog.Int("attempts", res.Attempts))
	return res
}

func (m *Manager) fetch(ctx context.Context, url string, rel string) (int64, error) {
	body, err := m.opener.Open(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	return m.store.Save(rel, body)
}

// newBackoff allows maxAttempts tries in total with delays base·2^n between them.
func newBackoff(maxAttempts int, base time.Duration) retry.Backoff {
	return retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewExponential(base))
}

// retryable reports whether another attempt may succeed. Client errors other
// than timeouts and rate limiting are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *service.StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		if code >= 400 && code < 500 {
			return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
		}
	}
	return true
}
