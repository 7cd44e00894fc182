package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"exam_project/internal/models"
	"exam_project/internal/parser"
)

// ErrStatus is wrapped by every StatusError so callers can test with errors.Is.
var ErrStatus = errors.New("unexpected status")

// StatusError is returned for a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// FetchError means a listing page could not be retrieved or parsed.
// It is page level: the orchestrator logs it and moves on.
type FetchError struct {
	Page int
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PageURLer maps a page index to the listing URL.
type PageURLer interface {
	PageURL(page int) string
}

// PortalClient talks to the exam portal with an already authenticated client.
type PortalClient struct {
	httpClient *http.Client
	pages      PageURLer
	log        *slog.Logger
}

func NewPortalClient(client *http.Client, pages PageURLer, log *slog.Logger) *PortalClient {
	return &PortalClient{
		httpClient: client,
		pages:      pages,
		log:        log,
	}
}

// FetchPage downloads one listing page and parses the exam files on it.
func (s *PortalClient) FetchPage(ctx context.Context, page int) ([]models.ExamFile, error) {
	target := s.pages.PageURL(page)
	wrap := func(err error) error {
		return &FetchError{Page: page, URL: target, Err: err}
	}

	base, err := url.Parse(target)
	if err != nil {
		return nil, wrap(fmt.Errorf("parse url: %w", err))
	}

	s.log.Debug("fetching page", slog.Int("page", page), slog.String("url", target))

	body, err := s.Open(ctx, target)
	if err != nil {
		return nil, wrap(err)
	}
	defer body.Close()

	// Read the whole page first so a dropped connection is reported as a
	// fetch error instead of a silently truncated document.
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, wrap(fmt.Errorf("read body: %w", err))
	}

	files, err := parser.ParseExamList(&buf, base)
	if err != nil {
		return nil, wrap(err)
	}

	s.log.Debug("page parsed", slog.Int("page", page), slog.Int("files", len(files)))
	return files, nil
}

// Open issues a GET and returns the body of a 2xx response. The caller closes it.
func (s *PortalClient) Open(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}
