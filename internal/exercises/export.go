package exercises

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"exam_project/internal/models"
	"exam_project/internal/parser"
)

const (
	Dir          = "suggested-exercises"
	SnapshotFile = Dir + "/snapshot.pdf"
	LinksFile    = Dir + "/links.tsv"
)

// Snapshotter renders an authenticated page to PDF and returns its HTML.
type Snapshotter interface {
	Snapshot(ctx context.Context, target string) (pdf []byte, html string, err error)
}

// Store receives the exported files.
type Store interface {
	Path(rel string) string
	WriteFile(rel string, data []byte) error
	WriteExerciseTable(rel string, links []models.ExerciseLink) error
}

// Exporter saves the suggested exercises page of a resource: a PDF
// snapshot plus a table of the links found on it.
type Exporter struct {
	browser Snapshotter
	store   Store
	log     *slog.Logger
}

func NewExporter(browser Snapshotter, store Store, log *slog.Logger) *Exporter {
	return &Exporter{browser: browser, store: store, log: log}
}

// Export returns the links written to the table.
func (e *Exporter) Export(ctx context.Context, target string) ([]models.ExerciseLink, error) {
	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse exercises url: %w", err)
	}

	e.log.Info("exporting suggested exercises", slog.String("url", target))

	pdf, html, err := e.browser.Snapshot(ctx, target)
	if err != nil {
		return nil, err
	}

	if err := e.store.WriteFile(SnapshotFile, pdf); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	links, err := parser.ParseExerciseLinks(strings.NewReader(html), base)
	if err != nil {
		return nil, fmt.Errorf("parse exercises: %w", err)
	}

	if err := e.store.WriteExerciseTable(LinksFile, links); err != nil {
		return nil, fmt.Errorf("save link table: %w", err)
	}

	e.log.Info("suggested exercises exported",
		slog.String("snapshot", e.store.Path(SnapshotFile)),
		slog.Int("links", len(links)),
	)
	return links, nil
}
