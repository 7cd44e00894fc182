package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"exam_project/internal/models"
)

const (
	namespace = "examfetch"
	jobName   = "examfetch"
)

// Metrics counts pages and files of a single run. It uses its own registry
// because the run is a batch job and pushes instead of being scraped.
type Metrics struct {
	registry *prometheus.Registry
	files    *prometheus.CounterVec
	pages    *prometheus.CounterVec
	attempts prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Exam files processed, by outcome.",
		}, []string{"status"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Listing pages processed, by outcome.",
		}, []string{"status"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_attempts_total",
			Help:      "HTTP download attempts including retries.",
		}),
	}
	m.registry.MustRegister(m.files, m.pages, m.attempts)
	return m
}

func (m *Metrics) ObserveResult(r models.Result) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(string(r.Status)).Inc()
	m.attempts.Add(float64(r.Attempts))
}

func (m *Metrics) ObservePage(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.pages.WithLabelValues(status).Inc()
}

// Push sends the collected metrics to a Prometheus pushgateway.
func (m *Metrics) Push(ctx context.Context, gatewayURL string, resource string) error {
	err := push.New(gatewayURL, jobName).
		Gatherer(m.registry).
		Grouping("resource", resource).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
