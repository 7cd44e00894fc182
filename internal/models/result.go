package models

import "time"

type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
	// StatusCancelled marks files the run was interrupted before finishing.
	StatusCancelled Status = "cancelled"
)

// Result describes what happened to a single ExamFile.
type Result struct {
	File     ExamFile
	Path     string
	Status   Status
	Attempts int
	Bytes    int64
	Err      error
}

// Failure is the persisted form of a failed Result.
type Failure struct {
	Path  string `yaml:"path"`
	URL   string `yaml:"url"`
	Error string `yaml:"error"`
}

// Summary aggregates one run of the pipeline.
type Summary struct {
	RunID       string    `yaml:"run_id"`
	Resource    string    `yaml:"resource"`
	StartedAt   time.Time `yaml:"started_at"`
	FinishedAt  time.Time `yaml:"finished_at"`
	Pages       int       `yaml:"pages"`
	PagesFailed int       `yaml:"pages_failed"`
	Downloaded  int       `yaml:"downloaded"`
	Skipped     int       `yaml:"skipped"`
	Failed      int       `yaml:"failed"`
	Cancelled   int       `yaml:"cancelled,omitempty"`
	Failures    []Failure `yaml:"failures,omitempty"`
}

// Add counts a batch of results into the summary.
func (s *Summary) Add(results []Result) {
	for _, r := range results {
		switch r.Status {
		case StatusDownloaded:
			s.Downloaded++
		case StatusSkipped:
			s.Skipped++
		case StatusCancelled:
			s.Cancelled++
		case StatusFailed:
			s.Failed++
			msg := ""
			if r.Err != nil {
				msg = r.Err.Error()
			}
			s.Failures = append(s.Failures, Failure{Path: r.Path, URL: r.File.URL, Error: msg})
		}
	}
}

// ExerciseLink is one row of the suggested exercises link table.
type ExerciseLink struct {
	Title string
	URL   string
}
