package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"exam_project/internal/models"
)

const tempPattern = ".part-*"

// Store writes files below a root directory. A file that exists under its
// final name is always complete: data goes to a temporary file in the same
// directory first and is renamed into place.
type Store struct {
	fs   afero.Fs
	root string
}

func New(root string) *Store {
	return NewWithFS(afero.NewOsFs(), root)
}

func NewWithFS(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

func (s *Store) Root() string {
	return s.root
}

// Path maps a slash separated relative path to a path under the root.
func (s *Store) Path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Exists reports whether rel is already present.
func (s *Store) Exists(rel string) (bool, error) {
	return afero.Exists(s.fs, s.Path(rel))
}

// Save streams data into rel and returns the number of bytes written.
func (s *Store) Save(rel string, data io.Reader) (int64, error) {
	if strings.Contains(rel, "..") {
		return 0, fmt.Errorf("invalid path %q", rel)
	}

	target := s.Path(rel)
	dir := filepath.Dir(target)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, tempPattern)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return 0, fmt.Errorf("write data: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	if err := s.fs.Chmod(tmpName, 0644); err != nil && !os.IsNotExist(err) {
		_ = s.fs.Remove(tmpName)
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}

	if err := s.fs.Rename(tmpName, target); err != nil {
		_ = s.fs.Remove(tmpName)
		return 0, fmt.Errorf("rename into place: %w", err)
	}

	return n, nil
}

// WriteFile replaces rel with data.
func (s *Store) WriteFile(rel string, data []byte) error {
	_, err := s.Save(rel, bytes.NewReader(data))
	return err
}

// WriteExerciseTable writes the links as a tab separated table with a header row.
func (s *Store) WriteExerciseTable(rel string, links []models.ExerciseLink) error {
	var buf bytes.Buffer
	buf.WriteString("title\turl\n")
	for _, l := range links {
		fmt.Fprintf(&buf, "%s\t%s\n", tsvField(l.Title), tsvField(l.URL))
	}
	return s.WriteFile(rel, buf.Bytes())
}

// WriteSummary stores the run summary as YAML.
func (s *Store) WriteSummary(rel string, summary models.Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return s.WriteFile(rel, data)
}

func tsvField(v string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(v)
}
