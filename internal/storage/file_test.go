package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"exam_project/internal/models"
)

func TestSaveAndExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewWithFS(fs, "/out/res")

	ok, err := store.Exists("exams/1/questions/a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.Save("exams/1/questions/a.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	ok, err = store.Exists("exams/1/questions/a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := afero.ReadFile(fs, "/out/res/exams/1/questions/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))

	entries, err := afero.ReadDir(fs, "/out/res/exams/1/questions")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not remain")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestSaveFailureLeavesNoFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewWithFS(fs, "/out")

	_, err := store.Save("exams/2/answers/b.pdf", io.MultiReader(strings.NewReader("half"), failingReader{}))
	require.Error(t, err)

	ok, err := store.Exists("exams/2/answers/b.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := afero.ReadDir(fs, "/out/exams/2/answers")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveRejectsTraversal(t *testing.T) {
	store := NewWithFS(afero.NewMemMapFs(), "/out")
	_, err := store.Save("../etc/passwd", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestSaveOnDisk(t *testing.T) {
	root := t.TempDir()
	store := New(root)

	_, err := store.Save("exams/3/questions/c.pdf", strings.NewReader("data"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "exams", "3", "questions", "c.pdf"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestWriteExerciseTable(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewWithFS(fs, "/out")

	err := store.WriteExerciseTable("suggested-exercises/links.tsv", []models.ExerciseLink{
		{Title: "Ch 1\tbasics", URL: "https://x/1.pdf"},
		{Title: "Ch 2", URL: "https://x/2.pdf"},
	})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/out/suggested-exercises/links.tsv")
	require.NoError(t, err)
	assert.Equal(t, "title\turl\nCh 1 basics\thttps://x/1.pdf\nCh 2\thttps://x/2.pdf\n", string(data))
}

func TestWriteSummary(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewWithFS(fs, "/out")

	summary := models.Summary{
		RunID:      "run-1",
		Resource:   "math",
		StartedAt:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC),
		Pages:      6,
		Downloaded: 3,
		Failed:     1,
		Failures:   []models.Failure{{Path: "a.pdf", URL: "https://x/a.pdf", Error: "503"}},
	}
	require.NoError(t, store.WriteSummary("last-run.yml", summary))

	data, err := afero.ReadFile(fs, "/out/last-run.yml")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, 3, got["downloaded"])
	assert.Equal(t, 1, got["failed"])
	assert.Len(t, got["failures"], 1)
}
