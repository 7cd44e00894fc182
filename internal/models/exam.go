package models

import (
	"fmt"
	"path"
)

const (
	SubdirQuestions = "questions"
	SubdirAnswers   = "answers"

	examsDir = "exams"
)

// ExamFile is one downloadable exam PDF found on a listing page.
type ExamFile struct {
	Year     string
	Semester string
	ExamNum  string
	IsAnswer bool
	URL      string
}

// Filename is derived only from Year, Semester, ExamNum and IsAnswer,
// so re-runs map the same exam to the same file.
func (f ExamFile) Filename() string {
	suffix := ""
	if f.IsAnswer {
		suffix = "解答"
	}
	return fmt.Sprintf("%s年第%s學期第%s次會考%s.pdf", f.Year, f.Semester, f.ExamNum, suffix)
}

func (f ExamFile) Subdir() string {
	if f.IsAnswer {
		return SubdirAnswers
	}
	return SubdirQuestions
}

// RelPath is the slash separated location below the resource directory:
// exams/<num>/<questions|answers>/<filename>.
func (f ExamFile) RelPath() string {
	return path.Join(examsDir, f.ExamNum, f.Subdir(), f.Filename())
}

func (f ExamFile) String() string {
	kind := "question"
	if f.IsAnswer {
		kind = "answer"
	}
	return fmt.Sprintf("%s/%s #%s (%s)", f.Year, f.Semester, f.ExamNum, kind)
}
