package parser

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam_project/internal/models"
)

func mustBase(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://united-cal.math.ncu.edu.tw")
	require.NoError(t, err)
	return u
}

func TestParseExamListQuestionAndAnswer(t *testing.T) {
	html := `<table>
<tr><th>名稱</th><th>題目</th><th>解答</th></tr>
<tr>
  <td> 113年第1學期第2次會考 </td>
  <td><a href="/files/q/113-1-2.pdf#view">題目</a></td>
  <td><a href="https://cdn.example.com/a/113-1-2.pdf">解答</a></td>
</tr>
</table>`

	files, err := ParseExamList(strings.NewReader(html), mustBase(t))
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, models.ExamFile{
		Year: "113", Semester: "1", ExamNum: "2",
		URL: "https://united-cal.math.ncu.edu.tw/files/q/113-1-2.pdf",
	}, files[0])
	assert.Equal(t, models.ExamFile{
		Year: "113", Semester: "1", ExamNum: "2", IsAnswer: true,
		URL: "https://cdn.example.com/a/113-1-2.pdf",
	}, files[1])
}

func TestParseExamListAnswerRow(t *testing.T) {
	html := `<table><tr>
<td>112年第2學期第1次會考解答</td>
<td><a href="/files/112-2-1-ans.pdf">下載</a></td>
</tr></table>`

	files, err := ParseExamList(strings.NewReader(html), mustBase(t))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].IsAnswer)
	assert.Equal(t, "1", files[0].ExamNum)
	assert.Equal(t, "https://united-cal.math.ncu.edu.tw/files/112-2-1-ans.pdf", files[0].URL)
}

func TestParseExamListSkipsRows(t *testing.T) {
	html := `<table>
<tr><td>113年第1學期第1次小考</td><td><a href="/q.pdf">x</a></td><td><a href="/a.pdf">y</a></td></tr>
<tr><td>113年第1學期第3次會考</td></tr>
<tr><td>113年第1學期第4次會考</td><td>no link</td></tr>
<tr><td>期末會考 113</td><td><a href="/q.pdf">x</a></td></tr>
<tr><td>113年第1學期第5次會考</td><td><a href="#top">x</a></td></tr>
</table>`

	files, err := ParseExamList(strings.NewReader(html), mustBase(t))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestParseExamListQuestionOnly(t *testing.T) {
	html := `<table><tr>
<td>111年第1學期第6次會考</td>
<td><a href="q.pdf">題目</a></td>
<td></td>
</tr></table>`

	base, err := url.Parse("https://portal.test/files/science/history/x/0")
	require.NoError(t, err)

	files, err := ParseExamList(strings.NewReader(html), base)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.False(t, files[0].IsAnswer)
	assert.Equal(t, "https://portal.test/files/science/history/x/q.pdf", files[0].URL)
}

func TestParseExerciseLinks(t *testing.T) {
	html := `<html><body>
<nav><a href="/login">login</a></nav>
<main>
  <a href="/ex/1.pdf">  Chapter 1
     exercises </a>
  <a href="/ex/1.pdf#p2">duplicate</a>
  <a href="https://other.test/2.pdf"></a>
  <a href="javascript:void(0)">noop</a>
</main>
</body></html>`

	links, err := ParseExerciseLinks(strings.NewReader(html), mustBase(t))
	require.NoError(t, err)

	assert.Equal(t, []models.ExerciseLink{
		{Title: "Chapter 1 exercises", URL: "https://united-cal.math.ncu.edu.tw/ex/1.pdf"},
		{Title: "https://other.test/2.pdf", URL: "https://other.test/2.pdf"},
	}, links)
}
