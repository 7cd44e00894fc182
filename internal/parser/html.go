package parser

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"exam_project/internal/models"
)

const (
	examMarker   = "會考"
	answerMarker = "解答"
)

var examTitleRe = regexp.MustCompile(`^(\d+)年第(\d+)學期第(\d+)次會考`)

// ParseExamList reads a listing page and returns the exam files it links to.
// A row counts only if it has at least two cells and its first cell mentions
// 會考; rows whose title does not match the exam pattern are dropped.
// Relative links are resolved against base.
func ParseExamList(body io.Reader, base *url.URL) ([]models.ExamFile, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("read HTML: %w", err)
	}

	var files []models.ExamFile

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		title := strings.TrimSpace(cells.First().Text())
		if !strings.Contains(title, examMarker) {
			return
		}

		m := examTitleRe.FindStringSubmatch(title)
		if m == nil {
			return
		}

		links := linkCells(cells.Slice(1, cells.Length()), base)
		if len(links) == 0 {
			return
		}

		exam := models.ExamFile{Year: m[1], Semester: m[2], ExamNum: m[3]}

		// A row titled as an answer sheet carries only the answer link.
		if strings.Contains(title, answerMarker) {
			exam.IsAnswer = true
			exam.URL = links[0]
			files = append(files, exam)
			return
		}

		exam.URL = links[0]
		files = append(files, exam)

		if len(links) > 1 {
			answer := exam
			answer.IsAnswer = true
			answer.URL = links[1]
			files = append(files, answer)
		}
	})

	return files, nil
}

// linkCells returns the first usable href of every cell that has one.
func linkCells(cells *goquery.Selection, base *url.URL) []string {
	var links []string
	cells.Each(func(_ int, cell *goquery.Selection) {
		cell.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			u, ok := resolve(base, href)
			if !ok {
				return true
			}
			links = append(links, u)
			return false
		})
	})
	return links
}

// resolve makes href absolute and drops the fragment.
func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}
