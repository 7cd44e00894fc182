package parser

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"exam_project/internal/models"
)

// ParseExerciseLinks collects the links of the suggested exercises page.
// Links are deduplicated by URL and keep document order. An anchor without
// text falls back to its URL as the title.
func ParseExerciseLinks(body io.Reader, base *url.URL) ([]models.ExerciseLink, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("read HTML: %w", err)
	}

	root := doc.Find("main").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	seen := make(map[string]struct{})
	var links []models.ExerciseLink

	root.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		u, ok := resolve(base, href)
		if !ok {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}

		title := strings.Join(strings.Fields(a.Text()), " ")
		if title == "" {
			title = u
		}
		links = append(links, models.ExerciseLink{Title: title, URL: u})
	})

	return links, nil
}
