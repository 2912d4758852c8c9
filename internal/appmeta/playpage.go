package appmeta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const playTitleSuffix = " - Apps on Google Play"

var (
	jsonNamePattern     = regexp.MustCompile(`(?i)"name"\s*:\s*"([^"]+)"`)
	jsonCategoryPattern = regexp.MustCompile(`(?i)"applicationCategory"\s*:\s*"([^"]+)"`)
	jsonGenrePattern    = regexp.MustCompile(`(?i)"genre"\s*:\s*"([^"]+)"`)
)

type ldApp struct {
	Name                string `json:"name"`
	ApplicationCategory string `json:"applicationCategory"`
	Genre               string `json:"genre"`
}

// playPage is what a Google Play details page tells us about an app.
type playPage struct {
	Name     string
	Category string
}

// parsePlayPage reads the app name and category from a details page. JSON-LD
// wins over microdata, which wins over the page title and loose JSON fields.
func parsePlayPage(r io.Reader) (playPage, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return playPage{}, fmt.Errorf("read play page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return playPage{}, fmt.Errorf("parse play page: %w", err)
	}

	var page playPage
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var app ldApp
		if json.Unmarshal([]byte(s.Text()), &app) != nil {
			return true
		}
		if page.Name == "" {
			page.Name = strings.TrimSpace(app.Name)
		}
		if page.Category == "" {
			page.Category = firstNonEmpty(app.ApplicationCategory, app.Genre)
		}
		return page.Name == "" || page.Category == ""
	})

	if page.Category == "" {
		genre := doc.Find(`[itemprop="genre"]`).First()
		if content, ok := genre.Attr("content"); ok && strings.TrimSpace(content) != "" {
			page.Category = strings.TrimSpace(content)
		} else {
			page.Category = strings.TrimSpace(genre.Text())
		}
	}

	raw := string(body)
	if page.Name == "" {
		page.Name = submatch(jsonNamePattern, raw)
	}
	if page.Name == "" {
		title := strings.TrimSpace(doc.Find("title").First().Text())
		page.Name = strings.TrimSpace(strings.TrimSuffix(title, playTitleSuffix))
	}
	if page.Category == "" {
		page.Category = firstNonEmpty(submatch(jsonCategoryPattern, raw), submatch(jsonGenrePattern, raw))
	}
	return page, nil
}

func submatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
