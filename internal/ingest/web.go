package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const webUserAgent = "paperbase-bot/0.1"

var webClient = &http.Client{Timeout: 15 * time.Second}

// FetchURL downloads a page and extracts readable article text: paragraphs
// inside <article> when present, all paragraphs otherwise. Title falls back
// to the host name.
func FetchURL(ctx context.Context, rawURL string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := webClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "html") {
		return Document{}, fmt.Errorf("unsupported Content-Type: %s", ct)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	sel := doc.Find("article p")
	if sel.Length() == 0 {
		sel = doc.Find("p")
	}

	var paragraphs []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			paragraphs = append(paragraphs, t)
		}
	})

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		if u, err := url.Parse(rawURL); err == nil {
			title = u.Host
		}
	}

	text := strings.Join(paragraphs, "\n\n")
	if text == "" {
		return Document{}, fmt.Errorf("no paragraph text found at %s", rawURL)
	}

	return Document{Source: rawURL, Title: title, Text: text}, nil
}
