package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// PageSource supplies raw wikitext for a page title. The crawl does not care
// whether that is HTTP, a cache or a test fixture.
type PageSource interface {
	FetchWikitext(ctx context.Context, title string) (string, error)
}

// APISource fetches page wikitext through the MediaWiki action API,
// following redirects.
type APISource struct {
	APIURL string
	Client *http.Client
}

func NewAPISource(apiURL string, timeout time.Duration) *APISource {
	return &APISource{
		APIURL: apiURL,
		Client: &http.Client{Timeout: timeout},
	}
}

type revisionsResponse struct {
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				Slots struct {
					Main struct {
						Content string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

func (s *APISource) FetchWikitext(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "revisions")
	params.Set("rvprop", "content")
	params.Set("rvslots", "main")
	params.Set("redirects", "1")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("titles", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "twin-cities-scraper/1.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page '%s': %w", title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch page '%s': status %d", title, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read page '%s': %w", title, err)
	}

	var parsed revisionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode page '%s': %w", title, err)
	}

	for _, page := range parsed.Query.Pages {
		if page.Missing {
			return "", fmt.Errorf("page '%s' does not exist", title)
		}
		if len(page.Revisions) > 0 {
			return page.Revisions[0].Slots.Main.Content, nil
		}
	}
	return "", fmt.Errorf("page '%s' has no revisions", title)
}
