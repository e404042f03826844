package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/cinekele/twin-cities/internal/wikitext"
)

var countryNameRE = regexp.MustCompile(`\sin\s(.+)`)

// Countries whose listing resolves to an administrative region already
// covered by another page.
var skipCountries = map[string]bool{
	"Metro Manila": true,
}

// queueEntry is a pending listing page: its raw title plus the display text
// it was linked with, when any.
type queueEntry struct {
	Title string
	Text  string
}

// Frontier discovers listing pages transitively from the root index and
// drives the page scraper across them. Discovering the same page twice is a
// no-op: set membership is the dedup mechanism.
type Frontier struct {
	Source   PageSource
	Scraper  *PageScraper
	RootPage string
	Log      *zap.SugaredLogger

	continents map[queueEntry]struct{}
	countries  map[queueEntry]struct{}
}

func NewFrontier(source PageSource, scraper *PageScraper, rootPage string, log *zap.SugaredLogger) *Frontier {
	return &Frontier{
		Source:     source,
		Scraper:    scraper,
		RootPage:   rootPage,
		Log:        log,
		continents: make(map[queueEntry]struct{}),
		countries:  make(map[queueEntry]struct{}),
	}
}

// Run fetches the root index, classifies its listing links, then drains the
// continent queue followed by the country queue. A fetch or parse failure for
// one entry is logged and skipped; only a failure to read the root index is
// fatal.
func (f *Frontier) Run(ctx context.Context) ([]*City, error) {
	root, err := f.Source.FetchWikitext(ctx, f.RootPage)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch root index: %w", err)
	}
	f.Seed(root)

	var cities []*City
	for len(f.continents) > 0 {
		entry := pop(f.continents)
		text, err := f.Source.FetchWikitext(ctx, entry.Title)
		if err != nil {
			f.Log.Warnw("skipping continent page", "title", entry.Title, "error", err)
			continue
		}
		scraped := f.Scraper.ScrapeContinent(text, func(title string) {
			f.AddCountry(title, "")
		})
		for _, city := range scraped {
			city.SourcePage = entry.Title
			city.SourceType = SourceContinent
		}
		cities = append(cities, scraped...)
	}

	for len(f.countries) > 0 {
		entry := pop(f.countries)
		country := CountryName(entry.displayOrTitle())
		if skipCountries[country] {
			continue
		}
		text, err := f.Source.FetchWikitext(ctx, entry.Title)
		if err != nil {
			f.Log.Warnw("skipping country page", "title", entry.Title, "error", err)
			continue
		}
		scraped := f.Scraper.ScrapeCountry(text, country)
		for _, city := range scraped {
			city.SourcePage = entry.Title
			city.SourceType = SourceCountry
		}
		cities = append(cities, scraped...)
	}

	return cities, nil
}

// Seed scans the root index for first-level "List of" links. A link arriving
// immediately after exactly one list-item marker is a continent listing; any
// other nesting depth marks a country listing.
func (f *Frontier) Seed(rootText string) {
	counter := 0
	for _, n := range wikitext.Parse(rootText) {
		switch node := n.(type) {
		case wikitext.Wikilink:
			if strings.HasPrefix(node.Title, "List of ") {
				entry := queueEntry{Title: node.Title, Text: node.Text}
				if counter == 1 {
					f.continents[entry] = struct{}{}
				} else {
					f.countries[entry] = struct{}{}
				}
				counter = 0
			}
		case wikitext.ListItem:
			counter++
		}
	}
}

// AddCountry enqueues a country listing page discovered mid-scrape.
func (f *Frontier) AddCountry(title, text string) {
	f.countries[queueEntry{Title: title, Text: text}] = struct{}{}
}

func (e queueEntry) displayOrTitle() string {
	if e.Text != "" {
		return e.Text
	}
	return e.Title
}

// CountryName extracts the country from a listing title like
// "List of twin towns and sister cities in the Netherlands".
func CountryName(listing string) string {
	m := countryNameRE.FindStringSubmatch(listing)
	if m == nil {
		return listing
	}
	return strings.TrimPrefix(m[1], "the ")
}

// pop removes and returns an arbitrary entry, like draining a set.
func pop(set map[queueEntry]struct{}) queueEntry {
	for entry := range set {
		delete(set, entry)
		return entry
	}
	return queueEntry{}
}
