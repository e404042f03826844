package scrape

import (
	"regexp"
	"strings"

	"github.com/cinekele/twin-cities/internal/wikitext"
)

var spaceRE = regexp.MustCompile(`\s+`)

// Link texts that appear in listing markup but never denote a city.
var nonCityLinks = map[string]bool{
	"town twinning":  true,
	"European Union": true,
}

// PageScraper turns the wikitext of one listing page into City records.
type PageScraper struct {
	BaseURL string
}

// PageURL derives the canonical page URL for a raw page title.
func (p *PageScraper) PageURL(title string) string {
	base := p.BaseURL
	if base == "" {
		base = "https://en.wikipedia.org/"
	}
	return base + "wiki/" + spaceRE.ReplaceAllString(title, "_")
}

// ScrapeContinent parses a continent listing page. The country for each city
// is re-derived from the section headings inside the page. Listing pages
// discovered through {{main|...}} transclusions are reported via pending.
func (p *PageScraper) ScrapeContinent(text string, pending func(title string)) []*City {
	s := p.newScanner(text)
	s.continent = true
	s.pending = pending
	return s.run()
}

// ScrapeCountry parses a country listing page, using the supplied country for
// every city found.
func (p *PageScraper) ScrapeCountry(text, country string) []*City {
	s := p.newScanner(text)
	s.country = country
	return s.run()
}

// scanState names the scraper's position within a listing entry.
type scanState int

const (
	noContext scanState = iota // before any heading / between entries
	inCity                     // a top-level city entry is open
	inTwin                     // a nested twin entry is open
)

// scanner is the finite-state accumulator threaded through the node stream.
// The count/lastCount pair implements the list-nesting heuristic: a link at
// depth zero, or one whose depth equals the depth of the previous twin link
// (meaning no list marker was seen in between), opens a fresh city; any other
// link is a twin of the open city. Best effort, tuned to how the listing
// pages are actually formatted.
type scanner struct {
	page      *PageScraper
	nodes     []wikitext.Node
	refs      NamedReferences
	continent bool
	country   string
	pending   func(string)

	state     scanState
	heading   string
	city      *City
	twin      *TwinCitiesAgreement
	count     int
	lastCount int
	cities    []*City
}

func (p *PageScraper) newScanner(text string) *scanner {
	nodes := wikitext.Parse(text)
	return &scanner{
		page:      p,
		nodes:     nodes,
		refs:      BuildNamedReferences(nodes),
		lastCount: -1,
	}
}

func (s *scanner) run() []*City {
	for i, n := range s.nodes {
		switch node := n.(type) {
		case wikitext.Heading:
			if s.onHeading(node) {
				return s.cities
			}
		case wikitext.Wikilink:
			s.onLink(node, s.trailingText(i))
		case wikitext.RefTag:
			s.onRef(node)
		case wikitext.ListItem:
			s.onListItem()
		case wikitext.Template:
			s.onTemplate(node)
		}
	}
	return s.cities
}

// onHeading resets the entry context; the References section ends the page.
func (s *scanner) onHeading(h wikitext.Heading) (done bool) {
	s.heading = h.Title
	if s.city != nil {
		s.count = 0
		s.city = nil
		s.twin = nil
	}
	s.state = noContext
	return h.Title == "References"
}

func (s *scanner) onLink(link wikitext.Wikilink, trailing string) {
	if s.heading == "" {
		return
	}
	name := link.Display()
	if s.count == 0 || s.lastCount == s.count {
		if nonCityLinks[name] {
			return
		}
		s.openCity(name, link.Title)
		return
	}
	if s.state == noContext {
		return
	}
	s.twin = &TwinCitiesAgreement{
		SecondCity:    name,
		SecondCountry: strings.Trim(trailing, ", \n'"),
		WikiURL:       s.page.PageURL(link.Title),
		WikiText:      link.Title,
	}
	s.city.TwinCities = append(s.city.TwinCities, s.twin)
	s.lastCount = s.count
	s.state = inTwin
}

func (s *scanner) openCity(name, title string) {
	s.city = &City{
		Name:     name,
		Country:  s.cityCountry(),
		WikiURL:  s.page.PageURL(title),
		WikiText: title,
	}
	s.lastCount = -1
	s.count = 0
	s.state = inCity
	s.cities = append(s.cities, s.city)
}

func (s *scanner) cityCountry() string {
	if s.continent {
		return s.heading
	}
	return s.country
}

// onRef attaches a citation according to the current state: a city entry
// cites its own line's references, an open twin cites everything after it.
func (s *scanner) onRef(tag wikitext.RefTag) {
	if s.state == noContext {
		return
	}
	ref := ParseReference(tag, s.refs)
	if ref == nil {
		return
	}
	if s.count == 0 {
		s.city.Refs = append(s.city.Refs, ref)
		return
	}
	if s.state == inTwin {
		s.twin.Refs = append(s.twin.Refs, ref)
	}
}

// onListItem deepens the nesting counter. A marker arriving before any link
// under a heading means the heading itself stands in for a top-level city
// (a country section listing twins directly).
func (s *scanner) onListItem() {
	s.count++
	if s.state == noContext {
		s.openPlaceholder()
	}
}

func (s *scanner) openPlaceholder() {
	label := s.cityCountry()
	if label == "" {
		label = s.heading
	}
	s.city = &City{
		Name:     label,
		Country:  label,
		WikiURL:  s.page.PageURL(label),
		WikiText: label,
	}
	s.state = inCity
	s.cities = append(s.cities, s.city)
}

// onTemplate records {{main|Page}} transclusions for the crawl frontier
// (continent pages only).
func (s *scanner) onTemplate(tpl wikitext.Template) {
	if !s.continent || s.pending == nil {
		return
	}
	if tpl.Name != "main" {
		return
	}
	if page := tpl.Positional(0); page != "" {
		s.pending(page)
	}
}

// trailingText returns the text node immediately following node i, used to
// read the twin's country off the tail of its list line.
func (s *scanner) trailingText(i int) string {
	if i+1 < len(s.nodes) {
		if text, ok := s.nodes[i+1].(wikitext.Text); ok {
			return text.Value
		}
	}
	return ""
}
