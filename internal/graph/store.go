// Package graph accumulates scraped records into a twin-city relationship
// graph with deduplicated reference nodes and city-pair-scoped attribution.
package graph

import (
	"sort"
	"strings"

	"github.com/cinekele/twin-cities/internal/scrape"
)

// unknownIdentity is the fallback identity for references carrying none of
// the identifying fields. Anonymous references therefore merge; known
// precision/recall trade-off.
const unknownIdentity = "unknown"

type cityNode struct {
	URL        string
	Name       string
	Country    string
	SourcePage string
	SourceType string
	twins      map[string]struct{}
	refs       map[string]struct{}
}

// pairKey identifies an unordered pair of city URLs. It scopes which
// references substantiate which relationship edge.
type pairKey struct {
	A, B string
}

func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

// Store is the in-memory twin-cities graph. It is populated single-threaded
// during ingestion and read-only afterwards.
type Store struct {
	cities map[string]*cityNode
	refs   map[string]*scrape.Reference
	pairs  map[pairKey]map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		cities: make(map[string]*cityNode),
		refs:   make(map[string]*scrape.Reference),
		pairs:  make(map[pairKey]map[string]struct{}),
	}
}

// CitySummary is one selectable city: a city appears here only when it has at
// least one recorded twin.
type CitySummary struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// TwinSummary is one twin of a queried city.
type TwinSummary struct {
	URL        string `json:"url"`
	Name       string `json:"name"`
	Country    string `json:"country"`
	SourcePage string `json:"source_page,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}

// AddCities ingests scraped cities. Insertion is idempotent: nodes are
// upserted, twin links are symmetric sets, and references are deduplicated by
// identity with missing fields backfilled.
func (s *Store) AddCities(cities []*scrape.City) {
	for _, city := range cities {
		s.upsertCity(city.WikiURL, city.Name, city.Country, city.SourcePage, city.SourceType)
		for _, twin := range city.TwinCities {
			s.addTwin(city, twin)
		}
	}
}

func (s *Store) addTwin(city *scrape.City, twin *scrape.TwinCitiesAgreement) {
	if twin.WikiURL == "" || city.WikiURL == twin.WikiURL {
		return
	}
	s.upsertCity(twin.WikiURL, twin.SecondCity, twin.SecondCountry, "", "")

	s.cities[city.WikiURL].twins[twin.WikiURL] = struct{}{}
	s.cities[twin.WikiURL].twins[city.WikiURL] = struct{}{}

	pair := newPairKey(city.WikiURL, twin.WikiURL)
	if s.pairs[pair] == nil {
		s.pairs[pair] = make(map[string]struct{})
	}
	for _, ref := range city.Refs {
		s.attachReference(pair, city.WikiURL, twin.WikiURL, ref)
	}
	for _, ref := range twin.Refs {
		s.attachReference(pair, city.WikiURL, twin.WikiURL, ref)
	}
}

func (s *Store) upsertCity(url, name, country, sourcePage, sourceType string) {
	node := s.cities[url]
	if node == nil {
		node = &cityNode{
			URL:   url,
			twins: make(map[string]struct{}),
			refs:  make(map[string]struct{}),
		}
		s.cities[url] = node
	}
	if name != "" {
		node.Name = name
	}
	if country != "" {
		node.Country = country
	}
	if sourcePage != "" {
		node.SourcePage = sourcePage
	}
	if sourceType != "" {
		node.SourceType = sourceType
	}
}

func (s *Store) attachReference(pair pairKey, cityURL, twinURL string, ref *scrape.Reference) {
	if ref == nil || ref.IsZero() {
		return
	}
	key := referenceIdentity(ref)
	canonical := s.refs[key]
	if canonical == nil {
		copied := *ref
		s.refs[key] = &copied
	} else {
		mergeReference(canonical, ref)
	}
	s.pairs[pair][key] = struct{}{}
	s.cities[cityURL].refs[key] = struct{}{}
	s.cities[twinURL].refs[key] = struct{}{}
}

// referenceIdentity is the first non-empty value among url, website, title
// and publisher, falling back to a sentinel for anonymous references.
func referenceIdentity(ref *scrape.Reference) string {
	for _, field := range []string{ref.URL, ref.Website, ref.Title, ref.Publisher} {
		if field != "" {
			return field
		}
	}
	return unknownIdentity
}

// mergeReference backfills fields the canonical instance is missing. Repeated
// access dates accumulate into one space-joined string.
func mergeReference(canonical, incoming *scrape.Reference) {
	if canonical.URL == "" {
		canonical.URL = incoming.URL
	}
	if canonical.Website == "" {
		canonical.Website = incoming.Website
	}
	if canonical.Title == "" {
		canonical.Title = incoming.Title
	}
	if canonical.Publisher == "" {
		canonical.Publisher = incoming.Publisher
	}
	if canonical.Language == "" {
		canonical.Language = incoming.Language
	}
	if canonical.Date == "" {
		canonical.Date = incoming.Date
	}
	if incoming.AccessDate != "" {
		switch {
		case canonical.AccessDate == "":
			canonical.AccessDate = incoming.AccessDate
		case !containsDate(canonical.AccessDate, incoming.AccessDate):
			canonical.AccessDate += " " + incoming.AccessDate
		}
	}
}

func containsDate(joined, date string) bool {
	for _, existing := range strings.Split(joined, " ") {
		if existing == date {
			return true
		}
	}
	// Multi-word dates ("21 September 2019") need a substring check too.
	return strings.Contains(joined, date)
}

// Cities returns every city with at least one twin, sorted by name. Isolated
// cities are ingestion artifacts and stay hidden.
func (s *Store) Cities() []CitySummary {
	var out []CitySummary
	for _, node := range s.cities {
		if len(node.twins) == 0 {
			continue
		}
		out = append(out, CitySummary{URL: node.URL, Name: node.Name, Country: node.Country})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].URL < out[j].URL
	})
	return out
}

// Twins returns every twin linked to the given city, sorted by name.
func (s *Store) Twins(cityURL string) []TwinSummary {
	node := s.cities[cityURL]
	if node == nil {
		return nil
	}
	var out []TwinSummary
	for twinURL := range node.twins {
		twin := s.cities[twinURL]
		out = append(out, TwinSummary{
			URL:        twin.URL,
			Name:       twin.Name,
			Country:    twin.Country,
			SourcePage: twin.SourcePage,
			SourceType: twin.SourceType,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].URL < out[j].URL
	})
	return out
}

// References returns the references scoped to exactly the (city, twin) pair,
// deduplicated by URL and sorted by URL. References the city shares with an
// unrelated third city never leak in.
func (s *Store) References(cityURL, twinURL string) []scrape.Reference {
	keys := s.pairs[newPairKey(cityURL, twinURL)]
	if len(keys) == 0 {
		return nil
	}
	var out []scrape.Reference
	seenURL := make(map[string]bool)
	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)
	for _, key := range sorted {
		ref := s.refs[key]
		if ref == nil {
			continue
		}
		if ref.URL != "" {
			if seenURL[ref.URL] {
				continue
			}
			seenURL[ref.URL] = true
		}
		out = append(out, *ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
