package scrape

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubSource serves canned wikitext keyed by page title.
type stubSource struct {
	pages   map[string]string
	fetched []string
}

func (s *stubSource) FetchWikitext(_ context.Context, title string) (string, error) {
	s.fetched = append(s.fetched, title)
	text, ok := s.pages[title]
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

func TestCountryName(t *testing.T) {
	assert.Equal(t, "Poland", CountryName("List of twin towns and sister cities in Poland"))
	assert.Equal(t, "Netherlands", CountryName("List of twin towns and sister cities in the Netherlands"))
	assert.Equal(t, "United States", CountryName("List of sister cities in the United States"))
	// No " in " clause: the whole string stands.
	assert.Equal(t, "Sister cities", CountryName("Sister cities"))
}

func TestFrontier_Seed(t *testing.T) {
	// One marker before the link means a continent listing; deeper nesting
	// means a country listing under that continent.
	root := "== Listings ==\n" +
		"*[[List of twin towns in Africa]]\n" +
		"*[[List of twin towns in Europe]]\n" +
		"**[[List of twin towns and sister cities in Poland]]\n"

	f := NewFrontier(nil, &PageScraper{}, "root", zap.NewNop().Sugar())
	f.Seed(root)

	assert.Len(t, f.continents, 2)
	assert.Contains(t, f.continents, queueEntry{Title: "List of twin towns in Africa"})
	assert.Contains(t, f.continents, queueEntry{Title: "List of twin towns in Europe"})
	assert.Len(t, f.countries, 1)
	assert.Contains(t, f.countries, queueEntry{Title: "List of twin towns and sister cities in Poland"})
}

func TestFrontier_Run(t *testing.T) {
	source := &stubSource{pages: map[string]string{
		"root": "== Listings ==\n" +
			"*[[List of twin towns in Africa]]\n" +
			"**[[List of twin towns and sister cities in Poland]]\n",
		"List of twin towns in Africa": "== Angola ==\n" +
			"'''[[Benguela]]'''\n" +
			"*[[Aveiro]], Portugal\n",
		"List of twin towns and sister cities in Poland": "== Twin towns ==\n" +
			"'''[[Radom]]'''\n" +
			"*[[Kielce]], Poland\n",
	}}

	f := NewFrontier(source, &PageScraper{}, "root", zap.NewNop().Sugar())
	cities, err := f.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, cities, 2)
	sort.Slice(cities, func(i, j int) bool { return cities[i].Name < cities[j].Name })

	assert.Equal(t, "Benguela", cities[0].Name)
	assert.Equal(t, "Angola", cities[0].Country)
	assert.Equal(t, SourceContinent, cities[0].SourceType)
	assert.Equal(t, "List of twin towns in Africa", cities[0].SourcePage)

	assert.Equal(t, "Radom", cities[1].Name)
	assert.Equal(t, "Poland", cities[1].Country)
	assert.Equal(t, SourceCountry, cities[1].SourceType)
}

func TestFrontier_RunDiscoversCountriesFromContinent(t *testing.T) {
	source := &stubSource{pages: map[string]string{
		"root": "== Listings ==\n" +
			"*[[List of twin towns in Europe]]\n",
		"List of twin towns in Europe": "== Poland ==\n" +
			"{{main|List of twin towns and sister cities in Poland}}\n",
		"List of twin towns and sister cities in Poland": "== Twin towns ==\n" +
			"'''[[Radom]]'''\n" +
			"*[[Kielce]], Poland\n",
	}}

	f := NewFrontier(source, &PageScraper{}, "root", zap.NewNop().Sugar())
	cities, err := f.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, cities, 1)
	assert.Equal(t, "Radom", cities[0].Name)
	assert.Equal(t, "Poland", cities[0].Country)
}

func TestFrontier_RunSkipsFailedPages(t *testing.T) {
	source := &stubSource{pages: map[string]string{
		"root": "== Listings ==\n" +
			"*[[List of twin towns in Africa]]\n" +
			"**[[List of twin towns and sister cities in Poland]]\n",
		// Africa page missing on purpose.
		"List of twin towns and sister cities in Poland": "== Twin towns ==\n" +
			"'''[[Radom]]'''\n" +
			"*[[Kielce]], Poland\n",
	}}

	f := NewFrontier(source, &PageScraper{}, "root", zap.NewNop().Sugar())
	cities, err := f.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, cities, 1)
	assert.Equal(t, "Radom", cities[0].Name)
}

func TestFrontier_RootFetchFailureIsFatal(t *testing.T) {
	source := &stubSource{pages: map[string]string{}}
	f := NewFrontier(source, &PageScraper{}, "root", zap.NewNop().Sugar())

	_, err := f.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root index")
}

func TestFrontier_SkipCountries(t *testing.T) {
	source := &stubSource{pages: map[string]string{
		"root": "== Listings ==\n" +
			"**[[List of twin towns in Metro Manila]]\n",
	}}

	f := NewFrontier(source, &PageScraper{}, "root", zap.NewNop().Sugar())
	cities, err := f.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, cities)
	// Only the root was fetched; the skipped listing never was.
	assert.Equal(t, []string{"root"}, source.fetched)
}
