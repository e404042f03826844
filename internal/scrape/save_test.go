package scrape

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadCities(t *testing.T) {
	cities := []*City{
		{
			Name:    "Radom",
			Country: "Poland",
			WikiURL: "https://en.wikipedia.org/wiki/Radom",
			Refs:    []*Reference{{URL: "http://x", Title: "T"}},
			TwinCities: []*TwinCitiesAgreement{
				{SecondCity: "Kielce", SecondCountry: "Poland", WikiURL: "https://en.wikipedia.org/wiki/Kielce"},
			},
		},
		{Name: "Lublin", Country: "Poland", WikiURL: "https://en.wikipedia.org/wiki/Lublin"},
	}

	path := filepath.Join(t.TempDir(), "cities.jsonl")
	require.NoError(t, SaveCities(path, cities))

	loaded, err := LoadCities(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, cities[0], loaded[0])
	assert.Equal(t, cities[1], loaded[1])
}

func TestLoadCities_MissingFile(t *testing.T) {
	_, err := LoadCities(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}
