package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://en.wikipedia.org/w/api.php", cfg.Wikipedia.APIURL)
	assert.Equal(t, "https://en.wikipedia.org/", cfg.Wikipedia.BaseURL)
	assert.Equal(t, "Lists of twin towns and sister cities", cfg.Wikipedia.RootPage)
	assert.Equal(t, "https://query.wikidata.org/sparql", cfg.Wikidata.SPARQLURL)
	assert.Equal(t, "data/twin_cities.json", cfg.Storage.GraphPath)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[wikipedia]
root_page = "Lists of twin towns"
timeout_seconds = 5

[storage]
graph_path = "/tmp/graph.json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Lists of twin towns", cfg.Wikipedia.RootPage)
	assert.Equal(t, "/tmp/graph.json", cfg.Storage.GraphPath)
	// Unset fields keep their defaults.
	assert.Equal(t, "https://en.wikipedia.org/w/api.php", cfg.Wikipedia.APIURL)
	assert.Equal(t, "data/cities.jsonl", cfg.Storage.CitiesPath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[wikipedia\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WIKIDATA_USER", "bot")
	t.Setenv("WIKIDATA_PASSWORD", "secret")
	t.Setenv("NEO4J_URI", "bolt://localhost:7687")

	cfg := Default()
	assert.Equal(t, "bot", cfg.Wikidata.User)
	assert.Equal(t, "secret", cfg.Wikidata.Password)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
}

func TestTimeouts(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "30s", cfg.WikipediaTimeout().String())
	assert.Equal(t, "1m0s", cfg.WikidataTimeout().String())
}
