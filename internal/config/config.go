package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type WikipediaConfig struct {
	APIURL         string `toml:"api_url"`
	BaseURL        string `toml:"base_url"`
	RootPage       string `toml:"root_page"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type WikidataConfig struct {
	SPARQLURL      string `toml:"sparql_url"`
	APIURL         string `toml:"api_url"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type StorageConfig struct {
	GraphPath  string `toml:"graph_path"`
	CitiesPath string `toml:"cities_path"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type Config struct {
	Wikipedia WikipediaConfig `toml:"wikipedia"`
	Wikidata  WikidataConfig  `toml:"wikidata"`
	Storage   StorageConfig   `toml:"storage"`
	Neo4j     Neo4jConfig     `toml:"neo4j"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, nil
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Wikipedia.APIURL == "" {
		c.Wikipedia.APIURL = "https://en.wikipedia.org/w/api.php"
	}
	if c.Wikipedia.BaseURL == "" {
		c.Wikipedia.BaseURL = "https://en.wikipedia.org/"
	}
	if c.Wikipedia.RootPage == "" {
		c.Wikipedia.RootPage = "Lists of twin towns and sister cities"
	}
	if c.Wikipedia.TimeoutSeconds == 0 {
		c.Wikipedia.TimeoutSeconds = 30
	}
	if c.Wikidata.SPARQLURL == "" {
		c.Wikidata.SPARQLURL = "https://query.wikidata.org/sparql"
	}
	if c.Wikidata.APIURL == "" {
		c.Wikidata.APIURL = "https://www.wikidata.org/w/api.php"
	}
	if c.Wikidata.TimeoutSeconds == 0 {
		c.Wikidata.TimeoutSeconds = 60
	}
	if c.Storage.GraphPath == "" {
		c.Storage.GraphPath = "data/twin_cities.json"
	}
	if c.Storage.CitiesPath == "" {
		c.Storage.CitiesPath = "data/cities.jsonl"
	}
}

func (c *Config) applyEnv() {
	if user := os.Getenv("WIKIDATA_USER"); user != "" {
		c.Wikidata.User = user
	}
	if pass := os.Getenv("WIKIDATA_PASSWORD"); pass != "" {
		c.Wikidata.Password = pass
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		c.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		c.Neo4j.User = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		c.Neo4j.Password = pass
	}
}

func (c *Config) WikipediaTimeout() time.Duration {
	return time.Duration(c.Wikipedia.TimeoutSeconds) * time.Second
}

func (c *Config) WikidataTimeout() time.Duration {
	return time.Duration(c.Wikidata.TimeoutSeconds) * time.Second
}
