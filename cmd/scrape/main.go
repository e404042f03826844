package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cinekele/twin-cities/internal/config"
	"github.com/cinekele/twin-cities/internal/graph"
	"github.com/cinekele/twin-cities/internal/logging"
	"github.com/cinekele/twin-cities/internal/scrape"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfg := loadConfig()

	logger, err := logging.New(os.Getenv("LOG_MODE"))
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	source := scrape.NewAPISource(cfg.Wikipedia.APIURL, cfg.WikipediaTimeout())
	scraper := &scrape.PageScraper{BaseURL: cfg.Wikipedia.BaseURL}
	frontier := scrape.NewFrontier(source, scraper, cfg.Wikipedia.RootPage, logger)

	cities, err := frontier.Run(ctx)
	if err != nil {
		logger.Fatalw("Scrape failed", "error", err)
	}
	logger.Infow("Scrape finished", "cities", len(cities))

	for _, path := range []string{cfg.Storage.CitiesPath, cfg.Storage.GraphPath} {
		if err := ensureDir(path); err != nil {
			logger.Fatalw("Failed to create data directory", "path", path, "error", err)
		}
	}
	if err := scrape.SaveCities(cfg.Storage.CitiesPath, cities); err != nil {
		logger.Fatalw("Failed to save cities", "error", err)
	}

	store := graph.NewStore()
	store.AddCities(cities)
	if err := store.Save(cfg.Storage.GraphPath); err != nil {
		logger.Fatalw("Failed to save graph", "error", err)
	}
	logger.Infow("Graph saved", "path", cfg.Storage.GraphPath)

	if cfg.Neo4j.URI != "" {
		exportNeo4j(ctx, cfg, store, logger)
	}
}

func loadConfig() *config.Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func exportNeo4j(ctx context.Context, cfg *config.Config, store *graph.Store, logger *zap.SugaredLogger) {
	driver, err := graph.NewNeo4jDriver(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
	if err != nil {
		logger.Fatalw("Failed to connect to Neo4j", "error", err)
	}
	defer driver.Close(ctx)

	if err := store.Export(ctx, driver); err != nil {
		logger.Fatalw("Failed to export graph", "error", err)
	}
	logger.Infow("Graph exported to Neo4j", "uri", cfg.Neo4j.URI)
}
