package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/cinekele/twin-cities/internal/config"
	"github.com/cinekele/twin-cities/internal/graph"
	"github.com/cinekele/twin-cities/internal/logging"
	"github.com/cinekele/twin-cities/internal/server"
	"github.com/cinekele/twin-cities/internal/wikidata"
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

	store, err := graph.Load(cfg.Storage.GraphPath)
	if err != nil {
		logger.Fatalw("Failed to load graph", "path", cfg.Storage.GraphPath, "error", err)
	}

	client := wikidata.NewClient(cfg.Wikidata.SPARQLURL, cfg.WikidataTimeout())

	writer, err := wikidata.NewAPIWriter(cfg.Wikidata.APIURL, cfg.Wikidata.User, cfg.Wikidata.Password, cfg.WikidataTimeout())
	if err != nil {
		logger.Fatalw("Failed to set up Wikidata writer", "error", err)
	}
	publisher := wikidata.NewPublisher(client, writer)

	srv := server.NewServer(store, client, publisher, logger)
	r := srv.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Infow("Starting server", "port", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatal(err)
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
