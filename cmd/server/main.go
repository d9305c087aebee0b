package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/recipemerge/internal/app"
	"github.com/agenthands/recipemerge/internal/config"
	"github.com/agenthands/recipemerge/internal/logger"
	"github.com/agenthands/recipemerge/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	a, err := app.New(context.Background(), cfg, logg, app.Options{})
	if err != nil {
		logg.Fatal("Failed to wire merge engine", "error", err)
	}
	defer a.Close()

	srv := server.NewServer(a.Engine, a.Recipes, cfg.Merge.Threshold, logg)
	r := srv.SetupRouter()

	logg.Info("Starting server", "addr", cfg.Server.Addr, "llm_provider", cfg.LLM.Provider, "database", cfg.Database.Driver)
	if err := r.Run(cfg.Server.Addr); err != nil {
		logg.Fatal("Server stopped", "error", err)
	}
}
