package main

import (
	"log"

	"github.com/longlongyang/wechat-article-insight/internal/config"
	"github.com/longlongyang/wechat-article-insight/pkg/database"
)

func main() {
	cfg := config.Load()

	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Printf("Starting migration (embedding dimension %d)...", cfg.Ai.EmbeddingDimension)

	if err := database.Migrate(db, cfg.Ai.EmbeddingDimension); err != nil {
		log.Fatalf("Error: Migration failed: %v", err)
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
