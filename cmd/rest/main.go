package main

import (
	"context"
	"log"

	"github.com/longlongyang/wechat-article-insight/internal/bootstrap"
	"github.com/longlongyang/wechat-article-insight/internal/config"
	"github.com/longlongyang/wechat-article-insight/internal/server"
	"github.com/longlongyang/wechat-article-insight/internal/tracer"
	"github.com/longlongyang/wechat-article-insight/pkg/database"

	"github.com/fatih/color"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Panic("DB_CONNECTION_STRING is required")
	}

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	if err := database.Migrate(gormDB, cfg.Ai.EmbeddingDimension); err != nil {
		log.Panicf("Migration failed: %v", err)
	}

	// 3. Bootstrap Dependencies (Container). Refuses to start on an
	// embedding dimension mismatch.
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start the Worker Supervisor (resumes dangling tasks, then
	// consumes new submissions)
	if err := container.Supervisor.Start(context.Background()); err != nil {
		log.Panicf("Supervisor failed to start: %v", err)
	}

	color.Green("wechat-article-insight ready (embedding dim %d, max %d concurrent tasks)",
		cfg.Ai.EmbeddingDimension, cfg.Pipeline.MaxConcurrentTasks)

	// 5. Initialize + run Server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
