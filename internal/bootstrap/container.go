package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/longlongyang/wechat-article-insight/internal/config"
	"github.com/longlongyang/wechat-article-insight/internal/controller"
	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/internal/pkg/logger"
	"github.com/longlongyang/wechat-article-insight/internal/repository/implementation"
	"github.com/longlongyang/wechat-article-insight/internal/service"
	"github.com/longlongyang/wechat-article-insight/pkg/embedding"
	llmFactory "github.com/longlongyang/wechat-article-insight/pkg/llm/factory"
	pktNats "github.com/longlongyang/wechat-article-insight/pkg/nats"
	"github.com/longlongyang/wechat-article-insight/pkg/pipeline"
	"github.com/longlongyang/wechat-article-insight/pkg/searchclient"
	"github.com/longlongyang/wechat-article-insight/pkg/sessiontoken"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	TaskController controller.ITaskController

	// Background Services (Exposed for main.go to run)
	Supervisor service.ISupervisorService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production", cfg.App.LogLevel)

	// 2. Repositories
	taskRepo := implementation.NewTaskRepository(db)
	embeddingRepo := implementation.NewEmbeddingRepository(db)

	// The dimension invariant gates startup: a mismatch between the
	// configured provider, the configured dimension, and the persisted
	// schema means every similarity computation would be garbage.
	if err := embedding.ValidateDimension(cfg.Ai.EmbeddingProvider, cfg.Ai.EmbeddingDimension); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if err := embeddingRepo.Verify(context.Background(), cfg.Ai.EmbeddingDimension); err != nil {
		log.Fatalf("[FATAL] %v. The embeddings table was created with a different dimension: drop the embeddings table and re-run the migration before starting with EMBEDDING_DIMENSION=%d.", err, cfg.Ai.EmbeddingDimension)
	}

	// 3. Session-token / URL-dedup cache (Redis when configured,
	// in-process otherwise)
	var tokenStore sessiontoken.Store
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-memory cache", err)
			tokenStore = sessiontoken.NewMemoryStore()
		} else {
			tokenStore = sessiontoken.NewRedisStore(rdb)
		}
	} else {
		tokenStore = sessiontoken.NewMemoryStore()
	}

	// 4. Search client + pipeline runner
	searchClient := searchclient.New(tokenStore, cfg.Search.AccountKey)
	runner := pipeline.NewRunner(taskRepo, embeddingRepo, searchClient, tokenStore, sysLogger, pipeline.Config{
		WorkerCount:        cfg.Pipeline.WorkerCount,
		BufferSize:         cfg.Pipeline.BufferSize,
		SimilarityFloor:    cfg.Pipeline.SimilarityFloor,
		MinKeywordPool:     cfg.Pipeline.MinKeywordPool,
		RelevanceThreshold: cfg.Pipeline.RelevanceThreshold,
		EmbeddingDim:       cfg.Ai.EmbeddingDimension,
	})

	// 5. Supervisor intake (in-process by default, NATS when opted in)
	var queue service.TaskQueue
	if cfg.App.WorkerQueueDriver == "nats" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Fatalf("[FATAL] WORKER_QUEUE_DRIVER=nats but NATS publisher failed: %v", err)
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Fatalf("[FATAL] WORKER_QUEUE_DRIVER=nats but NATS subscriber failed: %v", err)
		}
		queue = service.NewNatsQueue(natsPub, natsSub)
	} else {
		queue = service.NewChannelQueue()
	}

	supervisor := service.NewSupervisorService(
		queue,
		taskRepo,
		runner,
		providerBuilder(cfg),
		sysLogger,
		cfg.Pipeline.MaxConcurrentTasks,
	)

	// 6. Services + controllers
	taskService := service.NewTaskService(taskRepo, supervisor, cfg, sysLogger)

	return &Container{
		TaskController: controller.NewTaskController(taskService),
		Supervisor:     supervisor,
		Logger:         sysLogger,
	}
}

// providerBuilder turns a task's persisted provider selection into the
// capability table the pipeline consumes, one construction per task start.
func providerBuilder(cfg *config.Config) service.ProviderBuilder {
	return func(tc entity.TaskConfig) (pipeline.Providers, error) {
		keyword, err := llmFactory.NewLLMProvider(llmConfigFor(cfg, tc.KeywordProvider))
		if err != nil {
			return pipeline.Providers{}, fmt.Errorf("keyword provider: %w", err)
		}
		reasoning, err := llmFactory.NewLLMProvider(llmConfigFor(cfg, tc.ReasoningProvider))
		if err != nil {
			return pipeline.Providers{}, fmt.Errorf("reasoning provider: %w", err)
		}
		embedder, err := embedding.NewProvider(embedding.Config{
			ProviderType: tc.EmbeddingProvider,
			ModelName:    cfg.Ai.OllamaEmbedModel,
			BaseURL:      cfg.Ai.OllamaBaseURL,
			APIKey:       cfg.Keys.CloudA,
			OutputDim:    cfg.Ai.EmbeddingDimension,
		})
		if err != nil {
			return pipeline.Providers{}, fmt.Errorf("embedding provider: %w", err)
		}
		return pipeline.Providers{Keyword: keyword, Reasoning: reasoning, Embedding: embedder}, nil
	}
}

func llmConfigFor(cfg *config.Config, providerType string) llmFactory.Config {
	out := llmFactory.Config{ProviderType: providerType, ModelName: cfg.Ai.LLMModel}
	switch providerType {
	case "cloud-a":
		out.APIKey = cfg.Keys.CloudA
		out.ProxyURL = cfg.Ai.ProxyURL // proxy on by default for this variant
	case "cloud-b":
		out.APIKey = cfg.Keys.CloudB
	case "ollama-local":
		out.BaseURL = cfg.Ai.OllamaBaseURL
		out.ModelName = cfg.Ai.OllamaLLMModel
	case "openai-compatible":
		out.BaseURL = cfg.Ai.OpenAIBaseURL
		out.APIKey = cfg.Keys.OpenAI
		out.ProxyURL = cfg.Ai.ProxyURL
	}
	return out
}
