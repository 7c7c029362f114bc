package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/limglenaldin/ai-insurance-agent/internal/ai"
	"github.com/limglenaldin/ai-insurance-agent/internal/app"
	"github.com/limglenaldin/ai-insurance-agent/internal/cache"
	"github.com/limglenaldin/ai-insurance-agent/internal/config"
	mysqlClient "github.com/limglenaldin/ai-insurance-agent/internal/platform/mysql"
	rabbitmqClient "github.com/limglenaldin/ai-insurance-agent/internal/platform/rabbitmq"
	redisClient "github.com/limglenaldin/ai-insurance-agent/internal/platform/redis"
	"github.com/limglenaldin/ai-insurance-agent/internal/repository"
	"github.com/limglenaldin/ai-insurance-agent/internal/vectorstore"
	"github.com/limglenaldin/ai-insurance-agent/internal/worker"
)

type App struct {
	Config   *config.Config
	Embedder ai.Embedder
	// Store is nil when the local index has not been built yet.
	Store  vectorstore.Store
	Search *app.SearchService

	Redis         *redis.Client
	MySQL         *gorm.DB
	Documents     *repository.DocumentRepository
	MQConn        *amqp.Connection
	CatalogWorker *worker.CatalogWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	embedder, err := ai.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return fmt.Errorf("create embedder failed: %w", err)
	}
	a.Embedder = embedder

	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		ttl := time.Duration(cfg.Redis.EmbeddingTTLSeconds) * time.Second
		a.Embedder = cache.NewCachingEmbedder(embedder, cache.NewEmbeddingCache(a.Redis, ttl))
	}

	store, err := vectorstore.Open(ctx, cfg, vectorstore.ModeServe, embedder.Dimensions())
	switch {
	case errors.Is(err, vectorstore.ErrIndexNotFound) && cfg.Store.RequireIndex:
		return fmt.Errorf("open vector store failed: %w", err)
	case errors.Is(err, vectorstore.ErrIndexNotFound):
		log.Printf("warning: %v, run the ingestion job first", err)
		a.Search = app.NewSearchService(a.Embedder, nil, cfg.Search)
	case err != nil:
		return fmt.Errorf("open vector store failed: %w", err)
	default:
		a.Store = store
		a.Search = app.NewSearchService(a.Embedder, store, cfg.Search)
		log.Printf("vector store %q loaded", cfg.Store.Kind)
	}

	if cfg.MySQL.Enabled {
		a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return err
		}
		a.Documents = repository.NewDocumentRepository(a.MySQL)
	}

	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.IngestEventQueue)
		if err != nil {
			return err
		}
		if a.Documents != nil {
			a.CatalogWorker = worker.NewCatalogWorker(a.MQConn, a.Documents, cfg.RabbitMQ.IngestEventQueue)
			if err := a.CatalogWorker.Start(ctx); err != nil {
				return fmt.Errorf("start catalog worker failed: %w", err)
			}
		}
	}
	return nil
}

// IndexLoaded reports whether searches can be answered.
func (a *App) IndexLoaded() bool {
	return a.Store != nil
}

func (a *App) Close() error {
	var closeErr error
	if a.CatalogWorker != nil {
		a.CatalogWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Embedder != nil {
		if err := a.Embedder.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
