package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/research-orbits/backend-go/internal/config"
	"github.com/research-orbits/backend-go/internal/consul"
	"github.com/research-orbits/backend-go/internal/di"
	"github.com/research-orbits/backend-go/internal/etcd"
	"github.com/research-orbits/backend-go/internal/kafka"
	"github.com/research-orbits/backend-go/internal/llm"
	"github.com/research-orbits/backend-go/internal/logger"
	"github.com/research-orbits/backend-go/internal/metrics"
	"github.com/research-orbits/backend-go/internal/rag"
	"github.com/research-orbits/backend-go/internal/similarity"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// Init bootstraps configuration, logger, the DI container, corpus indexes and
// other shared infrastructure components required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.GetAppConfig()

	app := &App{}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		logger.Sync()
		return nil
	})

	// Initialize DI container with all providers.
	container := di.InitContainer()
	if err := di.RegisterProviders(container); err != nil {
		return nil, err
	}

	ctx := context.Background()

	// Wait until the Ollama backend has its models pulled before serving.
	if cfg.Backend.Provider == "ollama" && cfg.Backend.Ollama.RequiredModels > 0 {
		err := di.Invoke(func(service *llm.OllamaService) error {
			logger.Info("Waiting for Ollama models to become available...",
				zap.Int("required", cfg.Backend.Ollama.RequiredModels))
			return service.WaitForModels(ctx, cfg.Backend.Ollama.RequiredModels, 5*time.Second)
		})
		if err != nil {
			return nil, err
		}
	}

	// Initialize Kafka (optional). Failure shouldn't block the app.
	if cfg.Kafka.Enabled {
		if err := kafka.InitProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("Failed to initialize Kafka producer", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				producer := kafka.GetProducer()
				if producer != nil {
					return producer.Close()
				}
				return nil
			})
		}
	}

	// Ingest the corpus and build both retrieval indexes.
	err := di.Invoke(func(ingestor *rag.Ingestor, sparse rag.SparseIndex, dense rag.DenseIndex, embedder llm.Embedder) error {
		chunks, err := rag.BuildIndexes(ctx, ingestor, sparse, dense, embedder, cfg.Corpus.IndexDir)
		if err != nil {
			return err
		}

		sources := make(map[string]struct{})
		for _, chunk := range chunks {
			sources[chunk.Source] = struct{}{}
		}
		metrics.IngestedDocuments.Set(float64(len(sources)))
		metrics.IngestedChunks.Set(float64(len(chunks)))

		if err := kafka.SendIngestEvent(len(sources), len(chunks)); err != nil {
			logger.Warn("摄取事件发送失败", zap.Error(err))
		}

		logger.Info("Corpus indexed",
			zap.Int("documents", len(sources)),
			zap.Int("chunks", len(chunks)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Seed the similarity engine from a mock corpus when configured.
	if cfg.Similarity.MockPath != "" {
		err := di.Invoke(func(engine *similarity.Engine) {
			if err := engine.LoadMock(cfg.Similarity.MockPath); err != nil {
				logger.Warn("Failed to load mock articles", zap.String("path", cfg.Similarity.MockPath), zap.Error(err))
				return
			}
			metrics.SimilarityArticles.Set(float64(engine.Count()))
			logger.Info("Mock articles loaded", zap.Int("count", engine.Count()))
		})
		if err != nil {
			return nil, err
		}
	}

	// Push hot-reloaded retrieval weights into the fuser.
	if err := di.Invoke(func(fuser *rag.HybridFuser) {
		config.OnReload(func(newCfg *config.Config) {
			fuser.SetWeights(newCfg.Retrieval.SparseWeight, newCfg.Retrieval.DenseWeight)
			logger.Info("Retrieval weights reloaded",
				zap.Float64("sparse_weight", newCfg.Retrieval.SparseWeight),
				zap.Float64("dense_weight", newCfg.Retrieval.DenseWeight))
		})
	}); err != nil {
		return nil, err
	}

	// Register service with Consul (optional).
	if cfg.Consul.Enabled {
		consulClient, err := consul.NewClient(cfg.Consul.Address, cfg.Consul.Enabled, logger.GetLogger())
		if err != nil {
			logger.Warn("Failed to initialize Consul client", zap.Error(err))
		} else if consulClient.IsEnabled() {
			registry := consul.NewServiceRegistry(consulClient, cfg.Consul.ServiceID, cfg.Consul.ServiceName, logger.GetLogger())
			if err := registry.Register(cfg); err != nil {
				logger.Warn("Failed to register service with Consul", zap.Error(err))
			} else {
				app.cleanupTasks = append(app.cleanupTasks, registry.Deregister)
				logger.Info("Service registered with Consul",
					zap.String("service_id", cfg.Consul.ServiceID),
					zap.String("service_name", cfg.Consul.ServiceName))
			}
		}
	}

	// Register service with etcd (optional).
	if cfg.Etcd.Enabled {
		etcdClient, err := etcd.NewClient(cfg.Etcd.Endpoints, cfg.Etcd.Enabled, logger.GetLogger())
		if err != nil {
			logger.Warn("Failed to initialize etcd client", zap.Error(err))
		} else if etcdClient.IsEnabled() {
			registry := etcd.NewServiceRegistry(etcdClient, cfg.Etcd.ServiceID, cfg.Etcd.ServiceName, logger.GetLogger())
			if err := registry.Register(cfg); err != nil {
				logger.Warn("Failed to register service with etcd", zap.Error(err))
			} else {
				app.cleanupTasks = append(app.cleanupTasks, registry.Deregister)
				app.cleanupTasks = append(app.cleanupTasks, etcdClient.Close)
				logger.Info("Service registered with etcd",
					zap.String("service_id", cfg.Etcd.ServiceID),
					zap.String("service_name", cfg.Etcd.ServiceName))
			}
		}
	}

	globalApp = app
	return app, nil
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}
}
