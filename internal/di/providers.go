package di

import (
	"fmt"

	"github.com/research-orbits/backend-go/internal/cache"
	"github.com/research-orbits/backend-go/internal/config"
	"github.com/research-orbits/backend-go/internal/llm"
	"github.com/research-orbits/backend-go/internal/metadata"
	"github.com/research-orbits/backend-go/internal/rag"
	"github.com/research-orbits/backend-go/internal/similarity"
	"go.uber.org/dig"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container) error {
	// 配置
	if err := container.Provide(func() (*config.Config, error) {
		cfg := config.GetAppConfig()
		if cfg == nil {
			return nil, fmt.Errorf("config not loaded")
		}
		return cfg, nil
	}); err != nil {
		return err
	}

	// Ollama服务（openai模式下为nil，由embedder/generator提供者兜底）
	if err := container.Provide(func(cfg *config.Config) *llm.OllamaService {
		if cfg.Backend.Provider != "ollama" {
			return nil
		}
		return llm.NewOllamaService(cfg.Backend.Ollama.BaseURL, cfg.Backend.Ollama.TimeoutSeconds)
	}); err != nil {
		return err
	}

	// 向量化后端（可选Redis缓存装饰）
	if err := container.Provide(func(cfg *config.Config, ollama *llm.OllamaService) llm.Embedder {
		var embedder llm.Embedder
		switch cfg.Backend.Provider {
		case "openai":
			embedder = llm.NewOpenAIEmbedder(cfg.Backend.OpenAI.APIKey, cfg.Backend.OpenAI.EmbeddingModel)
		default:
			embedder = llm.NewOllamaEmbedder(ollama, cfg.Backend.Ollama.EmbeddingModel)
		}
		if cfg.Cache.Enabled {
			addr := fmt.Sprintf("%s:%s", cfg.Cache.Host, cfg.Cache.Port)
			embedder = cache.NewEmbeddingCache(embedder, addr, cfg.Cache.DB, cfg.Cache.TTL)
		}
		return embedder
	}); err != nil {
		return err
	}

	// 生成后端
	if err := container.Provide(func(cfg *config.Config, ollama *llm.OllamaService) llm.Generator {
		if cfg.Backend.Provider == "openai" {
			return llm.NewOpenAIGenerator(cfg.Backend.OpenAI.APIKey, cfg.Backend.OpenAI.ChatModel)
		}
		return llm.NewOllamaGenerator(ollama)
	}); err != nil {
		return err
	}

	// 稀疏索引
	if err := container.Provide(func(cfg *config.Config) (rag.SparseIndex, error) {
		if cfg.Retrieval.SparseBackend == "elasticsearch" {
			return rag.NewElasticSparseIndex(
				cfg.Retrieval.Elasticsearch.Addresses,
				cfg.Retrieval.Elasticsearch.Username,
				cfg.Retrieval.Elasticsearch.Password,
				cfg.Retrieval.Elasticsearch.APIKey,
				cfg.Retrieval.Elasticsearch.IndexPrefix,
			)
		}
		return rag.NewMemorySparseIndex(), nil
	}); err != nil {
		return err
	}

	// 稠密索引
	if err := container.Provide(func(cfg *config.Config, embedder llm.Embedder) (rag.DenseIndex, error) {
		if cfg.Retrieval.DenseBackend == "milvus" {
			return rag.NewMilvusDenseIndex(
				cfg.Retrieval.Milvus.Address,
				cfg.Retrieval.Milvus.Username,
				cfg.Retrieval.Milvus.Password,
				cfg.Retrieval.Milvus.Collection,
				cfg.Retrieval.Milvus.VectorSize,
			)
		}
		return rag.NewMemoryDenseIndex(embedder.Model()), nil
	}); err != nil {
		return err
	}

	// 语料来源
	if err := container.Provide(func(cfg *config.Config) (rag.CorpusSource, error) {
		if cfg.Corpus.Source == "minio" {
			return rag.NewMinioSource(
				cfg.Corpus.Minio.Endpoint,
				cfg.Corpus.Minio.AccessKey,
				cfg.Corpus.Minio.SecretKey,
				cfg.Corpus.Minio.Bucket,
				cfg.Corpus.Minio.Prefix,
				cfg.Corpus.Minio.UseSSL,
			)
		}
		return rag.NewLocalSource(cfg.Corpus.DocumentsDir), nil
	}); err != nil {
		return err
	}

	// 摄取器
	if err := container.Provide(func(cfg *config.Config, source rag.CorpusSource) *rag.Ingestor {
		chunker := rag.NewChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap, cfg.Chunker.Separators)
		return rag.NewIngestor(source, rag.NewFileParserManager(), chunker)
	}); err != nil {
		return err
	}

	// 元数据表
	if err := container.Provide(func(cfg *config.Config) *metadata.Table {
		return metadata.LoadTable(cfg.Metadata.CSVPath)
	}); err != nil {
		return err
	}

	// 混合融合器
	if err := container.Provide(func(cfg *config.Config, sparse rag.SparseIndex, dense rag.DenseIndex, embedder llm.Embedder) *rag.HybridFuser {
		return rag.NewHybridFuser(sparse, dense, embedder,
			cfg.Retrieval.SparseWeight, cfg.Retrieval.DenseWeight,
			cfg.Retrieval.SparseK, cfg.Retrieval.DenseK)
	}); err != nil {
		return err
	}

	// 问答引擎
	if err := container.Provide(func(cfg *config.Config, fuser *rag.HybridFuser, generator llm.Generator, embedder llm.Embedder, table *metadata.Table) *rag.Engine {
		hyde := rag.NewHydeExpander(generator, cfg.Backend.Ollama.HydeModel,
			cfg.Backend.Hyde.Temperature, cfg.Backend.Hyde.TopK,
			cfg.Backend.Hyde.TopP, cfg.Backend.Hyde.MaxTokens)

		answerer := rag.NewAnswerGenerator(generator, table, cfg.Backend.Ollama.AnswerModel,
			cfg.Backend.Answer.Temperature, cfg.Backend.Answer.TopK)

		var primary rag.Reranker
		if cfg.Rerank.Enabled {
			primary = rag.NewHTTPReranker(cfg.Rerank.BaseURL, cfg.Rerank.APIKey, cfg.Rerank.Model, 0)
		}
		fallback := rag.NewEmbeddingReranker(embedder)

		return rag.NewEngine(hyde, fuser, primary, fallback, answerer, cfg.Retrieval.TopK)
	}); err != nil {
		return err
	}

	// 相似度引擎
	if err := container.Provide(func(cfg *config.Config, embedder llm.Embedder) *similarity.Engine {
		return similarity.NewEngine(embedder, cfg.Similarity.DefaultK, cfg.Similarity.RandomState)
	}); err != nil {
		return err
	}

	return nil
}
