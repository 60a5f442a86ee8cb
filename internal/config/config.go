package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Corpus     CorpusConfig
	Chunker    ChunkerConfig
	Retrieval  RetrievalConfig
	Backend    BackendConfig
	Rerank     RerankConfig
	Metadata   MetadataConfig
	Similarity SimilarityConfig
	Cache      CacheConfig
	Kafka      KafkaConfig
	Consul     ConsulConfig
	Etcd       EtcdConfig
	Prometheus PrometheusConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// CorpusConfig 文档语料配置
type CorpusConfig struct {
	Source       string // local | minio
	DocumentsDir string
	IndexDir     string // 稠密索引快照目录
	Minio        MinioConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

type ChunkerConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// RetrievalConfig 混合检索配置
type RetrievalConfig struct {
	SparseWeight  float64 // BM25权重
	DenseWeight   float64 // 向量权重
	SparseK       int
	DenseK        int
	TopK          int // rerank后保留数量
	SparseBackend string // memory | elasticsearch
	DenseBackend  string // memory | milvus
	Elasticsearch ElasticsearchConfig
	Milvus        MilvusConfig
}

type ElasticsearchConfig struct {
	Addresses   []string
	Username    string
	Password    string
	APIKey      string
	IndexPrefix string
}

type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Database   string
	TLS        bool
	VectorSize int
	Distance   string
}

// BackendConfig embedding/generation后端配置
type BackendConfig struct {
	Provider string // ollama | openai
	Ollama   OllamaConfig
	OpenAI   OpenAIConfig
	Hyde     GenerationConfig
	Answer   GenerationConfig
}

type OllamaConfig struct {
	BaseURL        string
	EmbeddingModel string
	HydeModel      string
	AnswerModel    string
	TimeoutSeconds int
	RequiredModels int // 启动时等待就绪的模型数量
}

type OpenAIConfig struct {
	APIKey         string
	EmbeddingModel string
	ChatModel      string
}

// GenerationConfig 单个生成阶段的采样参数
type GenerationConfig struct {
	Temperature float64
	TopK        int
	TopP        float64
	MaxTokens   int
}

type RerankConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Model   string
}

type MetadataConfig struct {
	CSVPath string
}

type SimilarityConfig struct {
	DefaultK    int
	RandomState int64
	MockPath    string
}

type CacheConfig struct {
	Enabled bool
	Host    string
	Port    string
	DB      int
	TTL     int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

type ConsulConfig struct {
	Address     string
	Enabled     bool
	ServiceName string
	ServiceID   string
}

type EtcdConfig struct {
	Endpoints   []string
	Enabled     bool
	ServiceName string
	ServiceID   string
}

type PrometheusConfig struct {
	Enabled bool
}

var (
	AppConfig *Config
	mu        sync.RWMutex

	reloadHooks []func(*Config)
)

// OnReload 注册配置热更新回调，配置文件变更后携带新配置调用
func OnReload(fn func(*Config)) {
	mu.Lock()
	defer mu.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("corpus.source", "local")
	viper.SetDefault("corpus.documents_dir", "./data")
	viper.SetDefault("corpus.index_dir", "./faiss_index")
	viper.SetDefault("corpus.minio.endpoint", "localhost:9000")
	viper.SetDefault("corpus.minio.bucket", "papers")
	viper.SetDefault("corpus.minio.prefix", "")
	viper.SetDefault("corpus.minio.use_ssl", false)
	viper.SetDefault("chunker.chunk_size", 1200)
	viper.SetDefault("chunker.chunk_overlap", 200)
	viper.SetDefault("chunker.separators", []string{"\n\n", "\n", ".", "!", "?", ",", " ", ""})
	viper.SetDefault("retrieval.sparse_weight", 0.7)
	viper.SetDefault("retrieval.dense_weight", 0.3)
	viper.SetDefault("retrieval.sparse_k", 20)
	viper.SetDefault("retrieval.dense_k", 20)
	viper.SetDefault("retrieval.top_k", 7)
	viper.SetDefault("retrieval.sparse_backend", "memory")
	viper.SetDefault("retrieval.dense_backend", "memory")
	viper.SetDefault("retrieval.elasticsearch.addresses", []string{})
	viper.SetDefault("retrieval.elasticsearch.index_prefix", "paper_chunks")
	viper.SetDefault("retrieval.milvus.address", "localhost:19530")
	viper.SetDefault("retrieval.milvus.collection", "paper_vectors")
	viper.SetDefault("retrieval.milvus.database", "default")
	viper.SetDefault("retrieval.milvus.vector_size", 1024)
	viper.SetDefault("retrieval.milvus.distance", "COSINE")
	viper.SetDefault("backend.provider", "ollama")
	viper.SetDefault("backend.ollama.base_url", "http://localhost:11434")
	viper.SetDefault("backend.ollama.embedding_model", "all-minilm")
	viper.SetDefault("backend.ollama.hyde_model", "llama3.2:1b")
	viper.SetDefault("backend.ollama.answer_model", "llama3.2:3b")
	viper.SetDefault("backend.ollama.timeout_seconds", 120)
	viper.SetDefault("backend.ollama.required_models", 3)
	viper.SetDefault("backend.openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("backend.openai.chat_model", "gpt-4o-mini")
	viper.SetDefault("backend.hyde.temperature", 0.3)
	viper.SetDefault("backend.hyde.top_k", 40)
	viper.SetDefault("backend.hyde.top_p", 0.9)
	viper.SetDefault("backend.hyde.max_tokens", 100)
	viper.SetDefault("backend.answer.temperature", 0.1)
	viper.SetDefault("backend.answer.top_k", 20)
	viper.SetDefault("backend.answer.top_p", 0.9)
	viper.SetDefault("backend.answer.max_tokens", 1024)
	viper.SetDefault("rerank.enabled", false)
	viper.SetDefault("rerank.model", "gte-rerank")
	viper.SetDefault("metadata.csv_path", "./papers.csv")
	viper.SetDefault("similarity.default_k", 3)
	viper.SetDefault("similarity.random_state", 42)
	viper.SetDefault("similarity.mock_path", "")
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.host", "localhost")
	viper.SetDefault("cache.port", "6379")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.ttl", 86400)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topic", "rag-events")
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("consul.address", "localhost:8500")
	viper.SetDefault("consul.enabled", false)
	viper.SetDefault("consul.service_name", "research-orbits-backend")
	viper.SetDefault("consul.service_id", "research-orbits-backend-1")
	viper.SetDefault("etcd.endpoints", []string{"http://localhost:2379"})
	viper.SetDefault("etcd.enabled", false)
	viper.SetDefault("etcd.service_name", "research-orbits-backend")
	viper.SetDefault("etcd.service_id", "research-orbits-backend-1")
	viper.SetDefault("prometheus.enabled", true)

	// 环境变量覆盖：RO_RETRIEVAL_TOP_K 等
	viper.SetEnvPrefix("RO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 可选配置文件
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		// 配置文件变更时热更新检索权重等参数
		viper.WatchConfig()
		viper.OnConfigChange(func(e fsnotify.Event) {
			mu.Lock()
			defer mu.Unlock()
			if AppConfig != nil {
				AppConfig.Retrieval.SparseWeight = viper.GetFloat64("retrieval.sparse_weight")
				AppConfig.Retrieval.DenseWeight = viper.GetFloat64("retrieval.dense_weight")
				AppConfig.Retrieval.TopK = viper.GetInt("retrieval.top_k")
				for _, fn := range reloadHooks {
					fn(AppConfig)
				}
			}
		})
	}

	cfg := buildConfig()

	mu.Lock()
	AppConfig = cfg
	mu.Unlock()

	return nil
}

func buildConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Corpus: CorpusConfig{
			Source:       viper.GetString("corpus.source"),
			DocumentsDir: viper.GetString("corpus.documents_dir"),
			IndexDir:     viper.GetString("corpus.index_dir"),
			Minio: MinioConfig{
				Endpoint:  viper.GetString("corpus.minio.endpoint"),
				AccessKey: viper.GetString("corpus.minio.access_key"),
				SecretKey: viper.GetString("corpus.minio.secret_key"),
				Bucket:    viper.GetString("corpus.minio.bucket"),
				Prefix:    viper.GetString("corpus.minio.prefix"),
				UseSSL:    viper.GetBool("corpus.minio.use_ssl"),
			},
		},
		Chunker: ChunkerConfig{
			ChunkSize:    viper.GetInt("chunker.chunk_size"),
			ChunkOverlap: viper.GetInt("chunker.chunk_overlap"),
			Separators:   viper.GetStringSlice("chunker.separators"),
		},
		Retrieval: RetrievalConfig{
			SparseWeight:  viper.GetFloat64("retrieval.sparse_weight"),
			DenseWeight:   viper.GetFloat64("retrieval.dense_weight"),
			SparseK:       viper.GetInt("retrieval.sparse_k"),
			DenseK:        viper.GetInt("retrieval.dense_k"),
			TopK:          viper.GetInt("retrieval.top_k"),
			SparseBackend: viper.GetString("retrieval.sparse_backend"),
			DenseBackend:  viper.GetString("retrieval.dense_backend"),
			Elasticsearch: ElasticsearchConfig{
				Addresses:   viper.GetStringSlice("retrieval.elasticsearch.addresses"),
				Username:    viper.GetString("retrieval.elasticsearch.username"),
				Password:    viper.GetString("retrieval.elasticsearch.password"),
				APIKey:      viper.GetString("retrieval.elasticsearch.api_key"),
				IndexPrefix: viper.GetString("retrieval.elasticsearch.index_prefix"),
			},
			Milvus: MilvusConfig{
				Address:    viper.GetString("retrieval.milvus.address"),
				Username:   viper.GetString("retrieval.milvus.username"),
				Password:   viper.GetString("retrieval.milvus.password"),
				Collection: viper.GetString("retrieval.milvus.collection"),
				Database:   viper.GetString("retrieval.milvus.database"),
				TLS:        viper.GetBool("retrieval.milvus.tls"),
				VectorSize: viper.GetInt("retrieval.milvus.vector_size"),
				Distance:   viper.GetString("retrieval.milvus.distance"),
			},
		},
		Backend: BackendConfig{
			Provider: viper.GetString("backend.provider"),
			Ollama: OllamaConfig{
				BaseURL:        viper.GetString("backend.ollama.base_url"),
				EmbeddingModel: viper.GetString("backend.ollama.embedding_model"),
				HydeModel:      viper.GetString("backend.ollama.hyde_model"),
				AnswerModel:    viper.GetString("backend.ollama.answer_model"),
				TimeoutSeconds: viper.GetInt("backend.ollama.timeout_seconds"),
				RequiredModels: viper.GetInt("backend.ollama.required_models"),
			},
			OpenAI: OpenAIConfig{
				APIKey:         viper.GetString("backend.openai.api_key"),
				EmbeddingModel: viper.GetString("backend.openai.embedding_model"),
				ChatModel:      viper.GetString("backend.openai.chat_model"),
			},
			Hyde: GenerationConfig{
				Temperature: viper.GetFloat64("backend.hyde.temperature"),
				TopK:        viper.GetInt("backend.hyde.top_k"),
				TopP:        viper.GetFloat64("backend.hyde.top_p"),
				MaxTokens:   viper.GetInt("backend.hyde.max_tokens"),
			},
			Answer: GenerationConfig{
				Temperature: viper.GetFloat64("backend.answer.temperature"),
				TopK:        viper.GetInt("backend.answer.top_k"),
				TopP:        viper.GetFloat64("backend.answer.top_p"),
				MaxTokens:   viper.GetInt("backend.answer.max_tokens"),
			},
		},
		Rerank: RerankConfig{
			Enabled: viper.GetBool("rerank.enabled"),
			BaseURL: viper.GetString("rerank.base_url"),
			APIKey:  viper.GetString("rerank.api_key"),
			Model:   viper.GetString("rerank.model"),
		},
		Metadata: MetadataConfig{
			CSVPath: viper.GetString("metadata.csv_path"),
		},
		Similarity: SimilarityConfig{
			DefaultK:    viper.GetInt("similarity.default_k"),
			RandomState: viper.GetInt64("similarity.random_state"),
			MockPath:    viper.GetString("similarity.mock_path"),
		},
		Cache: CacheConfig{
			Enabled: viper.GetBool("cache.enabled"),
			Host:    viper.GetString("cache.host"),
			Port:    viper.GetString("cache.port"),
			DB:      viper.GetInt("cache.db"),
			TTL:     viper.GetInt("cache.ttl"),
		},
		Kafka: KafkaConfig{
			Brokers: viper.GetStringSlice("kafka.brokers"),
			Topic:   viper.GetString("kafka.topic"),
			Enabled: viper.GetBool("kafka.enabled"),
		},
		Consul: ConsulConfig{
			Address:     viper.GetString("consul.address"),
			Enabled:     viper.GetBool("consul.enabled"),
			ServiceName: viper.GetString("consul.service_name"),
			ServiceID:   viper.GetString("consul.service_id"),
		},
		Etcd: EtcdConfig{
			Endpoints:   viper.GetStringSlice("etcd.endpoints"),
			Enabled:     viper.GetBool("etcd.enabled"),
			ServiceName: viper.GetString("etcd.service_name"),
			ServiceID:   viper.GetString("etcd.service_id"),
		},
		Prometheus: PrometheusConfig{
			Enabled: viper.GetBool("prometheus.enabled"),
		},
	}
}

// GetAppConfig 获取全局配置
func GetAppConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return AppConfig
}
