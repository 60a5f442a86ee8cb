package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/research-orbits/backend-go/internal/logger"
	"go.uber.org/zap"
)

// OllamaService 统一的Ollama服务，支持Embedding与Generation
type OllamaService struct {
	baseURL string
	client  *http.Client
	limiter sync.Mutex
}

// ollamaEmbedRequest 向量化请求
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// ollamaGenerateRequest 生成请求
type ollamaGenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  json.RawMessage `json:"format,omitempty"`
	Options map[string]any  `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Model string `json:"model"`
	} `json:"models"`
}

// NewOllamaService 创建Ollama服务
func NewOllamaService(baseURL string, timeoutSeconds int) *OllamaService {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	timeout := 120 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}

	return &OllamaService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *OllamaService) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	url := fmt.Sprintf("%s%s", s.baseURL, path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("API调用失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama API错误: HTTP %d - %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

// CreateEmbeddings 调用向量化接口
func (s *OllamaService) CreateEmbeddings(ctx context.Context, model string, input []string) ([][]float32, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("Ollama service not initialized")
	}
	if len(input) == 0 {
		return nil, fmt.Errorf("input is empty")
	}

	s.limiter.Lock()
	defer s.limiter.Unlock()

	var resp ollamaEmbedResponse
	if err := s.post(ctx, "/api/embed", ollamaEmbedRequest{Model: model, Input: input}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(input) {
		return nil, fmt.Errorf("embedding response mismatch: got %d, want %d", len(resp.Embeddings), len(input))
	}

	logger.Debug("Ollama CreateEmbeddings success",
		zap.String("model", model),
		zap.Int("input_count", len(input)))

	return resp.Embeddings, nil
}

// Generate 调用生成接口
func (s *OllamaService) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("Ollama service not initialized")
	}

	s.limiter.Lock()
	defer s.limiter.Unlock()

	options := map[string]any{
		"temperature": opts.Temperature,
	}
	if opts.TopK > 0 {
		options["top_k"] = opts.TopK
	}
	if opts.TopP > 0 {
		options["top_p"] = opts.TopP
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}

	req := ollamaGenerateRequest{
		Model:   opts.Model,
		Prompt:  prompt,
		Stream:  false,
		Format:  opts.Format,
		Options: options,
	}

	start := time.Now()
	var resp ollamaGenerateResponse
	if err := s.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}

	logger.Info("Ollama Generate success",
		zap.String("model", opts.Model),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Response, nil
}

// ListModels 列出已加载的模型
func (s *OllamaService) ListModels(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/api/tags", s.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama API错误: HTTP %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, err
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Model)
	}
	return models, nil
}

// WaitForModels 等待所需模型就绪（启动时轮询）
func (s *OllamaService) WaitForModels(ctx context.Context, required int, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	logger.Info("Waiting for Ollama models to become available...")

	for {
		models, err := s.ListModels(ctx)
		if err == nil && len(models) >= required {
			logger.Info("Ollama models ready", zap.Strings("models", models))
			return nil
		}
		if err != nil {
			logger.Warn("Ollama not responding yet", zap.Error(err))
		} else {
			logger.Info("Models missing, retrying", zap.Strings("available", models))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Ready 检查服务是否就绪
func (s *OllamaService) Ready() bool {
	return s != nil && s.client != nil
}

// OllamaEmbedder 基于Ollama的向量化实现
type OllamaEmbedder struct {
	service *OllamaService
	model   string
}

// NewOllamaEmbedder 创建Ollama向量化器
func NewOllamaEmbedder(service *OllamaService, model string) Embedder {
	if service == nil {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "all-minilm"
	}
	return &OllamaEmbedder{service: service, model: model}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is empty")
	}
	vectors, err := e.service.CreateEmbeddings(ctx, e.model, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.service.CreateEmbeddings(ctx, e.model, texts)
}

func (e *OllamaEmbedder) Model() string {
	return e.model
}

func (e *OllamaEmbedder) Ready() bool {
	return e.service.Ready()
}

// OllamaGenerator 基于Ollama的生成实现
type OllamaGenerator struct {
	service *OllamaService
}

// NewOllamaGenerator 创建Ollama生成器
func NewOllamaGenerator(service *OllamaService) Generator {
	if service == nil {
		return &NoopGenerator{}
	}
	return &OllamaGenerator{service: service}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return g.service.Generate(ctx, prompt, opts)
}

func (g *OllamaGenerator) Ready() bool {
	return g.service.Ready()
}
