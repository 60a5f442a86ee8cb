package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Embedder 定义文本向量化接口
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Ready() bool
}

// GenerateOptions 生成调用的采样参数
type GenerateOptions struct {
	Model       string
	Temperature float64
	TopK        int
	TopP        float64
	MaxTokens   int
	// Format 为JSON Schema约束（后端可能忽略，仅作提示）
	Format json.RawMessage
}

// Generator 定义文本生成接口
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Ready() bool
}

// NoopEmbedder 默认占位实现
type NoopEmbedder struct{}

func (n *NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func (n *NoopEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func (n *NoopEmbedder) Model() string {
	return ""
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

// NoopGenerator 默认占位实现
type NoopGenerator struct{}

func (n *NoopGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return "", errors.New("generation provider not configured")
}

func (n *NoopGenerator) Ready() bool {
	return false
}
