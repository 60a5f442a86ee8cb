package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/research-orbits/backend-go/internal/llm"
	"github.com/research-orbits/backend-go/internal/logger"
	"go.uber.org/zap"
)

const hydePromptTemplate = `Generate a short, concise paragraph that reads like part of a factual article or encyclopedia entry. It should be 2-3 sentences maximum.

The paragraph should read as if it answers the question below, using a neutral, informative tone.

Question: %s

Paragraph:`

// HydeExpander 生成假设性短文作为稠密检索查询。
// 只喂给向量检索：HyDE弥合提问措辞与答案措辞之间的词汇鸿沟，
// 而词面匹配用原问题效果更好。
type HydeExpander struct {
	generator llm.Generator
	opts      llm.GenerateOptions
}

// NewHydeExpander 创建查询扩展器
func NewHydeExpander(generator llm.Generator, model string, temperature float64, topK int, topP float64, maxTokens int) *HydeExpander {
	return &HydeExpander{
		generator: generator,
		opts: llm.GenerateOptions{
			Model:       model,
			Temperature: temperature,
			TopK:        topK,
			TopP:        topP,
			MaxTokens:   maxTokens,
		},
	}
}

// Expand 返回假设性短文。生成失败时退化为原问题，不中断请求。
func (h *HydeExpander) Expand(ctx context.Context, question string) string {
	prompt := fmt.Sprintf(hydePromptTemplate, question)

	passage, err := h.generator.Generate(ctx, prompt, h.opts)
	if err != nil {
		logger.Warn("HyDE expansion failed, falling back to raw question", zap.Error(err))
		return question
	}

	passage = strings.TrimSpace(passage)
	if passage == "" {
		return question
	}
	return passage
}
