package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/research-orbits/backend-go/internal/llm"
	"github.com/research-orbits/backend-go/internal/logger"
	"github.com/research-orbits/backend-go/internal/metadata"
	"go.uber.org/zap"
)

// answerSchema JSON Schema约束，后端可能不严格执行，仅作提示
var answerSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"answer": {
			"type": "string",
			"description": "The answer to the user's question based on the provided context"
		},
		"source_ids": {
			"type": "array",
			"items": {"type": "string"},
			"description": "List of document IDs used to generate the answer (e.g., ['doc0', 'doc4'])"
		}
	},
	"required": ["answer", "source_ids"]
}`)

const answerPromptTemplate = `Using ONLY the following context, answer the user's question.
You MUST include the document IDs you used in the 'source_ids' field of your JSON response.

Context:
%s

Question: %s

Provide your answer in JSON format with 'answer' and 'source_ids' fields.`

// structuredAnswer 模型应返回的JSON形状
type structuredAnswer struct {
	Answer    string   `json:"answer"`
	SourceIDs []string `json:"source_ids"`
}

// AnswerResult 最终答案与解析后的来源
type AnswerResult struct {
	Answer       string                 `json:"answer"`
	SourceTitles []string               `json:"source_titles"`
	Sources      []*metadata.Publication `json:"sources"`
}

// AnswerGenerator 基于上下文生成带引用的答案
type AnswerGenerator struct {
	generator llm.Generator
	table     *metadata.Table
	opts      llm.GenerateOptions
}

// NewAnswerGenerator 创建答案生成器
func NewAnswerGenerator(generator llm.Generator, table *metadata.Table, model string, temperature float64, topK int) *AnswerGenerator {
	return &AnswerGenerator{
		generator: generator,
		table:     table,
		opts: llm.GenerateOptions{
			Model:       model,
			Temperature: temperature,
			TopK:        topK,
			Format:      answerSchema,
		},
	}
}

// Answer 执行一次生成调用并解析引用。
// 模型输出不是合法JSON时退化为{answer: 原文, source_ids: []}——
// 生成后端返回畸形JSON是常态，不是异常。
func (a *AnswerGenerator) Answer(ctx context.Context, question string, chunks []Chunk) (AnswerResult, error) {
	assembled := AssembleContext(chunks)
	prompt := fmt.Sprintf(answerPromptTemplate, assembled.Text, question)

	raw, err := a.generator.Generate(ctx, prompt, a.opts)
	if err != nil {
		return AnswerResult{}, err
	}
	raw = strings.TrimSpace(raw)

	var parsed structuredAnswer
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Warn("generation output is not valid JSON, using raw text",
			zap.Error(err))
		parsed = structuredAnswer{Answer: raw}
	}

	titles := ResolveCitations(parsed.SourceIDs, assembled.IDToTitle)

	result := AnswerResult{
		Answer:       parsed.Answer,
		SourceTitles: titles,
	}
	for _, title := range titles {
		if pub, ok := a.table.Lookup(title); ok {
			p := pub
			result.Sources = append(result.Sources, &p)
		} else {
			result.Sources = append(result.Sources, nil)
		}
	}
	return result, nil
}

// ResolveCitations 把模型引用的doc{i}还原为标题。
// 对不上的id产出占位串而不是静默丢弃，让调用方能观察到引用错配。
func ResolveCitations(sourceIDs []string, idToTitle map[string]string) []string {
	titles := make([]string, 0, len(sourceIDs))
	for _, id := range sourceIDs {
		cleaned := strings.TrimSpace(id)
		if title, ok := idToTitle[cleaned]; ok {
			titles = append(titles, title)
		} else {
			titles = append(titles, fmt.Sprintf("Unknown document (%s)", cleaned))
		}
	}
	return titles
}
