package rag

import (
	"context"

	"github.com/research-orbits/backend-go/internal/errors"
	"github.com/research-orbits/backend-go/internal/llm"
	"github.com/research-orbits/backend-go/internal/logger"
	"github.com/research-orbits/backend-go/internal/metrics"
	"go.uber.org/zap"
)

// Engine RAG问答主流程：
// HyDE扩展 -> 混合检索 -> 重排 -> 上下文组装 -> 生成带引用的答案。
// 显式构造、由宿主进程持有并注入，不做隐式全局单例。
type Engine struct {
	hyde     *HydeExpander
	fuser    *HybridFuser
	reranker Reranker
	fallback Reranker
	answerer *AnswerGenerator
	topK     int
}

// NewEngine 创建问答引擎。reranker为主重排器，
// 不可用时退化到fallback（向量余弦）。
func NewEngine(hyde *HydeExpander, fuser *HybridFuser, reranker, fallback Reranker, answerer *AnswerGenerator, topK int) *Engine {
	if topK <= 0 {
		topK = 7
	}
	return &Engine{
		hyde:     hyde,
		fuser:    fuser,
		reranker: reranker,
		fallback: fallback,
		answerer: answerer,
		topK:     topK,
	}
}

// Ask 处理一个问题，返回答案与来源
func (e *Engine) Ask(ctx context.Context, question string) (AnswerResult, error) {
	// HyDE短文只用于稠密检索，稀疏检索保持原问题
	hydePassage := e.hyde.Expand(ctx, question)

	candidates, err := e.fuser.Retrieve(ctx, question, hydePassage)
	if err != nil {
		return AnswerResult{}, errors.NewExternalService("retrieval failed", err)
	}
	metrics.RetrievedChunks.Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		return AnswerResult{Answer: "", SourceTitles: []string{}}, nil
	}

	// 重排用原问题，不用HyDE短文
	reranked, err := e.rerank(ctx, question, candidates)
	if err != nil {
		return AnswerResult{}, errors.NewExternalService("rerank failed", err)
	}

	chunks := make([]Chunk, len(reranked))
	for i, cand := range reranked {
		chunks[i] = cand.Chunk
	}

	result, err := e.answerer.Answer(ctx, question, chunks)
	if err != nil {
		return AnswerResult{}, errors.NewExternalService("answer generation failed", err)
	}
	return result, nil
}

func (e *Engine) rerank(ctx context.Context, question string, candidates []Candidate) ([]Candidate, error) {
	if e.reranker != nil && e.reranker.Ready() {
		reranked, err := e.reranker.Rerank(ctx, question, candidates, e.topK)
		if err == nil {
			return reranked, nil
		}
		logger.Warn("primary reranker failed, falling back to embedding cosine",
			zap.Error(err))
	}
	return e.fallback.Rerank(ctx, question, candidates, e.topK)
}

// BuildIndexes 摄取语料并构建两路索引。
// 稠密索引支持快照时优先加载，加载失败再全量重建并落盘——
// 避免网络向量化的重复开销。
func BuildIndexes(ctx context.Context, ingestor *Ingestor, sparse SparseIndex, dense DenseIndex, embedder llm.Embedder, snapshotPath string) ([]Chunk, error) {
	_, chunks, err := ingestor.Ingest(ctx)
	if err != nil {
		return nil, err
	}

	if err := sparse.Index(ctx, chunks); err != nil {
		return nil, err
	}

	if snap, ok := dense.(Snapshotter); ok && snapshotPath != "" {
		if err := snap.Load(snapshotPath); err == nil {
			logger.Info("dense index snapshot loaded",
				zap.String("path", snapshotPath),
				zap.Int("entries", dense.Len()))
			return chunks, nil
		} else {
			logger.Warn("dense index snapshot unavailable, rebuilding",
				zap.String("path", snapshotPath),
				zap.Error(err))
		}
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}
		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if err := dense.Add(ctx, chunks, vectors); err != nil {
			return nil, err
		}
	}

	if snap, ok := dense.(Snapshotter); ok && snapshotPath != "" {
		if err := snap.Save(snapshotPath); err != nil {
			logger.Warn("dense index snapshot save failed",
				zap.String("path", snapshotPath),
				zap.Error(err))
		}
	}
	return chunks, nil
}
