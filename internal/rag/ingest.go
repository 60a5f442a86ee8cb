package rag

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/research-orbits/backend-go/internal/logger"
	"go.uber.org/zap"
)

// Ingestor 把语料源的文件变成清洗后的切片集
type Ingestor struct {
	source  CorpusSource
	parsers *FileParserManager
	chunker *Chunker
}

// NewIngestor 创建摄取器
func NewIngestor(source CorpusSource, parsers *FileParserManager, chunker *Chunker) *Ingestor {
	return &Ingestor{
		source:  source,
		parsers: parsers,
		chunker: chunker,
	}
}

// Ingest 遍历语料源：解析 -> 清洗 -> 切分。
// 单个文件解析失败只跳过该文件，不中断整个摄取。
func (ing *Ingestor) Ingest(ctx context.Context) ([]Document, []Chunk, error) {
	names, err := ing.source.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	var documents []Document
	var allChunks []Chunk

	for _, name := range names {
		if !ing.parsers.Supports(name) {
			continue
		}

		reader, err := ing.source.Open(ctx, name)
		if err != nil {
			logger.Warn("open corpus file failed, skipping",
				zap.String("file", name), zap.Error(err))
			continue
		}

		pages, err := ing.parsers.ParseFile(reader, name)
		reader.Close()
		if err != nil {
			logger.Warn("parse corpus file failed, skipping",
				zap.String("file", name), zap.Error(err))
			continue
		}

		title := strings.TrimSuffix(name, filepath.Ext(name))
		doc := Document{
			Title:      title,
			Source:     name,
			PageTexts:  pages,
			TotalPages: len(pages),
		}
		documents = append(documents, doc)

		cleaned := NormalizeText(strings.Join(pages, "\n"))
		pieces := ing.chunker.Split(cleaned)

		for i, piece := range pieces {
			allChunks = append(allChunks, Chunk{
				Source:      name,
				Title:       title,
				ChunkIndex:  i,
				TotalChunks: len(pieces),
				TotalPages:  len(pages),
				Content:     piece,
			})
		}

		logger.Info("document ingested",
			zap.String("file", name),
			zap.Int("pages", len(pages)),
			zap.Int("chunks", len(pieces)))
	}

	logger.Info("corpus ingestion complete",
		zap.Int("documents", len(documents)),
		zap.Int("chunks", len(allChunks)))
	return documents, allChunks, nil
}
