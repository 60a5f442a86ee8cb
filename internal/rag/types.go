package rag

// Document 已摄取的源文件，摄取后不可变
type Document struct {
	Title      string   `json:"title"`
	Source     string   `json:"source"`
	PageTexts  []string `json:"page_texts"`
	TotalPages int      `json:"total_pages"`
}

// Chunk 文档切片，(Source, ChunkIndex)为全局唯一键
type Chunk struct {
	Source      string `json:"source"`
	Title       string `json:"title"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	TotalPages  int    `json:"total_pages"`
	Content     string `json:"content"`
}

// Key 返回切片的唯一标识
func (c Chunk) Key() ChunkKey {
	return ChunkKey{Source: c.Source, ChunkIndex: c.ChunkIndex}
}

// ChunkKey 切片唯一键
type ChunkKey struct {
	Source     string
	ChunkIndex int
}

// Candidate 带分数的检索结果。不同阶段的分数语义不同
// （稠密相似度、稀疏排名分、融合加权分、重排相关度），不可跨阶段比较。
type Candidate struct {
	Chunk Chunk
	Score float64
}
