package rag

import (
	"fmt"
	"strings"
)

// AssembledContext 拼好的上下文与id->title映射。
// doc{i}编号每次查询重新分配，不跨请求稳定，不可持久化。
type AssembledContext struct {
	Text     string
	IDToTitle map[string]string
}

// AssembleContext 给每个切片分配临时编号doc{i}并拼接上下文块。
// 映射是答案生成器把模型引用还原为真实来源的唯一通道，每次查询必须重建。
func AssembleContext(chunks []Chunk) AssembledContext {
	var b strings.Builder
	idToTitle := make(map[string]string, len(chunks))

	for i, chunk := range chunks {
		docID := fmt.Sprintf("doc%d", i)
		title := chunk.Title
		if title == "" {
			title = chunk.Source
		}
		idToTitle[docID] = title
		fmt.Fprintf(&b, "[id: %s | title: %s]\n%s\n\n", docID, title, chunk.Content)
	}

	return AssembledContext{Text: b.String(), IDToTitle: idToTitle}
}
