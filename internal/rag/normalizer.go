package rag

import (
	"regexp"
	"strings"
)

var (
	blankRunPattern   = regexp.MustCompile(`\n{3,}`)
	hyphenBreak       = regexp.MustCompile(`(\w)-\n(\w)`)
	intraParagraph    = regexp.MustCompile(`([^\n])\n([^\n])`)
	whitespacePattern = regexp.MustCompile(`[ \t]{2,}`)
)

// NormalizeText 清洗抽取出的原始文本。
// 顺序：统一换行 -> 压缩空行 -> 去断词连字符 -> 段内换行转空格 ->
// 压缩空白 -> 去除重复行（页眉页脚）。
// 任何输入都不报错，畸形输入只是清洗得不彻底。
func NormalizeText(raw string) string {
	if raw == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = blankRunPattern.ReplaceAllString(text, "\n\n")

	// word-\nword -> wordword
	text = hyphenBreak.ReplaceAllString(text, "$1$2")

	// 单独的换行视为段内换行，两侧都不挨着其他换行才合并。
	// 正则不处理重叠匹配（a\nb\nc），迭代到收敛为止。
	for {
		joined := intraParagraph.ReplaceAllString(text, "$1 $2")
		if joined == text {
			break
		}
		text = joined
	}

	text = whitespacePattern.ReplaceAllString(text, " ")

	return dedupeLines(text)
}

// dedupeLines 去除文档内逐字重复的行，保留首次出现的顺序
func dedupeLines(text string) string {
	lines := strings.Split(text, "\n")
	seen := make(map[string]bool, len(lines))
	cleaned := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && seen[trimmed] {
			continue
		}
		if trimmed != "" {
			seen[trimmed] = true
		}
		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
