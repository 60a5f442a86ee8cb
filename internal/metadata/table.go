package metadata

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/research-orbits/backend-go/internal/logger"
	"go.uber.org/zap"
)

// NotAvailable 缺失字段的占位值
const NotAvailable = "N/A"

// Publication 论文出版信息
type Publication struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Journal  string `json:"journal"`
	Year     string `json:"year"`
	Authors  string `json:"authors"`
	Keywords string `json:"keywords"`
	TLDR     string `json:"tldr"`
	DOI      string `json:"doi"`
}

// Table 论文元数据表，按标题查询
type Table struct {
	rows []Publication
}

// LoadTable 从CSV加载元数据表。文件缺失时返回空表（降级而不失败）。
func LoadTable(path string) *Table {
	t := &Table{}
	if path == "" {
		return t
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("publication metadata unavailable",
			zap.String("path", path),
			zap.Error(err))
		return t
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil || len(records) == 0 {
		logger.Warn("publication metadata parse failed",
			zap.String("path", path),
			zap.Error(err))
		return t
	}

	// 首行为表头，按列名定位
	header := records[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return NotAvailable
		}
		v := strings.TrimSpace(row[idx])
		if v == "" {
			return NotAvailable
		}
		return v
	}

	for _, row := range records[1:] {
		t.rows = append(t.rows, Publication{
			Title:    field(row, "Title"),
			Link:     field(row, "Link"),
			Journal:  field(row, "Journal Title"),
			Year:     field(row, "Publication Year"),
			Authors:  field(row, "Authors"),
			Keywords: field(row, "Keywords"),
			TLDR:     field(row, "TLDR Summary"),
			DOI:      field(row, "DOI"),
		})
	}

	logger.Info("publication metadata loaded",
		zap.String("path", path),
		zap.Int("rows", len(t.rows)))
	return t
}

// NewTable 从已有条目构造（测试用）
func NewTable(rows []Publication) *Table {
	return &Table{rows: rows}
}

// Size 返回表条目数
func (t *Table) Size() int {
	return len(t.rows)
}

// Lookup 按标题查询：精确 -> 不区分大小写 -> 包含，取第一个命中。
func (t *Table) Lookup(title string) (Publication, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Publication{}, false
	}

	for _, row := range t.rows {
		if row.Title == title {
			return row, true
		}
	}

	lower := strings.ToLower(title)
	for _, row := range t.rows {
		if strings.ToLower(row.Title) == lower {
			return row, true
		}
	}

	for _, row := range t.rows {
		if strings.Contains(strings.ToLower(row.Title), lower) {
			return row, true
		}
	}

	return Publication{}, false
}
