package rag

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const snapshotFile = "dense_index.gob"

// denseEntry 切片与其向量成对存储，避免两个数组错位
type denseEntry struct {
	Chunk  Chunk
	Vector []float32
}

// denseSnapshot 落盘格式
type denseSnapshot struct {
	Model   string
	Entries []denseEntry
}

// MemoryDenseIndex 进程内精确近邻索引，L2距离，支持gob快照。
type MemoryDenseIndex struct {
	mu      sync.RWMutex
	model   string
	entries []denseEntry
}

// NewMemoryDenseIndex 创建内存向量索引。model用于校验快照与当前嵌入模型一致。
func NewMemoryDenseIndex(model string) *MemoryDenseIndex {
	return &MemoryDenseIndex{model: model}
}

func (d *MemoryDenseIndex) Add(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range chunks {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		d.entries = append(d.entries, denseEntry{Chunk: chunks[i], Vector: vec})
	}
	return nil
}

func (d *MemoryDenseIndex) Search(ctx context.Context, vector []float32, k int) ([]Candidate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.entries) == 0 || k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	type scored struct {
		idx  int
		dist float64
	}
	scores := make([]scored, 0, len(d.entries))
	for i, entry := range d.entries {
		scores = append(scores, scored{idx: i, dist: l2Distance(vector, entry.Vector)})
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].dist < scores[b].dist
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]Candidate, 0, k)
	for _, s := range scores[:k] {
		results = append(results, Candidate{Chunk: d.entries[s.idx].Chunk, Score: s.dist})
	}
	return results, nil
}

func (d *MemoryDenseIndex) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

func (d *MemoryDenseIndex) Ready() bool {
	return d.Len() > 0
}

// Save 写入快照目录
func (d *MemoryDenseIndex) Save(path string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("创建快照目录失败: %w", err)
	}

	f, err := os.Create(filepath.Join(path, snapshotFile))
	if err != nil {
		return fmt.Errorf("创建快照文件失败: %w", err)
	}
	defer f.Close()

	snap := denseSnapshot{Model: d.model, Entries: d.entries}
	if err := gob.NewEncoder(f).Encode(&snap); err != nil {
		return fmt.Errorf("编码快照失败: %w", err)
	}
	return nil
}

// Load 从快照目录恢复。模型不匹配视为加载失败，由调用方重建。
func (d *MemoryDenseIndex) Load(path string) error {
	f, err := os.Open(filepath.Join(path, snapshotFile))
	if err != nil {
		return err
	}
	defer f.Close()

	var snap denseSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("解码快照失败: %w", err)
	}
	if snap.Model != d.model {
		return fmt.Errorf("快照模型不匹配: snapshot=%s current=%s", snap.Model, d.model)
	}

	d.mu.Lock()
	d.entries = snap.Entries
	d.mu.Unlock()
	return nil
}

func l2Distance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
