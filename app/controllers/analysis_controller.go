package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/research-orbits/backend-go/internal/di"
	"github.com/research-orbits/backend-go/internal/metrics"
	"github.com/research-orbits/backend-go/internal/similarity"
)

// AnalysisController 语料分析控制器
type AnalysisController struct {
	BaseController
	engine *similarity.Engine
}

type semanticGapsRequest struct {
	GridSize  int     `json:"grid_size"`
	Threshold float64 `json:"threshold"`
}

type underexploredRequest struct {
	NClusters        int     `json:"n_clusters"`
	MinSizeThreshold float64 `json:"min_size_threshold"`
}

// Prepare 从DI容器解析相似度引擎
func (c *AnalysisController) Prepare() {
	if c.engine == nil {
		_ = di.Invoke(func(e *similarity.Engine) {
			c.engine = e
		})
	}
}

// ensureEngine 依赖解析失败时返回500而不是空指针崩溃
func (c *AnalysisController) ensureEngine() bool {
	if c.engine == nil {
		c.JSONError(http.StatusInternalServerError, "similarity engine not initialized")
		return false
	}
	return true
}

// SemanticGaps 返回语义空间中的低密度区域
func (c *AnalysisController) SemanticGaps() {
	if !c.ensureEngine() {
		return
	}

	var req semanticGapsRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.GridSize <= 0 {
		req.GridSize = 20
	}
	if req.Threshold <= 0 {
		req.Threshold = 0.05
	}

	gaps, err := c.engine.FindSemanticGaps(c.Ctx.Request.Context(), req.GridSize, req.Threshold)
	if err != nil {
		metrics.SimilarityRequestsTotal.WithLabelValues("semantic_gaps", "error").Inc()
		c.JSONAppError(err)
		return
	}

	metrics.SimilarityRequestsTotal.WithLabelValues("semantic_gaps", "ok").Inc()
	c.JSON(http.StatusOK, map[string]interface{}{
		"gaps":        gaps,
		"total_found": len(gaps),
		"description": "Semantic gaps represent unexplored areas between existing topics",
	})
}

// Underexplored 返回规模偏小的研究主题簇
func (c *AnalysisController) Underexplored() {
	if !c.ensureEngine() {
		return
	}

	var req underexploredRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.NClusters <= 0 {
		req.NClusters = 15
	}
	if req.MinSizeThreshold <= 0 {
		req.MinSizeThreshold = 0.05
	}

	clusters, err := c.engine.UnderexploredClusters(c.Ctx.Request.Context(), req.NClusters, req.MinSizeThreshold)
	if err != nil {
		metrics.SimilarityRequestsTotal.WithLabelValues("underexplored_clusters", "error").Inc()
		c.JSONAppError(err)
		return
	}

	metrics.SimilarityRequestsTotal.WithLabelValues("underexplored_clusters", "ok").Inc()
	c.JSON(http.StatusOK, map[string]interface{}{
		"underexplored": clusters,
		"total_found":   len(clusters),
		"description":   "Underexplored clusters are existing topics with few papers",
	})
}
