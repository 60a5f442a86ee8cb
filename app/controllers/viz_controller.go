package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/research-orbits/backend-go/internal/di"
	"github.com/research-orbits/backend-go/internal/metrics"
	"github.com/research-orbits/backend-go/internal/similarity"
)

// VizController 可视化数据控制器
type VizController struct {
	BaseController
	engine *similarity.Engine
}

type projectionRequest struct {
	IDs         []string `json:"ids"`
	NComponents int      `json:"n_components"`
}

type clustersRequest struct {
	IDs []string `json:"ids"`
	K   int      `json:"k"`
}

// Prepare 从DI容器解析相似度引擎
func (c *VizController) Prepare() {
	if c.engine == nil {
		_ = di.Invoke(func(e *similarity.Engine) {
			c.engine = e
		})
	}
}

// ensureEngine 依赖解析失败时返回500而不是空指针崩溃
func (c *VizController) ensureEngine() bool {
	if c.engine == nil {
		c.JSONError(http.StatusInternalServerError, "similarity engine not initialized")
		return false
	}
	return true
}

// Projection 返回PCA二维投影散点
func (c *VizController) Projection() {
	if !c.ensureEngine() {
		return
	}

	var req projectionRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.NComponents <= 0 {
		req.NComponents = 2
	}

	result, err := c.engine.Projection(c.Ctx.Request.Context(), req.NComponents, req.IDs)
	if err != nil {
		metrics.SimilarityRequestsTotal.WithLabelValues("projection", "error").Inc()
		c.JSONAppError(err)
		return
	}

	metrics.SimilarityRequestsTotal.WithLabelValues("projection", "ok").Inc()
	c.JSON(http.StatusOK, result)
}

// Clusters 返回k-means聚类标签与簇规模
func (c *VizController) Clusters() {
	if !c.ensureEngine() {
		return
	}

	var req clustersRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.K <= 0 {
		req.K = 5
	}

	result, err := c.engine.Clusters(c.Ctx.Request.Context(), req.K, req.IDs)
	if err != nil {
		metrics.SimilarityRequestsTotal.WithLabelValues("clusters", "error").Inc()
		c.JSONAppError(err)
		return
	}

	metrics.SimilarityRequestsTotal.WithLabelValues("clusters", "ok").Inc()
	c.JSON(http.StatusOK, result)
}
