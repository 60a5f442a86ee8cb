package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/research-orbits/backend-go/internal/di"
	"github.com/research-orbits/backend-go/internal/metrics"
	"github.com/research-orbits/backend-go/internal/similarity"
)

// SimilarityController 相似度查询控制器
type SimilarityController struct {
	BaseController
	engine *similarity.Engine
}

type topKTextRequest struct {
	Text string `json:"text" validate:"required"`
	K    int    `json:"k"`
}

type topKIDRequest struct {
	ID string `json:"id" validate:"required"`
	K  int    `json:"k"`
}

type matrixRequest struct {
	IDs []string `json:"ids"`
}

// Prepare 从DI容器解析相似度引擎
func (c *SimilarityController) Prepare() {
	if c.engine == nil {
		_ = di.Invoke(func(e *similarity.Engine) {
			c.engine = e
		})
	}
}

// ensureEngine 依赖解析失败时返回500而不是空指针崩溃
func (c *SimilarityController) ensureEngine() bool {
	if c.engine == nil {
		c.JSONError(http.StatusInternalServerError, "similarity engine not initialized")
		return false
	}
	return true
}

// TopKByText 按自由文本找近邻
func (c *SimilarityController) TopKByText() {
	if !c.ensureEngine() {
		return
	}

	var req topKTextRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSONError(http.StatusBadRequest, "text is required")
		return
	}

	results, err := c.engine.TopKByText(c.Ctx.Request.Context(), req.Text, req.K)
	if err != nil {
		metrics.SimilarityRequestsTotal.WithLabelValues("topk_text", "error").Inc()
		c.JSONAppError(err)
		return
	}

	metrics.SimilarityRequestsTotal.WithLabelValues("topk_text", "ok").Inc()
	c.JSON(http.StatusOK, map[string]interface{}{"results": results})
}

// TopKByID 按已有文章ID找近邻（排除自身）
func (c *SimilarityController) TopKByID() {
	if !c.ensureEngine() {
		return
	}

	var req topKIDRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSONError(http.StatusBadRequest, "id is required")
		return
	}

	results, err := c.engine.TopKByID(c.Ctx.Request.Context(), req.ID, req.K)
	if err != nil {
		metrics.SimilarityRequestsTotal.WithLabelValues("topk_id", "error").Inc()
		c.JSONAppError(err)
		return
	}

	metrics.SimilarityRequestsTotal.WithLabelValues("topk_id", "ok").Inc()
	c.JSON(http.StatusOK, map[string]interface{}{"results": results})
}

// Matrix 两两相似度矩阵，ids为空时覆盖全部文章
func (c *SimilarityController) Matrix() {
	if !c.ensureEngine() {
		return
	}

	var req matrixRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	result, err := c.engine.SimilarityMatrix(c.Ctx.Request.Context(), req.IDs)
	if err != nil {
		metrics.SimilarityRequestsTotal.WithLabelValues("matrix", "error").Inc()
		c.JSONAppError(err)
		return
	}

	metrics.SimilarityRequestsTotal.WithLabelValues("matrix", "ok").Inc()
	c.JSON(http.StatusOK, result)
}
