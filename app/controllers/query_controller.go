package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/research-orbits/backend-go/internal/di"
	"github.com/research-orbits/backend-go/internal/kafka"
	"github.com/research-orbits/backend-go/internal/logger"
	"github.com/research-orbits/backend-go/internal/metrics"
	"github.com/research-orbits/backend-go/internal/rag"
)

// QueryController 问答控制器
type QueryController struct {
	BaseController
	engine *rag.Engine
}

type queryRequest struct {
	Question string `json:"question" validate:"required"`
}

// Prepare 从DI容器解析问答引擎
func (c *QueryController) Prepare() {
	if c.engine == nil {
		_ = di.Invoke(func(e *rag.Engine) {
			c.engine = e
		})
	}
}

// Ask 处理一次问答请求
func (c *QueryController) Ask() {
	if c.engine == nil {
		c.JSONError(http.StatusInternalServerError, "RAG engine not initialized")
		return
	}

	var req queryRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSONError(http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()
	result, err := c.engine.Ask(c.Ctx.Request.Context(), req.Question)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		logger.Error("查询处理失败", zap.String("question", req.Question), zap.Error(err))
		c.JSONAppError(err)
		return
	}

	elapsed := time.Since(start)
	metrics.QueriesTotal.WithLabelValues("ok").Inc()
	metrics.QueryDuration.Observe(elapsed.Seconds())

	if err := kafka.SendQueryEvent(req.Question, result.Answer, result.SourceTitles, elapsed); err != nil {
		logger.Warn("查询事件发送失败", zap.Error(err))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"ok":     true,
		"answer": result.Answer,
		"source": result.Sources,
	})
}
