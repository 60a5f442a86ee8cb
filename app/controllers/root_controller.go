package controllers

import (
	"net/http"

	"github.com/research-orbits/backend-go/internal/di"
	"github.com/research-orbits/backend-go/internal/llm"
	"github.com/research-orbits/backend-go/internal/similarity"
)

// RootController 根控制器
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{"message": "Research Orbits API is running..."})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
	engine   *similarity.Engine
	embedder llm.Embedder
}

// Prepare 从DI容器解析依赖
func (c *HealthController) Prepare() {
	if c.engine == nil {
		_ = di.Invoke(func(e *similarity.Engine, emb llm.Embedder) {
			c.engine = e
			c.embedder = emb
		})
	}
}

func (c *HealthController) Health() {
	count := 0
	model := ""
	if c.engine != nil {
		count = c.engine.Count()
	}
	if c.embedder != nil {
		model = c.embedder.Model()
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"count":  count,
		"model":  model,
		"features": []string{
			"topk",
			"matrix",
			"projection",
			"clusters",
			"semantic_gaps",
			"underexplored_clusters",
		},
	})
}
