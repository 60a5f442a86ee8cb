package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/research-orbits/backend-go/internal/di"
	"github.com/research-orbits/backend-go/internal/metrics"
	"github.com/research-orbits/backend-go/internal/similarity"
)

// ArticleController 文章语料控制器
type ArticleController struct {
	BaseController
	engine *similarity.Engine
}

type articleRequest struct {
	ID       string   `json:"id" validate:"required"`
	Title    string   `json:"title"`
	Abstract string   `json:"abstract" validate:"required"`
	Year     int      `json:"year"`
	Authors  []string `json:"authors"`
	Keywords []string `json:"keywords"`
}

func (r articleRequest) toArticle() similarity.Article {
	return similarity.Article{
		ID:       r.ID,
		Title:    r.Title,
		Abstract: r.Abstract,
		Year:     r.Year,
		Authors:  r.Authors,
		Keywords: r.Keywords,
	}
}

// Prepare 从DI容器解析相似度引擎
func (c *ArticleController) Prepare() {
	if c.engine == nil {
		_ = di.Invoke(func(e *similarity.Engine) {
			c.engine = e
		})
	}
}

// ensureEngine 依赖解析失败时返回500而不是空指针崩溃
func (c *ArticleController) ensureEngine() bool {
	if c.engine == nil {
		c.JSONError(http.StatusInternalServerError, "similarity engine not initialized")
		return false
	}
	return true
}

// Upsert 写入或更新单篇文章
func (c *ArticleController) Upsert() {
	if !c.ensureEngine() {
		return
	}

	var req articleRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSONError(http.StatusBadRequest, "id and abstract are required")
		return
	}

	c.engine.UpsertOne(req.toArticle())
	metrics.SimilarityArticles.Set(float64(c.engine.Count()))

	c.JSON(http.StatusOK, map[string]interface{}{
		"message": "upsert ok",
		"count":   c.engine.Count(),
	})
}

// UpsertMany 批量写入文章
func (c *ArticleController) UpsertMany() {
	if !c.ensureEngine() {
		return
	}

	var reqs []articleRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &reqs); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	items := make([]similarity.Article, 0, len(reqs))
	for _, req := range reqs {
		if err := validate.Struct(req); err != nil {
			c.JSONError(http.StatusBadRequest, "id and abstract are required")
			return
		}
		items = append(items, req.toArticle())
	}

	c.engine.UpsertMany(items)
	metrics.SimilarityArticles.Set(float64(c.engine.Count()))

	c.JSON(http.StatusOK, map[string]interface{}{
		"message": "upsert many ok",
		"count":   c.engine.Count(),
	})
}

// All 返回全部文章
func (c *ArticleController) All() {
	if !c.ensureEngine() {
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"items": c.engine.AllArticles(),
	})
}

// Get 按ID查询文章，不存在返回404
func (c *ArticleController) Get() {
	if !c.ensureEngine() {
		return
	}

	id := c.Ctx.Input.Param(":article_id")
	article, ok := c.engine.GetArticle(id)
	if !ok {
		c.JSONError(http.StatusNotFound, fmt.Sprintf("Article %s not found", id))
		return
	}
	c.JSON(http.StatusOK, article)
}

// Clear 清空文章语料
func (c *ArticleController) Clear() {
	if !c.ensureEngine() {
		return
	}

	c.engine.Clear()
	metrics.SimilarityArticles.Set(0)
	c.JSON(http.StatusOK, map[string]string{"message": "cleared"})
}
