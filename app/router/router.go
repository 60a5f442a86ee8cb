package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/research-orbits/backend-go/app/controllers"
	"github.com/research-orbits/backend-go/app/middleware"
)

// Init registers all routes. Must be called after the DI container is ready.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	// 问答
	web.Router("/api/query", &controllers.QueryController{}, "post:Ask")

	// 文章语料
	articleController := &controllers.ArticleController{}
	web.Router("/articles/upsert", articleController, "post:Upsert")
	web.Router("/articles/upsert_many", articleController, "post:UpsertMany")
	// 注意：具体路由必须在参数路由之前，否则/all会被:article_id匹配
	web.Router("/articles/all", articleController, "get:All")
	web.Router("/articles/:article_id", articleController, "get:Get")
	web.Router("/clear", articleController, "post:Clear")

	// 相似度查询
	similarityController := &controllers.SimilarityController{}
	web.Router("/similarity/topk_text", similarityController, "post:TopKByText")
	web.Router("/similarity/topk_id", similarityController, "post:TopKByID")
	web.Router("/similarity/matrix", similarityController, "post:Matrix")

	// 可视化
	vizController := &controllers.VizController{}
	web.Router("/viz/projection", vizController, "post:Projection")
	web.Router("/viz/clusters", vizController, "post:Clusters")

	// 语料分析
	analysisController := &controllers.AnalysisController{}
	web.Router("/analysis/semantic_gaps", analysisController, "post:SemanticGaps")
	web.Router("/analysis/underexplored_clusters", analysisController, "post:Underexplored")

	// Prometheus指标
	web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")
}
