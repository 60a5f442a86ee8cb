package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	beecontext "github.com/beego/beego/v2/server/web/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, method, path string) (*beecontext.Context, *httptest.ResponseRecorder) {
	t.Helper()
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(method, path, nil)
	ctx := beecontext.NewContext()
	ctx.Reset(recorder, request)
	return ctx, recorder
}

// 容器未初始化时依赖解析失败，处理函数必须报500而不是崩溃
func TestHandlersWithoutEngineReturn500(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		run    func(ctx *beecontext.Context)
	}{
		{"article upsert", "POST", "/articles/upsert", func(ctx *beecontext.Context) {
			c := &ArticleController{}
			c.Init(ctx, "ArticleController", "Upsert", nil)
			c.Prepare()
			c.Upsert()
		}},
		{"article all", "GET", "/articles/all", func(ctx *beecontext.Context) {
			c := &ArticleController{}
			c.Init(ctx, "ArticleController", "All", nil)
			c.Prepare()
			c.All()
		}},
		{"article clear", "POST", "/clear", func(ctx *beecontext.Context) {
			c := &ArticleController{}
			c.Init(ctx, "ArticleController", "Clear", nil)
			c.Prepare()
			c.Clear()
		}},
		{"similarity topk text", "POST", "/similarity/topk_text", func(ctx *beecontext.Context) {
			c := &SimilarityController{}
			c.Init(ctx, "SimilarityController", "TopKByText", nil)
			c.Prepare()
			c.TopKByText()
		}},
		{"viz projection", "POST", "/viz/projection", func(ctx *beecontext.Context) {
			c := &VizController{}
			c.Init(ctx, "VizController", "Projection", nil)
			c.Prepare()
			c.Projection()
		}},
		{"analysis semantic gaps", "POST", "/analysis/semantic_gaps", func(ctx *beecontext.Context) {
			c := &AnalysisController{}
			c.Init(ctx, "AnalysisController", "SemanticGaps", nil)
			c.Prepare()
			c.SemanticGaps()
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, recorder := newTestContext(t, tc.method, tc.path)

			require.NotPanics(t, func() {
				tc.run(ctx)
			})

			assert.Equal(t, http.StatusInternalServerError, recorder.Code)
			assert.Contains(t, recorder.Body.String(), "similarity engine not initialized")
		})
	}
}
