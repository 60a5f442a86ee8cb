package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 问答与相似度接口的Prometheus指标
var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_queries_total",
		Help: "Total number of RAG queries processed",
	}, []string{"status"})

	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rag_query_duration_seconds",
		Help:    "End to end RAG query latency",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	RetrievedChunks = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rag_retrieved_chunks",
		Help:    "Number of fused candidates per query",
		Buckets: prometheus.LinearBuckets(0, 5, 10),
	})

	IngestedDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rag_ingested_documents",
		Help: "Number of documents in the current corpus",
	})

	IngestedChunks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rag_ingested_chunks",
		Help: "Number of chunks in the current corpus",
	})

	SimilarityRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "similarity_requests_total",
		Help: "Total number of similarity engine requests",
	}, []string{"operation", "status"})

	SimilarityArticles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "similarity_articles",
		Help: "Number of articles held by the similarity engine",
	})

	IndexRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "similarity_index_rebuilds_total",
		Help: "Number of full similarity index rebuilds",
	})
)
