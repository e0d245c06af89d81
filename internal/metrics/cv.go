package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cvGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cv",
			Name:      "generation_duration_seconds",
			Help:      "简历 PDF 生成耗时（秒），包含内容获取。",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"outcome"},
	)

	cvPages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cv",
			Name:      "pages",
			Help:      "生成的简历页数。",
			Buckets:   []float64{1, 2, 3, 4, 6, 8},
		},
	)

	cvFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cv",
			Name:      "fallback_total",
			Help:      "内容查询回退到静态数据的次数。",
		},
		[]string{"source"},
	)

	cvRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cv",
			Name:      "rate_limited_total",
			Help:      "因限流被拒绝的简历请求数。",
		},
	)
)

// ObserveCVGeneration records one generate call. outcome is "ok" or "error".
func ObserveCVGeneration(outcome string, seconds float64, pages int) {
	cvGenerationDuration.WithLabelValues(outcome).Observe(seconds)
	if pages > 0 {
		cvPages.Observe(float64(pages))
	}
}

// CVFallback 统计一次内容回退，source 为 projects / experience / skills / settings / phones。
func CVFallback(source string) {
	cvFallbackTotal.WithLabelValues(source).Inc()
}

func CVRateLimited() {
	cvRateLimitedTotal.Inc()
}
