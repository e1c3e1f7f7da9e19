package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// apiMetrics holds the Prometheus collectors of the API server
// APIサーバーのPrometheusコレクターを保持
type apiMetrics struct {
	requestDuration *prometheus.HistogramVec
	operationTotal  *prometheus.CounterVec
}

// newAPIMetrics registers the API collectors on the default registry
// デフォルトレジストリにAPIコレクターを登録
func newAPIMetrics() *apiMetrics {
	return &apiMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "souko",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by method, path and status.",
		}, []string{"method", "path", "status"}),
		operationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "souko",
			Subsystem: "warehouse",
			Name:      "operations_total",
			Help:      "Warehouse operations by name and outcome.",
		}, []string{"operation", "outcome"}),
	}
}

// observeOperation counts one warehouse operation outcome
// 倉庫操作の結果を1件カウント
func (m *apiMetrics) observeOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operationTotal.WithLabelValues(operation, outcome).Inc()
}

// statusRecorder captures the response status for metrics
// メトリクス用にレスポンスステータスを記録
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records per-request duration metrics
// リクエストごとの処理時間メトリクスを記録するミドルウェア
func metricsMiddleware(m *apiMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			m.requestDuration.WithLabelValues(
				r.Method,
				r.URL.Path,
				strconv.Itoa(recorder.status),
			).Observe(time.Since(start).Seconds())
		})
	}
}
