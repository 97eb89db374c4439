// metrics.go — Prometheus HTTP метрики Photo Server.
// Регистрирует метрики: ps_http_requests_total, ps_http_request_duration_seconds.
// Бизнес-метрики (ps_uploads_total, ps_reconcile_runs_total и др.)
// регистрируются в сервисном слое.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ps_http_requests_total",
			Help: "Общее количество HTTP-запросов к Photo Server",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ps_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Photo Server в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (имена файлов и папок заменяются на плейсхолдеры,
			// иначе кардинальность растёт с каждым файлом)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет переменные сегменты пути на плейсхолдеры.
// /photos/alice/cat.jpg → /photos/{folder}/{filename}
// /uploads/alice/thumbnails/cat.jpg → /uploads/{folder}/thumbnails/{filename}
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/photos/") && path != "/photos/delete-multiple":
		rest := strings.TrimPrefix(path, "/photos/")
		if strings.HasSuffix(rest, "/favorite") {
			return "/photos/{folder}/{filename}/favorite"
		}
		if strings.Count(rest, "/") == 1 {
			return "/photos/{folder}/{filename}"
		}
	case strings.HasPrefix(path, "/uploads/"):
		rest := strings.TrimPrefix(path, "/uploads/")
		if strings.Contains(rest, "/thumbnails/") {
			return "/uploads/{folder}/thumbnails/{filename}"
		}
		if strings.Count(rest, "/") == 1 {
			return "/uploads/{folder}/{filename}"
		}
	}
	return path
}
