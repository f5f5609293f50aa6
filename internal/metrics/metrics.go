// Package metrics 定义服务暴露给 Prometheus 的指标。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 汇总 HTTP 与检查任务相关的指标。所有方法都允许在 nil 接收者上调用。
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	claimsTotal     *prometheus.CounterVec
	claimedImages   prometheus.Counter
	abandonedTasks  prometheus.Counter
	releasedImages  prometheus.Counter
	reconciledTasks prometheus.Counter
	completedTasks  prometheus.Counter
}

// New 创建指标并注册到 registry。
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// result: ok, no_match, error
	m.claimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_task_claims_total",
			Help: "Total number of check task claim attempts",
		},
		[]string{"result"},
	)
	m.claimedImages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "check_task_claimed_images_total",
		Help: "Total number of images assigned to check tasks",
	})
	m.abandonedTasks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "check_task_abandoned_total",
		Help: "Total number of abandoned check tasks",
	})
	m.releasedImages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "check_task_released_images_total",
		Help: "Total number of images released by abandoned check tasks",
	})
	m.reconciledTasks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "check_task_reconciled_total",
		Help: "Total number of check task rows recomputed from image state",
	})
	m.completedTasks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "check_task_completed_seen_total",
		Help: "Total number of completed check tasks returned by list requests",
	})

	collectors := []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.claimsTotal,
		m.claimedImages,
		m.abandonedTasks,
		m.releasedImages,
		m.reconciledTasks,
		m.completedTasks,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry 返回指标所在的 registry，供 /metrics 端点使用。
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest path 应当是路由模板（如 /api/v1/check-tasks/:taskId），避免标签基数膨胀。
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordClaim(result string, assigned int) {
	if m == nil {
		return
	}
	m.claimsTotal.WithLabelValues(result).Inc()
	if assigned > 0 {
		m.claimedImages.Add(float64(assigned))
	}
}

func (m *Metrics) RecordAbandon(released int64) {
	if m == nil {
		return
	}
	m.abandonedTasks.Inc()
	m.releasedImages.Add(float64(released))
}

func (m *Metrics) RecordReconcile(tasks, completed int) {
	if m == nil {
		return
	}
	m.reconciledTasks.Add(float64(tasks))
	m.completedTasks.Add(float64(completed))
}
