package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatpulse"

// Metrics 进程级指标, 使用独立 registry 以便测试隔离
type Metrics struct {
	registry *prometheus.Registry

	ingested     prometheus.Counter
	rejected     *prometheus.CounterVec
	ingestFailed prometheus.Counter
	statsLatency *prometheus.HistogramVec
	panics       *prometheus.CounterVec
	startTime    time.Time
}

// NewMetrics 创建并注册全部指标
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_ingested_total",
			Help:      "Messages appended to the event store.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Inbound events not tracked, by reason.",
		}, []string{"reason"}),
		ingestFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_ingest_failed_total",
			Help:      "Accepted messages the store failed to append.",
		}),
		statsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stats_request_duration_seconds",
			Help:      "Time to build a stats report, by outcome.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"outcome"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovered_panics_total",
			Help:      "Panics recovered in handler goroutines.",
		}, []string{"goroutine"}),
	}

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Process uptime in seconds.",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})

	reg.MustRegister(
		m.ingested,
		m.rejected,
		m.ingestFailed,
		m.statsLatency,
		m.panics,
		uptime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// IncIngested 记录一条已写入的消息
func (m *Metrics) IncIngested() {
	m.ingested.Inc()
}

// IncRejected 记录一条被过滤的入站事件
func (m *Metrics) IncRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// IncIngestFailed 记录一次写入失败
func (m *Metrics) IncIngestFailed() {
	m.ingestFailed.Inc()
}

// ObserveStats 记录一次统计请求耗时, outcome 为 ok / empty / error
func (m *Metrics) ObserveStats(outcome string, d time.Duration) {
	m.statsLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncPanic 记录一次被恢复的 panic, 可直接作为 safego.PanicHook 使用
func (m *Metrics) IncPanic(name string, _ any) {
	m.panics.WithLabelValues(name).Inc()
}

// Handler serves the registry in Prometheus exposition format. Mount at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
