// Package metrics provides Prometheus metrics for the arbitrage engine
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 引擎运行指标集合
type Metrics struct {
	OrdersSent        prometheus.Counter
	OrdersRejected    prometheus.Counter
	Cancels           prometheus.Counter
	AdmissionsDropped prometheus.Counter
	Score             prometheus.Gauge
	QueueDepth        prometheus.Gauge
}

// New 注册并返回指标集合；reg 为 nil 时使用默认 registry
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		OrdersSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "arb_orders_sent_total",
			Help: "Orders transmitted to the venue",
		}),
		OrdersRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "arb_orders_rejected_total",
			Help: "Orders rejected by the venue",
		}),
		Cancels: factory.NewCounter(prometheus.CounterOpts{
			Name: "arb_cancels_total",
			Help: "Cancellations transmitted to the venue",
		}),
		AdmissionsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "arb_admissions_dropped_total",
			Help: "Orders dropped by local admission control",
		}),
		Score: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arb_performance_score",
			Help: "Current mean-variance performance score",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arb_dispatch_queue_depth",
			Help: "Orders waiting in the dispatch queues",
		}),
	}
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
