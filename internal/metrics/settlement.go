package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	settlementRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carenest",
		Subsystem: "settlement",
		Name:      "runs_total",
		Help:      "Settlement runs by trigger and final batch status.",
	}, []string{"trigger", "status"})

	settlementRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "carenest",
		Subsystem: "settlement",
		Name:      "run_duration_seconds",
		Help:      "Wall time of settlement runs.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"trigger"})

	settlementProviderResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carenest",
		Subsystem: "settlement",
		Name:      "provider_results_total",
		Help:      "Per-provider settlement outcomes.",
	}, []string{"status"})

	settlementSkippedPayments = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carenest",
		Subsystem: "settlement",
		Name:      "skipped_payments_total",
		Help:      "Completed payments that could not be attributed to a provider.",
	})

	salaryNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carenest",
		Subsystem: "settlement",
		Name:      "notifications_total",
		Help:      "Salary notifications by delivery status.",
	}, []string{"status"})
)

// ObserveSettlementRun 记录一次结算运行
func ObserveSettlementRun(trigger, status string, elapsed time.Duration) {
	settlementRuns.WithLabelValues(trigger, status).Inc()
	settlementRunDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
}

// IncProviderResult 记录单个服务者结算结果
func IncProviderResult(status string) {
	settlementProviderResults.WithLabelValues(status).Inc()
}

// AddSkippedPayments 记录无法归属的支付数量
func AddSkippedPayments(count int) {
	if count <= 0 {
		return
	}
	settlementSkippedPayments.Add(float64(count))
}

// IncNotification 记录薪资通知投递结果
func IncNotification(status string) {
	salaryNotifications.WithLabelValues(status).Inc()
}

// Handler 返回 Prometheus 指标暴露处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
