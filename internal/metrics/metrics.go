// Package metrics держит Prometheus-метрики сервиса в отдельном реестре.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "invest_platform"

var (
	// Registry — реестр метрик приложения.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	// ApprovalsTotal — одобренные инвестиции по источнику плана.
	ApprovalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "investments",
			Name:      "approvals_total",
			Help:      "Approved investments by plan source.",
		},
		[]string{"source"},
	)

	// PlanFallbackTotal — одобрения по дефолтной ставке.
	PlanFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_fallback_total",
			Help:      "Approvals that used the fallback rate for an unrecognized plan.",
		},
	)

	accrualRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accrual",
			Name:      "runs_total",
			Help:      "Accrual runs by trigger.",
		},
		[]string{"trigger"},
	)

	accrualInvestments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accrual",
			Name:      "investments_total",
			Help:      "Investments touched by accrual runs, by outcome.",
		},
		[]string{"outcome"},
	)

	accrualDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "accrual",
			Name:      "run_duration_seconds",
			Help:      "Duration of accrual runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// SideEffectFailures — неудачные уведомления/письма/события, по каналу.
	SideEffectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "failures_total",
			Help:      "Best-effort side effects that failed, by channel.",
		},
		[]string{"channel"},
	)

	// LoginThrottled — отказы лимитера логина.
	LoginThrottled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_throttled_total",
			Help:      "Login attempts rejected by the limiter.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ApprovalsTotal,
		PlanFallbackTotal,
		accrualRuns,
		accrualInvestments,
		accrualDuration,
		SideEffectFailures,
		LoginThrottled,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдаёт метрики из Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware собирает HTTP-метрики. Путь берётся из шаблона роута gin,
// чтобы id в URL не раздували кардинальность.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveAccrualRun записывает итог прогона начисления.
func ObserveAccrualRun(trigger string, processed, updated, completed, expired, failed int, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	accrualRuns.WithLabelValues(trigger).Inc()
	accrualInvestments.WithLabelValues("processed").Add(float64(processed))
	accrualInvestments.WithLabelValues("updated").Add(float64(updated))
	accrualInvestments.WithLabelValues("completed").Add(float64(completed))
	accrualInvestments.WithLabelValues("expired").Add(float64(expired))
	accrualInvestments.WithLabelValues("failed").Add(float64(failed))
	accrualDuration.Observe(duration.Seconds())
}
