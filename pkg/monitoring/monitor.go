package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 业务指标
	AttemptsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_attempts_started_total",
			Help: "Number of assessment attempts started",
		},
		[]string{"assessment"},
	)

	AttemptsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_attempts_finalized_total",
			Help: "Number of graded assessment attempts",
		},
		[]string{"outcome", "reason"},
	)

	AttemptScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assessment_score_percent",
			Help:    "Distribution of assessment scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	LessonCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lesson_completions_total",
			Help: "Number of lessons marked complete",
		},
		[]string{"course"},
	)

	ActiveAttempts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assessment_attempts_active",
			Help: "Attempts currently in progress",
		},
	)

	MockLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mockapi_request_duration_seconds",
			Help:    "Simulated backend latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"method", "outcome"},
	)

	registerOnce sync.Once
)

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(AttemptsStarted)
		prometheus.MustRegister(AttemptsFinalized)
		prometheus.MustRegister(AttemptScore)
		prometheus.MustRegister(LessonCompletions)
		prometheus.MustRegister(ActiveAttempts)
		prometheus.MustRegister(MockLatency)
	})
}

// ObserveAttemptFinalized 记录一次判分结果
func ObserveAttemptFinalized(score int, passed bool, reason string) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	AttemptsFinalized.WithLabelValues(outcome, reason).Inc()
	AttemptScore.Observe(float64(score))
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
