package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	classesGenerated prometheus.Counter
	remindersSent    prometheus.Counter
	hoursDeducted    prometheus.Counter
	alertsRaised     *prometheus.CounterVec
	notifications    *prometheus.CounterVec
}

// NewMetricsService registers the HTTP and domain collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	classesGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classes_generated_total",
		Help: "Class instances created by the generator",
	})

	remindersSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "class_reminders_sent_total",
		Help: "Reminders dispatched to students",
	})

	hoursDeducted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "student_hours_deducted_total",
		Help: "Hours deducted from student balances",
	})

	alertsRaised := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_raised_total",
		Help: "Alerts created by services and sweeps",
	}, []string{"type"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_enqueued_total",
		Help: "Messages handed to the delivery outbox",
	}, []string{"channel"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, classesGenerated, remindersSent, hoursDeducted, alertsRaised, notifications, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		classesGenerated: classesGenerated,
		remindersSent:    remindersSent,
		hoursDeducted:    hoursDeducted,
		alertsRaised:     alertsRaised,
		notifications:    notifications,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one handled request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// AddClassesGenerated counts generator output.
func (m *MetricsService) AddClassesGenerated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.classesGenerated.Add(float64(n))
}

// AddRemindersSent counts dispatched reminders.
func (m *MetricsService) AddRemindersSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.remindersSent.Add(float64(n))
}

// AddHoursDeducted counts hours removed from balances.
func (m *MetricsService) AddHoursDeducted(hours float64) {
	if m == nil || hours <= 0 {
		return
	}
	m.hoursDeducted.Add(hours)
}

// IncAlert counts one raised alert of the given type.
func (m *MetricsService) IncAlert(alertType string) {
	if m == nil {
		return
	}
	m.alertsRaised.WithLabelValues(alertType).Inc()
}

// IncNotification counts one enqueued outbox message.
func (m *MetricsService) IncNotification(channel string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel).Inc()
}
