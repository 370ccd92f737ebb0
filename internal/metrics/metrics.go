// Package metrics - Prometheus-метрики authguard: исходы авторизации,
// обновлений сессии и HTTP-запросов.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Исходы решений авторизации (значение метки outcome).
const (
	OutcomeAllow         = "allow"
	OutcomeMissing       = "missing_credential"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeForbidden     = "forbidden"
	OutcomeNotFound      = "not_found"
	OutcomeReplay        = "replay"
	OutcomeStoreFailures = "store_failure"
)

// Metrics объединяет коллекторы сервиса. Методы безопасны на nil-получателе,
// поэтому компоненты могут работать без метрик (например, в тестах).
type Metrics struct {
	decisions      *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	lookupRetries  prometheus.Counter
	httpInFlight   prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDurationsS *prometheus.HistogramVec
}

// New создаёт и регистрирует коллекторы в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authguard",
			Name:      "authorization_decisions_total",
			Help:      "Authorization decisions by surface and outcome.",
		}, []string{"surface", "outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authguard",
			Name:      "session_refreshes_total",
			Help:      "Refresh attempts by outcome.",
		}, []string{"outcome"}),
		lookupRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authguard",
			Name:      "principal_lookup_retries_total",
			Help:      "Retried principal lookups after transient store errors.",
		}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "authguard",
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authguard",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDurationsS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "authguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.decisions, m.refreshes, m.lookupRetries, m.httpInFlight, m.httpRequests, m.httpDurationsS)

	return m
}

// Decision учитывает исход авторизации; surface - "http", "grpc" или "ownership".
func (m *Metrics) Decision(surface, outcome string) {
	if m == nil {
		return
	}

	m.decisions.WithLabelValues(surface, outcome).Inc()
}

// Refresh учитывает исход обновления пары токенов.
func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}

	m.refreshes.WithLabelValues(outcome).Inc()
}

// LookupRetry учитывает повтор поиска принципала.
func (m *Metrics) LookupRetry() {
	if m == nil {
		return
	}

	m.lookupRetries.Inc()
}

// Instrument измеряет RPS/latency/в полёте. Метка route - шаблон маршрута chi,
// а не сырой путь, чтобы id ресурсов не раздували кардинальность.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}

		status := strconv.Itoa(sw.code)
		m.httpDurationsS.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
