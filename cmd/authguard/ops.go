package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/authguard/internal/storage"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const pingTimeout = 2 * time.Second

// newOpsMux - служебный HTTP: /livez, /healthz (ready + ping бэкендов) и /metrics.
func newOpsMux(ready *atomic.Bool, gatherer prometheus.Gatherer, log *slog.Logger, backends map[string]storage.Pinger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		for name, p := range backends {
			if err := p.Ping(ctx); err != nil {
				log.Warn("healthz_ping_failed", slog.String("backend", name), slog.String("err", err.Error()))
				http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

// startSpentJanitor периодически удаляет записи об использованных
// refresh-токенах, срок которых уже истёк.
func startSpentJanitor(ctx context.Context, sweeper storage.SpentSweeper, log *slog.Logger, period time.Duration) {
	if sweeper == nil || period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				sweepSpent(ctx, sweeper, log, time.Now().UTC())
			}
		}
	}()
}

func sweepSpent(ctx context.Context, sweeper storage.SpentSweeper, log *slog.Logger, now time.Time) {
	n, err := sweeper.DeleteExpiredSpent(ctx, now)
	if err != nil {
		log.Error("spent_janitor_failed", slog.String("err", err.Error()))
		return
	}

	if n > 0 {
		log.Info("spent_janitor_swept", slog.Int64("deleted", n))
	}
}
