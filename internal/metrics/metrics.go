// Package metrics содержит Prometheus-инструментирование бэкенда:
// счётчики доменных событий, гистограмму длительности sweep и gauge
// активных live-подключений.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// NotificationsCreated считает записанные уведомления по каналу
	// доставки: "private" или "admin_broadcast".
	NotificationsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recorever_notifications_created_total",
		Help: "Total number of persisted notifications",
	}, []string{"channel"})

	// LivePushFailures считает неудачные live-доставки (мёртвые подключения).
	LivePushFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recorever_live_push_failures_total",
		Help: "Total number of failed live notification deliveries",
	})

	// MatchesCreated считает созданные сопоставления по уровню уверенности:
	// "high", "medium", "low".
	MatchesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recorever_matches_created_total",
		Help: "Total number of matches created",
	}, []string{"confidence"})

	// ClaimsResolved считает решения по заявлениям: "approved", "rejected",
	// "auto_rejected".
	ClaimsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recorever_claims_resolved_total",
		Help: "Total number of resolved claims",
	}, []string{"outcome"})

	// SweepDuration длительность одного прохода планировщика.
	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recorever_sweep_duration_seconds",
		Help:    "Duration of a single expiration sweep",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	// SweepDeletes считает мягко удалённые планировщиком заявки.
	SweepDeletes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recorever_sweep_deletes_total",
		Help: "Total number of reports soft-deleted by the sweep",
	})

	// ConnectedClients текущее число live-подключений.
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recorever_connected_clients",
		Help: "Current number of connected websocket clients",
	})
)

func init() {
	prometheus.MustRegister(
		NotificationsCreated,
		LivePushFailures,
		MatchesCreated,
		ClaimsResolved,
		SweepDuration,
		SweepDeletes,
		ConnectedClients,
	)
}

// Handler возвращает HTTP-обработчик Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
