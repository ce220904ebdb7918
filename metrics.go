/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Seednode/beatify/game"
	"github.com/Seednode/beatify/store"
)

// appMetrics bundles the Prometheus collectors for the /metrics endpoint.
type appMetrics struct {
	registry *prometheus.Registry

	gamesStarted prometheus.Counter
}

func newMetrics(analytics *store.Analytics, hub *game.Hub) *appMetrics {
	m := &appMetrics{
		registry: prometheus.NewRegistry(),
		gamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beatify_games_started_total",
			Help: "Games started since process start.",
		}),
	}

	m.registry.MustRegister(m.gamesStarted)

	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "beatify_ws_connections",
		Help: "Live WebSocket connections.",
	}, func() float64 {
		return float64(hub.ConnectionCount())
	}))

	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "beatify_players",
		Help: "Registered player sessions in the current game.",
	}, func() float64 {
		return float64(hub.PlayerCount())
	}))

	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "beatify_games_recorded",
		Help: "Completed games held in the analytics store.",
	}, func() float64 {
		return float64(len(analytics.Games()))
	}))

	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "beatify_rounds_recorded",
		Help: "Rounds played across recorded games.",
	}, func() float64 {
		total := 0
		for _, g := range analytics.Games() {
			total += g.RoundsPlayed
		}
		return float64(total)
	}))

	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "beatify_error_events",
		Help: "Error events held in the analytics store.",
	}, func() float64 {
		return float64(len(analytics.Errors()))
	}))

	return m
}

func (m *appMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
