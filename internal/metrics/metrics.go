package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cycles counts completed mining cycles (one search + submission each).
	Cycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ore_miner_cycles_total",
		Help: "Total mining cycles completed",
	})

	// CyclesOverTarget counts cycles whose best difficulty exceeded the
	// configured target.
	CyclesOverTarget = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ore_miner_cycles_over_target_total",
		Help: "Cycles whose best difficulty exceeded the target",
	})

	// Submissions counts submission attempts by outcome (sent, failed).
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ore_miner_submissions_total",
		Help: "Submission attempts by outcome",
	}, []string{"outcome"})

	// BestDifficulty is the highest difficulty found since process start.
	BestDifficulty = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ore_miner_best_difficulty",
		Help: "Best difficulty found since start",
	})

	// CutoffSeconds is the most recent search deadline in seconds.
	CutoffSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ore_miner_cutoff_seconds",
		Help: "Most recent search cutoff in seconds",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
