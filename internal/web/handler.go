package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/bmd08a1/ore-cli/internal/metrics"
)

// StatusData holds all dashboard metrics.
type StatusData struct {
	Cycles           uint64         `json:"cycles"`
	CyclesOverTarget uint64         `json:"cycles_over_target"`
	BestDifficulty   uint32         `json:"best_difficulty"`
	StakeBalance     uint64         `json:"stake_balance"`
	LastCutoffSecs   uint64         `json:"last_cutoff_secs"`
	UptimeSecs       int64          `json:"uptime_secs"`
	Workers          uint64         `json:"workers"`
	Authority        string         `json:"authority"`
	RecentSolutions  []SolutionInfo `json:"recent_solutions"`
}

// SolutionInfo describes a single submitted solution for the dashboard.
type SolutionInfo struct {
	Cycle      uint64 `json:"cycle"`
	Timestamp  int64  `json:"timestamp"`
	Nonce      uint64 `json:"nonce"`
	Difficulty uint32 `json:"difficulty"`
	Digest     string `json:"digest"`
	Bus        string `json:"bus"`
	RaiseFee   bool   `json:"raise_fee"`
	Reset      bool   `json:"reset"`
}

// statusCache holds a cached JSON response so frequent polls don't hit the
// data sources on every request.
type statusCache struct {
	mu      sync.Mutex
	data    []byte
	expires time.Time
}

const statusCacheTTL = 2 * time.Second

func (c *statusCache) get(dataFunc func() *StatusData) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Now().Before(c.expires) {
		return c.data
	}
	buf, _ := json.Marshal(dataFunc())
	c.data = buf
	c.expires = time.Now().Add(statusCacheTTL)
	return c.data
}

// NewHandler creates an HTTP handler serving the dashboard, the JSON status
// API, and the Prometheus scrape endpoint.
func NewHandler(dataFunc func() *StatusData) http.Handler {
	mux := http.NewServeMux()
	cache := &statusCache{}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Security-Policy",
			"default-src 'none'; script-src 'unsafe-inline'; style-src 'unsafe-inline'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Write([]byte(dashboardHTML))
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Write(cache.get(dataFunc))
	})

	mux.Handle("/metrics", metrics.Handler())

	return mux
}
