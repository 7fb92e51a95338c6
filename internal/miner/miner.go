package miner

import (
	"context"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bmd08a1/ore-cli/internal/config"
	"github.com/bmd08a1/ore-cli/internal/drill"
	"github.com/bmd08a1/ore-cli/internal/history"
	"github.com/bmd08a1/ore-cli/internal/ledger"
	"github.com/bmd08a1/ore-cli/internal/metrics"
)

const (
	// baseComputeBudget is the declared compute budget of a plain
	// submission; resetComputeBudget is added when a reset action rides
	// along.
	baseComputeBudget  = 500_000
	resetComputeBudget = 100_000

	// resetDrawRange: a reset is attached with probability 1/resetDrawRange
	// once the epoch deadline has passed, so concurrent miners don't all
	// submit the reset simultaneously.
	resetDrawRange = 100

	// fetchRetryDelay is the pause before retrying a failed state fetch.
	fetchRetryDelay = 3 * time.Second
)

// Miner runs the epoch-driven mining loop: fetch ledger state, search the
// nonce space until the cutoff, submit the best solution through a bus, and
// repeat until the context is cancelled. Cycles never overlap.
type Miner struct {
	cfg     *config.Config
	client  ledger.Client
	coord   *Coordinator
	history history.Store
	logger  *zap.Logger
	rng     *rand.Rand

	// resetDraw decides whether a due reset is actually attached this
	// cycle. Replaced in tests; the default is a 1-in-resetDrawRange draw.
	resetDraw func() bool

	startTime time.Time

	// Diagnostics, written only by the loop goroutine, read by the
	// dashboard. Never shared with search workers.
	cycles           atomic.Uint64
	cyclesOverTarget atomic.Uint64
	bestDifficulty   atomic.Uint32
	stakeBalance     atomic.Uint64
	lastCutoff       atomic.Uint64
}

// New creates a Miner. The history store may be shared with the dashboard.
func New(cfg *config.Config, client ledger.Client, oracle drill.Oracle, hist history.Store, logger *zap.Logger) *Miner {
	m := &Miner{
		cfg:       cfg,
		client:    client,
		coord:     NewCoordinator(oracle, logger),
		history:   hist,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		startTime: time.Now(),
	}
	m.resetDraw = func() bool { return m.rng.Intn(resetDrawRange) == 0 }
	return m
}

// Run executes the mining loop until ctx is cancelled. Cancellation is only
// observed between cycles; a search in flight always completes.
func (m *Miner) Run(ctx context.Context) error {
	if cpus := uint64(runtime.NumCPU()); m.cfg.Workers > cpus {
		m.logger.Warn("worker count exceeds available CPUs",
			zap.Uint64("workers", m.cfg.Workers),
			zap.Uint64("cpus", cpus),
		)
	}

	var lastHashAt int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if m.cycles.Load() > 0 {
			m.logReport()
		}

		ledgerCfg, err := m.client.FetchConfig(ctx)
		if err != nil {
			m.waitRetry(ctx, "fetch config", err)
			continue
		}

		proof, err := m.client.FetchProof(ctx, m.cfg.Authority, lastHashAt)
		if err != nil {
			m.waitRetry(ctx, "fetch proof", err)
			continue
		}
		lastHashAt = proof.LastHashAt
		m.stakeBalance.Store(proof.Balance)

		m.logger.Info("new epoch",
			zap.Int64("last_hash_at", proof.LastHashAt),
			zap.Uint64("stake_balance", proof.Balance),
			zap.Float64("multiplier", stakeMultiplier(proof.Balance, ledgerCfg.TopBalance)),
		)

		now, err := m.client.FetchClock(ctx)
		if err != nil {
			m.waitRetry(ctx, "fetch clock", err)
			continue
		}
		cutoff := ComputeCutoff(proof.LastHashAt, m.cfg.BufferSeconds, now)
		m.lastCutoff.Store(cutoff)
		metrics.CutoffSeconds.Set(float64(cutoff))

		res := m.coord.Search(
			proof.Challenge,
			cutoff,
			m.cfg.Workers,
			m.cfg.MinDifficulty,
			m.cfg.TargetDifficulty,
		)
		m.recordCycle(res)

		actions := []ledger.Action{ledger.Auth(m.cfg.Authority)}
		budget := uint32(baseComputeBudget)
		reset := false
		if m.shouldReset(ctx, ledgerCfg) && m.resetDraw() {
			budget += resetComputeBudget
			actions = append(actions, ledger.Reset(m.cfg.Authority))
			reset = true
		}

		bus := m.selectBus(ctx)
		actions = append(actions, ledger.Mine(m.cfg.Authority, bus, res.Solution))

		// Fire-and-forget: the loop proceeds whether or not the submission
		// landed. Failures are logged and counted, nothing more.
		if err := m.client.Submit(ctx, actions, budget, res.RaiseFee); err != nil {
			m.logger.Warn("submission failed",
				zap.Error(err),
				zap.Uint64("cycle", m.cycles.Load()),
			)
			metrics.Submissions.WithLabelValues("failed").Inc()
		} else {
			metrics.Submissions.WithLabelValues("sent").Inc()
		}

		if err := m.history.Append(history.Record{
			Cycle:      m.cycles.Load(),
			Timestamp:  time.Now().Unix(),
			Nonce:      res.Solution.NonceValue(),
			Difficulty: res.BestDifficulty,
			Digest:     res.Solution.Digest,
			Bus:        bus,
			RaiseFee:   res.RaiseFee,
			Reset:      reset,
		}); err != nil {
			m.logger.Warn("failed to record solution", zap.Error(err))
		}
	}
}

// recordCycle updates loop-local counters and metrics after a search.
func (m *Miner) recordCycle(res SearchResult) {
	m.cycles.Add(1)
	metrics.Cycles.Inc()
	if res.BestDifficulty > m.cfg.TargetDifficulty {
		m.cyclesOverTarget.Add(1)
		metrics.CyclesOverTarget.Inc()
	}
	if res.BestDifficulty > m.bestDifficulty.Load() {
		m.bestDifficulty.Store(res.BestDifficulty)
	}
	metrics.BestDifficulty.Set(float64(m.bestDifficulty.Load()))
}

// shouldReset reports whether the epoch reset deadline has passed according
// to the ledger clock. A clock fetch failure just skips the reset this cycle.
func (m *Miner) shouldReset(ctx context.Context, cfg ledger.Config) bool {
	now, err := m.client.FetchClock(ctx)
	if err != nil {
		return false
	}
	return resetDeadlinePassed(cfg.LastResetAt, now)
}

// resetDeadlinePassed reports whether lastResetAt + epoch - buffer <= now.
func resetDeadlinePassed(lastResetAt, now int64) bool {
	return lastResetAt+ledger.EpochDuration-resetBufferSeconds <= now
}

// stakeMultiplier is the reward multiplier for a given stake balance,
// capped at 2x when the balance matches the top staker. With no top staker
// recorded yet the fraction saturates and the full 2x applies.
func stakeMultiplier(balance, topBalance uint64) float64 {
	if topBalance == 0 {
		return 2.0
	}
	frac := float64(balance) / float64(topBalance)
	if frac > 1.0 {
		frac = 1.0
	}
	return 1.0 + frac
}

func (m *Miner) waitRetry(ctx context.Context, op string, err error) {
	m.logger.Warn("state fetch failed, retrying",
		zap.String("op", op),
		zap.Error(err),
	)
	select {
	case <-ctx.Done():
	case <-time.After(fetchRetryDelay):
	}
}

func (m *Miner) logReport() {
	m.logger.Info("mining report",
		zap.Uint64("cycles", m.cycles.Load()),
		zap.Uint64("cycles_over_target", m.cyclesOverTarget.Load()),
		zap.Uint32("best_difficulty", m.bestDifficulty.Load()),
		zap.Duration("uptime", time.Since(m.startTime)),
	)
}

// Status is a point-in-time snapshot of the loop's diagnostics for the
// dashboard.
type Status struct {
	Cycles           uint64
	CyclesOverTarget uint64
	BestDifficulty   uint32
	StakeBalance     uint64
	LastCutoffSecs   uint64
	UptimeSecs       int64
	Workers          uint64
}

// Status returns the current loop diagnostics.
func (m *Miner) Status() Status {
	var uptime int64
	if !m.startTime.IsZero() {
		uptime = int64(time.Since(m.startTime).Seconds())
	}
	return Status{
		Cycles:           m.cycles.Load(),
		CyclesOverTarget: m.cyclesOverTarget.Load(),
		BestDifficulty:   m.bestDifficulty.Load(),
		StakeBalance:     m.stakeBalance.Load(),
		LastCutoffSecs:   m.lastCutoff.Load(),
		UptimeSecs:       uptime,
		Workers:          m.cfg.Workers,
	}
}
