package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bmd08a1/ore-cli/internal/config"
	"github.com/bmd08a1/ore-cli/internal/drill"
	"github.com/bmd08a1/ore-cli/internal/history"
	"github.com/bmd08a1/ore-cli/internal/ledger"
	"github.com/bmd08a1/ore-cli/internal/miner"
	"github.com/bmd08a1/ore-cli/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.DefaultConfig()

	// Define CLI flags
	var workers uint64
	var minDifficulty, targetDifficulty uint64

	flag.StringVar(&cfg.Authority, "authority", "", "your mining authority address (required)")
	flag.StringVar(&cfg.RPCURL, "rpc-url", cfg.RPCURL, "ledger RPC endpoint URL")
	flag.Float64Var(&cfg.RPCRateLimit, "rpc-rate-limit", cfg.RPCRateLimit, "maximum RPC requests per second (0 = unlimited)")
	flag.Uint64Var(&workers, "workers", cfg.Workers, "number of parallel search workers")
	flag.Uint64Var(&cfg.BufferSeconds, "buffer-seconds", cfg.BufferSeconds, "seconds shaved off the epoch deadline to leave time for submission")
	flag.Uint64Var(&minDifficulty, "min-difficulty", uint64(cfg.MinDifficulty), "minimum difficulty a solution must meet once the cutoff passes")
	flag.Uint64Var(&targetDifficulty, "target-difficulty", uint64(cfg.TargetDifficulty), "difficulty at which the search stops early")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for persistent data")
	flag.IntVar(&cfg.DashboardPort, "dashboard-port", cfg.DashboardPort, "dashboard / metrics listen port")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ore-miner - proof-of-work mining client\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n  ore-miner -authority <your_address> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  ORE_RPC_URL        Override -rpc-url\n")
		fmt.Fprintf(os.Stderr, "  ORE_AUTHORITY      Override -authority\n")
		fmt.Fprintf(os.Stderr, "  ORE_DATA_DIR       Override -data-dir\n")
		fmt.Fprintf(os.Stderr, "  ORE_WORKERS        Override -workers\n")
		fmt.Fprintf(os.Stderr, "  LOG_LEVEL          Override -log-level\n")
	}

	flag.Parse()
	cfg.Workers = workers
	cfg.MinDifficulty = uint32(minDifficulty)
	cfg.TargetDifficulty = uint32(targetDifficulty)

	// Environment variables override flags (for containerized deployments)
	if v := os.Getenv("ORE_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("ORE_AUTHORITY"); v != "" {
		cfg.Authority = v
	}
	if v := os.Getenv("ORE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ORE_WORKERS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ORE_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if cfg.Authority == "" {
		fmt.Fprintf(os.Stderr, "Error: -authority is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Setup logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting ore-miner",
		zap.String("authority", cfg.Authority),
		zap.String("rpc_url", cfg.RPCURL),
		zap.Uint64("workers", cfg.Workers),
		zap.Uint32("min_difficulty", cfg.MinDifficulty),
		zap.Uint32("target_difficulty", cfg.TargetDifficulty),
	)

	// Solution history
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	hist, err := history.NewBoltStore(filepath.Join(cfg.DataDir, "solutions.db"), logger)
	if err != nil {
		return fmt.Errorf("open solution history: %w", err)
	}
	defer hist.Close()

	// Ledger RPC client and miner
	client := ledger.NewRPCClient(cfg.RPCURL, cfg.RPCRateLimit, logger)
	m := miner.New(cfg, client, drill.Keccak{}, hist, logger)

	// Dashboard
	srv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.DashboardPort),
		Handler: web.NewHandler(statusData(m, hist, cfg.Authority)),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("dashboard server failed", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Run(ctx)
	}()

	// Wait for shutdown signal or a miner failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			return fmt.Errorf("miner: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	logger.Info("ore-miner stopped")
	return nil
}

// statusData assembles the dashboard snapshot from the miner and the
// solution history.
func statusData(m *miner.Miner, hist history.Store, authority string) func() *web.StatusData {
	return func() *web.StatusData {
		st := m.Status()
		recent := hist.Recent(10)
		solutions := make([]web.SolutionInfo, len(recent))
		for i, rec := range recent {
			solutions[i] = web.SolutionInfo{
				Cycle:      rec.Cycle,
				Timestamp:  rec.Timestamp,
				Nonce:      rec.Nonce,
				Difficulty: rec.Difficulty,
				Digest:     hex.EncodeToString(rec.Digest[:]),
				Bus:        rec.Bus,
				RaiseFee:   rec.RaiseFee,
				Reset:      rec.Reset,
			}
		}
		return &web.StatusData{
			Cycles:           st.Cycles,
			CyclesOverTarget: st.CyclesOverTarget,
			BestDifficulty:   st.BestDifficulty,
			StakeBalance:     st.StakeBalance,
			LastCutoffSecs:   st.LastCutoffSecs,
			UptimeSecs:       st.UptimeSecs,
			Workers:          st.Workers,
			Authority:        authority,
			RecentSolutions:  solutions,
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return cfg.Build()
}
