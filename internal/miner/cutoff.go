package miner

import (
	"math"

	"github.com/bmd08a1/ore-cli/internal/ledger"
)

// resetBufferSeconds is subtracted from the epoch reset deadline so a reset
// action is only attached once the deadline is imminently past.
const resetBufferSeconds = 5

// ComputeCutoff returns how many seconds remain before the submission soft
// deadline: lastHashAt + epoch window - buffer - now, clamped at zero. A
// zero cutoff means the deadline has already passed and the search runs in
// "mine until minimum difficulty" mode.
func ComputeCutoff(lastHashAt int64, bufferSeconds uint64, nowUnix int64) uint64 {
	if bufferSeconds > math.MaxInt64 {
		return 0
	}
	deadline := lastHashAt + ledger.EpochDuration
	if lastHashAt > math.MaxInt64-ledger.EpochDuration {
		// Saturate instead of wrapping on absurd timestamps.
		deadline = math.MaxInt64
	}
	remaining := deadline - int64(bufferSeconds) - nowUnix
	if remaining < 0 {
		return 0
	}
	return uint64(remaining)
}
