package miner

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bmd08a1/ore-cli/internal/drill"
	"github.com/bmd08a1/ore-cli/internal/ledger"
)

const (
	// checkpointInterval is how many nonces a worker scans between
	// deadline checks.
	checkpointInterval = 100

	// idlePoll is the sleep granularity of a worker waiting out the
	// cutoff after the stop flag has been set.
	idlePoll = time.Second
)

// SearchResult is the outcome of one coordinated search call.
type SearchResult struct {
	Solution       ledger.Solution
	RaiseFee       bool
	BestDifficulty uint32
}

// workerOutcome is one worker's best find, consumed only by the reduction.
type workerOutcome struct {
	nonce      uint64
	difficulty uint32
	hash       drill.Result
}

// Coordinator runs the parallel nonce search. One Search call spawns
// workerCount workers over disjoint contiguous ranges of the 64-bit nonce
// space and joins all of them before returning; no state crosses calls.
type Coordinator struct {
	oracle drill.Oracle
	logger *zap.Logger
}

// NewCoordinator creates a search coordinator using the given hash oracle.
func NewCoordinator(oracle drill.Oracle, logger *zap.Logger) *Coordinator {
	return &Coordinator{oracle: oracle, logger: logger}
}

// Search scans for the highest-difficulty nonce until the cutoff elapses.
// Workers stop early once any of them exceeds targetDifficulty; once the
// cutoff has passed, a worker stops as soon as its local best exceeds
// minDifficulty. The winner is the maximum difficulty across workers, first
// seen winning ties in worker index order. RaiseFee is set when the winning
// difficulty clears the midpoint of (minDifficulty, targetDifficulty).
func (c *Coordinator) Search(challenge [drill.ChallengeSize]byte, cutoffSeconds, workerCount uint64, minDifficulty, targetDifficulty uint32) SearchResult {
	if workerCount == 0 {
		workerCount = 1
	}

	// The stop flag is the only state shared between workers. It is set at
	// most once per call and never cleared, so plain atomic load/store is
	// all the synchronization required.
	var stop atomic.Bool

	start := time.Now()
	outcomes := make([]workerOutcome, workerCount)
	var wg sync.WaitGroup
	for i := uint64(0); i < workerCount; i++ {
		wg.Add(1)
		go func(i uint64) {
			defer wg.Done()
			outcomes[i] = c.scan(challenge, i, workerCount, cutoffSeconds, minDifficulty, targetDifficulty, &stop, start)
		}(i)
	}
	wg.Wait()

	best := outcomes[0]
	for _, o := range outcomes[1:] {
		if o.difficulty > best.difficulty {
			best = o
		}
	}

	c.logger.Info("search finished",
		zap.Uint32("best_difficulty", best.difficulty),
		zap.Uint64("nonce", best.nonce),
		zap.Duration("elapsed", time.Since(start)),
	)

	return SearchResult{
		Solution:       ledger.NewSolution(best.hash.Digest, best.nonce),
		RaiseFee:       best.difficulty > (minDifficulty+targetDifficulty)/2,
		BestDifficulty: best.difficulty,
	}
}

// scan is one worker's loop. Worker index starts at MaxUint64/workers*index
// and increments without wraparound handling: the space is far larger than
// any realistic scan depth, so overrunning the next worker's nominal start
// is harmless.
func (c *Coordinator) scan(challenge [drill.ChallengeSize]byte, index, workers, cutoffSeconds uint64, minDifficulty, targetDifficulty uint32, stop *atomic.Bool, start time.Time) workerOutcome {
	nonce := math.MaxUint64 / workers * index
	best := workerOutcome{nonce: nonce}
	lead := index == 0

	var nonceBytes [8]byte
	for {
		// Another worker (or this one) found a qualifying hash: idle out
		// the remaining cutoff instead of spinning, then return.
		if stop.Load() {
			elapsed := uint64(time.Since(start).Seconds())
			if elapsed >= cutoffSeconds {
				break
			}
			if lead {
				c.logger.Debug("idling until cutoff",
					zap.Uint64("seconds_remaining", cutoffSeconds-elapsed),
				)
			}
			time.Sleep(idlePoll)
			continue
		}

		binary.LittleEndian.PutUint64(nonceBytes[:], nonce)
		if hx, err := c.oracle.Hash(challenge, nonceBytes); err == nil {
			if hx.Difficulty > best.difficulty {
				best = workerOutcome{nonce: nonce, difficulty: hx.Difficulty, hash: hx}
			}
		}
		// Oracle failures skip the nonce; scanning continues.

		if best.difficulty > targetDifficulty {
			stop.Store(true)
			continue
		}

		if nonce%checkpointInterval == 0 {
			elapsed := uint64(time.Since(start).Seconds())
			if elapsed >= cutoffSeconds {
				if best.difficulty > minDifficulty {
					// Past the deadline with an acceptable hash: stop
					// everyone. If the minimum is never met this branch
					// never fires and the worker keeps scanning.
					stop.Store(true)
					break
				}
			} else if lead {
				c.logger.Debug("mining",
					zap.Uint64("seconds_remaining", cutoffSeconds-elapsed),
					zap.Uint32("local_best", best.difficulty),
				)
			}
		}

		nonce++
	}

	return best
}
