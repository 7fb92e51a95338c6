package ledger

import (
	"context"
	"fmt"
)

// Client is the ledger RPC surface consumed by the mining loop.
type Client interface {
	// FetchConfig returns the current global mining config.
	FetchConfig(ctx context.Context) (Config, error)

	// FetchProof returns the proof account for authority. It blocks,
	// polling, until the proof's LastHashAt has advanced past lastHashAt,
	// so each mining cycle starts from a fresh challenge.
	FetchProof(ctx context.Context, authority string, lastHashAt int64) (Proof, error)

	// FetchClock returns the ledger's current unix timestamp.
	FetchClock(ctx context.Context) (int64, error)

	// FetchBusBalances returns the reward balance of each bus, in the same
	// order as buses. A nil entry means that single lookup failed; an error
	// means the whole batched query failed.
	FetchBusBalances(ctx context.Context, buses []string) ([]*uint64, error)

	// Submit sends an action batch with the given compute budget. raiseFee
	// asks for an escalated priority fee.
	Submit(ctx context.Context, actions []Action, computeBudget uint32, raiseFee bool) error
}

// SubmitError is a submission explicitly rejected by the ledger, as opposed
// to a transport failure.
type SubmitError struct {
	Code    int
	Message string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submission rejected (code %d): %s", e.Code, e.Message)
}
