package miner

import (
	"context"

	"go.uber.org/zap"

	"github.com/bmd08a1/ore-cli/internal/ledger"
)

// selectBus picks the bus with the largest reward balance to route the mine
// action through. Individual lookup failures (nil entries) are skipped; if
// the whole batched query fails, a uniformly random bus is used instead.
// No retries at this layer.
func (m *Miner) selectBus(ctx context.Context) string {
	balances, err := m.client.FetchBusBalances(ctx, ledger.BusAddresses[:])
	if err != nil {
		m.logger.Debug("bus balance query failed, picking random bus", zap.Error(err))
		return ledger.BusAddresses[m.rng.Intn(ledger.BusCount)]
	}

	top := ledger.BusAddresses[0]
	var topBalance uint64
	for i, balance := range balances {
		if balance == nil {
			continue
		}
		if *balance > topBalance {
			topBalance = *balance
			top = ledger.BusAddresses[i]
		}
	}
	return top
}
