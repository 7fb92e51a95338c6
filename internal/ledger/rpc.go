package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rpcTimeout = 30 * time.Second

	// proofPollInterval is how often FetchProof re-reads a stale proof.
	proofPollInterval = 3 * time.Second
)

// RPCClient is a JSON-RPC 2.0 ledger client. All calls go through a shared
// rate limiter; public RPC providers throttle aggressively.
type RPCClient struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	nextID  atomic.Uint64
}

// NewRPCClient creates a client for the given endpoint URL. maxRPS bounds
// outgoing request rate; zero or negative means unlimited.
func NewRPCClient(url string, maxRPS float64, logger *zap.Logger) *RPCClient {
	limit := rate.Inf
	if maxRPS > 0 {
		limit = rate.Limit(maxRPS)
	}
	return &RPCClient{
		url:     url,
		http:    &http.Client{Timeout: rpcTimeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC request and decodes the result into out.
func (c *RPCClient) call(ctx context.Context, method string, params any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

type configResult struct {
	TopBalance  uint64 `json:"topBalance"`
	LastResetAt int64  `json:"lastResetAt"`
}

func (c *RPCClient) FetchConfig(ctx context.Context) (Config, error) {
	var res configResult
	if err := c.call(ctx, "ore_getConfig", nil, &res); err != nil {
		return Config{}, err
	}
	return Config{TopBalance: res.TopBalance, LastResetAt: res.LastResetAt}, nil
}

type proofResult struct {
	Challenge  string `json:"challenge"` // hex
	LastHashAt int64  `json:"lastHashAt"`
	Balance    uint64 `json:"balance"`
}

func (c *RPCClient) fetchProofOnce(ctx context.Context, authority string) (Proof, error) {
	var res proofResult
	if err := c.call(ctx, "ore_getProof", []any{authority}, &res); err != nil {
		return Proof{}, err
	}

	raw, err := hex.DecodeString(res.Challenge)
	if err != nil {
		return Proof{}, fmt.Errorf("decode challenge: %w", err)
	}
	var p Proof
	if len(raw) != len(p.Challenge) {
		return Proof{}, fmt.Errorf("challenge is %d bytes, want %d", len(raw), len(p.Challenge))
	}
	copy(p.Challenge[:], raw)
	p.LastHashAt = res.LastHashAt
	p.Balance = res.Balance
	return p, nil
}

// FetchProof polls until the proof's LastHashAt has advanced past lastHashAt.
// Pass lastHashAt = 0 on the first cycle to accept whatever is current.
func (c *RPCClient) FetchProof(ctx context.Context, authority string, lastHashAt int64) (Proof, error) {
	for {
		p, err := c.fetchProofOnce(ctx, authority)
		if err != nil {
			return Proof{}, err
		}
		if p.LastHashAt > lastHashAt || lastHashAt == 0 {
			return p, nil
		}

		c.logger.Debug("proof not yet advanced, polling",
			zap.Int64("last_hash_at", p.LastHashAt),
		)
		select {
		case <-ctx.Done():
			return Proof{}, ctx.Err()
		case <-time.After(proofPollInterval):
		}
	}
}

func (c *RPCClient) FetchClock(ctx context.Context) (int64, error) {
	var ts int64
	if err := c.call(ctx, "ore_getClock", nil, &ts); err != nil {
		return 0, err
	}
	return ts, nil
}

func (c *RPCClient) FetchBusBalances(ctx context.Context, buses []string) ([]*uint64, error) {
	var res []*uint64
	if err := c.call(ctx, "ore_getBusBalances", []any{buses}, &res); err != nil {
		return nil, err
	}
	if len(res) != len(buses) {
		return nil, fmt.Errorf("bus balances: got %d entries, want %d", len(res), len(buses))
	}
	return res, nil
}

type submitParams struct {
	Actions       []submitAction `json:"actions"`
	ComputeBudget uint32         `json:"computeBudget"`
	RaiseFee      bool           `json:"raiseFee"`
}

type submitAction struct {
	Kind      string `json:"kind"`
	Authority string `json:"authority"`
	Bus       string `json:"bus,omitempty"`
	Digest    string `json:"digest,omitempty"` // hex
	Nonce     string `json:"nonce,omitempty"`  // hex, little-endian
}

type submitResult struct {
	Accepted bool   `json:"accepted"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
}

func (c *RPCClient) Submit(ctx context.Context, actions []Action, computeBudget uint32, raiseFee bool) error {
	params := submitParams{
		Actions:       make([]submitAction, len(actions)),
		ComputeBudget: computeBudget,
		RaiseFee:      raiseFee,
	}
	for i, a := range actions {
		sa := submitAction{
			Kind:      a.Kind.String(),
			Authority: a.Authority,
			Bus:       a.Bus,
		}
		if a.Solution != nil {
			sa.Digest = hex.EncodeToString(a.Solution.Digest[:])
			sa.Nonce = hex.EncodeToString(a.Solution.Nonce[:])
		}
		params.Actions[i] = sa
	}

	var res submitResult
	if err := c.call(ctx, "ore_submit", params, &res); err != nil {
		return err
	}
	if !res.Accepted {
		return &SubmitError{Code: res.Code, Message: res.Message}
	}
	return nil
}
