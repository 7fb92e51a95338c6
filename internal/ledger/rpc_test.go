package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// rpcHandler routes JSON-RPC methods to scripted responders.
type rpcHandler struct {
	t        *testing.T
	handlers map[string]func(params json.RawMessage) (any, *rpcError)
	requests []string
}

func (h *rpcHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64          `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.t.Errorf("decode request: %v", err)
		return
	}
	h.requests = append(h.requests, req.Method)

	fn, ok := h.handlers[req.Method]
	if !ok {
		h.t.Errorf("unexpected method %q", req.Method)
		return
	}

	result, rpcErr := fn(req.Params)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	json.NewEncoder(w).Encode(resp)
}

func testClient(t *testing.T, h *rpcHandler) (*RPCClient, func()) {
	t.Helper()
	h.t = t
	srv := httptest.NewServer(h)
	logger, _ := zap.NewDevelopment()
	return NewRPCClient(srv.URL, 0, logger), srv.Close
}

func TestFetchConfig(t *testing.T) {
	client, stop := testClient(t, &rpcHandler{handlers: map[string]func(json.RawMessage) (any, *rpcError){
		"ore_getConfig": func(json.RawMessage) (any, *rpcError) {
			return map[string]any{"topBalance": 12345, "lastResetAt": 1700000000}, nil
		},
	}})
	defer stop()

	cfg, err := client.FetchConfig(context.Background())
	if err != nil {
		t.Fatalf("FetchConfig: %v", err)
	}
	if cfg.TopBalance != 12345 || cfg.LastResetAt != 1700000000 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestFetchProofAdvanced(t *testing.T) {
	challenge := strings.Repeat("ab", 32)
	client, stop := testClient(t, &rpcHandler{handlers: map[string]func(json.RawMessage) (any, *rpcError){
		"ore_getProof": func(json.RawMessage) (any, *rpcError) {
			return map[string]any{"challenge": challenge, "lastHashAt": 600, "balance": 42}, nil
		},
	}})
	defer stop()

	// Proof is already past the staleness mark → returns immediately.
	p, err := client.FetchProof(context.Background(), "auth", 500)
	if err != nil {
		t.Fatalf("FetchProof: %v", err)
	}
	if p.LastHashAt != 600 || p.Balance != 42 {
		t.Errorf("unexpected proof %+v", p)
	}
	want, _ := hex.DecodeString(challenge)
	if string(p.Challenge[:]) != string(want) {
		t.Error("challenge bytes mismatch")
	}
}

func TestFetchProofPollsUntilCancelled(t *testing.T) {
	// Server keeps returning a stale proof; cancellation must end the poll.
	challenge := strings.Repeat("00", 32)
	client, stop := testClient(t, &rpcHandler{handlers: map[string]func(json.RawMessage) (any, *rpcError){
		"ore_getProof": func(json.RawMessage) (any, *rpcError) {
			return map[string]any{"challenge": challenge, "lastHashAt": 500, "balance": 0}, nil
		},
	}})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchProof(ctx, "auth", 500)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("FetchProof returned %v, want context.DeadlineExceeded", err)
	}
}

func TestFetchProofRejectsBadChallenge(t *testing.T) {
	client, stop := testClient(t, &rpcHandler{handlers: map[string]func(json.RawMessage) (any, *rpcError){
		"ore_getProof": func(json.RawMessage) (any, *rpcError) {
			return map[string]any{"challenge": "abcd", "lastHashAt": 600}, nil
		},
	}})
	defer stop()

	if _, err := client.FetchProof(context.Background(), "auth", 0); err == nil {
		t.Error("expected error for short challenge")
	}
}

func TestFetchClock(t *testing.T) {
	client, stop := testClient(t, &rpcHandler{handlers: map[string]func(json.RawMessage) (any, *rpcError){
		"ore_getClock": func(json.RawMessage) (any, *rpcError) {
			return 1700000123, nil
		},
	}})
	defer stop()

	ts, err := client.FetchClock(context.Background())
	if err != nil {
		t.Fatalf("FetchClock: %v", err)
	}
	if ts != 1700000123 {
		t.Errorf("clock = %d, want 1700000123", ts)
	}
}

func TestFetchBusBalances(t *testing.T) {
	client, stop := testClient(t, &rpcHandler{handlers: map[string]func(json.RawMessage) (any, *rpcError){
		"ore_getBusBalances": func(json.RawMessage) (any, *rpcError) {
			// One failed lookup in the middle.
			return []any{100, nil, 300}, nil
		},
	}})
	defer stop()

	balances, err := client.FetchBusBalances(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("FetchBusBalances: %v", err)
	}
	if balances[0] == nil || *balances[0] != 100 {
		t.Error("balance[0] mismatch")
	}
	if balances[1] != nil {
		t.Error("balance[1] should be nil for a failed lookup")
	}
	if balances[2] == nil || *balances[2] != 300 {
		t.Error("balance[2] mismatch")
	}

	// Length mismatch is an error.
	if _, err := client.FetchBusBalances(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("expected error on entry count mismatch")
	}
}

func TestSubmit(t *testing.T) {
	var gotParams submitParams
	client, stop := testClient(t, &rpcHandler{handlers: map[string]func(json.RawMessage) (any, *rpcError){
		"ore_submit": func(params json.RawMessage) (any, *rpcError) {
			if err := json.Unmarshal(params, &gotParams); err != nil {
				return nil, &rpcError{Code: -32602, Message: err.Error()}
			}
			return map[string]any{"accepted": true}, nil
		},
	}})
	defer stop()

	sol := NewSolution([32]byte{0xde, 0xad}, 77)
	actions := []Action{
		Auth("me"),
		Mine("me", BusAddresses[2], sol),
	}
	if err := client.Submit(context.Background(), actions, 500_000, true); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if gotParams.ComputeBudget != 500_000 || !gotParams.RaiseFee {
		t.Errorf("budget/fee not forwarded: %+v", gotParams)
	}
	if len(gotParams.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(gotParams.Actions))
	}
	if gotParams.Actions[0].Kind != "auth" {
		t.Errorf("first action kind %q, want auth", gotParams.Actions[0].Kind)
	}
	mine := gotParams.Actions[1]
	if mine.Kind != "mine" || mine.Bus != BusAddresses[2] {
		t.Errorf("mine action mismatch: %+v", mine)
	}
	if mine.Digest != hex.EncodeToString(sol.Digest[:]) {
		t.Error("digest not hex-forwarded")
	}
	if mine.Nonce != hex.EncodeToString(sol.Nonce[:]) {
		t.Error("nonce not hex-forwarded")
	}
}

func TestSubmitRejected(t *testing.T) {
	client, stop := testClient(t, &rpcHandler{handlers: map[string]func(json.RawMessage) (any, *rpcError){
		"ore_submit": func(json.RawMessage) (any, *rpcError) {
			return map[string]any{"accepted": false, "code": 9, "message": "stale challenge"}, nil
		},
	}})
	defer stop()

	err := client.Submit(context.Background(), []Action{Auth("me")}, 500_000, false)
	var rejected *SubmitError
	if !errors.As(err, &rejected) {
		t.Fatalf("Submit returned %v, want *SubmitError", err)
	}
	if rejected.Code != 9 || rejected.Message != "stale challenge" {
		t.Errorf("unexpected rejection %+v", rejected)
	}
}

func TestCallSurfacesRPCError(t *testing.T) {
	client, stop := testClient(t, &rpcHandler{handlers: map[string]func(json.RawMessage) (any, *rpcError){
		"ore_getClock": func(json.RawMessage) (any, *rpcError) {
			return nil, &rpcError{Code: -32000, Message: "node overloaded"}
		},
	}})
	defer stop()

	if _, err := client.FetchClock(context.Background()); err == nil || !strings.Contains(err.Error(), "node overloaded") {
		t.Errorf("expected rpc error to surface, got %v", err)
	}
}
