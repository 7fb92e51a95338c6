package ledger

import (
	"encoding/binary"

	"github.com/bmd08a1/ore-cli/internal/drill"
)

const (
	// BusCount is the number of reward buses a mine action can route through.
	BusCount = 8

	// EpochDuration is the protocol-fixed epoch length in seconds. Proofs
	// accept one hash per epoch and the global state resets once per epoch.
	EpochDuration = 60
)

// BusAddresses are the fixed reward bus accounts, indexed by bus id.
var BusAddresses = [BusCount]string{
	"9ShaCzHhQNvH8PLfGyrJbB8MeKHrDnuPMLnUDLJ2yMvz",
	"4Cq8685h9GwsaD5ppPsrtfcsk3fum8f9UP4SPpKSbj2B",
	"8L1vdGdvU3cPj9tsjJrKVUoBeXYvAzJYhExjTYHZT7h3",
	"JBdVURCrUiHp4kr7srYtXbB7B4CwurUt1Bfxrxw6EoRY",
	"DkmVBWJ4CLKb3pPHoSwYC2wRZXKKXLD2Ued5cGNpkWmr",
	"9uLpj2ZCMqN6Yo1vV6yg57Xqbr1MkJ2hWiKTp6BQWE2j",
	"EpcfjBs8eQ4unSMdowxyTE8K3vVJ3XUnEr5BEWvSX7RB",
	"Ay5N9vKS2Tyo2M9u9TFt59N1XbxdW93C7UrFZW3h8sMC",
}

// Proof is a read-only snapshot of a miner's on-ledger proof account.
type Proof struct {
	Challenge  [drill.ChallengeSize]byte
	LastHashAt int64
	Balance    uint64
}

// Config is a read-only snapshot of the global mining config account.
type Config struct {
	TopBalance  uint64
	LastResetAt int64
}

// Bus is a read-only snapshot of one reward bus account.
type Bus struct {
	ID      uint8
	Rewards uint64
}

// Solution is the payload submitted with a mine action: the winning digest
// and the nonce that produced it, little-endian encoded.
type Solution struct {
	Digest [32]byte
	Nonce  [8]byte
}

// NewSolution builds a Solution from a digest and the raw nonce value.
func NewSolution(digest [32]byte, nonce uint64) Solution {
	s := Solution{Digest: digest}
	binary.LittleEndian.PutUint64(s.Nonce[:], nonce)
	return s
}

// NonceValue decodes the solution's nonce back to its integer value.
func (s Solution) NonceValue() uint64 {
	return binary.LittleEndian.Uint64(s.Nonce[:])
}

// ActionKind identifies a ledger action inside a submission batch.
type ActionKind uint8

const (
	ActionAuth ActionKind = iota + 1
	ActionReset
	ActionMine
)

func (k ActionKind) String() string {
	switch k {
	case ActionAuth:
		return "auth"
	case ActionReset:
		return "reset"
	case ActionMine:
		return "mine"
	default:
		return "unknown"
	}
}

// Action is a single instruction in a submission batch.
type Action struct {
	Kind      ActionKind
	Authority string
	Bus       string
	Solution  *Solution
}

// Auth builds the action that authorizes the proof account for this batch.
func Auth(authority string) Action {
	return Action{Kind: ActionAuth, Authority: authority}
}

// Reset builds the epoch reset action.
func Reset(authority string) Action {
	return Action{Kind: ActionReset, Authority: authority}
}

// Mine builds the mine action carrying the solution, routed through bus.
func Mine(authority, bus string, solution Solution) Action {
	return Action{Kind: ActionMine, Authority: authority, Bus: bus, Solution: &solution}
}
