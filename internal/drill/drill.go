package drill

import (
	"math/bits"

	"golang.org/x/crypto/sha3"
)

// ChallengeSize is the fixed size of a mining challenge in bytes.
const ChallengeSize = 32

// Result is a single hash evaluation: the digest and its difficulty score.
// Difficulty is the number of leading zero bits in the digest; higher is
// harder to find. Results are compared by difficulty only, never by digest.
type Result struct {
	Digest     [32]byte
	Difficulty uint32
}

// Oracle computes a hash and difficulty for a (challenge, nonce) pair.
// Implementations must be deterministic and safe for concurrent use.
// A failed computation for a given nonce is non-fatal: callers skip the
// nonce and keep scanning.
type Oracle interface {
	Hash(challenge [ChallengeSize]byte, nonce [8]byte) (Result, error)
}

// Keccak is the production Oracle: legacy Keccak-256 over challenge||nonce.
type Keccak struct{}

func (Keccak) Hash(challenge [ChallengeSize]byte, nonce [8]byte) (Result, error) {
	h := sha3.NewLegacyKeccak256()
	h.Write(challenge[:])
	h.Write(nonce[:])

	var r Result
	h.Sum(r.Digest[:0])
	r.Difficulty = Difficulty(r.Digest)
	return r, nil
}

// Difficulty counts the leading zero bits of a digest.
func Difficulty(digest [32]byte) uint32 {
	var zeros uint32
	for _, b := range digest {
		lz := bits.LeadingZeros8(b)
		zeros += uint32(lz)
		if lz < 8 {
			break
		}
	}
	return zeros
}
