package drill

import (
	"encoding/binary"
	"testing"
)

func TestKeccakDeterministic(t *testing.T) {
	var challenge [ChallengeSize]byte
	copy(challenge[:], []byte("test-challenge"))
	var nonce [8]byte
	binary.LittleEndian.PutUint64(nonce[:], 42)

	o := Keccak{}
	a, err := o.Hash(challenge, nonce)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := o.Hash(challenge, nonce)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a != b {
		t.Error("same inputs produced different results")
	}
	if a.Difficulty != Difficulty(a.Digest) {
		t.Errorf("difficulty %d does not match digest recount %d", a.Difficulty, Difficulty(a.Digest))
	}
}

func TestKeccakNonceChangesDigest(t *testing.T) {
	var challenge [ChallengeSize]byte
	var n1, n2 [8]byte
	binary.LittleEndian.PutUint64(n1[:], 1)
	binary.LittleEndian.PutUint64(n2[:], 2)

	o := Keccak{}
	a, _ := o.Hash(challenge, n1)
	b, _ := o.Hash(challenge, n2)
	if a.Digest == b.Digest {
		t.Error("different nonces produced identical digests")
	}
}

func TestDifficulty(t *testing.T) {
	cases := []struct {
		name   string
		digest [32]byte
		want   uint32
	}{
		{"no leading zeros", [32]byte{0xff}, 0},
		{"one zero bit", [32]byte{0x7f}, 1},
		{"one zero byte", [32]byte{0x00, 0xff}, 8},
		{"zero byte then half", [32]byte{0x00, 0x0f}, 12},
		{"all zeros", [32]byte{}, 256},
	}
	for _, tc := range cases {
		if got := Difficulty(tc.digest); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}
