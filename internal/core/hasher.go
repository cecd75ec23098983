package core

import (
	"crypto/sha256"
	"encoding/binary"
)

// GenesisHashSeed anchors the hash chain. Changing it invalidates every
// recorded state hash, so it is versioned.
const GenesisHashSeed = "FlowLedger:genesis:v1"

// StateHasher maintains the rolling hash chain over applied events:
// hash[N] = SHA-256(hash[N-1] || sequence || state digest).
type StateHasher struct {
	prevHash [32]byte
}

func NewStateHasher() *StateHasher {
	return &StateHasher{prevHash: sha256.Sum256([]byte(GenesisHashSeed))}
}

// ComputeHash folds the next link into the chain and advances the tip.
func (h *StateHasher) ComputeHash(sequence int64, stateDigest []byte) [32]byte {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], uint64(sequence))

	d := sha256.New()
	d.Write(h.prevHash[:])
	d.Write(seq[:])
	d.Write(stateDigest)

	var next [32]byte
	copy(next[:], d.Sum(nil))
	h.prevHash = next
	return next
}

// GetPrevHash returns the current chain tip.
func (h *StateHasher) GetPrevHash() [32]byte {
	return h.prevHash
}

// SetPrevHash resets the chain tip, used on snapshot restore.
func (h *StateHasher) SetPrevHash(hash [32]byte) {
	h.prevHash = hash
}
