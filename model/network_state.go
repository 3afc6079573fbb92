package model

import (
	"encoding/json"
	"math/big"
	"sort"

	"github.com/pocnode/core/hashing"
)

// NetworkState is the abstract, shared, read-only view over the live claim
// set that Block.Valid and Block.Mine consult (spec.md §4.1, §5: "the
// claim store read handle is shared, read-only"). The on-disk storage
// engine backing a real NetworkState is out of scope (spec.md §1); this
// module only needs the two queries the validity predicate and the miner
// actually perform.
type NetworkState interface {
	// LowestPointer returns the claim hash and pointer value of whichever
	// live claim resolves to the smallest GetPointer(nonce), used by the
	// InvalidClaimPointers check (spec.md §4.1).
	LowestPointer(nonce uint64) (claimHash string, pointer *big.Int, ok bool)

	// Hash folds the network state snapshot together with the given txn
	// set and block reward into the block's final content hash
	// (spec.md §4.1: "the block's final hash is derived from the network
	// state snapshot folded with the txns and block reward").
	Hash(txns *OrderedMap[Txn], reward Reward) string
}

// SnapshotNetworkState is an in-memory NetworkState over a fixed claim
// set, suitable both as a test double and as the reference read-handle a
// real storage-backed implementation would wrap (spec.md's design note:
// "referring to large ones (claim set) via a read handle").
type SnapshotNetworkState struct {
	snapshotID string
	claims     []*Claim
}

// NewSnapshotNetworkState builds a read-only snapshot over claims, tagged
// with snapshotID (e.g. the previous block's hash) so Hash output changes
// as the chain advances even when the txn set and reward do not.
func NewSnapshotNetworkState(snapshotID string, claims []*Claim) *SnapshotNetworkState {
	cp := make([]*Claim, len(claims))
	copy(cp, claims)
	return &SnapshotNetworkState{snapshotID: snapshotID, claims: cp}
}

func (s *SnapshotNetworkState) LowestPointer(nonce uint64) (string, *big.Int, bool) {
	if len(s.claims) == 0 {
		return "", nil, false
	}

	type scored struct {
		hash    string
		pointer *big.Int
	}

	scores := make([]scored, 0, len(s.claims))
	for _, c := range s.claims {
		scores = append(scores, scored{hash: c.Hash, pointer: c.GetPointer(nonce)})
	}

	sort.Slice(scores, func(i, j int) bool {
		cmp := scores[i].pointer.Cmp(scores[j].pointer)
		if cmp != 0 {
			return cmp < 0
		}
		return scores[i].hash < scores[j].hash
	})

	return scores[0].hash, scores[0].pointer, true
}

func (s *SnapshotNetworkState) Hash(txns *OrderedMap[Txn], reward Reward) string {
	txnBytes := make([][]byte, 0, txns.Len())
	for _, t := range txns.Values() {
		t := t
		txnBytes = append(txnBytes, t.Bytes())
	}

	rewardBytes, _ := json.Marshal(reward)

	parts := append([][]byte{[]byte(s.snapshotID)}, txnBytes...)
	parts = append(parts, rewardBytes)

	buf := make([]byte, 0)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return hashing.Digest(buf)
}
