package model

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/pocnode/core/hashing"
)

// Seed is the per-round randomness value chained from block to block,
// mirroring original_source/block/src/header.rs's `pub type Seed = u64`.
type Seed uint64

// literal hash constants anchoring the genesis block, matching
// original_source's hardcoded genesis sentinels.
const (
	GenesisLastHash  = "Genesis_Last_Hash"
	GenesisStateHash = "Genesis_State_Hash"
	genesisSeedSalt  = "Genesis_Seed"
)

// BlockHeader carries every field the validity predicate and the content
// hash depend on (spec.md §3). Fields are ordered to match the original's
// header struct; neighbors_hash is an empty string when a block has no
// neighbors rather than a pointer, since Go has no natural analogue of
// Option<String> worth introducing just for this field.
type BlockHeader struct {
	BlockHeight      uint64 `json:"block_height"`
	BlockNonce       uint64 `json:"block_nonce"`
	NextBlockNonce   uint64 `json:"next_block_nonce"`
	LastHash         string `json:"last_hash"`
	BlockSeed        Seed   `json:"block_seed"`
	NextBlockSeed    Seed   `json:"next_block_seed"`
	BlockReward      Reward `json:"block_reward"`
	NextBlockReward  Reward `json:"next_block_reward"`
	Claim            Claim  `json:"claim"`
	TxnHash          string `json:"txn_hash"`
	ClaimMapHash     string `json:"claim_map_hash"`
	NeighborsHash    string `json:"neighbors_hash,omitempty"`
	TimestampNano    uint64 `json:"timestamp"`
	Signature        string `json:"signature"`
}

// Bytes returns the header's canonical byte representation used as the
// signing payload, excluding the signature itself so a header can be
// signed before Signature is set.
func (h *BlockHeader) Bytes() []byte {
	unsigned := *h
	unsigned.Signature = ""
	b, _ := json.Marshal(unsigned)
	return b
}

// deriveNonce and deriveSeed compute the deterministic, chain-derived
// values the original's header.rs produces from its own internal PRNG
// (not part of the retrieved source). Grounding this in the module's
// existing SHA-256 primitive keeps the derivation deterministic and
// reproducible across nodes without inventing a second hash construction;
// see DESIGN.md for this Open Question's resolution.
func deriveNonce(material string) uint64 {
	digest := hashing.DigestString(material)
	return decodeUint64(digest)
}

func deriveSeed(material string) Seed {
	return Seed(deriveNonce(material))
}

func decodeUint64(hexDigest string) uint64 {
	raw, err := hex.DecodeString(hexDigest[:16])
	if err != nil {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}
