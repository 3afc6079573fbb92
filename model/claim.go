package model

import (
	"encoding/binary"
	"math/big"

	"github.com/pocnode/core/hashing"
)

// Eligibility is the role a Claim's stake entitles its holder to.
type Eligibility string

const (
	EligibilityMiner     Eligibility = "Miner"
	EligibilityHarvester Eligibility = "Harvester"
	EligibilityFarmer    Eligibility = "Farmer"
)

// Claim is a staking/identity record. Pointer and election-result scores
// are derived deterministically from (PubKey, Hash) and a caller-supplied
// nonce/seed, so any two nodes holding the same claim set compute
// identical scores (spec.md §8: "miner election is deterministic").
//
// get_pointer/get_election_result return, respectively, a u128 and a
// 256-bit integer in spec.md §3. This implementation uses math/big rather
// than a fixed-width uint128/uint256 type: the only such packages visible
// in the retrieved pack (EXCCoin-exccd's math/uint256 fork) were filtered
// down to their go.mod with no source kept, so there is no concrete API to
// ground calls against — see DESIGN.md.
type Claim struct {
	PubKey      string      `json:"pubkey"`
	Hash        string      `json:"hash"`
	Eligibility Eligibility `json:"eligibility"`
	IPAddress   string      `json:"ip_address,omitempty"`
	Signature   string      `json:"signature,omitempty"`
}

// NewClaim derives Hash from PubKey and returns a populated Claim.
func NewClaim(pubKey string, eligibility Eligibility) *Claim {
	return &Claim{
		PubKey:      pubKey,
		Hash:        hashing.DigestString(pubKey),
		Eligibility: eligibility,
	}
}

// Valid reports whether the claim is internally consistent: its Hash must
// be the digest of its PubKey. This is the "claim is internally valid"
// check the block validity predicate runs (spec.md §4.1).
func (c *Claim) Valid() bool {
	if c == nil || c.PubKey == "" || c.Hash == "" {
		return false
	}
	return c.Hash == hashing.DigestString(c.PubKey)
}

// GetPointer returns the claim's scalar selection score at nonce,
// truncated to 128 bits (spec.md §3: "pointer ... u128").
func (c *Claim) GetPointer(nonce uint64) *big.Int {
	return scoreFor(c.Hash, "pointer", nonce, 16)
}

// GetElectionResult returns the claim's 256-bit miner-election score for
// seed (spec.md §3: "get_election_result(seed) -> 256-bit integer").
func (c *Claim) GetElectionResult(seed uint64) *big.Int {
	return scoreFor(c.Hash, "election", seed, 32)
}

// scoreFor derives a deterministic pseudo-random score from the claim
// hash, a domain tag, and a nonce/seed, truncated to byteLen bytes. SHA-256
// is used because it is already the module's hash primitive (spec.md §6)
// and a second construction built on it (domain-separated, keyed by the
// claim hash) is sufficient entropy for a selection score without pulling
// in a dedicated PRF/KDF library.
func scoreFor(claimHash, domain string, n uint64, byteLen int) *big.Int {
	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, n)

	digest := hashing.Digest([]byte(domain + ":" + claimHash + ":" + string(nonceBytes)))

	out := new(big.Int)
	out.SetString(digest, 16)

	mask := new(big.Int).Lsh(big.NewInt(1), uint(byteLen*8))
	return out.Mod(out, mask)
}
