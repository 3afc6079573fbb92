package model

import (
	"time"

	"github.com/pocnode/core/config"
	"github.com/pocnode/core/errors"
	"github.com/pocnode/core/hashing"
	"github.com/pocnode/core/signer"
)

// Block is the unit of consensus (spec.md §4.1). Neighbors and
// AbandonedClaim are optional; Go represents their absence with nil /
// zero value rather than an Option wrapper type.
type Block struct {
	Header         BlockHeader         `json:"header"`
	Neighbors      []string            `json:"neighbors,omitempty"`
	Height         uint64              `json:"height"`
	Txns           *OrderedMap[Txn]    `json:"txns"`
	Claims         *OrderedMap[Claim]  `json:"claims"`
	Hash           string              `json:"hash"`
	ReceivedAtNano uint64              `json:"received_at"`
	ReceivedFrom   string              `json:"received_from,omitempty"`
	AbandonedClaim *Claim              `json:"abandoned_claim,omitempty"`
}

// hashTxns folds a txn map into a single digest, preserving insertion
// order so every node that agrees on the map's content and order agrees
// on the hash (spec.md §6: OrderedMap's raison d'être).
func hashTxns(txns *OrderedMap[Txn]) string {
	parts := make([][]byte, 0, txns.Len())
	for _, t := range txns.Values() {
		t := t
		parts = append(parts, t.Bytes())
	}
	return hashing.Concat(parts...)
}

// hashClaims folds a claim map into a single digest the same way.
func hashClaims(claims *OrderedMap[Claim]) string {
	parts := make([][]byte, 0, claims.Len())
	for _, k := range claims.Keys() {
		c, _ := claims.Get(k)
		parts = append(parts, []byte(c.Hash+string(c.Eligibility)+c.PubKey))
	}
	return hashing.Concat(parts...)
}

func hashNeighbors(neighbors []string) string {
	if len(neighbors) == 0 {
		return ""
	}
	parts := make([][]byte, 0, len(neighbors))
	for _, n := range neighbors {
		parts = append(parts, []byte(n))
	}
	return hashing.Concat(parts...)
}

// Genesis builds block height 0, signed by claim's owner via priv (the
// signer.Provider abstracting the out-of-scope BLS suite). Matches
// original_source/block/src/block.rs's `genesis`.
func Genesis(
	claim *Claim,
	privKeyHex string,
	rewardState RewardState,
	txns *OrderedMap[Txn],
	claims *OrderedMap[Claim],
	prov signer.Provider,
) (*Block, error) {
	if !claim.Valid() {
		return nil, errors.New(errors.ErrInvalidClaim, "genesis claim is internally invalid")
	}

	genesisReward := Reward{Category: GenesisRewardCategory, Amount: 0}

	header := BlockHeader{
		BlockHeight:     0,
		BlockNonce:      0,
		NextBlockNonce:  deriveNonce(claim.Hash + "|genesis"),
		LastHash:        hashing.DigestString(GenesisLastHash),
		BlockSeed:       deriveSeed(genesisSeedSalt),
		NextBlockSeed:   deriveSeed(genesisSeedSalt + "|next"),
		BlockReward:     genesisReward,
		NextBlockReward: rewardState.NextReward(genesisReward),
		Claim:           *claim,
		TxnHash:         hashTxns(txns),
		ClaimMapHash:    hashClaims(claims),
		NeighborsHash:   "",
		TimestampNano:   uint64(time.Now().UnixNano()),
	}

	sig, err := prov.Sign(privKeyHex, header.Bytes())
	if err != nil {
		return nil, errors.New(errors.ErrInvalidBlockSignature, "failed to sign genesis header", err)
	}
	header.Signature = sig

	// g.hash = H(header.last_hash + "," + H("Genesis_State_Hash")) (spec.md
	// §4.1, §8), not a fold of the network-state snapshot: genesis has no
	// predecessor state to fold in, only the two sentinel hashes.
	stateHash := hashing.DigestString(header.LastHash + "," + hashing.DigestString(GenesisStateHash))

	b := &Block{
		Header:         header,
		Height:         0,
		Txns:           txns,
		Claims:         claims,
		Hash:           stateHash,
		ReceivedAtNano: header.TimestampNano,
	}

	return b, nil
}

// Mine extends last with a new block proposed by claim, the caller having
// already established (e.g. via the election package) that claim is the
// winning claim for nonce = last.Header.NextBlockNonce. Matches
// original_source/block/src/block.rs's `mine`.
func Mine(
	claim *Claim,
	privKeyHex string,
	last *Block,
	txns *OrderedMap[Txn],
	claims *OrderedMap[Claim],
	claimMapHash string,
	rewardState RewardState,
	settings *config.Settings,
	networkState NetworkState,
	neighbors []string,
	abandonedClaim *Claim,
	prov signer.Provider,
) (*Block, error) {
	if !claim.Valid() {
		return nil, errors.New(errors.ErrInvalidClaim, "mining claim is internally invalid")
	}

	height := last.Height + 1
	timestampNano := uint64(time.Now().UnixNano())

	// Mirrors block.rs:120-124's checked_sub + "(time / SECOND) < 1": a
	// non-monotonic clock (timestamp at or before last's) and a timestamp
	// less than MinBlockInterval past last's both reject the mine attempt
	// rather than producing a block (spec.md §4.1, scenario 4).
	if timestampNano <= last.Header.TimestampNano {
		return nil, errors.New(errors.ErrInvalidBlockNonce, "mine timestamp %d does not exceed previous block's timestamp %d", timestampNano, last.Header.TimestampNano)
	}
	elapsed := time.Duration(timestampNano-last.Header.TimestampNano) * time.Nanosecond
	if elapsed < settings.MinBlockInterval {
		return nil, errors.New(errors.ErrInvalidBlockNonce, "mine timestamp is only %s past previous block, below the minimum block interval", elapsed)
	}

	header := BlockHeader{
		BlockHeight:     height,
		BlockNonce:      last.Header.NextBlockNonce,
		NextBlockNonce:  deriveNonce(claim.Hash + "|" + last.Hash),
		LastHash:        last.Hash,
		BlockSeed:       last.Header.NextBlockSeed,
		NextBlockSeed:   deriveSeed(last.Hash + "|next"),
		BlockReward:     last.Header.NextBlockReward,
		NextBlockReward: rewardState.NextReward(last.Header.NextBlockReward),
		Claim:           *claim,
		TxnHash:         hashTxns(txns),
		ClaimMapHash:    claimMapHash,
		NeighborsHash:   hashNeighbors(neighbors),
		TimestampNano:   timestampNano,
	}

	sig, err := prov.Sign(privKeyHex, header.Bytes())
	if err != nil {
		return nil, errors.New(errors.ErrInvalidBlockSignature, "failed to sign header", err)
	}
	header.Signature = sig

	b := &Block{
		Header:         header,
		Neighbors:      neighbors,
		Height:         height,
		Txns:           txns,
		Claims:         claims,
		Hash:           header.LastHash,
		ReceivedAtNano: header.TimestampNano,
		AbandonedClaim: abandonedClaim,
	}
	b.Hash = networkState.Hash(txns, header.NextBlockReward)

	return b, nil
}

// Valid runs the full validity predicate for a non-genesis block against
// its immediate predecessor (spec.md §4.1's validity predicate table).
// Height banding resolves the "exact height-banding semantics" Open
// Question: only prev.Height+1 is ever accepted, so a height at or below
// prev.Height is
// ErrNotTallestChain (a competing or stale proposal) and anything beyond
// prev.Height+1 is ErrBlockOutOfSequence (a gap this node hasn't caught
// up to yet) — see DESIGN.md.
func (b *Block) Valid(prev *Block, networkState NetworkState, rewardState RewardState, prov signer.Provider) error {
	switch {
	case b.Header.BlockHeight <= prev.Height:
		return errors.New(errors.ErrNotTallestChain, "block height %d does not exceed chain tip %d", b.Header.BlockHeight, prev.Height)
	case b.Header.BlockHeight > prev.Height+1:
		return errors.New(errors.ErrBlockOutOfSequence, "block height %d skips ahead of chain tip %d", b.Header.BlockHeight, prev.Height)
	}

	if b.Height != b.Header.BlockHeight {
		return errors.New(errors.ErrInvalidBlockHeight, "block.height %d disagrees with header.block_height %d", b.Height, b.Header.BlockHeight)
	}

	if b.Header.BlockNonce != prev.Header.NextBlockNonce {
		return errors.New(errors.ErrInvalidBlockNonce, "block_nonce does not match previous next_block_nonce")
	}

	if b.Header.BlockReward != prev.Header.NextBlockReward {
		return errors.New(errors.ErrInvalidBlockReward, "block_reward does not match previous next_block_reward")
	}
	if !rewardState.ValidReward(b.Header.NextBlockReward.Category) {
		return errors.New(errors.ErrInvalidNextBlockReward, "next_block_reward category %q is not valid", b.Header.NextBlockReward.Category)
	}

	winnerHash, winnerPointer, ok := networkState.LowestPointer(b.Header.BlockNonce)
	if !ok || winnerHash != b.Header.Claim.Hash || winnerPointer.Cmp(b.Header.Claim.GetPointer(b.Header.BlockNonce)) != 0 {
		return errors.New(errors.ErrInvalidClaimPointers, "claim does not hold the lowest pointer at this nonce")
	}

	if b.Header.LastHash != prev.Hash {
		return errors.New(errors.ErrInvalidLastHash, "last_hash does not match previous block's hash")
	}

	if !b.Header.Claim.Valid() {
		return errors.New(errors.ErrInvalidClaim, "block claim is internally invalid")
	}

	if b.Header.TxnHash != hashTxns(b.Txns) {
		return errors.New(errors.ErrInvalidTxns, "txn_hash does not match block's txn set")
	}

	if b.Header.ClaimMapHash != hashClaims(b.Claims) {
		return errors.New(errors.ErrInvalidStateHash, "claim_map_hash does not match block's claim set")
	}

	if !prov.Verify(b.Header.Claim.PubKey, b.Header.Bytes(), b.Header.Signature) {
		return errors.New(errors.ErrInvalidBlockSignature, "header signature does not verify under claim pubkey")
	}

	return nil
}

// ValidGenesis runs the reduced validity predicate for the height-0
// block, which has no predecessor to check sequencing, nonce, reward
// continuity, or last_hash against (spec.md §4.1).
func (b *Block) ValidGenesis(settings *config.Settings, prov signer.Provider) error {
	if b.Header.BlockHeight != 0 || b.Height != 0 {
		return errors.New(errors.ErrInvalidBlockHeight, "genesis block must be height 0")
	}
	if b.Header.BlockNonce != 0 {
		return errors.New(errors.ErrInvalidBlockNonce, "genesis block_nonce must be 0")
	}
	if b.Header.LastHash != hashing.DigestString(GenesisLastHash) {
		return errors.New(errors.ErrInvalidLastHash, "genesis last_hash does not match the genesis sentinel")
	}
	if b.Header.BlockReward.Category != GenesisRewardCategory {
		return errors.New(errors.ErrInvalidBlockReward, "genesis block_reward category must be %q", GenesisRewardCategory)
	}
	if !b.Header.Claim.Valid() {
		return errors.New(errors.ErrInvalidClaim, "genesis claim is internally invalid")
	}
	if b.Header.TxnHash != hashTxns(b.Txns) {
		return errors.New(errors.ErrInvalidTxns, "txn_hash does not match genesis txn set")
	}
	if b.Header.ClaimMapHash != hashClaims(b.Claims) {
		return errors.New(errors.ErrInvalidStateHash, "claim_map_hash does not match genesis claim set")
	}
	// Every genesis txn needs at least GenesisValidatorThreshold of its
	// validators voting true, matching block.rs:334-342's n_valid/len()
	// ratio check (spec.md §4.1, §6, scenario 8).
	threshold := settings.GenesisValidatorThreshold
	for _, txn := range b.Txns.Values() {
		if txn.ValidatorApprovalRatio() < threshold {
			return errors.New(errors.ErrInvalidTxns, "genesis txn %s approval ratio is below the validator threshold %.2f", txn.TxnID, threshold)
		}
	}
	if !prov.Verify(b.Header.Claim.PubKey, b.Header.Bytes(), b.Header.Signature) {
		return errors.New(errors.ErrInvalidBlockSignature, "genesis header signature does not verify under claim pubkey")
	}
	return nil
}
