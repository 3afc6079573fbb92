package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pocnode/core/config"
	"github.com/pocnode/core/signer"
)

func testProvider() signer.Provider { return signer.NewECDSAProvider() }

func mustKeyPair(t *testing.T) *signer.KeyPair {
	t.Helper()
	kp, err := signer.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

// backdate pushes genesis's timestamp far enough into the past that a
// Mine call immediately afterward clears MinBlockInterval.
func backdate(genesis *Block) {
	genesis.Header.TimestampNano = uint64(time.Now().Add(-2 * time.Second).UnixNano())
}

func TestGenesis_IsAccepted(t *testing.T) {
	prov := testProvider()
	kp := mustKeyPair(t)
	claim := NewClaim(kp.PubKeyHex(), EligibilityMiner)
	settings := config.DefaultSettings()

	rewardState := NewStaticRewardState(Reward{Category: "emission", Amount: 10}, "emission")
	txns := NewOrderedMap[Txn]()
	claims := NewOrderedMap[Claim]()
	claims.Set(claim.Hash, *claim)

	genesis, err := Genesis(claim, kp.PrivKeyHex(), rewardState, txns, claims, prov)
	require.NoError(t, err)

	require.NoError(t, genesis.ValidGenesis(settings, prov))
}

func TestGenesis_RejectsTxnBelowValidatorThreshold(t *testing.T) {
	prov := testProvider()
	kp := mustKeyPair(t)
	claim := NewClaim(kp.PubKeyHex(), EligibilityMiner)
	settings := config.DefaultSettings()

	rewardState := NewStaticRewardState(Reward{Category: "emission", Amount: 10}, "emission")
	txns := NewOrderedMap[Txn]()
	underApproved := sampleTxn("under-approved")
	underApproved.Validators = map[string]bool{"v1": true, "v2": false, "v3": false}
	txns.Set(underApproved.TxnID, *underApproved)

	claims := NewOrderedMap[Claim]()
	claims.Set(claim.Hash, *claim)

	genesis, err := Genesis(claim, kp.PrivKeyHex(), rewardState, txns, claims, prov)
	require.NoError(t, err)

	err = genesis.ValidGenesis(settings, prov)
	require.Error(t, err)
}

func TestMine_ThenValid_Accepts(t *testing.T) {
	prov := testProvider()
	kp := mustKeyPair(t)
	claim := NewClaim(kp.PubKeyHex(), EligibilityMiner)
	settings := config.DefaultSettings()

	rewardState := NewStaticRewardState(Reward{Category: "emission", Amount: 10}, "emission")
	txns := NewOrderedMap[Txn]()
	claims := NewOrderedMap[Claim]()
	claims.Set(claim.Hash, *claim)

	genesis, err := Genesis(claim, kp.PrivKeyHex(), rewardState, txns, claims, prov)
	require.NoError(t, err)
	backdate(genesis)

	networkState := NewSnapshotNetworkState(genesis.Hash, []*Claim{claim})
	claimMapHash := hashClaims(claims)

	next, err := Mine(claim, kp.PrivKeyHex(), genesis, txns, claims, claimMapHash, rewardState, settings, networkState, nil, nil, prov)
	require.NoError(t, err)

	require.NoError(t, next.Valid(genesis, networkState, rewardState, prov))
}

func TestMine_RejectsBelowMinBlockInterval(t *testing.T) {
	prov := testProvider()
	kp := mustKeyPair(t)
	claim := NewClaim(kp.PubKeyHex(), EligibilityMiner)
	settings := config.DefaultSettings()

	rewardState := NewStaticRewardState(Reward{Category: "emission", Amount: 10}, "emission")
	txns := NewOrderedMap[Txn]()
	claims := NewOrderedMap[Claim]()
	claims.Set(claim.Hash, *claim)

	genesis, err := Genesis(claim, kp.PrivKeyHex(), rewardState, txns, claims, prov)
	require.NoError(t, err)
	// genesis.Header.TimestampNano is "now", so mining immediately
	// afterward is well under MinBlockInterval.

	networkState := NewSnapshotNetworkState(genesis.Hash, []*Claim{claim})
	claimMapHash := hashClaims(claims)

	_, err = Mine(claim, kp.PrivKeyHex(), genesis, txns, claims, claimMapHash, rewardState, settings, networkState, nil, nil, prov)
	require.Error(t, err)
}

func TestMine_RejectsNonMonotonicTimestamp(t *testing.T) {
	prov := testProvider()
	kp := mustKeyPair(t)
	claim := NewClaim(kp.PubKeyHex(), EligibilityMiner)
	settings := config.DefaultSettings()

	rewardState := NewStaticRewardState(Reward{Category: "emission", Amount: 10}, "emission")
	txns := NewOrderedMap[Txn]()
	claims := NewOrderedMap[Claim]()
	claims.Set(claim.Hash, *claim)

	genesis, err := Genesis(claim, kp.PrivKeyHex(), rewardState, txns, claims, prov)
	require.NoError(t, err)
	genesis.Header.TimestampNano = uint64(time.Now().Add(time.Hour).UnixNano())

	networkState := NewSnapshotNetworkState(genesis.Hash, []*Claim{claim})
	claimMapHash := hashClaims(claims)

	_, err = Mine(claim, kp.PrivKeyHex(), genesis, txns, claims, claimMapHash, rewardState, settings, networkState, nil, nil, prov)
	require.Error(t, err)
}

func TestValid_RejectsHeightEqualToTip(t *testing.T) {
	prov := testProvider()
	kp := mustKeyPair(t)
	claim := NewClaim(kp.PubKeyHex(), EligibilityMiner)
	settings := config.DefaultSettings()

	rewardState := NewStaticRewardState(Reward{Category: "emission", Amount: 10}, "emission")
	txns := NewOrderedMap[Txn]()
	claims := NewOrderedMap[Claim]()
	claims.Set(claim.Hash, *claim)

	genesis, err := Genesis(claim, kp.PrivKeyHex(), rewardState, txns, claims, prov)
	require.NoError(t, err)
	backdate(genesis)

	networkState := NewSnapshotNetworkState(genesis.Hash, []*Claim{claim})
	claimMapHash := hashClaims(claims)

	next, err := Mine(claim, kp.PrivKeyHex(), genesis, txns, claims, claimMapHash, rewardState, settings, networkState, nil, nil, prov)
	require.NoError(t, err)

	// Force it to claim the same height as the tip: a stale/competing proposal.
	next.Header.BlockHeight = genesis.Height
	next.Height = genesis.Height

	err = next.Valid(genesis, networkState, rewardState, prov)
	require.Error(t, err)
}

func TestValid_RejectsSkippedHeight(t *testing.T) {
	prov := testProvider()
	kp := mustKeyPair(t)
	claim := NewClaim(kp.PubKeyHex(), EligibilityMiner)
	settings := config.DefaultSettings()

	rewardState := NewStaticRewardState(Reward{Category: "emission", Amount: 10}, "emission")
	txns := NewOrderedMap[Txn]()
	claims := NewOrderedMap[Claim]()
	claims.Set(claim.Hash, *claim)

	genesis, err := Genesis(claim, kp.PrivKeyHex(), rewardState, txns, claims, prov)
	require.NoError(t, err)
	backdate(genesis)

	networkState := NewSnapshotNetworkState(genesis.Hash, []*Claim{claim})
	claimMapHash := hashClaims(claims)

	next, err := Mine(claim, kp.PrivKeyHex(), genesis, txns, claims, claimMapHash, rewardState, settings, networkState, nil, nil, prov)
	require.NoError(t, err)

	next.Header.BlockHeight = genesis.Height + 2
	next.Height = genesis.Height + 2

	err = next.Valid(genesis, networkState, rewardState, prov)
	require.Error(t, err)
}

func TestValid_RejectsTamperedSignature(t *testing.T) {
	prov := testProvider()
	kp := mustKeyPair(t)
	claim := NewClaim(kp.PubKeyHex(), EligibilityMiner)
	settings := config.DefaultSettings()

	rewardState := NewStaticRewardState(Reward{Category: "emission", Amount: 10}, "emission")
	txns := NewOrderedMap[Txn]()
	claims := NewOrderedMap[Claim]()
	claims.Set(claim.Hash, *claim)

	genesis, err := Genesis(claim, kp.PrivKeyHex(), rewardState, txns, claims, prov)
	require.NoError(t, err)
	backdate(genesis)

	networkState := NewSnapshotNetworkState(genesis.Hash, []*Claim{claim})
	claimMapHash := hashClaims(claims)

	next, err := Mine(claim, kp.PrivKeyHex(), genesis, txns, claims, claimMapHash, rewardState, settings, networkState, nil, nil, prov)
	require.NoError(t, err)

	next.Header.Signature = "deadbeef"

	err = next.Valid(genesis, networkState, rewardState, prov)
	require.Error(t, err)
}
