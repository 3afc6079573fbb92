package dkg

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocnode/core/config"
	"github.com/pocnode/core/ulogger"
)

// fourNodeRound runs a 4-node DKG round locally through the Part, Ack
// and HandleAckMessages steps, mirroring
// original_source/dkg_engine/src/test_utils.rs's
// generate_dkg_engine_with_states fixture, and returns each node's
// State ready for GenerateKeySets.
func fourNodeRound(t *testing.T, threshold config.ThresholdConfig) []*State {
	t.Helper()

	participants := []uint16{0, 1, 2, 3}
	states := make([]*State, len(participants))
	for i, idx := range participants {
		states[i] = NewState(idx, threshold)
	}

	parts := make(map[uint16]*Part, len(participants))
	for i, idx := range participants {
		part, err := GeneratePart(idx, threshold, participants)
		require.NoError(t, err)
		parts[idx] = part
		_ = i
	}

	for _, s := range states {
		for _, part := range parts {
			s.AbsorbPart(part)
		}
	}

	acks := make([]*Ack, 0, len(participants)*len(participants))
	for _, s := range states {
		for _, dealerIdx := range participants {
			ack, err := s.AckPartialCommitment(dealerIdx)
			require.NoError(t, err)
			acks = append(acks, ack)
		}
	}

	for _, s := range states {
		for _, ack := range acks {
			s.AbsorbAck(ack)
		}
	}

	for _, s := range states {
		require.NoError(t, s.HandleAckMessages(participants))
	}

	return states
}

func TestDkg_FourOfFourCompletes(t *testing.T) {
	threshold := config.ThresholdConfig{UpperBound: 4, Threshold: 1}
	states := fourNodeRound(t, threshold)

	shares := make(map[uint16]*big.Int, len(states))
	for _, s := range states {
		keySet, err := s.GenerateKeySets()
		require.NoError(t, err)
		assert.Len(t, keySet.Qualified, 4)
		shares[s.NodeIdx] = keySet.SecretKeyShare
	}

	assert.Len(t, shares, 4)
}

func TestDkg_HandleAckMessages_FailsBelowThreshold(t *testing.T) {
	threshold := config.ThresholdConfig{UpperBound: 4, Threshold: 3}
	participants := []uint16{0, 1, 2, 3}

	s := NewState(0, threshold)
	part, err := GeneratePart(0, threshold, participants)
	require.NoError(t, err)
	s.AbsorbPart(part)

	ack, err := s.AckPartialCommitment(0)
	require.NoError(t, err)
	s.AbsorbAck(ack)

	require.Error(t, s.HandleAckMessages(participants))
}

func TestReconstruct_RecoversSecretFromThresholdShares(t *testing.T) {
	threshold := config.ThresholdConfig{UpperBound: 4, Threshold: 2}
	participants := []uint16{0, 1, 2, 3}

	part, err := GeneratePart(0, threshold, participants)
	require.NoError(t, err)

	subset := map[uint16]*big.Int{
		0: part.Shares[0],
		1: part.Shares[1],
	}
	secretFromSubset := Reconstruct(subset)

	fullSet := map[uint16]*big.Int{
		0: part.Shares[0],
		1: part.Shares[1],
		2: part.Shares[2],
	}
	secretFromFullSet := Reconstruct(fullSet)

	assert.Equal(t, 0, secretFromSubset.Cmp(secretFromFullSet))
}

func TestSession_AbortOnTimeout(t *testing.T) {
	settings := config.DefaultSettings()
	settings.DKGSessionTimeout = 10 * time.Millisecond

	session := NewSession(context.Background(), 0, config.ThresholdConfig{UpperBound: 4, Threshold: 2}, settings, ulogger.TestLogger())
	time.Sleep(30 * time.Millisecond)

	_, err := session.RunPart([]uint16{0, 1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, PhaseAborted, session.Phase())
}
