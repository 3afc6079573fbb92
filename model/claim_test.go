package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaim_ValidRequiresHashMatchesPubKey(t *testing.T) {
	c := NewClaim("pubkey-abc", EligibilityMiner)
	assert.True(t, c.Valid())

	tampered := *c
	tampered.Hash = "not-the-real-hash"
	assert.False(t, tampered.Valid())
}

func TestClaim_GetPointerIsDeterministic(t *testing.T) {
	c := NewClaim("pubkey-abc", EligibilityMiner)

	p1 := c.GetPointer(42)
	p2 := c.GetPointer(42)
	assert.Equal(t, 0, p1.Cmp(p2))

	p3 := c.GetPointer(43)
	assert.NotEqual(t, 0, p1.Cmp(p3))
}

func TestClaim_GetElectionResultIsDeterministicAndDistinctFromPointer(t *testing.T) {
	c := NewClaim("pubkey-abc", EligibilityMiner)

	e1 := c.GetElectionResult(7)
	e2 := c.GetElectionResult(7)
	assert.Equal(t, 0, e1.Cmp(e2))

	p := c.GetPointer(7)
	assert.NotEqual(t, 0, e1.Cmp(p), "election result and pointer must use domain-separated scores")
}
