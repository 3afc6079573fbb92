package model

import (
	"sort"

	"github.com/pocnode/core/config"
	"github.com/pocnode/core/errors"
)

// Quorum is the elected committee for a given seed/height, grounded on
// the Quorum type election_module.rs constructs via Quorum::new +
// run_election (source not retrieved in the pack; this reconstructs its
// observed call contract: seeded construction followed by a stateful
// election pass over a claim set, bounded by a threshold configuration).
type Quorum struct {
	Seed            uint64
	LastBlockHeight uint64
	Threshold       config.ThresholdConfig
	Members         []*Claim
}

// NewQuorum validates seed/threshold and returns an unelected Quorum,
// matching Quorum::new's fallible constructor (InvalidSeedError on a
// zero seed, since a zero seed can never produce a meaningful ordering).
func NewQuorum(seed uint64, lastBlockHeight uint64, threshold config.ThresholdConfig) (*Quorum, error) {
	if seed == 0 {
		return nil, errors.New(errors.ErrInvalidSeed, "quorum seed must be non-zero")
	}
	if !threshold.Valid() {
		return nil, errors.New(errors.ErrInvalidSeed, "quorum threshold config is invalid: %+v", threshold)
	}
	return &Quorum{Seed: seed, LastBlockHeight: lastBlockHeight, Threshold: threshold}, nil
}

// RunElection scores every claim against the quorum's seed and selects
// the UpperBound lowest-scoring claims as members, matching
// run_election's observed contract (mutates the Quorum in place, setting
// Members). Fails if fewer than Threshold claims are available,
// mirroring the DKG engine's own threshold requirement (spec.md §4.4).
func (q *Quorum) RunElection(claims []*Claim) error {
	if len(claims) < int(q.Threshold.Threshold) {
		return errors.New(errors.ErrInvalidSeed, "only %d claims available, need at least threshold %d", len(claims), q.Threshold.Threshold)
	}

	type scored struct {
		claim *Claim
	}

	scores := make([]scored, 0, len(claims))
	for _, c := range claims {
		scores = append(scores, scored{claim: c})
	}

	sort.Slice(scores, func(i, j int) bool {
		ci, cj := scores[i].claim, scores[j].claim
		pi, pj := ci.GetElectionResult(q.Seed), cj.GetElectionResult(q.Seed)
		if cmp := pi.Cmp(pj); cmp != 0 {
			return cmp < 0
		}
		return ci.Hash < cj.Hash
	})

	n := int(q.Threshold.UpperBound)
	if n > len(scores) {
		n = len(scores)
	}

	members := make([]*Claim, 0, n)
	for i := 0; i < n; i++ {
		members = append(members, scores[i].claim)
	}
	q.Members = members

	return nil
}
