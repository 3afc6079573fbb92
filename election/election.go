// Package election implements the deterministic miner and quorum
// selection component (spec.md §4.2), reacting to MinerElection and
// QuorumElection events the same way original_source's
// crates/node/src/components/election_module.rs does: one actor per
// election kind, processing events one at a time from a FIFO inbox and
// publishing ElectedMiner / ElectedQuorum outcomes.
package election

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pocnode/core/config"
	pocerrors "github.com/pocnode/core/errors"
	"github.com/pocnode/core/model"
	"github.com/pocnode/core/ulogger"
)

// ElectMiner filters claims to Eligibility==Miner, scores each against
// seed, and returns the sole winner: the claim with the lowest election
// result, ties broken by claim hash for a fully deterministic order
// regardless of map/slice iteration order (spec.md §8: "miner election is
// deterministic ... permutation-invariant").
//
// The original's get_winner takes BTreeMap's first entry, which silently
// drops same-score claims to map-key collision; this resolves the same
// non-determinism spec.md leaves implicit by sorting with an explicit
// tiebreak instead. The empty-eligible-set Open Question is resolved by
// returning ErrNoEligibleMiner rather than blocking (see DESIGN.md).
func ElectMiner(claims []*model.Claim, seed uint64) (*model.Claim, error) {
	eligible := make([]*model.Claim, 0, len(claims))
	for _, c := range claims {
		if c.Eligibility == model.EligibilityMiner {
			eligible = append(eligible, c)
		}
	}

	if len(eligible) == 0 {
		return nil, pocerrors.New(pocerrors.ErrNoEligibleMiner, "no claim with Miner eligibility in claim set")
	}

	sort.Slice(eligible, func(i, j int) bool {
		si := eligible[i].GetElectionResult(seed)
		sj := eligible[j].GetElectionResult(seed)
		if cmp := si.Cmp(sj); cmp != 0 {
			return cmp < 0
		}
		return eligible[i].Hash < eligible[j].Hash
	})

	return eligible[0], nil
}

// ElectQuorum builds and runs a Quorum election for the block that
// follows header, matching elect_quorum's call into Quorum::new +
// run_election.
func ElectQuorum(claims []*model.Claim, header *model.BlockHeader, threshold config.ThresholdConfig) (*model.Quorum, error) {
	q, err := model.NewQuorum(uint64(header.NextBlockSeed), header.BlockHeight, threshold)
	if err != nil {
		return nil, err
	}
	if err := q.RunElection(claims); err != nil {
		return nil, err
	}
	return q, nil
}

// Kind discriminates the two election event types an Actor processes.
type Kind int

const (
	KindMiner Kind = iota
	KindQuorum
)

// Event is the inbound message an Actor consumes: a block header
// announcing the round to elect for.
type Event struct {
	Kind   Kind
	Header *model.BlockHeader
}

// Outcome is the published result of processing one Event.
type Outcome struct {
	Kind   Kind
	Miner  *model.Claim
	Quorum *model.Quorum
	Err    error
}

// Actor is a single-goroutine, FIFO-inbox reactive component, matching
// the original's theater::Handler<EventMessage> actors: exactly one
// event is processed at a time, in arrival order, until Stop is called.
type Actor struct {
	id        string
	kind      Kind
	claims    func() []*model.Claim
	threshold config.ThresholdConfig
	log       ulogger.Logger

	inbox   chan Event
	outcome chan Outcome
	stop    chan struct{}
	done    chan struct{}
}

// NewActor builds an Actor of the given kind. claimsFn supplies the
// live, read-only claim set at the moment each event is processed
// (spec.md §5: "claim store read handle is shared, read-only").
func NewActor(kind Kind, claimsFn func() []*model.Claim, threshold config.ThresholdConfig, log ulogger.Logger) *Actor {
	return &Actor{
		id:        uuid.NewString(),
		kind:      kind,
		claims:    claimsFn,
		threshold: threshold,
		log:       log,
		inbox:     make(chan Event, 64),
		outcome:   make(chan Outcome, 64),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ID returns the actor's identity, mirroring ActorId in the original.
func (a *Actor) ID() string { return a.id }

// Outcomes exposes the channel ElectedMiner/ElectedQuorum results are
// published on, standing in for the original's EventPublisher.
func (a *Actor) Outcomes() <-chan Outcome { return a.outcome }

// Submit enqueues an election event. It blocks if the inbox is full,
// applying natural backpressure rather than dropping events.
func (a *Actor) Submit(ctx context.Context, ev Event) error {
	select {
	case a.inbox <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes inbox events one at a time until Stop is called or ctx
// is cancelled, matching the original's on_stop/Handler::handle loop.
func (a *Actor) Run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case ev := <-a.inbox:
			a.process(ev)
		case <-a.stop:
			a.log.Infof("election actor %s received stop signal, stopping", a.id)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (a *Actor) process(ev Event) {
	switch ev.Kind {
	case KindMiner:
		winner, err := ElectMiner(a.claims(), uint64(ev.Header.BlockSeed))
		a.publish(Outcome{Kind: KindMiner, Miner: winner, Err: err})
	case KindQuorum:
		quorum, err := ElectQuorum(a.claims(), ev.Header, a.threshold)
		a.publish(Outcome{Kind: KindQuorum, Quorum: quorum, Err: err})
	}
}

func (a *Actor) publish(o Outcome) {
	select {
	case a.outcome <- o:
	default:
		a.log.Warnf("election actor %s outcome channel full, dropping outcome", a.id)
	}
}

// Stop signals Run to return and waits for it to do so.
func (a *Actor) Stop() {
	close(a.stop)
	<-a.done
}
