// Package dkg implements the synchronous verifiable-secret-sharing
// engine (spec.md §4.4): a Part phase where every participant deals a
// Shamir-shared polynomial, an Ack phase where participants acknowledge
// the shares they received, and a key-set phase that combines the
// qualified dealers' shares into each participant's final secret-key
// share.
//
// Grounded on original_source/dkg_engine/src/test_utils.rs's
// generate_dkg_engine_with_states fixture: its step sequence
// (generate_sync_keygen_instance -> distribute parts ->
// ack_partial_commitment -> handle_ack_messages -> generate_key_sets) is
// the exact sequence State/Session below implement. The fixture's
// actual DKG library (hbbft) was not retrieved into the pack, so the
// per-phase cryptography here is a from-scratch Shamir VSS over the
// secp256k1 group order rather than hbbft's pairing-based scheme: commitments
// are SHA-256 digests of shares rather than Feldman's elliptic-curve
// commitments, a reduced but still verifiable construction appropriate
// given spec.md §1 already abstracts the real threshold signature suite
// behind signer.Provider. See DESIGN.md.
package dkg

import (
	"context"
	"crypto/rand"
	"math/big"
	"sort"

	"github.com/looplab/fsm"

	"github.com/pocnode/core/config"
	pocerrors "github.com/pocnode/core/errors"
	"github.com/pocnode/core/hashing"
	"github.com/pocnode/core/ulogger"
)

// groupOrder is the secp256k1 curve's group order, matching the curve
// github.com/decred/dcrd/dcrec/secp256k1/v4 implements. Polynomial
// arithmetic is carried out mod this constant rather than via that
// package's ModNScalar type directly: ModNScalar's documented API
// covers arithmetic but not the generic-degree polynomial evaluation
// this package needs, so this module does that evaluation with
// math/big and only borrows the constant.
var groupOrder, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)

// Part is a dealer's broadcastable VSS message: a hash commitment to the
// share it privately computed for every participant, plus (in this
// single-process engine) the shares themselves. A networked deployment
// would strip Shares down to the one entry addressed to the local node
// before the message ever crosses a transport boundary — transport is
// out of scope here (spec.md §1).
type Part struct {
	DealerNodeIdx    uint16
	ShareCommitments map[uint16]string
	Shares           map[uint16]*big.Int
}

// Ack is one participant's acknowledgement of the share it received from
// a given dealer.
type Ack struct {
	FromNodeIdx   uint16
	DealerNodeIdx uint16
	Valid         bool
}

// KeySet is the result of a completed DKG round for one participant.
type KeySet struct {
	SecretKeyShare  *big.Int
	GroupCommitment string
	Qualified       []uint16
}

// GeneratePart deals a fresh degree-(threshold-1) polynomial and returns
// the Part a dealer broadcasts, mirroring
// generate_sync_keygen_instance's PartMessageGenerated output.
func GeneratePart(dealerIdx uint16, threshold config.ThresholdConfig, participantIdxs []uint16) (*Part, error) {
	if !threshold.Valid() {
		return nil, pocerrors.New(pocerrors.ErrDkgThresholdMisconfigured, "threshold config invalid: %+v", threshold)
	}

	coeffs := make([]*big.Int, threshold.Threshold)
	for i := range coeffs {
		c, err := rand.Int(rand.Reader, groupOrder)
		if err != nil {
			return nil, pocerrors.New(pocerrors.ErrDkgKeyGenFailed, "failed to sample polynomial coefficient", err)
		}
		coeffs[i] = c
	}

	part := &Part{
		DealerNodeIdx:    dealerIdx,
		ShareCommitments: make(map[uint16]string, len(participantIdxs)),
		Shares:           make(map[uint16]*big.Int, len(participantIdxs)),
	}

	for _, idx := range participantIdxs {
		x := big.NewInt(int64(idx) + 1) // x=0 is reserved for the secret itself
		share := evalPoly(coeffs, x)
		part.Shares[idx] = share
		part.ShareCommitments[idx] = hashing.DigestString(share.String())
	}

	return part, nil
}

// evalPoly evaluates coeffs (low-degree first) at x mod groupOrder using
// Horner's method.
func evalPoly(coeffs []*big.Int, x *big.Int) *big.Int {
	result := new(big.Int)
	for i := len(coeffs) - 1; i >= 0; i-- {
		result.Mul(result, x)
		result.Add(result, coeffs[i])
		result.Mod(result, groupOrder)
	}
	return result
}

// State holds everything one participant accumulates across a DKG
// round, matching DkgState's part_message_store / ack_message_store /
// secret_key_share fields.
type State struct {
	NodeIdx         uint16
	Threshold       config.ThresholdConfig
	PartStore       map[uint16]*Part
	AckStore        map[[2]uint16]*Ack
	SecretKeyShare  *big.Int
	GroupCommitment string
	Qualified       []uint16
}

// NewState returns an empty State for participant nodeIdx.
func NewState(nodeIdx uint16, threshold config.ThresholdConfig) *State {
	return &State{
		NodeIdx:   nodeIdx,
		Threshold: threshold,
		PartStore: make(map[uint16]*Part),
		AckStore:  make(map[[2]uint16]*Ack),
	}
}

// AbsorbPart stores a received Part, matching test_utils.rs's "if
// node_idx != self: insert into part_message_store" (a dealer does not
// need to store its own part separately; callers should also call this
// for their own Part so AckPartialCommitment can find it uniformly).
func (s *State) AbsorbPart(part *Part) {
	s.PartStore[part.DealerNodeIdx] = part
}

// AckPartialCommitment verifies the share this node received from
// dealerIdx against that dealer's published commitment, producing the
// Ack ack_partial_commitment returns.
func (s *State) AckPartialCommitment(dealerIdx uint16) (*Ack, error) {
	part, ok := s.PartStore[dealerIdx]
	if !ok {
		return nil, pocerrors.New(pocerrors.ErrDkgMissingPart, "no part stored for dealer %d", dealerIdx)
	}

	share, ok := part.Shares[s.NodeIdx]
	if !ok {
		return nil, pocerrors.New(pocerrors.ErrDkgMissingPart, "dealer %d did not address a share to node %d", dealerIdx, s.NodeIdx)
	}

	valid := hashing.DigestString(share.String()) == part.ShareCommitments[s.NodeIdx]

	return &Ack{FromNodeIdx: s.NodeIdx, DealerNodeIdx: dealerIdx, Valid: valid}, nil
}

// AbsorbAck merges a received Ack into the shared ack store, matching
// test_utils.rs's chained HashMap merge across all four engines.
func (s *State) AbsorbAck(ack *Ack) {
	s.AckStore[[2]uint16{ack.FromNodeIdx, ack.DealerNodeIdx}] = ack
}

// HandleAckMessages computes the qualified dealer set QUAL: dealers
// that received at least Threshold valid acks, matching
// handle_ack_messages's role in the original fixture.
func (s *State) HandleAckMessages(participantIdxs []uint16) error {
	validCounts := make(map[uint16]int)
	for _, ack := range s.AckStore {
		if ack.Valid {
			validCounts[ack.DealerNodeIdx]++
		}
	}

	qualified := make([]uint16, 0, len(participantIdxs))
	for _, idx := range participantIdxs {
		if validCounts[idx] >= int(s.Threshold.Threshold) {
			qualified = append(qualified, idx)
		}
	}
	sort.Slice(qualified, func(i, j int) bool { return qualified[i] < qualified[j] })

	if len(qualified) < int(s.Threshold.Threshold) {
		return pocerrors.New(pocerrors.ErrDkgMissingAck, "only %d dealers qualified, need at least threshold %d", len(qualified), s.Threshold.Threshold)
	}

	s.Qualified = qualified
	return nil
}

// GenerateKeySets combines the qualified dealers' shares into this
// node's final secret-key share, matching generate_key_sets.
func (s *State) GenerateKeySets() (*KeySet, error) {
	if len(s.Qualified) == 0 {
		return nil, pocerrors.New(pocerrors.ErrDkgKeyGenFailed, "handle_ack_messages must run before generate_key_sets")
	}

	secretShare := new(big.Int)
	commitmentParts := make([][]byte, 0, len(s.Qualified))
	for _, dealerIdx := range s.Qualified {
		part, ok := s.PartStore[dealerIdx]
		if !ok {
			return nil, pocerrors.New(pocerrors.ErrDkgKeyGenFailed, "missing part from qualified dealer %d", dealerIdx)
		}
		share, ok := part.Shares[s.NodeIdx]
		if !ok {
			return nil, pocerrors.New(pocerrors.ErrDkgKeyGenFailed, "qualified dealer %d has no share for node %d", dealerIdx, s.NodeIdx)
		}
		secretShare.Add(secretShare, share)
		secretShare.Mod(secretShare, groupOrder)

		for _, idx := range sortedShareRecipients(part) {
			commitmentParts = append(commitmentParts, []byte(part.ShareCommitments[idx]))
		}
	}

	groupCommitment := hashing.Concat(commitmentParts...)

	s.SecretKeyShare = secretShare
	s.GroupCommitment = groupCommitment

	return &KeySet{SecretKeyShare: secretShare, GroupCommitment: groupCommitment, Qualified: s.Qualified}, nil
}

func sortedShareRecipients(part *Part) []uint16 {
	out := make([]uint16, 0, len(part.ShareCommitments))
	for idx := range part.ShareCommitments {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reconstruct recovers the shared secret at x=0 from at least Threshold
// (index, share) pairs via Lagrange interpolation, used by tests to
// confirm the VSS round actually produced a consistent secret.
func Reconstruct(shares map[uint16]*big.Int) *big.Int {
	indices := make([]uint16, 0, len(shares))
	for idx := range shares {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	secret := new(big.Int)
	for _, i := range indices {
		xi := big.NewInt(int64(i) + 1)
		term := new(big.Int).Set(shares[i])

		for _, j := range indices {
			if j == i {
				continue
			}
			xj := big.NewInt(int64(j) + 1)

			num := new(big.Int).Neg(xj)
			num.Mod(num, groupOrder)

			den := new(big.Int).Sub(xi, xj)
			den.Mod(den, groupOrder)
			denInv := new(big.Int).ModInverse(den, groupOrder)

			factor := new(big.Int).Mul(num, denInv)
			factor.Mod(factor, groupOrder)

			term.Mul(term, factor)
			term.Mod(term, groupOrder)
		}

		secret.Add(secret, term)
		secret.Mod(secret, groupOrder)
	}

	return secret
}

// Phase names the fsm states a Session moves through.
const (
	PhaseIdle    = "idle"
	PhasePart    = "part"
	PhaseAck     = "ack"
	PhaseKeySet  = "keyset"
	PhaseDone    = "done"
	PhaseAborted = "aborted"
)

// Session drives one participant's State through the Part/Ack/KeySet
// phases with a looplab/fsm state machine, enforcing the round's
// session timeout and exposing Abort/Retry for the caller's retry loop
// (spec.md §4.4, §5: "DKG session timeout/abort/retry").
type Session struct {
	State   *State
	Timeout context.Context
	cancel  context.CancelFunc
	machine *fsm.FSM
	log     ulogger.Logger
	attempt int
}

// NewSession builds a Session bounded by settings.DKGSessionTimeout.
func NewSession(parent context.Context, nodeIdx uint16, threshold config.ThresholdConfig, settings *config.Settings, log ulogger.Logger) *Session {
	ctx, cancel := context.WithTimeout(parent, settings.DKGSessionTimeout)

	s := &Session{
		State:   NewState(nodeIdx, threshold),
		Timeout: ctx,
		cancel:  cancel,
		log:     log,
		attempt: 1,
	}

	s.machine = fsm.NewFSM(
		PhaseIdle,
		fsm.Events{
			{Name: "begin_part", Src: []string{PhaseIdle}, Dst: PhasePart},
			{Name: "begin_ack", Src: []string{PhasePart}, Dst: PhaseAck},
			{Name: "begin_keyset", Src: []string{PhaseAck}, Dst: PhaseKeySet},
			{Name: "complete", Src: []string{PhaseKeySet}, Dst: PhaseDone},
			{Name: "abort", Src: []string{PhaseIdle, PhasePart, PhaseAck, PhaseKeySet}, Dst: PhaseAborted},
		},
		fsm.Callbacks{},
	)

	return s
}

// Phase returns the session's current fsm state.
func (s *Session) Phase() string { return s.machine.Current() }

// Abort cancels the session's context and transitions it to the
// aborted phase.
func (s *Session) Abort() {
	s.cancel()
	_ = s.machine.Event(s.Timeout, "abort")
}

// checkDeadline aborts the session if its context has already expired,
// matching the "session timeout" invariant: no phase transition is
// honored once the clock has run out.
func (s *Session) checkDeadline() error {
	select {
	case <-s.Timeout.Done():
		_ = s.machine.Event(context.Background(), "abort")
		return pocerrors.New(pocerrors.ErrDkgMissingPart, "dkg session %d timed out", s.attempt)
	default:
		return nil
	}
}

// RunPart transitions into the Part phase and deals this node's
// polynomial.
func (s *Session) RunPart(participantIdxs []uint16) (*Part, error) {
	if err := s.checkDeadline(); err != nil {
		return nil, err
	}
	if err := s.machine.Event(s.Timeout, "begin_part"); err != nil {
		return nil, pocerrors.New(pocerrors.ErrDkgMalformedMessage, "cannot begin part phase from %s", s.machine.Current(), err)
	}
	return GeneratePart(s.State.NodeIdx, s.State.Threshold, participantIdxs)
}

// RunAck transitions into the Ack phase and acknowledges every stored
// part.
func (s *Session) RunAck(dealerIdxs []uint16) ([]*Ack, error) {
	if err := s.checkDeadline(); err != nil {
		return nil, err
	}
	if err := s.machine.Event(s.Timeout, "begin_ack"); err != nil {
		return nil, pocerrors.New(pocerrors.ErrDkgMalformedMessage, "cannot begin ack phase from %s", s.machine.Current(), err)
	}

	acks := make([]*Ack, 0, len(dealerIdxs))
	for _, dealerIdx := range dealerIdxs {
		ack, err := s.State.AckPartialCommitment(dealerIdx)
		if err != nil {
			return nil, err
		}
		acks = append(acks, ack)
	}
	return acks, nil
}

// RunKeySet transitions into the KeySet phase and derives this node's
// final secret-key share.
func (s *Session) RunKeySet(participantIdxs []uint16) (*KeySet, error) {
	if err := s.checkDeadline(); err != nil {
		return nil, err
	}
	if err := s.machine.Event(s.Timeout, "begin_keyset"); err != nil {
		return nil, pocerrors.New(pocerrors.ErrDkgMalformedMessage, "cannot begin keyset phase from %s", s.machine.Current(), err)
	}

	if err := s.State.HandleAckMessages(participantIdxs); err != nil {
		_ = s.machine.Event(s.Timeout, "abort")
		return nil, err
	}

	keySet, err := s.State.GenerateKeySets()
	if err != nil {
		_ = s.machine.Event(s.Timeout, "abort")
		return nil, err
	}

	_ = s.machine.Event(s.Timeout, "complete")
	return keySet, nil
}

// Retry builds a fresh Session for another attempt after an abort,
// carrying the attempt counter forward for logging.
func (s *Session) Retry(parent context.Context, settings *config.Settings) *Session {
	next := NewSession(parent, s.State.NodeIdx, s.State.Threshold, settings, s.log)
	next.attempt = s.attempt + 1
	s.log.Infof("dkg session retrying, attempt %d", next.attempt)
	return next
}
