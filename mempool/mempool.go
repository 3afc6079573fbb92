// Package mempool implements the replicated, double-buffered
// transaction store (spec.md §4.5): a single writer mutates a standby
// copy and atomically publishes it, while any number of readers observe
// a consistent snapshot of whichever copy is active. Each copy is guarded
// by its own RWMutex, so a reader still on the formerly active copy can
// wait briefly while the writer replays the operation onto it.
//
// Grounded on original_source/mempool/src/mempool.rs's
// LeftRightMemPoolDB, built on the left_right crate's
// Absorb<MempoolOp>/ReadHandle/WriteHandle split. left_right has no Go
// equivalent in the retrieved pack, so this reimplements its
// two-copy-plus-atomic-swap discipline directly: two TxnRecord maps, an
// atomic index (go.uber.org/atomic, already used elsewhere in this
// module's stack) naming which copy is active for readers, and a mutex
// serializing the single writer — see DESIGN.md.
package mempool

import (
	"sync"

	"go.uber.org/atomic"

	pocerrors "github.com/pocnode/core/errors"
	"github.com/pocnode/core/model"
)

type opKind int

const (
	opAdd opKind = iota
	opRemove
)

type op struct {
	kind opKind
	rec  *model.TxnRecord
}

// side is one of the pool's two replicated copies, matching absorb_*'s
// mutation target (Mempool.store in the original).
type side struct {
	mu   sync.RWMutex
	data map[string]*model.TxnRecord
}

func newSide() *side {
	return &side{data: make(map[string]*model.TxnRecord)}
}

func (s *side) absorb(o op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch o.kind {
	case opAdd:
		if _, exists := s.data[o.rec.TxnID]; exists {
			return // insertion of an existing id is a no-op overwrite (spec.md §3)
		}
		s.data[o.rec.TxnID] = o.rec
	case opRemove:
		delete(s.data, o.rec.TxnID)
	}
}

func (s *side) get(txnID string) (*model.TxnRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[txnID]
	return rec, ok
}

func (s *side) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// TxnPool is the double-buffered transaction store. All write methods
// serialize through writeMu (single writer); reads go through whichever
// side `active` currently names (many readers). A read on the side the
// writer is replaying onto waits for that side's lock.
type TxnPool struct {
	writeMu sync.Mutex
	sides   [2]*side
	active  atomic.Int32
}

// NewTxnPool returns an empty pool.
func NewTxnPool() *TxnPool {
	return &TxnPool{sides: [2]*side{newSide(), newSide()}}
}

// publish applies o to the current standby side, then atomically flips
// which side is active, then replays o onto the now-standby (formerly
// active) side so both copies converge — matching absorb_first +
// publish + absorb_second's two-phase application in the original.
func (p *TxnPool) publish(o op) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	standbyIdx := 1 - p.active.Load()
	p.sides[standbyIdx].absorb(o)
	p.active.Store(standbyIdx)
	p.sides[1-standbyIdx].absorb(o)
}

// AddTxn inserts txn, wrapping it in a fresh TxnRecord. Matches
// add_txn; inserting an id already present is an idempotent no-op.
func (p *TxnPool) AddTxn(txn *model.Txn) error {
	p.publish(op{kind: opAdd, rec: model.NewTxnRecord(txn)})
	return nil
}

// AddTxnBatch inserts every txn in txns as a single publish cycle,
// matching add_txn_batch's "push to ReadHandle after processing the
// entire batch" semantics.
func (p *TxnPool) AddTxnBatch(txns []*model.Txn) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	standbyIdx := 1 - p.active.Load()
	for _, t := range txns {
		p.sides[standbyIdx].absorb(op{kind: opAdd, rec: model.NewTxnRecord(t)})
	}
	p.active.Store(standbyIdx)
	for _, t := range txns {
		p.sides[1-standbyIdx].absorb(op{kind: opAdd, rec: model.NewTxnRecord(t)})
	}
	return nil
}

// RemoveTxn removes txn by its TxnID, matching remove_txn.
func (p *TxnPool) RemoveTxn(txn *model.Txn) error {
	return p.RemoveTxnByID(txn.TxnID)
}

// RemoveTxnByID removes the txn identified by txnID, matching
// remove_txn_by_id. Removing an absent id is an idempotent no-op.
func (p *TxnPool) RemoveTxnByID(txnID string) error {
	p.publish(op{kind: opRemove, rec: &model.TxnRecord{TxnID: txnID}})
	return nil
}

// RemoveTxnBatch removes every txn in txns as a single publish cycle,
// matching remove_txn_batch.
func (p *TxnPool) RemoveTxnBatch(txns []*model.Txn) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	standbyIdx := 1 - p.active.Load()
	for _, t := range txns {
		p.sides[standbyIdx].absorb(op{kind: opRemove, rec: &model.TxnRecord{TxnID: t.TxnID}})
	}
	p.active.Store(standbyIdx)
	for _, t := range txns {
		p.sides[1-standbyIdx].absorb(op{kind: opRemove, rec: &model.TxnRecord{TxnID: t.TxnID}})
	}
	return nil
}

// GetTxn returns the txn identified by txnID from the currently active
// side, matching get_txn. An empty txnID always misses, matching the
// original's explicit empty-id guard.
func (p *TxnPool) GetTxn(txnID string) (*model.Txn, error) {
	if txnID == "" {
		return nil, pocerrors.New(pocerrors.ErrMempoolTxnNotFound, "empty txn id")
	}

	rec, ok := p.sides[p.active.Load()].get(txnID)
	if !ok {
		return nil, pocerrors.New(pocerrors.ErrMempoolTxnNotFound, "no txn with id %q", txnID)
	}

	return rec.Txn()
}

// Size returns the active side's entry count, matching size().
func (p *TxnPool) Size() int {
	return p.sides[p.active.Load()].size()
}
