package model

import "time"

// TxnRecord is the mempool's envelope around a serialized Txn, tracking
// the lifecycle timestamps spec.md §3 describes: added on insertion,
// validated/deleted as the txn moves through the pipeline.
//
// Grounded on original_source/mempool/src/mempool.rs's TxnRecord (same
// fields, renamed to Go idiom: txn_added_timestamp -> AddedAtNano, etc).
type TxnRecord struct {
	TxnID            string `json:"txn_id"`
	SerializedTxn    []byte `json:"serialized_txn"`
	TxnTimestampNano uint64 `json:"txn_timestamp"`
	AddedAtNano      uint64 `json:"added_at"`
	ValidatedAtNano  uint64 `json:"validated_at"`
	DeletedAtNano    uint64 `json:"deleted_at"`
}

// NewTxnRecord wraps txn, stamping AddedAtNano with the current time.
func NewTxnRecord(txn *Txn) *TxnRecord {
	return &TxnRecord{
		TxnID:            txn.TxnID,
		SerializedTxn:    txn.Bytes(),
		TxnTimestampNano: txn.TxnTimestampNano,
		AddedAtNano:      uint64(time.Now().UnixNano()),
	}
}

// Txn decodes the record's serialized payload back into a Txn.
func (r *TxnRecord) Txn() (*Txn, error) {
	return FromTxnBytes(r.SerializedTxn)
}

// MarkValidated stamps ValidatedAtNano with the current time.
func (r *TxnRecord) MarkValidated() {
	r.ValidatedAtNano = uint64(time.Now().UnixNano())
}

// MarkDeleted stamps DeletedAtNano with the current time.
func (r *TxnRecord) MarkDeleted() {
	r.DeletedAtNano = uint64(time.Now().UnixNano())
}
