package model

import "encoding/json"

// Txn is a signed transaction. It is immutable once created; callers that
// need to change validator votes must construct a new Txn.
//
// Grounded on original_source's txn::txn::Txn (referenced throughout
// block.rs and scheduler.rs) and serialized the way
// bsv-blockchain-teranode/model types are: a plain struct with `json`
// tags, round-tripped through encoding/json.
type Txn struct {
	TxnID            string          `json:"txn_id"`
	SenderAddress    string          `json:"sender_address"`
	SenderPubKey     string          `json:"sender_public_key"`
	ReceiverAddress  string          `json:"receiver_address"`
	Token            *string         `json:"txn_token,omitempty"`
	Amount           uint64          `json:"txn_amount"`
	Payload          string          `json:"txn_payload"`
	Signature        string          `json:"txn_signature"`
	Validators       map[string]bool `json:"validators"`
	Nonce            uint64          `json:"nonce"`
	TxnTimestampNano uint64          `json:"txn_timestamp"`
}

// Bytes returns the canonical byte representation used both as the wire
// form and as the hash input fed to Block.txn_hash (spec.md §4.1: "H(concat
// of bytes(t) for t in txns in insertion order)").
func (t *Txn) Bytes() []byte {
	b, _ := json.Marshal(t)
	return b
}

// FromTxnBytes decodes a Txn previously produced by Bytes.
func FromTxnBytes(data []byte) (*Txn, error) {
	var t Txn
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ValidatorApprovalRatio returns the fraction of validators.
func (t *Txn) ValidatorApprovalRatio() float64 {
	if len(t.Validators) == 0 {
		return 0
	}
	approvals := 0
	for _, ok := range t.Validators {
		if ok {
			approvals++
		}
	}
	return float64(approvals) / float64(len(t.Validators))
}
