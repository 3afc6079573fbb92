package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocnode/core/config"
	"github.com/pocnode/core/model"
	"github.com/pocnode/core/signer"
	"github.com/pocnode/core/ulogger"
)

var errInvalidTxn = errors.New("invalid txn")

func alwaysValid() ValidatorFunc {
	return func(txn *model.Txn) error { return nil }
}

func rejectTxnID(id string) ValidatorFunc {
	return func(txn *model.Txn) error {
		if txn.TxnID == id {
			return errInvalidTxn
		}
		return nil
	}
}

func sampleTxn(id string) *model.Txn {
	return &model.Txn{TxnID: id, SenderAddress: "a", ReceiverAddress: "b", Amount: 1}
}

func newTestController(t *testing.T, validator Validator) *Controller {
	t.Helper()
	settings := config.DefaultSettings()
	settings.SyncJobQueueCapacity = 8
	settings.AsyncJobQueueCapacity = 8
	settings.MaxParallelJobs = 4
	provider := signer.NewECDSAQuorumProvider()
	return NewController(settings, provider, validator, ulogger.TestLogger())
}

func TestController_FarmJob_ProducesVotesWithHolesForInvalidTxns(t *testing.T) {
	kp, err := signer.GenerateKeyPair()
	require.NoError(t, err)

	valid := sampleTxn("ok")
	invalid := sampleTxn("bad")

	c := newTestController(t, rejectTxnID("bad"))

	job := Job{
		Kind: KindFarm,
		Farm: &FarmJob{
			Records:         []*model.TxnRecord{model.NewTxnRecord(valid), model.NewTxnRecord(invalid)},
			FarmerID:        "farmer-1",
			FarmerNodeID:    1,
			QuorumPublicKey: kp.PubKeyHex(),
			PrivKeyHex:      kp.PrivKeyHex(),
			QuorumThreshold: 2,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() { _ = c.RunSync(ctx) }()
	require.NoError(t, c.SubmitSync(ctx, job))

	select {
	case result := <-c.Results():
		require.NoError(t, result.Err)
		require.Len(t, result.Votes, 2)
		assert.NotNil(t, result.Votes[0])
		assert.Nil(t, result.Votes[1])
	case <-ctx.Done():
		t.Fatal("timed out waiting for farm result")
	}
}

func TestController_CertifyTxnJob_AggregatesVotes(t *testing.T) {
	kp, err := signer.GenerateKeyPair()
	require.NoError(t, err)

	txn := sampleTxn("ok")
	provider := signer.NewECDSAQuorumProvider()

	sig1, err := provider.GeneratePartialSignature(kp.PrivKeyHex(), txn.Bytes())
	require.NoError(t, err)
	sig2, err := provider.GeneratePartialSignature(kp.PrivKeyHex(), txn.Bytes())
	require.NoError(t, err)

	votes := []*Vote{
		{FarmerID: "f1", FarmerNodeID: 1, Signature: sig1, Txn: txn},
		nil,
		{FarmerID: "f3", FarmerNodeID: 3, Signature: sig2, Txn: txn},
	}

	c := newTestController(t, alwaysValid())

	job := Job{
		Kind: KindCertifyTxn,
		Certify: &CertifyTxnJob{
			PrivKeyHex:      kp.PrivKeyHex(),
			Votes:           votes,
			TxnID:           txn.TxnID,
			FarmerQuorumKey: kp.PubKeyHex(),
			FarmerID:        "f1",
			Txn:             txn,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() { _ = c.RunAsync(ctx) }()
	require.NoError(t, c.SubmitAsync(ctx, job))

	select {
	case result := <-c.Results():
		require.NoError(t, result.Err)
		require.NotNil(t, result.CertifiedTxn)
		assert.Equal(t, txn.TxnID, result.CertifiedTxn.TxnID)
		assert.NotEmpty(t, result.CertifiedTxn.Signature)
	case <-ctx.Done():
		t.Fatal("timed out waiting for certify result")
	}
}

func TestController_CertifyTxnJob_RejectsInvalidTxn(t *testing.T) {
	kp, err := signer.GenerateKeyPair()
	require.NoError(t, err)

	txn := sampleTxn("bad")
	c := newTestController(t, rejectTxnID("bad"))

	job := Job{
		Kind: KindCertifyTxn,
		Certify: &CertifyTxnJob{
			PrivKeyHex: kp.PrivKeyHex(),
			TxnID:      txn.TxnID,
			FarmerID:   "f1",
			Txn:        txn,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() { _ = c.RunAsync(ctx) }()
	require.NoError(t, c.SubmitAsync(ctx, job))

	select {
	case result := <-c.Results():
		require.Error(t, result.Err)
		assert.Nil(t, result.CertifiedTxn)
	case <-ctx.Done():
		t.Fatal("timed out waiting for certify result")
	}
}

func TestController_BackpressureEngaged(t *testing.T) {
	settings := config.DefaultSettings()
	settings.SyncJobQueueCapacity = 4
	settings.AsyncJobQueueCapacity = 4
	settings.BackpressureHighWatermark = 0.5
	provider := signer.NewECDSAQuorumProvider()
	c := NewController(settings, provider, alwaysValid(), ulogger.TestLogger())

	assert.False(t, c.BackpressureEngaged())

	ctx := context.Background()
	require.NoError(t, c.SubmitSync(ctx, Job{Kind: KindFarm, Farm: &FarmJob{}}))
	require.NoError(t, c.SubmitSync(ctx, Job{Kind: KindFarm, Farm: &FarmJob{}}))

	assert.True(t, c.BackpressureEngaged())
}
