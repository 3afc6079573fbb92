// Command pocnode wires the consensus core's components together into a
// single local process: it mines a genesis block, elects a miner, starts
// the mempool and scheduler, and runs the Part phase of one DKG session.
//
// Service wiring here is deliberately small next to a full node's
// main.go, which would dispatch into dozens of cmd/ subpackages for
// network transport, storage, and telemetry services that spec.md §1
// places out of scope; init()'s gocore.SetInfo/gocore.Log pairing is kept
// because it is this module's ambient logging/config bootstrap regardless.
package main

import (
	"context"
	"time"

	"github.com/ordishs/gocore"

	"github.com/pocnode/core/config"
	"github.com/pocnode/core/dkg"
	"github.com/pocnode/core/election"
	"github.com/pocnode/core/mempool"
	"github.com/pocnode/core/model"
	"github.com/pocnode/core/scheduler"
	"github.com/pocnode/core/signer"
	"github.com/pocnode/core/ulogger"
)

const progname = "pocnode"

var version string
var commit string

func init() {
	gocore.SetInfo(progname, version, commit)
	gocore.Log(progname)
}

func main() {
	log := ulogger.New(progname)
	settings := config.New()

	prov := signer.NewECDSAQuorumProvider()

	genesisKeys, err := signer.GenerateKeyPair()
	if err != nil {
		log.Fatalf("failed to generate genesis key pair: %v", err)
	}

	genesisClaim := model.NewClaim(genesisKeys.PubKeyHex(), model.EligibilityMiner)

	rewardState := model.NewStaticRewardState(model.Reward{Category: "emission", Amount: 50})
	txns := model.NewOrderedMap[model.Txn]()
	claims := model.NewOrderedMap[model.Claim]()
	claims.Set(genesisClaim.Hash, *genesisClaim)

	genesis, err := model.Genesis(genesisClaim, genesisKeys.PrivKeyHex(), rewardState, txns, claims, prov)
	if err != nil {
		log.Fatalf("failed to mine genesis block: %v", err)
	}
	log.Infof("genesis block mined: height=%d hash=%s", genesis.Height, genesis.Hash)

	minerActor := election.NewActor(election.KindMiner, func() []*model.Claim {
		return []*model.Claim{genesisClaim}
	}, config.ThresholdConfig{UpperBound: 4, Threshold: 1}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go minerActor.Run(ctx)
	if err := minerActor.Submit(ctx, election.Event{Kind: election.KindMiner, Header: &genesis.Header}); err != nil {
		log.Warnf("failed to submit miner election event: %v", err)
	}

	select {
	case outcome := <-minerActor.Outcomes():
		if outcome.Err != nil {
			log.Warnf("miner election failed: %v", outcome.Err)
		} else {
			log.Infof("elected miner: %s", outcome.Miner.Hash)
		}
	case <-ctx.Done():
		log.Warnf("miner election timed out")
	}
	minerActor.Stop()

	pool := mempool.NewTxnPool()
	log.Infof("mempool initialized, size=%d", pool.Size())

	sched := scheduler.NewController(settings, prov, scheduler.ValidatorFunc(func(_ *model.Txn) error {
		return nil
	}), log)

	runCtx, runCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer runCancel()
	go func() { _ = sched.RunSync(runCtx) }()
	go func() { _ = sched.RunAsync(runCtx) }()

	dkgSession := dkg.NewSession(context.Background(), 0, config.ThresholdConfig{UpperBound: 4, Threshold: 2}, settings, log)
	if _, err := dkgSession.RunPart([]uint16{0, 1, 2, 3}); err != nil {
		log.Warnf("dkg part phase failed: %v", err)
	}

	log.Infof("pocnode bootstrap complete")
}
