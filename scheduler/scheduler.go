// Package scheduler implements the dual-queue job executor (spec.md
// §4.3): a synchronous queue and an asynchronous queue, each draining
// into a data-parallel worker pool, matching
// original_source/crates/node/src/services/scheduler.rs's
// JobSchedulerController and its two Job variants, Farm and CertifyTxn.
//
// The worker pool is built on golang.org/x/sync/errgroup for
// data-parallel fan-out (standing in for the original's rayon
// par_iter) and golang.org/x/sync/semaphore.Weighted for admission
// control, since bsv-blockchain-teranode's own services already use
// golang.org/x/sync across the codebase for the same purpose.
package scheduler

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/pocnode/core/config"
	pocerrors "github.com/pocnode/core/errors"
	"github.com/pocnode/core/model"
	"github.com/pocnode/core/signer"
	"github.com/pocnode/core/ulogger"
)

// Kind discriminates the two job variants the controller executes.
type Kind int

const (
	KindFarm Kind = iota
	KindCertifyTxn
)

// Vote is a single farmer's partial signature over a txn, matching the
// original's Vote{farmer_id, farmer_node_id, signature, txn,
// quorum_public_key, quorum_threshold}.
type Vote struct {
	FarmerID        string
	FarmerNodeID    uint16
	Signature       string
	Txn             *model.Txn
	QuorumPublicKey string
	QuorumThreshold uint16
}

// FarmJob asks the worker pool to validate a batch of txns and produce
// one partial-signature Vote per txn that passes validation.
type FarmJob struct {
	Records         []*model.TxnRecord
	FarmerID        string
	FarmerNodeID    uint16
	QuorumPublicKey string
	PrivKeyHex      string
	QuorumThreshold uint16
}

// CertifyTxnJob asks the worker pool to validate a single txn and, if it
// passes, combine its collected Votes into a threshold-signed
// certification.
type CertifyTxnJob struct {
	PrivKeyHex      string
	Votes           []*Vote
	TxnID           string
	FarmerQuorumKey string
	FarmerID        string
	Txn             *model.Txn
}

// Job is the tagged union the sync/async queues carry.
type Job struct {
	Kind    Kind
	Farm    *FarmJob
	Certify *CertifyTxnJob
}

// CertifiedTxn is the output of a successful CertifyTxn job.
type CertifiedTxn struct {
	Votes           []*Vote
	Signature       string
	TxnID           string
	FarmerQuorumKey string
	FarmerID        string
	Txn             *model.Txn
}

// Result is the tagged union the controller publishes back, matching the
// original's JobResult::Votes / JobResult::CertifiedTxn.
type Result struct {
	Kind         Kind
	Votes        []*Vote
	Threshold    uint16
	CertifiedTxn *CertifiedTxn
	Err          error
}

// Validator is the abstract txn-validation collaborator the scheduler
// depends on; the real validation rule set lives outside this module's
// scope (spec.md §1 only specifies the block/election/scheduler/DKG/
// mempool contracts, not a validator pipeline), so callers inject
// whatever policy they run.
type Validator interface {
	Validate(txn *model.Txn) error
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc func(txn *model.Txn) error

func (f ValidatorFunc) Validate(txn *model.Txn) error { return f(txn) }

// Controller is the dual-queue job executor. sync jobs are drained by
// RunSync, async jobs by RunAsync; both share the same worker-pool
// admission semaphore, so together they never run more than
// MaxParallelJobs jobs at once (spec.md §5: "Scheduler ... backpressure
// sampling"). Permits are not reserved per queue.
type Controller struct {
	settings  *config.Settings
	provider  signer.QuorumProvider
	validator Validator
	log       ulogger.Logger

	syncJobs  chan Job
	asyncJobs chan Job
	results   chan Result

	admission *semaphore.Weighted
}

// NewController builds a Controller with the given settings, signature
// provider, and validation policy.
func NewController(settings *config.Settings, provider signer.QuorumProvider, validator Validator, log ulogger.Logger) *Controller {
	return &Controller{
		settings:  settings,
		provider:  provider,
		validator: validator,
		log:       log,
		syncJobs:  make(chan Job, settings.SyncJobQueueCapacity),
		asyncJobs: make(chan Job, settings.AsyncJobQueueCapacity),
		results:   make(chan Result, settings.SyncJobQueueCapacity+settings.AsyncJobQueueCapacity),
		admission: semaphore.NewWeighted(settings.MaxParallelJobs),
	}
}

// Results exposes the channel JobResults are published on.
func (c *Controller) Results() <-chan Result { return c.results }

// SubmitSync enqueues a job onto the synchronous queue, blocking if full.
func (c *Controller) SubmitSync(ctx context.Context, job Job) error {
	select {
	case c.syncJobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitAsync enqueues a job onto the asynchronous queue, blocking if
// full.
func (c *Controller) SubmitAsync(ctx context.Context, job Job) error {
	select {
	case c.asyncJobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BackpressureEngaged reports whether either queue has crossed the
// configured high-watermark fraction of its capacity, matching the
// original's job_scheduler.calculate_back_pressure sampling point.
func (c *Controller) BackpressureEngaged() bool {
	syncDepth := float64(len(c.syncJobs)) / float64(cap(c.syncJobs))
	asyncDepth := float64(len(c.asyncJobs)) / float64(cap(c.asyncJobs))
	return syncDepth >= c.settings.BackpressureHighWatermark || asyncDepth >= c.settings.BackpressureHighWatermark
}

// RunSync drains the synchronous queue until ctx is cancelled, matching
// execute_sync_jobs's try_recv loop but blocking instead of busy-polling.
func (c *Controller) RunSync(ctx context.Context) error {
	return c.run(ctx, c.syncJobs)
}

// RunAsync drains the asynchronous queue until ctx is cancelled.
func (c *Controller) RunAsync(ctx context.Context) error {
	return c.run(ctx, c.asyncJobs)
}

func (c *Controller) run(ctx context.Context, jobs <-chan Job) error {
	for {
		select {
		case job := <-jobs:
			if err := c.admission.Acquire(ctx, 1); err != nil {
				return err
			}
			go func(job Job) {
				defer c.admission.Release(1)
				c.execute(ctx, job)
			}(job)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) execute(ctx context.Context, job Job) {
	switch job.Kind {
	case KindFarm:
		c.executeFarm(ctx, job.Farm)
	case KindCertifyTxn:
		c.executeCertifyTxn(job.Certify)
	}
}

// executeFarm validates every record's txn in parallel
// (golang.org/x/sync/errgroup standing in for the original's rayon
// par_iter) and emits one Vote per txn that validates, leaving a hole
// (nil entry) for each that doesn't, matching the original's
// Vec<Option<Vote>> shape so a farmer quorum can see exactly which slot
// failed.
func (c *Controller) executeFarm(ctx context.Context, job *FarmJob) {
	votes := make([]*Vote, len(job.Records))

	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range job.Records {
		i, rec := i, rec
		g.Go(func() error {
			txn, err := rec.Txn()
			if err != nil {
				return nil
			}
			if err := c.validator.Validate(txn); err != nil {
				return nil
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			sig, err := c.provider.GeneratePartialSignature(job.PrivKeyHex, txn.Bytes())
			if err != nil {
				c.log.Warnf("farm job: partial signature failed for txn %s: %v", txn.TxnID, err)
				return nil
			}

			votes[i] = &Vote{
				FarmerID:        job.FarmerID,
				FarmerNodeID:    job.FarmerNodeID,
				Signature:       sig,
				Txn:             txn,
				QuorumPublicKey: job.QuorumPublicKey,
				QuorumThreshold: job.QuorumThreshold,
			}
			return nil
		})
	}
	_ = g.Wait()

	c.publish(Result{Kind: KindFarm, Votes: votes, Threshold: job.QuorumThreshold})
}

// executeCertifyTxn validates the job's txn, aggregates its votes'
// partial signatures into a threshold signature, and publishes the
// certification, matching the original's CertifyTxn branch.
func (c *Controller) executeCertifyTxn(job *CertifyTxnJob) {
	if err := c.validator.Validate(job.Txn); err != nil {
		c.publish(Result{Kind: KindCertifyTxn, Err: pocerrors.New(pocerrors.ErrInvalidTxns, "certify: txn %s failed validation", job.TxnID, err)})
		return
	}

	shares := make(map[uint16]string, len(job.Votes))
	for _, v := range job.Votes {
		if v == nil {
			continue
		}
		shares[v.FarmerNodeID] = v.Signature
	}

	threshSig, err := c.provider.AggregatePartial(shares)
	if err != nil {
		c.publish(Result{Kind: KindCertifyTxn, Err: pocerrors.New(pocerrors.ErrUnknown, "certify: quorum signature aggregation failed", err)})
		return
	}

	sortedVotes := append([]*Vote(nil), job.Votes...)
	sort.Slice(sortedVotes, func(i, j int) bool {
		if sortedVotes[i] == nil || sortedVotes[j] == nil {
			return sortedVotes[j] == nil
		}
		return sortedVotes[i].FarmerNodeID < sortedVotes[j].FarmerNodeID
	})

	c.publish(Result{
		Kind: KindCertifyTxn,
		CertifiedTxn: &CertifiedTxn{
			Votes:           sortedVotes,
			Signature:       threshSig,
			TxnID:           job.TxnID,
			FarmerQuorumKey: job.FarmerQuorumKey,
			FarmerID:        job.FarmerID,
			Txn:             job.Txn,
		},
	})
}

func (c *Controller) publish(r Result) {
	select {
	case c.results <- r:
	default:
		c.log.Warnf("scheduler results channel full, dropping result")
	}
}
