// Package config centralizes the tunables for the consensus core, read
// through gocore's runtime config store the way
// bsv-blockchain-teranode/services/blockassembly/BlockAssembler.go and
// services/validator/Validator.go pull their settings
// (gocore.Config().GetInt/GetBool with an inline default).
package config

import (
	"time"

	"github.com/ordishs/gocore"
)

// ThresholdConfig is the (n, t) pair that parameterizes both the DKG
// committee and, via the Quorum builder, the harvester committee size.
// Valid iff 0 < Threshold < UpperBound (spec.md §3).
type ThresholdConfig struct {
	UpperBound uint16
	Threshold  uint16
}

// Valid reports whether the threshold configuration satisfies the
// committee-size invariant.
func (t ThresholdConfig) Valid() bool {
	return t.Threshold > 0 && t.Threshold < t.UpperBound
}

// Settings bundles every node-wide tunable the scheduler, block
// production/validation, and DKG engine read.
type Settings struct {
	// MinBlockInterval is the minimum gap enforced between consecutive
	// block timestamps (spec.md §4.1, §6): one second.
	MinBlockInterval time.Duration

	// SyncJobQueueCapacity / AsyncJobQueueCapacity bound the scheduler's
	// two job channels before backpressure engages.
	SyncJobQueueCapacity  int
	AsyncJobQueueCapacity int

	// MaxParallelJobs bounds the scheduler's worker pool admission
	// (golang.org/x/sync/semaphore.Weighted capacity).
	MaxParallelJobs int64

	// BackpressureHighWatermark is the queue-depth fraction (0..1) at or
	// above which the scheduler reports backpressure to callers deciding
	// whether to admit more parallel work.
	BackpressureHighWatermark float64

	// DKGSessionTimeout bounds how long a DKG session waits for all Part
	// or Ack messages before aborting and being retried with a fresh
	// session nonce (spec.md §4.4, §5).
	DKGSessionTimeout time.Duration

	// GenesisValidatorThreshold is the minimum fraction of `true` votes a
	// genesis txn's validators map must carry (spec.md §3, §6): 0.60.
	GenesisValidatorThreshold float64
}

// New builds a Settings from gocore.Config(), falling back to the defaults
// documented in spec.md when a key is unset.
func New() *Settings {
	minBlockIntervalMillis, _ := gocore.Config().GetInt("pocnode_minBlockIntervalMillis", 1000)
	syncCap, _ := gocore.Config().GetInt("pocnode_syncJobQueueCapacity", 256)
	asyncCap, _ := gocore.Config().GetInt("pocnode_asyncJobQueueCapacity", 256)
	maxParallel, _ := gocore.Config().GetInt("pocnode_maxParallelJobs", 32)
	dkgTimeoutMillis, _ := gocore.Config().GetInt("pocnode_dkgSessionTimeoutMillis", 5000)

	return &Settings{
		MinBlockInterval:          time.Duration(minBlockIntervalMillis) * time.Millisecond,
		SyncJobQueueCapacity:      syncCap,
		AsyncJobQueueCapacity:     asyncCap,
		MaxParallelJobs:           int64(maxParallel),
		BackpressureHighWatermark: 0.75,
		DKGSessionTimeout:         time.Duration(dkgTimeoutMillis) * time.Millisecond,
		GenesisValidatorThreshold: 0.60,
	}
}

// DefaultSettings returns Settings populated purely with the documented
// defaults, bypassing gocore — used by tests that don't want to depend on
// process-global config state.
func DefaultSettings() *Settings {
	return &Settings{
		MinBlockInterval:          time.Second,
		SyncJobQueueCapacity:      256,
		AsyncJobQueueCapacity:     256,
		MaxParallelJobs:           32,
		BackpressureHighWatermark: 0.75,
		DKGSessionTimeout:         5 * time.Second,
		GenesisValidatorThreshold: 0.60,
	}
}
