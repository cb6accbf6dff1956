package engine

import (
	"time"

	"github.com/azaynul10/CarbonPro-AI/pkg/config"
)

// Options holds engine runtime tunables.
type Options struct {
	SnapshotInterval    time.Duration
	SnapshotOrderDelta  int64
	ExpirySweepInterval time.Duration
	StopTimeout         time.Duration
}

// OptionsFromConfig builds Options from the engine configuration.
func OptionsFromConfig(cfg config.EngineConfig) *Options {
	return &Options{
		SnapshotInterval:    cfg.SnapshotInterval,
		SnapshotOrderDelta:  cfg.SnapshotOrderDelta,
		ExpirySweepInterval: cfg.ExpirySweepInterval,
		StopTimeout:         cfg.StopTimeout,
	}
}

// DefaultOptions returns the defaults used when no configuration is
// provided.
func DefaultOptions() *Options {
	return &Options{
		SnapshotInterval:    30 * time.Second,
		SnapshotOrderDelta:  100,
		ExpirySweepInterval: time.Second,
		StopTimeout:         10 * time.Second,
	}
}
