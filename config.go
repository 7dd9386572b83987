package broadphase

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/joeycumines/logiface"
)

var (
	ErrInvalidWorkerFactor = errors.New("broadphase: worker factor must be positive")
	ErrInvalidMaxWorkers   = errors.New("broadphase: max workers must be positive")
	ErrInvalidThreads      = errors.New("broadphase: worker thread count must be positive")
	ErrInvalidBatchSize    = errors.New("broadphase: small batch size must be positive")
	ErrInvalidPersistence  = errors.New("broadphase: persistence must not be negative")
)

const (
	DefaultWorkerFactor   = 2
	DefaultMaxWorkers     = 64
	DefaultSmallBatchSize = 32
)

// Config controls how a BroadPhase splits its work. Zero values take the defaults
// of DefaultConfig, except for the boolean switches.
type Config struct {
	// WorkerFactor multiplies NumWorkerThreads to get the number of contexts.
	WorkerFactor int
	// NumWorkerThreads defaults to runtime.GOMAXPROCS(0).
	NumWorkerThreads int
	// MaxWorkers caps the number of contexts.
	MaxWorkers int
	// SmallBatchSize is the minimum number of particles per batch.
	SmallBatchSize int
	// SingleThreaded forces a single context.
	SingleThreaded bool
	// EnableRedistribution balances mid-phases across contexts before the narrow-phase.
	EnableRedistribution bool
	// Deterministic makes GatherConstraints sort its output by SortKey.
	Deterministic bool
	// IgnoreOneWayPairs drops pairs where both particles are one-way interactors.
	IgnoreOneWayPairs bool
	// ValidateOverlaps runs a consistency pass after overlap production, panicking
	// if a pair was produced twice.
	ValidateOverlaps bool

	Logger *logiface.Logger[logiface.Event]
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		WorkerFactor:         DefaultWorkerFactor,
		NumWorkerThreads:     runtime.GOMAXPROCS(0),
		MaxWorkers:           DefaultMaxWorkers,
		SmallBatchSize:       DefaultSmallBatchSize,
		EnableRedistribution: true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WorkerFactor == 0 {
		c.WorkerFactor = d.WorkerFactor
	}
	if c.NumWorkerThreads == 0 {
		c.NumWorkerThreads = d.NumWorkerThreads
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = d.MaxWorkers
	}
	if c.SmallBatchSize == 0 {
		c.SmallBatchSize = d.SmallBatchSize
	}
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.WorkerFactor < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkerFactor, c.WorkerFactor)
	}
	if c.NumWorkerThreads < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreads, c.NumWorkerThreads)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxWorkers, c.MaxWorkers)
	}
	if c.SmallBatchSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, c.SmallBatchSize)
	}
	return nil
}

// NumContexts returns max(1, min(WorkerFactor*NumWorkerThreads, MaxWorkers)), or 1 when SingleThreaded.
func (c Config) NumContexts() int {
	if c.SingleThreaded {
		return 1
	}
	c = c.withDefaults()
	return max(1, min(c.WorkerFactor*c.NumWorkerThreads, c.MaxWorkers))
}

// DetectorSettings are the narrow-phase parameters of one step.
type DetectorSettings struct {
	// BoundsExpansion inflates shape bounds before the shape pair test.
	BoundsExpansion float64
	// MaxContactsPerPair caps the contacts kept for one shape pair. Zero or anything
	// above the package constant MaxContactsPerPair uses that constant.
	MaxContactsPerPair int
	// CullDistance reports shapes closer than this as contacts with negative depth.
	CullDistance float64
}

func DefaultDetectorSettings() DetectorSettings {
	return DetectorSettings{
		BoundsExpansion:    0.01,
		MaxContactsPerPair: MaxContactsPerPair,
		CullDistance:       0,
	}
}
