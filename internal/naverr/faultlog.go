package naverr

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// FaultLog accumulates per-file faults collected during a scan, resolve,
// or apply phase without aborting the phase (spec §7 propagation policy:
// "per-file faults never fail a build"). It is safe for concurrent use by
// the scan/resolve worker pools.
type FaultLog struct {
	mu     sync.Mutex
	faults []error
	logger *zap.Logger
}

// NewFaultLog creates a fault log that also mirrors every recorded fault
// to logger at the appropriate level (warn for InvariantViolation, error
// otherwise), matching the teacher's zap-based logging discipline.
func NewFaultLog(logger *zap.Logger) *FaultLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FaultLog{logger: logger}
}

// Record appends err to the log and mirrors it to the logger. A nil err
// is a no-op, so callers can pass a possibly-nil error unconditionally.
func (f *FaultLog) Record(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	f.faults = append(f.faults, err)
	f.mu.Unlock()

	fields := []zap.Field{zap.Error(err)}
	if ne, ok := err.(*Error); ok {
		fields = append(fields, zap.String("kind", ne.Kind.String()))
		if ne.Path != "" {
			fields = append(fields, zap.String("path", ne.Path))
		}
		if ne.Kind == InvariantViolation {
			f.logger.Warn("graph invariant violation", fields...)
			return
		}
	}
	f.logger.Error("fault recorded", fields...)
}

// Faults returns a snapshot copy of every fault recorded so far.
func (f *FaultLog) Faults() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.faults...)
}

// Count returns the number of faults recorded so far.
func (f *FaultLog) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.faults)
}

// Combined returns every recorded fault joined with multierr, or nil if
// none were recorded. Useful when a caller wants a single error value to
// return alongside a best-effort result.
func (f *FaultLog) Combined() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return multierr.Combine(f.faults...)
}
