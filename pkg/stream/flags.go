package stream

import "sync/atomic"

// ControlFlags are the shared, externally-owned abort signals checked once
// per poll iteration by every running engine. The service bootstrap owns the
// writes; engines only read.
type ControlFlags struct {
	quotaExceeded atomic.Bool
	shuttingDown  atomic.Bool
}

// SetQuotaExceeded records that the upstream account hit its quota.
func (f *ControlFlags) SetQuotaExceeded(v bool) { f.quotaExceeded.Store(v) }

// QuotaExceeded reports whether the quota flag is set.
func (f *ControlFlags) QuotaExceeded() bool { return f.quotaExceeded.Load() }

// SetShuttingDown marks the process as shutting down. There is no way back.
func (f *ControlFlags) SetShuttingDown() { f.shuttingDown.Store(true) }

// ShuttingDown reports whether shutdown has been requested.
func (f *ControlFlags) ShuttingDown() bool { return f.shuttingDown.Load() }
