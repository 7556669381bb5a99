// internal/status/snapshot.go
package status

import "time"

// Snapshot is the health of one device after a poll cycle.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	LastError      string
	SecondsInError uint16

	// Errors is the engine's consecutive error count.
	Errors int

	UpdatedAt time.Time
}

// Tracker turns a stream of update outcomes into snapshots.
type Tracker struct {
	snap       Snapshot
	errorSince time.Time
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	return t.snap
}

// Observe records the outcome of one update.
// Recovery resets error code and seconds in error.
func (t *Tracker) Observe(err error, engineErrors int, now time.Time) Snapshot {
	t.snap.Errors = engineErrors
	t.snap.UpdatedAt = now

	if err == nil {
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = 0
		t.snap.LastError = ""
		t.snap.SecondsInError = 0
		t.errorSince = time.Time{}
		return t.snap
	}

	if t.errorSince.IsZero() {
		t.errorSince = now
	}
	t.snap.Health = HealthError
	t.snap.LastErrorCode = ErrorCode(err)
	t.snap.LastError = err.Error()
	t.snap.SecondsInError = secondsSince(t.errorSince, now)
	return t.snap
}

func secondsSince(since, now time.Time) uint16 {
	s := now.Sub(since) / time.Second
	if s < 0 {
		return 0
	}
	if s > SecondsInErrorMax {
		return SecondsInErrorMax
	}
	return uint16(s)
}
