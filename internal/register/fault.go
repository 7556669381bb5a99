// internal/register/fault.go
package register

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// ResetPause is how long the transport hardware gets after a hard reset.
const ResetPause = time.Second

// Escalation is what HandleFault did about a failed read.
type Escalation int

const (
	EscalationNone      Escalation = iota
	EscalationReconnect            // close + recreate the client
	EscalationReset                // hard reset, then reconnect
)

func (a Escalation) String() string {
	switch a {
	case EscalationReconnect:
		return "reconnect"
	case EscalationReset:
		return "reset+reconnect"
	default:
		return "none"
	}
}

// escalation is the ladder for one failure. turns counts full rounds of
// failures across all devices:
//
//	0            tolerated
//	1..6         reconnect, with a hard reset first on 3 and 6
//	>6           only every 10th round, reset first when divisible by 3
func escalation(turns int) Escalation {
	if turns == 0 || (turns > 6 && turns%10 != 0) {
		return EscalationNone
	}
	if turns%3 == 0 {
		return EscalationReset
	}
	return EscalationReconnect
}

// HandleFault records one failed read and escalates per the ladder.
// turns is computed from the count before this failure.
func (e *Engine) HandleFault() Escalation {
	devices := e.devices
	if devices < 1 {
		devices = 1
	}

	turns := e.errors / devices
	e.errors++

	action := escalation(turns)
	if action == EscalationNone {
		return action
	}

	if action == EscalationReset {
		e.hardReset()
	}
	e.reconnect()

	return action
}

// ResetErrors clears the failure count after a clean update cycle.
func (e *Engine) ResetErrors() { e.errors = 0 }

// Errors is the current consecutive failure count.
func (e *Engine) Errors() int { return e.errors }

// Stats is a snapshot of engine fault counters.
type Stats struct {
	Errors     int
	Resets     int
	Reconnects int
	Devices    int
	Connected  bool
}

func (e *Engine) Stats() Stats {
	return Stats{
		Errors:     e.errors,
		Resets:     e.resets,
		Reconnects: e.reconnects,
		Devices:    e.devices,
		Connected:  e.client != nil,
	}
}

func (e *Engine) hardReset() {
	l := log.WithField("climate", e.id)
	if e.reset == nil {
		l.Warn("reset skipped: transport has no reset")
		return
	}

	l.Warn("reset transport")
	e.resets++
	if err := e.reset(); err != nil {
		l.Warnf("reset failed: %v", err)
		return
	}
	e.sleep(ResetPause)
}

func (e *Engine) reconnect() {
	l := log.WithField("climate", e.id)
	if e.factory == nil {
		l.Warn("reconnect skipped: no client factory")
		return
	}

	l.Warn("reconnect transport")
	e.reconnects++

	if e.client != nil {
		_ = e.client.Close()
		e.client = nil
	}

	c, err := e.factory()
	if err != nil {
		// the next read or write makes its own factory attempt
		l.Warnf("reconnect failed: %v", err)
		return
	}
	e.client = c
}
