// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package flowctl implements the credit-based flow-control state
// machine: a consumer grants credit in bytes or frames,
// the pump spends it transmitting data frames, and a periodic timeout
// check applies one of three configurable loss-recovery policies when
// credit stops flowing. Transitions are expressed as methods that
// compute a next state plus a list of side-effect Actions for the
// caller to apply, rather than performing I/O themselves; the policy
// logic stays testable without a network stack or hardware underneath
// it.
package flowctl

import "time"

// Unit selects how credit is measured.
type Unit byte

const (
	UnitBytes  Unit = 'B'
	UnitFrames Unit = 'F'
)

// Policy selects the loss-recovery behavior applied when credit stops
// arriving.
type Policy int

const (
	PolicyIgnore Policy = iota
	PolicyRecredit
	PolicyResend
)

// State is the two-state flow-control machine.
type State int

const (
	StateReadyAcceptCredit State = iota
	StateCredReturnTimedOut
)

// PauseAmount is the sentinel credit amount that means "pause sending"
// rather than "grant this many units".
const PauseAmount = 0xFFFFFF

// Actions lists the side effects a transition requests; the service
// loop applies them (adjusting counters it owns, scheduling a resend,
// emitting a log line) rather than the controller doing so directly.
type Actions struct {
	AdjustSndAllowed int64
	ResendLast       bool
	GaveUp           bool
	RTT              time.Duration
	Log              string
}

// Controller holds the flow-control portion of the per-card command
// context: credit accounting, sequence tracking, and
// the timeout state machine.
type Controller struct {
	State        State
	Unit         Unit
	Policy       Policy
	CredWaitTime time.Duration

	SndAllowed  int64
	LastDaqSent time.Time

	// LastCreditRcv is the timestamp of the most recent accepted daq
	// request; HistCRcv holds the four most recent periodic-check
	// snapshots of it, oldest first, used to detect "no progress for
	// four timeout windows" in PeriodicCheck.
	LastCreditRcv time.Time
	HistCRcv      [4]time.Time

	ExpReqIx   uint8
	NxtRepIx   uint16
	FirstInRow bool

	RxDaqCnt     uint64
	RxDaqDelayed uint64
	RxDaqTimeout uint64
	DaqMissCnt   uint64
}

// NewController returns a Controller in its initial, zero-credit state.
// FirstInRow starts set: the first data frame of the very first credit
// row carries the 0x0100 marker just like the first frame after a
// timeout recovery.
func NewController(unit Unit, policy Policy, credWaitTime time.Duration) *Controller {
	return &Controller{
		State:        StateReadyAcceptCredit,
		Unit:         unit,
		Policy:       policy,
		CredWaitTime: credWaitTime,
		FirstInRow:   true,
	}
}

// RequestCredit applies a `daq <amount> <unit> [<seq>]` request. A PauseAmount request clears all outstanding credit and
// emits no reply; any other amount adds to the outstanding credit and
// likewise emits no reply — RequestCredit's return value exists only
// to surface sequence-driven Actions when seq is present.
func (c *Controller) RequestCredit(amount uint32, unit Unit, seq *uint8, now time.Time) Actions {
	c.Unit = unit
	c.RxDaqCnt++

	if amount == PauseAmount {
		c.SndAllowed = 0
		c.LastDaqSent = time.Time{}
	} else {
		c.SndAllowed += int64(amount)
	}

	if seq == nil {
		return Actions{}
	}

	return c.onSequence(*seq, now)
}

// onSequence performs loss detection and applies the
// READY_ACCEPT_CREDIT / CRED_RETURN_TIMED_OUT transition on a
// daq_request event.
func (c *Controller) onSequence(reqSeq uint8, now time.Time) Actions {
	var actions Actions

	if reqSeq != c.ExpReqIx {
		dist := int(reqSeq) - int(c.ExpReqIx)
		if dist < 0 {
			dist += 256
		}
		c.DaqMissCnt += uint64(dist)
	}
	c.ExpReqIx = reqSeq + 1

	wasTimedOut := c.State == StateCredReturnTimedOut
	if wasTimedOut {
		c.RxDaqDelayed++
		c.FirstInRow = true
	} else if !c.LastDaqSent.IsZero() {
		actions.RTT = now.Sub(c.LastDaqSent)
	}
	c.State = StateReadyAcceptCredit

	c.LastCreditRcv = now

	return actions
}

// CanSend reports whether the pump is allowed to transmit a data frame
// right now.
func (c *Controller) CanSend() bool {
	return c.SndAllowed > 0
}

// Spend deducts the cost of one transmitted data frame from the
// outstanding credit: dataSz bytes under UnitBytes, or a flat 1 under
// UnitFrames.
func (c *Controller) Spend(dataSz int) {
	if c.Unit == UnitBytes {
		c.SndAllowed -= int64(dataSz)
	} else {
		c.SndAllowed--
	}
}

// MarkSent records that a data frame was transmitted to the DAQ client
// at now. The pump calls this once per data frame so PeriodicCheck can
// detect an elapsed cred_wait_time window and so the RTT reported on
// the next accepted daq_request (onSequence) is measured against it.
func (c *Controller) MarkSent(now time.Time) {
	c.LastDaqSent = now
}

// ReplyHeader returns the 16-bit value to place in the 2 reserved bytes
// at the head of the next outgoing reply datagram: nxt_rep_ix, ORed
// with 0x0100 on the first reply of a row following a fresh acceptance
// after timeout.
func (c *Controller) ReplyHeader() uint16 {
	h := c.NxtRepIx
	if c.FirstInRow {
		h |= 0x0100
		c.FirstInRow = false
	}
	c.NxtRepIx++
	return h
}

// PeriodicCheck applies the configured loss policy when unit is
// UnitFrames and cred_wait_time has elapsed since the last data frame
// was sent. It is a no-op under UnitBytes or when no
// frame is outstanding.
//
// Give-up detection: if the credit-receive time has not advanced since
// the snapshot taken three PeriodicCheck calls ago, four consecutive
// timeout windows (those three and the current one) passed without progress and the policy is abandoned.
func (c *Controller) PeriodicCheck(now time.Time) Actions {
	var actions Actions

	if c.Unit != UnitFrames || c.LastDaqSent.IsZero() {
		return actions
	}
	if now.Sub(c.LastDaqSent) <= c.CredWaitTime {
		return actions
	}

	c.RxDaqTimeout++

	// Three prior snapshots equal to the current credit-receive time plus
	// this window make four consecutive timeout windows without progress.
	giveUp := !c.HistCRcv[1].IsZero() && c.LastCreditRcv.Equal(c.HistCRcv[1])
	c.HistCRcv = [4]time.Time{c.HistCRcv[1], c.HistCRcv[2], c.HistCRcv[3], c.LastCreditRcv}

	c.State = StateCredReturnTimedOut

	if giveUp {
		c.LastDaqSent = time.Time{}
		actions.GaveUp = true

		if c.Policy == PolicyResend {
			actions.Log = "Re-send abandoned"
		} else {
			actions.Log = "Re-credit abandoned"
		}

		return actions
	}

	switch c.Policy {
	case PolicyIgnore:
		c.LastDaqSent = time.Time{}

	case PolicyRecredit:
		c.SndAllowed++
		c.LastDaqSent = time.Time{}
		actions.AdjustSndAllowed = 1

	case PolicyResend:
		c.SndAllowed++
		actions.AdjustSndAllowed = 1
		actions.ResendLast = true
	}

	return actions
}
