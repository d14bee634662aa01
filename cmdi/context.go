// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cmdi implements the card's command interpreter: a lexer-less text parser that dispatches whitespace-separated
// verbs against the other packages and produces one CFRAME reply per
// command.
package cmdi

import (
	"github.com/rest-for-physics/minos-core/asicmirror"
	"github.com/rest-for-physics/minos-core/histo"
	"github.com/rest-for-physics/minos-core/ring"
	"github.com/rest-for-physics/minos-core/slowcontrol"

	"github.com/rest-for-physics/minos-core/flowctl"
	"github.com/rest-for-physics/minos-core/regbank"
)

// AsicKind selects which front-end chip's slow-control driver the
// interpreter routes register commands to.
type AsicKind int

const (
	KindAfter AsicKind = iota
	KindAget
)

func (k AsicKind) String() string {
	if k == KindAget {
		return "aget"
	}
	return "after"
}

// ServeTarget selects which sink the service loop drains ring-buffer
// descriptors to: the DAQ consumer socket, or one
// of the local histogram sinks, or nowhere at all.
type ServeTarget int

const (
	ServeNull ServeTarget = iota
	ServeDAQ
	ServePedHisto
	ServeHitHisto
)

func (t ServeTarget) String() string {
	switch t {
	case ServeDAQ:
		return "daq"
	case ServePedHisto:
		return "ped_histo"
	case ServeHitHisto:
		return "hit_histo"
	default:
		return "null"
	}
}

// Fixed register-bank addresses of the card-level counters and the SCA
// controller word. Like scPins, these fix a plausible register map as
// top-level constants in lieu of a specific board target.
const (
	RegScaCtrl = 8
	RegTstamp  = 9
	RegEvCnt   = 10
)

// testDataSize is the depth of the test-pattern RAM the tdata verb
// addresses; indices are masked to it rather than rejected.
const testDataSize = 0x1000

// pulser holds the calibration-pulse generator's scalar parameters
//, grounded on the same minibios/cmdi scalar
// pattern as the named toggle table in toggles.go.
type pulser struct {
	Enable bool
	Delay  uint32
	Width  uint32
	Amp    uint16
}

// Context is the per-card state a running command interpreter acts on,
// assembled once at startup and owned by the service loop.
type Context struct {
	CardID  uint8
	Version uint8
	Kind    AsicKind
	NumAsic int
	NumChan int

	Bank        *regbank.Bank
	AfterMirror *asicmirror.Mirror
	AgetMirror  *asicmirror.Mirror
	Bus         *slowcontrol.Bus
	After       *slowcontrol.After
	Aget        *slowcontrol.Aget
	Dac         *slowcontrol.DAC
	Ring        *ring.Pool
	Flow        *flowctl.Controller

	Pedestal *histo.PedestalTable
	HitCount *histo.HitCountTable
	Busy     *histo.BusyMeter
	Period   *histo.PeriodMeter
	SCurve   *histo.SCurveTable

	// Polarity records, per ASIC, whether that chip's channels read out
	// negative-polarity signals.
	Polarity []bool

	Pulser pulser

	// TestData is the pattern-generator RAM behind the tdata verb;
	// indices wrap modulo its size.
	TestData []uint16

	Running     bool
	ServeTarget ServeTarget

	// TstampSet records whether tstamp_init has run since the last
	// tstamp_isset clr.
	TstampSet bool

	// LastSender is the source address of the most recently received
	// command datagram; every reply goes to it. DaqClient
	// is latched to LastSender on every accepted `daq` request: "the
	// card latches that socket's identity on each daq receipt" — exactly one socket at a time may issue credit.
	LastSender string
	DaqClient  string

	RxCmdCnt  uint64
	ErrCmdCnt uint64

	// noReply is set by a handler (currently only cmdDaq, for a
	// credit-granting or pause request) to suppress the CFRAME reply
	// Execute would otherwise encode. Execute clears it after checking.
	noReply bool

	// rawReply carries an already-framed reply (an MFRAME from getbins,
	// cmd stat, list, ...) that Execute returns in place of the usual
	// CFRAME. Cleared after each command.
	rawReply []byte

	// afterIO/agetIO, when non-nil, substitute for the real slow-control
	// drivers; tests install mirror-backed doubles here.
	afterIO chipActionIO
	agetIO  chipActionIO
}

// New assembles a Context for a card with numAsic chips of numChan
// channels each. afterMirror and agetMirror shadow the two chip
// families' slow-control registers; either may be nil on a card not
// wired for that family.
func New(cardID, version uint8, numAsic, numChan int, bank *regbank.Bank, afterMirror, agetMirror *asicmirror.Mirror) *Context {
	return &Context{
		CardID:      cardID,
		Version:     version,
		NumAsic:     numAsic,
		NumChan:     numChan,
		Bank:        bank,
		AfterMirror: afterMirror,
		AgetMirror:  agetMirror,
		Polarity:    make([]bool, numAsic),
		TestData:    make([]uint16, testDataSize),
		Pedestal:    histo.NewPedestalTable(numAsic, numChan),
		HitCount:    histo.NewHitCountTable(numAsic),
		Busy:        histo.NewBusyMeter(10),
		Period:      histo.NewPeriodMeter(5),
		SCurve:      histo.NewSCurveTable(numAsic, numChan),
	}
}

// Mirror returns the shadow registers of the currently selected chip
// family.
func (ctx *Context) Mirror() *asicmirror.Mirror {
	if ctx.Kind == KindAget {
		return ctx.AgetMirror
	}
	return ctx.AfterMirror
}
