// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package service

import (
	"net"

	"github.com/rest-for-physics/minos-core/asicmirror"
	"github.com/rest-for-physics/minos-core/bufpool"
	"github.com/rest-for-physics/minos-core/cmdi"
	"github.com/rest-for-physics/minos-core/regbank"
	"github.com/rest-for-physics/minos-core/ring"
	"github.com/rest-for-physics/minos-core/slowcontrol"
)

// replyPoolBlocks bounds how many command replies may be staged
// concurrently; one per in-flight client is generous given replies are
// consumed synchronously within a single loop iteration.
const replyPoolBlocks = 16

// ringCtrlReg is the register-bank address of the ring buffer pump's
// IOControl word.
const ringCtrlReg = 0

// scPins wires the slow-control bus onto fixed register-bank addresses.
// A real board would read these from its own board-support constants;
// this module, lacking a specific board target, fixes them here as
// top-level defaults.
func scPins(bank *regbank.Bank, numAsic int) slowcontrol.Pins {
	return slowcontrol.Pins{
		Bank:     bank,
		ReqReg:   1,
		ReqBit:   0,
		GrantReg: 1,
		GrantBit: 1,
		SCLKReg:  1,
		SCLKBit:  2,
		MOSIReg:  1,
		MOSIBit:  3,
		MISOReg:  1,
		MISOBit:  4,
		CSReg:    func(chip int) int { return 1 },
		CSBit:    func(chip int) int { return 8 + chip },
	}
}

// Service is the single owning aggregate for one running card.
type Service struct {
	Config Config
	Net    *Net
	Ctx    *cmdi.Context
	Pool   *bufpool.Pool

	telnet *telnetHub

	// lastDaqFrame buffers the payload of the most recent data frame
	// forwarded to the DAQ socket; resendPending marks that the re-send
	// loss policy asked for it to go out again.
	lastDaqFrame  []byte
	resendPending bool
}

// New assembles a Service per cfg: register bank, ASIC mirror and
// drivers, ring buffer pump, command interpreter context, and the
// network stack.
func New(cfg Config, ip net.IP) (*Service, error) {
	bank := regbank.New(cfg.NumRegs)

	afterMirror := asicmirror.New(cfg.NumAsic, slowcontrol.AfterRegisterWidths)
	agetMirror := asicmirror.New(cfg.NumAsic, slowcontrol.AgetRegisterWidths)

	bus := slowcontrol.NewBus(scPins(bank, cfg.NumAsic))
	after := slowcontrol.NewAfter(bus, afterMirror)
	aget := slowcontrol.NewAget(bus, agetMirror)
	dac := slowcontrol.NewDAC(bus, cfg.NumAsic) // DAC latch uses the chip index past the last real ASIC

	ringPool := ring.New(bank, ringCtrlReg)
	if err := ringPool.Init(cfg.RingBufCapacity); err != nil {
		return nil, err
	}

	ctx := cmdi.New(uint8(cfg.CardID), uint8(cfg.Version), cfg.NumAsic, cfg.NumChan, bank, afterMirror, agetMirror)
	ctx.Bus = bus
	ctx.After = after
	ctx.Aget = aget
	ctx.Dac = dac
	ctx.Ring = ringPool
	ctx.Flow = newFlowController(cfg)

	n, err := NewNet(cfg, ip)
	if err != nil {
		return nil, err
	}

	return &Service{
		Config: cfg,
		Net:    n,
		Ctx:    ctx,
		Pool:   bufpool.New(replyPoolBlocks, cfg.MTU),
		telnet: newTelnetHub(n.Telnet),
	}, nil
}

// Close releases the network resources the Service opened.
func (s *Service) Close() {
	s.telnet.close()
	s.Net.Close()
}
