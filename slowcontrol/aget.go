// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package slowcontrol

import (
	"fmt"

	"github.com/rest-for-physics/minos-core/asicmirror"
	"github.com/rest-for-physics/minos-core/errs"
)

// AgetRegisterWidths maps AGET register address to payload width in bits
//.
var AgetRegisterWidths = map[int]int{
	0:  68, // hit register
	1:  32,
	2:  32,
	3:  34,
	4:  34,
	5:  16,
	6:  64,
	7:  64,
	8:  128,
	9:  128,
	10: 64,
	11: 64,
	12: 16,
}

// HitRegisterAddr is the AGET hit-register address, the one register
// that never leaves channel-access mode.
const HitRegisterAddr = 0

// Aget drives the AGET ASIC's two slow-control shift protocols
// (register access and hit-register readout) plus the mandatory
// channel/slow-control mode toggle around every register other than the
// hit register.
type Aget struct {
	Bus    *Bus
	Mirror *asicmirror.Mirror
}

func NewAget(bus *Bus, mirror *asicmirror.Mirror) *Aget {
	return &Aget{Bus: bus, Mirror: mirror}
}

// setControlMode toggles the chip between "channel access mode" (used
// during acquisition and for the hit register) and "slow-control access
// mode" (used for every other register) via a fixed three-cycle
// CS/MOSI pattern.
func (a *Aget) setControlMode(chip int, slowControl bool) {
	pattern := []bool{slowControl, !slowControl, slowControl}

	for _, bit := range pattern {
		a.Bus.setCS(chip, true)
		a.Bus.setMOSI(bit)
		a.Bus.setSCLK(true)
		a.Bus.setSCLK(false)
		a.Bus.setCS(chip, false)
	}
}

func (a *Aget) width(reg int) (int, error) {
	w, ok := AgetRegisterWidths[reg]
	if !ok {
		return 0, fmt.Errorf("%w: unknown AGET register %d", errs.ErrIllegalParameter, reg)
	}
	return w, nil
}

// transact performs address shift + payload shift for a non-hit
// register, de-asserting CS after the data bits on write but extending
// the clock past CS de-assertion on read to flush the chip's shift
// register.
func (a *Aget) transact(chip, reg, width int, out []bool, read bool) (in []bool) {
	a.Bus.setCS(chip, true)

	addr := ShiftRegister{Bus: a.Bus, Chip: chip, Width: 7}
	addr.Shift(addrBits(reg), false)

	dropAt := width
	if read {
		// reads extend shifting two cycles past CS de-assertion
		dropAt = width - 2
	}

	sr := ShiftRegister{Bus: a.Bus, Chip: chip, Width: width, DropCSAfter: dropAt}

	if read {
		in = sr.Shift(nil, true)
	} else {
		sr.Shift(out, false)
	}

	a.Bus.setCS(chip, false)

	return
}

func (a *Aget) withBus(chip int, reg int, fn func() error) error {
	if err := a.Bus.Request(); err != nil {
		return err
	}
	defer a.Bus.Release()

	if reg != HitRegisterAddr {
		a.setControlMode(chip, true)
		defer a.setControlMode(chip, false)
	}

	return fn()
}

// Write shifts a width-bit payload into AGET register reg of chip, then
// updates the mirror.
func (a *Aget) Write(chip, reg int, cells []uint16) error {
	width, err := a.width(reg)
	if err != nil {
		return err
	}

	out := shortsToBits(cells, width)

	err = a.withBus(chip, reg, func() error {
		a.transact(chip, reg, width, out, false)
		return nil
	})
	if err != nil {
		return err
	}

	return a.Mirror.Set(chip, reg, cells)
}

// Read shifts back the payload currently latched in AGET register reg
// of chip, including the hit register (addr 0, 68 bits).
func (a *Aget) Read(chip, reg int) ([]uint16, error) {
	width, err := a.width(reg)
	if err != nil {
		return nil, err
	}

	var bitsOut []bool

	err = a.withBus(chip, reg, func() error {
		bitsOut = a.transact(chip, reg, width, nil, true)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bitsToShorts(bitsOut), nil
}

// ReadHit reads the 68-bit hit register; a thin convenience wrapper over Read.
func (a *Aget) ReadHit(chip int) ([]uint16, error) {
	return a.Read(chip, HitRegisterAddr)
}

// WriteChk performs write-then-read-and-compare; the mirror is updated only on a confirmed match.
func (a *Aget) WriteChk(chip, reg int, cells []uint16) error {
	width, err := a.width(reg)
	if err != nil {
		return err
	}

	out := shortsToBits(cells, width)

	var back []bool
	err = a.withBus(chip, reg, func() error {
		a.transact(chip, reg, width, out, false)
		back = a.transact(chip, reg, width, nil, true)
		return nil
	})
	if err != nil {
		return err
	}

	readCells := bitsToShorts(back)
	for i := range cells {
		if cells[i] != readCells[i] {
			return errs.ErrVerifyMismatch
		}
	}

	return a.Mirror.Set(chip, reg, cells)
}
