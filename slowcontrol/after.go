// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package slowcontrol

import (
	"github.com/rest-for-physics/minos-core/asicmirror"
	"github.com/rest-for-physics/minos-core/errs"
)

// AfterRegisterWidths maps AFTER slow-control register address to
// payload width in bits: two 16-bit configuration registers and two
// 38-bit channel masks.
var AfterRegisterWidths = map[int]int{
	0: 16,
	1: 16,
	2: 38,
	3: 38,
}

// afterTrailingClocks is the number of extra clock edges the AFTER shift
// sequence issues after the data bits, needed to flush the chip's
// internal shift register.
const afterTrailingClocks = 4

// After drives the AFTER ASIC's serial slow-control protocol: R/W bit,
// 7-bit address, then a 16- or 38-bit payload plus 4 trailing clocks.
type After struct {
	Bus    *Bus
	Mirror *asicmirror.Mirror
}

func NewAfter(bus *Bus, mirror *asicmirror.Mirror) *After {
	return &After{Bus: bus, Mirror: mirror}
}

func addrBits(addr int) []bool {
	out := make([]bool, 7)
	for i := 0; i < 7; i++ {
		out[i] = addr&(1<<uint(6-i)) != 0
	}
	return out
}

// transact performs the shared AFTER preamble/shift/postamble sequence.
// read selects the R/W line polarity (true=1=read, false=0=write).
func (a *After) transact(chip, reg int, width int, out []bool, read bool) (in []bool, err error) {
	if err = a.Bus.Request(); err != nil {
		return nil, err
	}
	defer a.Bus.Release()

	// R/W bit is asserted on the data line while SCLK is held high,
	// before chip-select.
	a.Bus.setSCLK(true)
	a.Bus.setMOSI(read)
	a.Bus.setCS(chip, true)

	sr := ShiftRegister{Bus: a.Bus, Chip: chip, Width: 7}
	sr.Shift(addrBits(reg), false)

	sr = ShiftRegister{Bus: a.Bus, Chip: chip, Width: width + afterTrailingClocks}

	if read {
		raw := sr.Shift(nil, true)
		// bit 0 of the shift is discarded; sampling starts at bit 1.
		in = raw[1 : 1+width]
	} else {
		sr.Shift(out, false)
	}

	a.Bus.setSCLK(false)
	a.Bus.setCS(chip, false)

	return in, nil
}

// Write shifts a width-bit payload into AFTER register reg of chip, then
// updates the mirror.
func (a *After) Write(chip, reg, width int, cells []uint16) error {
	out := shortsToBits(cells, width)

	if _, err := a.transact(chip, reg, width, out, false); err != nil {
		return err
	}

	return a.Mirror.Set(chip, reg, cells)
}

// Read shifts back the width-bit payload currently latched in AFTER
// register reg of chip.
func (a *After) Read(chip, reg, width int) ([]uint16, error) {
	in, err := a.transact(chip, reg, width, nil, true)
	if err != nil {
		return nil, err
	}

	return bitsToShorts(in), nil
}

// WriteChk performs a verified write: write, then read back and compare,
// only updating the mirror and returning success if they match
//.
func (a *After) WriteChk(chip, reg, width int, cells []uint16) error {
	out := shortsToBits(cells, width)
	if _, err := a.transact(chip, reg, width, out, false); err != nil {
		return err
	}

	back, err := a.transact(chip, reg, width, nil, true)
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
