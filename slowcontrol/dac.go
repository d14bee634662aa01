// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package slowcontrol

// DAC drives the calibration-pulse DAC: a 16-bit
// MSB-first shift into the DAC shift register, followed by a pulse on a
// dedicated chip-select to latch the value, then idle.
type DAC struct {
	Bus *Bus
	// LatchChip is the chip index whose CS line is wired to the DAC
	// latch strobe rather than to an ASIC.
	LatchChip int
}

func NewDAC(bus *Bus, latchChip int) *DAC {
	return &DAC{Bus: bus, LatchChip: latchChip}
}

func uint16Bits(v uint16) []bool {
	out := make([]bool, 16)
	for i := 0; i < 16; i++ {
		out[i] = v&(1<<uint(15-i)) != 0
	}
	return out
}

// Set shifts value into the pulser DAC and latches it.
func (d *DAC) Set(value uint16) error {
	if err := d.Bus.Request(); err != nil {
		return err
	}
	defer d.Bus.Release()

	sr := ShiftRegister{Bus: d.Bus, Chip: d.LatchChip, Width: 16}
	sr.Shift(uint16Bits(value), false)

	// pulse the latch chip-select
	d.Bus.setCS(d.LatchChip, true)
	d.Bus.setCS(d.LatchChip, false)

	// restore idle levels
	d.Bus.setMOSI(false)
	d.Bus.setSCLK(false)

	return nil
}
