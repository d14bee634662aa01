// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"fmt"

	"github.com/rest-for-physics/minos-core/bits"
	"github.com/rest-for-physics/minos-core/errs"
)

// toggle is a single scalar bit-field on the FPGA register bank exposed
// as a read/set verb: `<name>` reports the current value, `<name> <value>`
// sets it (0 or 1 for a single-bit toggle, any value that fits the field
// for a wider one). Every entry names its own (register, field) pair so
// adjacent toggles sharing a register's byte never alias each other's
// Field.Mask/Shift, a hazard that bites pul_enable/pul_delay/pul_amp/
// pul_load in particular.
type toggle struct {
	Name string
	Reg  int
	bits.Field
}

// toggleTable lists the card's scalar configuration bits: FPGA-level
// enables and modes that, unlike the per-ASIC commands, address a
// single FPGA control register directly. Register numbers are
// placeholders for a specific FPGA register map, but the Field widths
// and independence from one another follow each toggle's documented
// name.
var toggleTable = []toggle{
	{"en_trig", 2, bits.Bit(0)},
	{"en_tcm_trig", 2, bits.Bit(1)},
	{"en_ext_trig", 2, bits.Bit(2)},
	{"en_p_trig", 2, bits.Bit(3)},
	{"en_spill_trig", 2, bits.Bit(4)},
	{"en_busy_out", 2, bits.Bit(5)},
	{"en_fe_clk", 2, bits.Bit(6)},
	{"en_mult_trig", 2, bits.Bit(7)},
	{"auto_trig", 3, bits.Field{Shift: 0, Mask: 0xFFFF}},
	{"mult_limit", 3, bits.Field{Shift: 16, Mask: 0xFF}},
	{"mult_tw", 4, bits.Field{Shift: 0, Mask: 0xFF}},
	{"validation_tw", 4, bits.Field{Shift: 8, Mask: 0xFF}},
	{"event_limit", 5, bits.Field{Shift: 0, Mask: 0xFFFFFF}},
	{"led_mode", 6, bits.Field{Shift: 0, Mask: 0x3}},
	{"hit_limit_mode", 6, bits.Bit(2)},
	{"tcm_port_mask", 7, bits.Field{Shift: 0, Mask: 0xFFFFFF}},

	// zero-suppressor and readout framing controls
	{"zero_suppress", 11, bits.Bit(0)},
	{"zs_pre_post", 11, bits.Field{Shift: 1, Mask: 0xFF}},
	{"emit_hit_cnt", 11, bits.Bit(9)},
	{"emit_empty_ch", 11, bits.Bit(10)},
	{"emit_ch_hit_id", 11, bits.Bit(11)},
	{"emit_lst_cell_rd", 11, bits.Bit(12)},
	{"keep_rst", 11, bits.Bit(13)},
	{"skip_rst", 11, bits.Bit(14)},
	{"keep_fco", 11, bits.Bit(15)},

	// hit-register post-processing
	{"modify_hit_reg", 12, bits.Bit(0)},
	{"erase_hit_ena", 12, bits.Bit(1)},
	{"erase_hit_thr", 12, bits.Field{Shift: 2, Mask: 0xF}},
	{"trig_rate", 12, bits.Field{Shift: 8, Mask: 0xFF}},
	{"trig_delay", 12, bits.Field{Shift: 16, Mask: 0xFFFF}},

	// front-end card power and clocking
	{"fec_enable", 13, bits.Bit(0)},
	{"power_inv", 13, bits.Bit(1)},
	{"clk_div", 13, bits.Field{Shift: 2, Mask: 0x7}},
	{"test_enable", 13, bits.Bit(5)},
	{"test_zbt", 13, bits.Bit(6)},
	{"bert", 13, bits.Bit(7)},

	// multiplicity and event-flow shaping
	{"snd_mult_ena", 14, bits.Bit(0)},
	{"mult_thr", 14, bits.Field{Shift: 1, Mask: 0xFF}},
	{"eof_on_eoe", 14, bits.Bit(9)},
	{"busy_out_sel", 14, bits.Field{Shift: 10, Mask: 0x3}},
}

// cmdPulEnable and its siblings implement the `pul_enable`,
// `pul_delay`, `pul_amp`, and `pul_load` calibration-pulse verbs.
// Declared adjacently since a hazard historically resolved by table
// declaration order; explicit per-field names here remove that hazard
// instead of relying on it.
func cmdPulEnable(ctx *Context, args []string) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("%t", ctx.Pulser.Enable), nil
	}
	v, err := parseBool(args[0])
	if err != nil {
		return "", err
	}
	ctx.Pulser.Enable = v
	return "", nil
}

func cmdPulDelay(ctx *Context, args []string) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("%d", ctx.Pulser.Delay), nil
	}
	v, err := parseInt(args[0])
	if err != nil {
		return "", err
	}
	if v < 0 {
		return "", fmt.Errorf("%w: pul_delay must be >= 0", errs.ErrIllegalParameter)
	}
	ctx.Pulser.Delay = uint32(v)
	return "", nil
}

func cmdPulAmp(ctx *Context, args []string) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("%d", ctx.Pulser.Amp), nil
	}
	v, err := parseInt(args[0])
	if err != nil {
		return "", err
	}
	if v < 0 || v > 0xFFFF {
		return "", fmt.Errorf("%w: pul_amp must fit 16 bits", errs.ErrIllegalParameter)
	}
	ctx.Pulser.Amp = uint16(v)
	return "", nil
}

// cmdPulLoad implements `pul_load`: latches Pulser.Amp into the DAC
// driver's shift register.
func cmdPulLoad(ctx *Context, args []string) (string, error) {
	if ctx.Dac == nil {
		return "", fmt.Errorf("%w: DAC not configured", errs.ErrIllegalParameter)
	}
	return "", ctx.Dac.Set(ctx.Pulser.Amp)
}

// cmdTstampIsSet implements `tstamp_isset[ clr]`: reports
// whether `tstamp_init` has run since the flag was last cleared,
// optionally clearing the flag in the same call.
func cmdTstampIsSet(ctx *Context, args []string) (string, error) {
	was := ctx.TstampSet
	if len(args) == 1 && args[0] == "clr" {
		ctx.TstampSet = false
	} else if len(args) != 0 {
		return "", fmt.Errorf("%w: tstamp_isset takes no argument or \"clr\"", errs.ErrSyntax)
	}
	return fmt.Sprintf("%t", was), nil
}

// toggleHandler closes over one toggleTable entry so it can be wired
// into the dispatch table's handlerFunc shape.
func toggleHandler(t toggle) handlerFunc {
	return func(ctx *Context, args []string) (string, error) {
		if ctx.Bank == nil {
			return "", fmt.Errorf("%w: register bank not configured", errs.ErrIllegalParameter)
		}
		if len(args) == 0 {
			return fmt.Sprintf("%d", ctx.Bank.Field(t.Reg, t.Field)), nil
		}
		v, err := parseInt(args[0])
		if err != nil {
			return "", err
		}
		if uint32(v) > t.Mask {
			return "", fmt.Errorf("%w: %s value %d exceeds field width", errs.ErrIllegalParameter, t.Name, v)
		}
		ctx.Bank.SetField(t.Reg, t.Field, uint32(v))
		return "", nil
	}
}

// toggleVerbs builds the dispatch-table entries for every scalar
// bit-field toggle plus the pulser and timestamp verbs that share their
// argument-less-read/single-arg-write shape.
func toggleVerbs() []verb {
	out := make([]verb, 0, len(toggleTable)+5)

	for _, t := range toggleTable {
		out = append(out, verb{Name: t.Name, Handler: toggleHandler(t)})
	}

	out = append(out,
		verb{"pul_enable", cmdPulEnable},
		verb{"pul_delay", cmdPulDelay},
		verb{"pul_amp", cmdPulAmp},
		verb{"pul_load", cmdPulLoad},
		verb{"tstamp_isset", cmdTstampIsSet},
	)

	return out
}
