// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rest-for-physics/minos-core/asicmirror"
	"github.com/rest-for-physics/minos-core/bits"
	"github.com/rest-for-physics/minos-core/errs"
	"github.com/rest-for-physics/minos-core/slowcontrol"
)

// cmdReg implements `reg <addr> [<value>]`, direct read/write access to
// one FPGA register-bank word, independent
// of the current AFTER/AGET mode.
func cmdReg(ctx *Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("%w: reg requires <addr> [<value>]", errs.ErrSyntax)
	}
	addr, err := parseInt(args[0])
	if err != nil {
		return "", err
	}
	if addr < 0 || addr >= ctx.Bank.Len() {
		return "", fmt.Errorf("%w: register %d out of range", errs.ErrIllegalParameter, addr)
	}

	if len(args) == 1 {
		v := ctx.Bank.Read(addr)
		return fmt.Sprintf("Fem(%02d) Reg(%d) = 0x%x (%d)", ctx.CardID, addr, v, v), nil
	}

	v, err := parseInt(args[1])
	if err != nil {
		return "", err
	}
	ctx.Bank.Write(addr, uint32(v))
	return fmt.Sprintf("Fem(%02d) Reg(%d) <- 0x%x", ctx.CardID, addr, uint32(v)), nil
}

// chipAction names one scalar bit field of a slow-control register,
// addressable as its own sub-verb under `after <id> <action>` or
// `aget <id> <action>`. Every entry owns
// its (reg, field) pair so neighboring actions packed into the same
// register word never alias each other's bits.
type chipAction struct {
	Name string
	Reg  int
	bits.Field
}

// afterWidths gives the AFTER slow-control register widths the bit-bang
// preamble needs; addresses not
// listed here are rejected by generic read/write/wrchk.
var afterWidths = slowcontrol.AfterRegisterWidths

var afterActions = []chipAction{
	{"gain", 2, bits.Field{Shift: 0, Mask: 0x3}},
	{"time", 2, bits.Field{Shift: 2, Mask: 0x7}},
	{"en_mkr_rst", 2, bits.Bit(5)},
	{"rst_level", 2, bits.Bit(6)},
	{"rd_from_0", 3, bits.Bit(0)},
	{"test_digout", 3, bits.Bit(1)},
	{"test_mode", 3, bits.Field{Shift: 2, Mask: 0x3}},
}

// agetActions maps the chip-global scalar actions onto specific
// registers out of the AGET width table (addr 1/2: 32 bits, addr 3/4:
// 34 bits); "dac" here is the AGET chip's internal offset-DAC register
// field, distinct from the pulser calibration DAC driven by pul_load.
// The per-channel settings (gain, inhibit, threshold, hitprob) live in
// the wide registers 6..11 and are handled by the channel grid below,
// not this table.
var agetActions = []chipAction{
	{"icsa", 1, bits.Bit(0)},
	{"time", 1, bits.Field{Shift: 1, Mask: 0x7}},
	{"test", 1, bits.Bit(4)},
	{"mode", 1, bits.Field{Shift: 5, Mask: 0x3}},
	{"fpn", 2, bits.Bit(0)},
	{"polarity", 2, bits.Bit(1)},
	{"vicm", 2, bits.Field{Shift: 2, Mask: 0x7}},
	{"dac", 2, bits.Field{Shift: 5, Mask: 0xFF}},
	{"trigger_veto", 3, bits.Bit(0)},
	{"synchro_discri", 3, bits.Bit(1)},
	{"tot", 3, bits.Bit(2)},
	{"range_tw", 3, bits.Field{Shift: 3, Mask: 0x3}},
	{"trig_width", 3, bits.Field{Shift: 5, Mask: 0xF}},
	{"rd_from_0", 4, bits.Bit(0)},
	{"tst_digout", 4, bits.Bit(1)},
	{"en_mkr_rst", 4, bits.Bit(2)},
	{"rst_level", 4, bits.Bit(3)},
	{"cur_ra", 4, bits.Field{Shift: 4, Mask: 0xF}},
	{"cur_buf", 4, bits.Field{Shift: 8, Mask: 0xF}},
	{"short_read", 4, bits.Bit(12)},
	{"dis_multiplicity_out", 4, bits.Bit(13)},
	{"autoreset_bank", 4, bits.Bit(14)},
	{"in_dyn_range", 4, bits.Bit(15)},
}

func findAction(table []chipAction, name string) (chipAction, bool) {
	for _, a := range table {
		if a.Name == name {
			return a, true
		}
	}
	return chipAction{}, false
}

func parseCells(args []string) ([]uint16, error) {
	cells := make([]uint16, 0, len(args))
	for _, a := range args {
		v, err := parseInt(a)
		if err != nil {
			return nil, err
		}
		cells = append(cells, uint16(v))
	}
	return cells, nil
}

func cellHex(cells []uint16) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = "0x" + strconv.FormatUint(uint64(c), 16)
	}
	return strings.Join(parts, " ")
}

// cmdAfter implements the `after <id> {read|write|wrchk|<action>}`
// family.
func cmdAfter(ctx *Context, args []string) (string, error) {
	if ctx.After == nil && ctx.afterIO == nil {
		return "", fmt.Errorf("%w: AFTER driver not configured", errs.ErrIllegalParameter)
	}
	if len(args) < 2 {
		return "", fmt.Errorf("%w: after requires <id> <action> [...]", errs.ErrSyntax)
	}
	chip, err := parseInt(args[0])
	if err != nil {
		return "", err
	}
	action, rest := args[1], args[2:]
	io := ctx.afterChipIO()

	switch action {
	case "read":
		if len(rest) != 1 {
			return "", fmt.Errorf("%w: after read requires <reg>", errs.ErrSyntax)
		}
		reg, err := parseInt(rest[0])
		if err != nil {
			return "", err
		}
		width, ok := afterWidths[reg]
		if !ok {
			return "", fmt.Errorf("%w: unknown AFTER register %d", errs.ErrIllegalParameter, reg)
		}
		cells, err := io.read(chip, reg, width)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Fem(%02d) After(%d) Reg(%d) = %s", ctx.CardID, chip, reg, cellHex(cells)), nil

	case "write", "wrchk":
		if len(rest) < 2 {
			return "", fmt.Errorf("%w: after %s requires <reg> <cell>...", errs.ErrSyntax, action)
		}
		reg, err := parseInt(rest[0])
		if err != nil {
			return "", err
		}
		width, ok := afterWidths[reg]
		if !ok {
			return "", fmt.Errorf("%w: unknown AFTER register %d", errs.ErrIllegalParameter, reg)
		}
		cells, err := parseCells(rest[1:])
		if err != nil {
			return "", err
		}
		if action == "wrchk" {
			if err := io.writeChk(chip, reg, width, cells); err != nil {
				return "", err
			}
			return fmt.Sprintf("Fem(%02d) After(%d) Reg(%d) <- %s (verified)", ctx.CardID, chip, reg, cellHex(cells)), nil
		}
		if err := io.write(chip, reg, width, cells); err != nil {
			return "", err
		}
		return fmt.Sprintf("Fem(%02d) After(%d) Reg(%d) <- %s", ctx.CardID, chip, reg, cellHex(cells)), nil

	default:
		act, ok := findAction(afterActions, action)
		if !ok {
			return "", fmt.Errorf("%w: unknown after action %q", errs.ErrIllegalParameter, action)
		}
		return chipActionDispatch(ctx, ctx.afterChipIO(), chip, act, rest)
	}
}

// cmdAget implements the `aget <id> {read|write|wrchk|wrhit|rdhit|<action>}`
// family.
func cmdAget(ctx *Context, args []string) (string, error) {
	if ctx.Aget == nil && ctx.agetIO == nil {
		return "", fmt.Errorf("%w: AGET driver not configured", errs.ErrIllegalParameter)
	}
	if len(args) < 2 {
		return "", fmt.Errorf("%w: aget requires <id> <action> [...]", errs.ErrSyntax)
	}
	action := args[1]

	// The per-channel settings take an ASIC selector rather than a
	// single chip id and are handled by the channel grid.
	if _, ok := agetChanFields[action]; ok || action == "hitprob" {
		return agetChannelGrid(ctx, args[0], action, args[2:])
	}

	chip, err := parseInt(args[0])
	if err != nil {
		return "", err
	}
	rest := args[2:]
	io := ctx.agetChipIO()

	switch action {
	case "read":
		if len(rest) != 1 {
			return "", fmt.Errorf("%w: aget read requires <reg>", errs.ErrSyntax)
		}
		reg, err := parseInt(rest[0])
		if err != nil {
			return "", err
		}
		cells, err := io.read(chip, reg, io.mirror().Width(reg))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Fem(%02d) Aget(%d) Reg(%d) = %s", ctx.CardID, chip, reg, cellHex(cells)), nil

	case "write", "wrchk":
		if len(rest) < 2 {
			return "", fmt.Errorf("%w: aget %s requires <reg> <cell>...", errs.ErrSyntax, action)
		}
		reg, err := parseInt(rest[0])
		if err != nil {
			return "", err
		}
		cells, err := parseCells(rest[1:])
		if err != nil {
			return "", err
		}
		if action == "wrchk" {
			if err := io.writeChk(chip, reg, io.mirror().Width(reg), cells); err != nil {
				return "", err
			}
			return fmt.Sprintf("Fem(%02d) Aget(%d) Reg(%d) <- %s (verified)", ctx.CardID, chip, reg, cellHex(cells)), nil
		}
		if err := io.write(chip, reg, io.mirror().Width(reg), cells); err != nil {
			return "", err
		}
		return fmt.Sprintf("Fem(%02d) Aget(%d) Reg(%d) <- %s", ctx.CardID, chip, reg, cellHex(cells)), nil

	case "rdhit":
		cells, err := io.read(chip, slowcontrol.HitRegisterAddr, io.mirror().Width(slowcontrol.HitRegisterAddr))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Fem(%02d) Aget(%d) Hit = %s", ctx.CardID, chip, cellHex(cells)), nil

	case "wrhit":
		cells, err := parseCells(rest)
		if err != nil {
			return "", err
		}
		if err := io.write(chip, slowcontrol.HitRegisterAddr, io.mirror().Width(slowcontrol.HitRegisterAddr), cells); err != nil {
			return "", err
		}
		return fmt.Sprintf("Fem(%02d) Aget(%d) Hit <- %s", ctx.CardID, chip, cellHex(cells)), nil

	default:
		act, ok := findAction(agetActions, action)
		if !ok {
			return "", fmt.Errorf("%w: unknown aget action %q", errs.ErrIllegalParameter, action)
		}
		return chipActionDispatch(ctx, ctx.agetChipIO(), chip, act, rest)
	}
}

// chipActionIO abstracts the AFTER/AGET read/verified-write primitives
// and the family's register mirror, so chipActionDispatch and the
// channel grid can drive either chip family through the same logic.
// Tests substitute a mirror-backed double via Context.afterIO/agetIO.
type chipActionIO interface {
	read(chip, reg, width int) ([]uint16, error)
	write(chip, reg, width int, cells []uint16) error
	writeChk(chip, reg, width int, cells []uint16) error
	mirror() *asicmirror.Mirror
}

type afterActionIO struct{ ctx *Context }

func (io afterActionIO) read(chip, reg, width int) ([]uint16, error) {
	return io.ctx.After.Read(chip, reg, width)
}
func (io afterActionIO) write(chip, reg, width int, cells []uint16) error {
	return io.ctx.After.Write(chip, reg, width, cells)
}
func (io afterActionIO) writeChk(chip, reg, width int, cells []uint16) error {
	return io.ctx.After.WriteChk(chip, reg, width, cells)
}
func (io afterActionIO) mirror() *asicmirror.Mirror { return io.ctx.AfterMirror }

type agetActionIO struct{ ctx *Context }

func (io agetActionIO) read(chip, reg, _ int) ([]uint16, error) {
	return io.ctx.Aget.Read(chip, reg)
}
func (io agetActionIO) write(chip, reg, _ int, cells []uint16) error {
	return io.ctx.Aget.Write(chip, reg, cells)
}
func (io agetActionIO) writeChk(chip, reg, _ int, cells []uint16) error {
	return io.ctx.Aget.WriteChk(chip, reg, cells)
}
func (io agetActionIO) mirror() *asicmirror.Mirror { return io.ctx.AgetMirror }

func (ctx *Context) afterChipIO() chipActionIO {
	if ctx.afterIO != nil {
		return ctx.afterIO
	}
	return afterActionIO{ctx}
}

func (ctx *Context) agetChipIO() chipActionIO {
	if ctx.agetIO != nil {
		return ctx.agetIO
	}
	return agetActionIO{ctx}
}

// chipActionDispatch reads or read-modify-verified-writes one named
// scalar field. Named actions default to a verified write, matching the firmware's
// use of wrchk for slow-control parameter updates.
func chipActionDispatch(ctx *Context, io chipActionIO, chip int, act chipAction, rest []string) (string, error) {
	m := io.mirror()
	width := m.Width(act.Reg)

	if len(rest) == 0 {
		cells, err := io.read(chip, act.Reg, width)
		if err != nil {
			return "", err
		}
		if err := m.Set(chip, act.Reg, cells); err != nil {
			return "", err
		}
		v, err := m.GetField(chip, act.Reg, act.Shift, act.Mask)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", v), nil
	}

	delta, isDelta, err := parseDelta(rest[0])
	if err != nil {
		return "", err
	}
	var val uint32
	if isDelta {
		cur, err := m.GetField(chip, act.Reg, act.Shift, act.Mask)
		if err != nil {
			return "", err
		}
		val = uint32(int64(cur) + int64(delta))
	} else {
		v, err := parseInt(rest[0])
		if err != nil {
			return "", err
		}
		val = uint32(v)
	}

	cells, err := m.SetField(chip, act.Reg, act.Shift, act.Mask, val)
	if err != nil {
		return "", err
	}
	if err := io.writeChk(chip, act.Reg, width, cells); err != nil {
		return "", err
	}
	return "", nil
}
