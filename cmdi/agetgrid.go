// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"fmt"

	"github.com/rest-for-physics/minos-core/errs"
	"github.com/rest-for-physics/minos-core/histo"
)

// agetGridChans is the number of real AGET channels addressable through
// the per-channel settings registers; FPN and reset channels have no
// gain/threshold/inhibit bits of their own.
const agetGridChans = 64

// agetChanField describes how one per-channel AGET setting is packed
// into the chip's wide registers: bitsPer bits per channel, the first
// chansPerReg channels in baseReg and the rest in baseReg+1.
type agetChanField struct {
	baseReg     int
	bitsPer     int
	chansPerReg int
}

var agetChanFields = map[string]agetChanField{
	"gain":      {baseReg: 6, bitsPer: 2, chansPerReg: 32},
	"threshold": {baseReg: 8, bitsPer: 4, chansPerReg: 32},
	"inhibit":   {baseReg: 10, bitsPer: 2, chansPerReg: 32},
}

func (f agetChanField) locate(chn int) (reg, bitOff int) {
	reg = f.baseReg + chn/f.chansPerReg
	bitOff = (chn % f.chansPerReg) * f.bitsPer
	return
}

// agetChannelGrid implements the two-axis (ASIC × channel) addressing of
// the per-channel AGET settings:
//
//	aget <asic-sel> {gain|threshold|inhibit} <chan-sel> [<value>|++|--]
//	aget <asic-sel> hitprob <chan-sel> <p>
//
// A read requires both selectors to name a single entry. Writes go
// through the family's verified-write path one register at a time, so a
// range write touching both halves of a split setting updates both wide
// registers. hitprob derives each channel's threshold from its S-curve:
// the smallest scan step whose hit rate falls below p; channels with no
// such step are counted as underrange and left unchanged.
func agetChannelGrid(ctx *Context, asicTok, action string, rest []string) (string, error) {
	if len(rest) < 1 {
		return "", fmt.Errorf("%w: aget %s requires <channel> [<value>]", errs.ErrSyntax, action)
	}

	asics, err := asicSelector(ctx, asicTok)
	if err != nil {
		return "", err
	}
	chans, err := parseSelector(rest[0], agetGridChans)
	if err != nil {
		return "", err
	}

	io := ctx.agetChipIO()

	if action == "hitprob" {
		if len(rest) != 2 {
			return "", fmt.Errorf("%w: aget hitprob requires <channel> <p>", errs.ErrSyntax)
		}
		return agetHitProb(ctx, io, asics, chans, rest[1])
	}

	f := agetChanFields[action]

	if len(rest) == 1 {
		if len(asics) != 1 || len(chans) != 1 {
			return "", fmt.Errorf("%w: aget %s read addresses a single entry, not a range", errs.ErrIllegalParameter, action)
		}
		reg, off := f.locate(chans[0])
		v, err := io.mirror().GetBitsAt(asics[0], reg, off, f.bitsPer)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Fem(%02d) %s[%d][%d]= 0x%x (%d)", ctx.CardID, action, asics[0], chans[0], v, v), nil
	}

	delta, isDelta, err := parseDelta(rest[1])
	if err != nil {
		return "", err
	}
	maxVal := uint32(1)<<f.bitsPer - 1

	var wrote, saturated int
	for _, a := range asics {
		for _, c := range chans {
			reg, off := f.locate(c)

			var v int64
			if isDelta {
				cur, err := io.mirror().GetBitsAt(a, reg, off, f.bitsPer)
				if err != nil {
					return "", err
				}
				v = int64(cur) + int64(delta)
			} else {
				lit, err := parseInt(rest[1])
				if err != nil {
					return "", err
				}
				v = int64(lit)
			}

			if v < 0 {
				v = 0
				saturated++
			} else if v > int64(maxVal) {
				v = int64(maxVal)
				saturated++
			}

			if err := agetWriteChanField(io, a, reg, off, f.bitsPer, uint32(v)); err != nil {
				return "", err
			}
			wrote++
		}
	}

	msg := fmt.Sprintf("Fem(%02d) aget %s (wrote %d entries)", ctx.CardID, action, wrote)
	if saturated > 0 {
		msg += fmt.Sprintf(" (%d saturated)", saturated)
	}
	return msg, nil
}

// agetWriteChanField read-modify-writes one channel's sub-field through
// the verified-write path; the mirror entry is refreshed by the driver
// once the write is confirmed.
func agetWriteChanField(io chipActionIO, chip, reg, off, width int, val uint32) error {
	cells, err := io.mirror().SetBitsAt(chip, reg, off, width, val)
	if err != nil {
		return err
	}
	return io.writeChk(chip, reg, io.mirror().Width(reg), cells)
}

// agetHitProb scans each addressed channel's S-curve for the smallest
// threshold step whose hit rate is below p (relative to the step-0 hit
// count) and writes it into the channel's threshold field.
func agetHitProb(ctx *Context, io chipActionIO, asics, chans []int, pTok string) (string, error) {
	p, err := parseFloat(pTok)
	if err != nil {
		return "", err
	}

	f := agetChanFields["threshold"]

	var wrote, underrange int
	for _, a := range asics {
		for _, c := range chans {
			bins, err := ctx.SCurve.Bins(a, c)
			if err != nil {
				return "", err
			}

			// the lowest scan step sees every hit, so its bin is the
			// reference count
			thr, under := histo.HitProb(bins, bins[0], p)
			if under {
				underrange++
				continue
			}

			reg, off := f.locate(c)
			if err := agetWriteChanField(io, a, reg, off, f.bitsPer, uint32(thr)); err != nil {
				return "", err
			}
			wrote++
		}
	}

	return fmt.Sprintf("Fem(%02d) aget hitprob p=%g (wrote %d entries, %d underrange)", ctx.CardID, p, wrote, underrange), nil
}
