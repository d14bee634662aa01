// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"fmt"

	"github.com/rest-for-physics/minos-core/errs"
)

// gridAccess names one per-(ASIC, channel) table addressable through the
// generalized two-axis selector grammar:
//
//	<verb> <asic-selector> <channel-selector> [<value>]
//
// Selectors are `*` | `a:b` | `n`. A read (no value) requires both
// selectors to resolve to a single entry; a write accepts a literal or
// the ++/-- nudge grammar and saturates to [min, max].
type gridAccess struct {
	name     string
	min, max int
	read     func(ctx *Context, asic, chn int) (int, error)
	write    func(ctx *Context, asic, chn, val int) error
}

var pedGrid = gridAccess{
	name: "ped", min: 0, max: 0xFFF,
	read: func(ctx *Context, a, c int) (int, error) {
		return int(ctx.Pedestal.LUT[a][c].Ped), nil
	},
	write: func(ctx *Context, a, c, v int) error {
		ctx.Pedestal.LUT[a][c].Ped = int16(v)
		return nil
	},
}

var thrGrid = gridAccess{
	name: "thr", min: 0, max: 0x1FF,
	read: func(ctx *Context, a, c int) (int, error) {
		return int(ctx.Pedestal.LUT[a][c].Thr), nil
	},
	write: func(ctx *Context, a, c, v int) error {
		ctx.Pedestal.LUT[a][c].Thr = int16(v)
		return nil
	},
}

var forceOnGrid = gridAccess{
	name: "forceon", min: 0, max: 1,
	read: func(ctx *Context, a, c int) (int, error) {
		if ctx.Pedestal.Force[a][c].ForceOn {
			return 1, nil
		}
		return 0, nil
	},
	write: func(ctx *Context, a, c, v int) error {
		ctx.Pedestal.Force[a][c].ForceOn = v != 0
		return nil
	},
}

var forceOffGrid = gridAccess{
	name: "forceoff", min: 0, max: 1,
	read: func(ctx *Context, a, c int) (int, error) {
		if ctx.Pedestal.Force[a][c].ForceOff {
			return 1, nil
		}
		return 0, nil
	},
	write: func(ctx *Context, a, c, v int) error {
		ctx.Pedestal.Force[a][c].ForceOff = v != 0
		return nil
	},
}

func cmdPed(ctx *Context, args []string) (string, error)      { return ctx.actOnGrid(pedGrid, args) }
func cmdThr(ctx *Context, args []string) (string, error)      { return ctx.actOnGrid(thrGrid, args) }
func cmdForceOn(ctx *Context, args []string) (string, error)  { return ctx.actOnGrid(forceOnGrid, args) }
func cmdForceOff(ctx *Context, args []string) (string, error) { return ctx.actOnGrid(forceOffGrid, args) }

// actOnGrid runs the shared selector/value grammar against one grid.
func (ctx *Context) actOnGrid(g gridAccess, args []string) (string, error) {
	if len(args) < 2 || len(args) > 3 {
		return "", fmt.Errorf("%w: %s requires <asic> <channel> [<value>]", errs.ErrSyntax, g.name)
	}

	asics, err := asicSelector(ctx, args[0])
	if err != nil {
		return "", err
	}
	chans, err := chanSelector(ctx, args[1])
	if err != nil {
		return "", err
	}

	if len(args) == 2 {
		if len(asics) != 1 || len(chans) != 1 {
			return "", fmt.Errorf("%w: %s read addresses a single entry, not a range", errs.ErrIllegalParameter, g.name)
		}
		v, err := g.read(ctx, asics[0], chans[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Fem(%02d) %s[%d][%d]= 0x%x (%d)", ctx.CardID, g.name, asics[0], chans[0], v, v), nil
	}

	delta, isDelta, err := parseDelta(args[2])
	if err != nil {
		return "", err
	}

	var wrote, saturated int
	var lastA, lastC, lastV int
	for _, a := range asics {
		for _, c := range chans {
			var v int
			if isDelta {
				cur, err := g.read(ctx, a, c)
				if err != nil {
					return "", err
				}
				v = cur + delta
			} else {
				v, err = parseInt(args[2])
				if err != nil {
					return "", err
				}
			}

			if v < g.min {
				v = g.min
				saturated++
			} else if v > g.max {
				v = g.max
				saturated++
			}

			if err := g.write(ctx, a, c, v); err != nil {
				return "", err
			}
			wrote++
			lastA, lastC, lastV = a, c, v
		}
	}

	msg := fmt.Sprintf("Fem(%02d) %s[%d][%d]= 0x%x (%d) (wrote %d entries)",
		ctx.CardID, g.name, lastA, lastC, lastV, lastV, wrote)
	if saturated > 0 {
		msg += fmt.Sprintf(" (%d saturated)", saturated)
	}
	return msg, nil
}
