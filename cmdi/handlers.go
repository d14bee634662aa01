// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rest-for-physics/minos-core/bits"
	"github.com/rest-for-physics/minos-core/errs"
	"github.com/rest-for-physics/minos-core/flowctl"
	"github.com/rest-for-physics/minos-core/frame"
	"github.com/rest-for-physics/minos-core/histo"
	"github.com/rest-for-physics/minos-core/ring"
)

func cmdHelp(ctx *Context, args []string) (string, error) {
	names := make([]string, len(table))
	for i, v := range table {
		names[i] = v.Name
	}
	return strings.Join(names, " "), nil
}

func cmdVersion(ctx *Context, args []string) (string, error) {
	return fmt.Sprintf("card=%d version=%d kind=%s", ctx.CardID, ctx.Version, ctx.Kind), nil
}

// cmdDaq implements the `daq <amount> <unit> [<seq>]` credit grant,
// routed straight into the flow controller. `amount == 0` is a query
// that reports the outstanding credit with a normal reply; any other
// amount (including the 0xFFFFFF pause sentinel) grants or clears
// credit and emits no reply at all.
func cmdDaq(ctx *Context, args []string) (string, error) {
	if ctx.Flow == nil {
		return "", fmt.Errorf("%w: flow control not configured", errs.ErrIllegalParameter)
	}
	if len(args) < 2 {
		return "", fmt.Errorf("%w: daq requires <amount> <unit> [<seq>]", errs.ErrSyntax)
	}

	amount, err := parseInt(args[0])
	if err != nil {
		return "", err
	}

	var unit flowctl.Unit
	switch strings.ToUpper(args[1]) {
	case "B":
		unit = flowctl.UnitBytes
	case "F":
		unit = flowctl.UnitFrames
	default:
		return "", fmt.Errorf("%w: unit must be B or F", errs.ErrIllegalParameter)
	}

	var seqPtr *uint8
	if len(args) >= 3 {
		s, err := parseInt(args[2])
		if err != nil {
			return "", err
		}
		seq := uint8(s)
		seqPtr = &seq
	}

	ctx.DaqClient = ctx.LastSender

	if amount == 0 {
		return fmt.Sprintf("snd_allowed=%d unit=%c", ctx.Flow.SndAllowed, byte(ctx.Flow.Unit)), nil
	}

	ctx.Flow.RequestCredit(uint32(amount), unit, seqPtr, time.Now())
	ctx.noReply = true
	return "", nil
}

// cmdMode implements `mode [after|aget]`: with no argument it reports
// the current chip kind, otherwise it switches the active driver and
// register mirror.
func cmdMode(ctx *Context, args []string) (string, error) {
	if len(args) == 0 {
		return ctx.Kind.String(), nil
	}
	switch strings.ToLower(args[0]) {
	case "after":
		ctx.Kind = KindAfter
	case "aget":
		ctx.Kind = KindAget
	default:
		return "", fmt.Errorf("%w: mode must be after or aget", errs.ErrIllegalParameter)
	}
	return "", nil
}

// SCA controller fields within RegScaCtrl. cnt is the number of SCA
// cells digitized per event (up to the array's 512), wckdiv the write
// clock divisor.
var (
	scaCnt       = bits.Field{Shift: 0, Mask: 0x3FF}
	scaWckDiv    = bits.Field{Shift: 10, Mask: 0x7F}
	scaEnable    = bits.Bit(17)
	scaAutoStart = bits.Bit(18)
	scaStart     = bits.Bit(19)
	scaStop      = bits.Bit(20)
)

// cmdSca implements `sca {cnt|wckdiv|enable|autostart|start|stop}`, the
// switched-capacitor-array acquisition controls. cnt/wckdiv/enable/
// autostart follow the read-or-write shape of the scalar toggles;
// start/stop pulse their bit and gate the ring buffer pump's RUN flag
// so acquisition and the descriptor flow start and stop together.
func cmdSca(ctx *Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: sca requires cnt, wckdiv, enable, autostart, start or stop", errs.ErrSyntax)
	}

	field := func(f bits.Field) (string, error) {
		if len(args) == 1 {
			return fmt.Sprintf("%d", ctx.Bank.Field(RegScaCtrl, f)), nil
		}
		v, err := parseInt(args[1])
		if err != nil {
			return "", err
		}
		if uint32(v) > f.Mask {
			return "", fmt.Errorf("%w: sca %s value %d exceeds field width", errs.ErrIllegalParameter, args[0], v)
		}
		ctx.Bank.SetField(RegScaCtrl, f, uint32(v))
		return "", nil
	}

	pulse := func(f bits.Field, run bool) {
		ctx.Bank.SetField(RegScaCtrl, f, 1)
		ctx.Bank.SetField(RegScaCtrl, f, 0)
		if ctx.Ring != nil {
			var v uint32
			if run {
				v = 1 << ring.BitRun
			}
			ctx.Ring.IOControl(1<<ring.BitRun, v)
		}
	}

	switch args[0] {
	case "cnt":
		return field(scaCnt)
	case "wckdiv":
		return field(scaWckDiv)
	case "enable":
		return field(scaEnable)
	case "autostart":
		return field(scaAutoStart)
	case "start":
		pulse(scaStart, true)
		return "", nil
	case "stop":
		pulse(scaStop, false)
		return "", nil
	default:
		return "", fmt.Errorf("%w: unknown sca action %q", errs.ErrIllegalParameter, args[0])
	}
}

// cmdRbf implements `rbf {config|suspend|resume|reset|getpnd|timed|timeval|init}`,
// the ring buffer pump controls mapped onto its io_control word.
func cmdRbf(ctx *Context, args []string) (string, error) {
	if ctx.Ring == nil {
		return "", fmt.Errorf("%w: ring buffer pump not configured", errs.ErrIllegalParameter)
	}
	if len(args) == 0 {
		return "", fmt.Errorf("%w: rbf requires an action", errs.ErrSyntax)
	}

	switch args[0] {
	case "config":
		cfg := ctx.Ring.GetConfiguration()
		return fmt.Sprintf("Fem(%02d) rbf config=0x%08x run=%d retpnd=%d timed=%d timeval=%d",
			ctx.CardID, cfg,
			(cfg>>ring.BitRun)&1, (cfg>>ring.BitRetPnd)&1, (cfg>>ring.BitTimed)&1,
			ring.TimeVal.Get(cfg)), nil

	case "suspend":
		ctx.Ring.IOControl(1<<ring.BitRun, 0)
		return "", nil

	case "resume":
		ctx.Ring.IOControl(1<<ring.BitRun, 1<<ring.BitRun)
		return "", nil

	case "reset":
		ctx.Ring.IOControl(1<<ring.BitReset, 1<<ring.BitReset)
		ctx.Ring.IOControl(1<<ring.BitReset, 0)
		return "", nil

	case "getpnd":
		// retrieve pending: hardware hands over the current partial
		// buffer; the bit self-clears once done.
		ctx.Ring.IOControl(1<<ring.BitRetPnd, 1<<ring.BitRetPnd)
		return "", nil

	case "timed":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: rbf timed requires <0|1>", errs.ErrSyntax)
		}
		v, err := parseInt(args[1])
		if err != nil {
			return "", err
		}
		var set uint32
		if v != 0 {
			set = 1 << ring.BitTimed
		}
		ctx.Ring.IOControl(1<<ring.BitTimed, set)
		return "", nil

	case "timeval":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: rbf timeval requires <0..3>", errs.ErrSyntax)
		}
		v, err := parseInt(args[1])
		if err != nil {
			return "", err
		}
		if v < ring.TimeVal1ms || v > ring.TimeVal1s {
			return "", fmt.Errorf("%w: rbf timeval must be 0..3", errs.ErrIllegalParameter)
		}
		ctx.Ring.IOControl(ring.TimeVal.Mask<<ring.TimeVal.Shift, uint32(v)<<ring.TimeVal.Shift)
		return "", nil

	case "init":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: rbf init requires <bufCapacity>", errs.ErrSyntax)
		}
		capacity, err := parseInt(args[1])
		if err != nil {
			return "", err
		}
		return "", ctx.Ring.Init(capacity)

	default:
		return "", fmt.Errorf("%w: unknown rbf action %q", errs.ErrIllegalParameter, args[0])
	}
}

func asicSelector(ctx *Context, tok string) ([]int, error) {
	return parseSelector(tok, ctx.NumAsic)
}

func chanSelector(ctx *Context, tok string) ([]int, error) {
	return parseSelector(tok, ctx.NumChan)
}

// cmdCmd implements the `cmd {clr|stat}` family: `stat`
// replies with a CMD_STATISTICS multi-purpose frame carrying the
// running counters, `clr` resets them.
func cmdCmd(ctx *Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: cmd requires clr or stat", errs.ErrSyntax)
	}
	switch args[0] {
	case "stat":
		var daqCnt, missCnt, delayed, timedOut uint64
		if ctx.Flow != nil {
			daqCnt = ctx.Flow.RxDaqCnt
			missCnt = ctx.Flow.DaqMissCnt
			delayed = ctx.Flow.RxDaqDelayed
			timedOut = ctx.Flow.RxDaqTimeout
		}

		body := new(bytes.Buffer)
		putShort(body, frame.PfxCmdStatistics)
		putLong(body, uint32(ctx.RxCmdCnt))
		putLong(body, uint32(ctx.ErrCmdCnt))
		putLong(body, uint32(daqCnt))
		putLong(body, uint32(missCnt))
		putLong(body, uint32(delayed))
		putLong(body, uint32(timedOut))

		ctx.rawReply = frame.EncodeMFrame(ctx.Version, ctx.CardID, body.Bytes())
		return "", nil

	case "clr":
		ctx.RxCmdCnt = 0
		ctx.ErrCmdCnt = 0
		if ctx.Flow != nil {
			ctx.Flow.RxDaqCnt = 0
			ctx.Flow.DaqMissCnt = 0
			ctx.Flow.RxDaqDelayed = 0
			ctx.Flow.RxDaqTimeout = 0
		}
		return "", nil

	default:
		return "", fmt.Errorf("%w: cmd requires clr or stat", errs.ErrIllegalParameter)
	}
}

// cmdTData implements `tdata <index> [<value>]`, the test-pattern RAM
// behind the bench pattern generator. The index is masked to the RAM
// depth rather than rejected, preserving the silent wraparound the
// high-volume path has always had.
func cmdTData(ctx *Context, args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("%w: tdata requires <index> [<value>]", errs.ErrSyntax)
	}
	ix, err := parseInt(args[0])
	if err != nil {
		return "", err
	}
	ix &= testDataSize - 1

	if len(args) == 1 {
		v := ctx.TestData[ix]
		return fmt.Sprintf("Fem(%02d) tdata[%d]= 0x%x (%d)", ctx.CardID, ix, v, v), nil
	}

	v, err := parseInt(args[1])
	if err != nil {
		return "", err
	}
	ctx.TestData[ix] = uint16(v)
	return fmt.Sprintf("Fem(%02d) tdata[%d] <- 0x%x", ctx.CardID, ix, uint16(v)), nil
}

func statsLine(ix int, h *histo.Histogram) string {
	s := h.Statistics()
	return fmt.Sprintf("%d entries=%d mean=%.2f stddev=%.2f min=%d max=%d sat=%d",
		ix, s.Entries, s.Mean, s.StdDev, s.MinVal, s.MaxVal, h.Saturations)
}

// cmdHPed implements the pedestal-histogram family:
//
//	hped clr <asic> <chan>
//	hped offset <asic> <chan> <minBin>
//	hped centermean <asic> <chan> <target>
//	hped setthr <asic> <chan> <target> <nsigma>
//	hped getbins <asic> <chan>
//	hped getmath <asic> <chan>
//	hped getsummary <asic> <chan>
//
// clr/offset/centermean/setthr accept range and wildcard selectors;
// the three get actions address a single channel (getbins replies with
// a multi-purpose frame, the other two with text).
func cmdHPed(ctx *Context, args []string) (string, error) {
	if len(args) < 3 {
		return "", fmt.Errorf("%w: hped requires <action> <asic> <chan> [...]", errs.ErrSyntax)
	}
	asics, err := asicSelector(ctx, args[1])
	if err != nil {
		return "", err
	}
	chans, err := chanSelector(ctx, args[2])
	if err != nil {
		return "", err
	}

	single := func() (int, int, error) {
		if len(asics) != 1 || len(chans) != 1 {
			return 0, 0, fmt.Errorf("%w: hped %s addresses a single channel", errs.ErrIllegalParameter, args[0])
		}
		return asics[0], chans[0], nil
	}

	switch args[0] {
	case "clr":
		for _, a := range asics {
			for _, c := range chans {
				if err := ctx.Pedestal.Clear(a, c); err != nil {
					return "", err
				}
			}
		}
		return "", nil

	case "offset":
		if len(args) != 4 {
			return "", fmt.Errorf("%w: hped offset requires <asic> <chan> <minBin>", errs.ErrSyntax)
		}
		off, err := parseInt(args[3])
		if err != nil {
			return "", err
		}
		for _, a := range asics {
			for _, c := range chans {
				if err := ctx.Pedestal.SetOffset(a, c, off); err != nil {
					return "", err
				}
			}
		}
		return "", nil

	case "centermean":
		if len(args) != 4 {
			return "", fmt.Errorf("%w: hped centermean requires <asic> <chan> <target>", errs.ErrSyntax)
		}
		target, err := parseInt(args[3])
		if err != nil {
			return "", err
		}
		var saturated int
		for _, a := range asics {
			for _, c := range chans {
				sat, err := ctx.Pedestal.CenterMean(a, c, int16(target))
				if err != nil {
					return "", err
				}
				if sat {
					saturated++
				}
			}
		}
		msg := fmt.Sprintf("Fem(%02d) centered %d channels on 0x%x", ctx.CardID, len(asics)*len(chans), target)
		if saturated > 0 {
			msg += fmt.Sprintf(" (%d saturated)", saturated)
		}
		return msg, nil

	case "setthr":
		if len(args) != 5 {
			return "", fmt.Errorf("%w: hped setthr requires <asic> <chan> <target> <nsigma>", errs.ErrSyntax)
		}
		target, err := parseInt(args[3])
		if err != nil {
			return "", err
		}
		nsigma, err := strconv.ParseFloat(args[4], 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a number", errs.ErrSyntax, args[4])
		}
		var saturated int
		for _, a := range asics {
			for _, c := range chans {
				sat, err := ctx.Pedestal.SetThreshold(a, c, int16(target), nsigma, ctx.Polarity[a])
				if err != nil {
					return "", err
				}
				if sat {
					saturated++
				}
			}
		}
		msg := fmt.Sprintf("Fem(%02d) set %d thresholds at 0x%x + %.2f sigma", ctx.CardID, len(asics)*len(chans), target, nsigma)
		if saturated > 0 {
			msg += fmt.Sprintf(" (%d saturated)", saturated)
		}
		return msg, nil

	case "getbins":
		a, c, err := single()
		if err != nil {
			return "", err
		}
		h := ctx.Pedestal.Pedestals[a][c].Histo

		body := new(bytes.Buffer)
		putShort(body, frame.EncodeCardChipChan(frame.PfxCardChipChanHisto, int(ctx.CardID), a, c))
		encodeHistoBins(body, h)

		ctx.rawReply = frame.EncodeMFrame(ctx.Version, ctx.CardID, body.Bytes())
		return "", nil

	case "getmath":
		a, c, err := single()
		if err != nil {
			return "", err
		}
		stats, err := ctx.Pedestal.Stats(a, c)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Fem(%02d) hped[%d][%d] entries=%d mean=%.2f stddev=%.2f",
			ctx.CardID, a, c, stats.Entries, stats.Mean, stats.StdDev), nil

	case "getsummary":
		a, c, err := single()
		if err != nil {
			return "", err
		}
		stats, err := ctx.Pedestal.Stats(a, c)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Fem(%02d) hped[%d][%d] bins=[%d,%d]/%d entries=%d mean=%.2f stddev=%.2f min=%d max=%d sat=%d",
			ctx.CardID, a, c, stats.MinBin, stats.MaxBin, stats.BinWidth,
			stats.Entries, stats.Mean, stats.StdDev, stats.MinVal, stats.MaxVal, stats.Saturations), nil

	default:
		return "", fmt.Errorf("%w: unknown hped action %q", errs.ErrIllegalParameter, args[0])
	}
}

// cmdHHit implements `hhit {clr|get} <chip>`; get replies with a
// multi-purpose frame tagged with the per-chip section marker.
func cmdHHit(ctx *Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("%w: hhit requires <get|clr> <chip>", errs.ErrSyntax)
	}
	chip, err := parseInt(args[1])
	if err != nil {
		return "", err
	}
	switch args[0] {
	case "clr":
		return "", ctx.HitCount.Clear(chip)
	case "get":
		h, err := ctx.HitCount.Get(chip)
		if err != nil {
			return "", err
		}

		body := new(bytes.Buffer)
		putShort(body, frame.PfxChHitCntHistoChipIx(chip))
		encodeHistoBins(body, h)

		ctx.rawReply = frame.EncodeMFrame(ctx.Version, ctx.CardID, body.Bytes())
		return "", nil
	default:
		return "", fmt.Errorf("%w: hhit op must be get or clr", errs.ErrIllegalParameter)
	}
}

// cmdHBusy implements `hbusy {get|clr}`.
func cmdHBusy(ctx *Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: hbusy requires <get|clr>", errs.ErrSyntax)
	}
	switch args[0] {
	case "clr":
		ctx.Busy.Clear()
		return "", nil
	case "get":
		return statsLine(-1, ctx.Busy.Histo), nil
	default:
		return "", fmt.Errorf("%w: hbusy op must be get or clr", errs.ErrIllegalParameter)
	}
}

// cmdHPeriod implements `hperiod {get|clr}`.
func cmdHPeriod(ctx *Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: hperiod requires <get|clr>", errs.ErrSyntax)
	}
	switch args[0] {
	case "clr":
		ctx.Period.Clear()
		return "", nil
	case "get":
		return statsLine(-1, ctx.Period.Histo), nil
	default:
		return "", fmt.Errorf("%w: hperiod op must be get or clr", errs.ErrIllegalParameter)
	}
}

// cmdSHisto implements the S-curve scan family:
//
//	shisto thr <ix>              -- select the scan's threshold step
//	shisto clr <asic> <chan>     -- zero S-curves (selectors allowed)
//	shisto getbins <asic> <chan> -- 16-point curve as an MFRAME
func cmdSHisto(ctx *Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("%w: shisto requires <thr|clr|getbins> [...]", errs.ErrSyntax)
	}

	switch args[0] {
	case "thr":
		ix, err := parseInt(args[1])
		if err != nil {
			return "", err
		}
		return "", ctx.SCurve.SetScanIx(ix)

	case "clr":
		if len(args) != 3 {
			return "", fmt.Errorf("%w: shisto clr requires <asic> <chan>", errs.ErrSyntax)
		}
		asics, err := asicSelector(ctx, args[1])
		if err != nil {
			return "", err
		}
		chans, err := chanSelector(ctx, args[2])
		if err != nil {
			return "", err
		}
		for _, a := range asics {
			for _, c := range chans {
				if err := ctx.SCurve.Clear(a, c); err != nil {
					return "", err
				}
			}
		}
		return "", nil

	case "getbins":
		if len(args) != 3 {
			return "", fmt.Errorf("%w: shisto getbins requires <asic> <chan>", errs.ErrSyntax)
		}
		asic, err := parseInt(args[1])
		if err != nil {
			return "", err
		}
		chn, err := parseInt(args[2])
		if err != nil {
			return "", err
		}
		curve, err := ctx.SCurve.Bins(asic, chn)
		if err != nil {
			return "", err
		}

		body := new(bytes.Buffer)
		putShort(body, frame.PfxShistoBins)
		putShort(body, frame.EncodeCardChipChan(frame.PfxCardChipChanHisto, int(ctx.CardID), asic, chn))
		for _, count := range curve {
			putLong(body, uint32(count))
		}

		ctx.rawReply = frame.EncodeMFrame(ctx.Version, ctx.CardID, body.Bytes())
		return "", nil

	default:
		return "", fmt.Errorf("%w: shisto op must be thr, clr or getbins", errs.ErrIllegalParameter)
	}
}

// cmdList implements `list {ped|thr} <asic>`: the addressed ASIC's full
// per-channel LUT column as a PEDTHR_LIST multi-purpose frame.
func cmdList(ctx *Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("%w: list requires <ped|thr> <asic>", errs.ErrSyntax)
	}
	if args[0] != "ped" && args[0] != "thr" {
		return "", fmt.Errorf("%w: list requires ped or thr", errs.ErrIllegalParameter)
	}
	asics, err := asicSelector(ctx, args[1])
	if err != nil {
		return "", err
	}
	if len(asics) != 1 {
		return "", fmt.Errorf("%w: list addresses a single ASIC", errs.ErrIllegalParameter)
	}
	asic := asics[0]

	body := new(bytes.Buffer)
	putShort(body, frame.PfxPedthrList)
	putShort(body, uint16(asic))
	putShort(body, uint16(ctx.NumChan))
	for c := 0; c < ctx.NumChan; c++ {
		e := ctx.Pedestal.LUT[asic][c]
		if args[0] == "ped" {
			putShort(body, uint16(e.Ped))
		} else {
			putShort(body, uint16(e.Thr))
		}
	}

	ctx.rawReply = frame.EncodeMFrame(ctx.Version, ctx.CardID, body.Bytes())
	return "", nil
}

// cmdTstampInit implements `tstamp_init`, zeroing the event timestamp
// counter before a new run starts.
func cmdTstampInit(ctx *Context, args []string) (string, error) {
	ctx.Bank.Write(RegTstamp, 0)
	ctx.TstampSet = true
	return "", nil
}

// cmdClr implements `clr {tstamp|evcnt}`, the counter-reset verb.
func cmdClr(ctx *Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: clr requires tstamp or evcnt", errs.ErrSyntax)
	}
	switch args[0] {
	case "tstamp":
		ctx.Bank.Write(RegTstamp, 0)
		ctx.TstampSet = false
		return "", nil
	case "evcnt":
		ctx.Bank.Write(RegEvCnt, 0)
		return "", nil
	default:
		return "", fmt.Errorf("%w: clr requires tstamp or evcnt", errs.ErrIllegalParameter)
	}
}

// cmdLossPolicy implements `loss_policy <ignore|recredit|resend>`
//.
func cmdLossPolicy(ctx *Context, args []string) (string, error) {
	if ctx.Flow == nil {
		return "", fmt.Errorf("%w: flow control not configured", errs.ErrIllegalParameter)
	}
	if len(args) == 0 {
		names := [...]string{"ignore", "recredit", "resend"}
		return names[ctx.Flow.Policy], nil
	}
	switch args[0] {
	case "ignore", "0":
		ctx.Flow.Policy = flowctl.PolicyIgnore
	case "recredit", "1":
		ctx.Flow.Policy = flowctl.PolicyRecredit
	case "resend", "2":
		ctx.Flow.Policy = flowctl.PolicyResend
	default:
		return "", fmt.Errorf("%w: loss_policy must be ignore, recredit or resend", errs.ErrIllegalParameter)
	}
	return "", nil
}

// cmdCredWaitTime implements `cred_wait_time <milliseconds>`.
func cmdCredWaitTime(ctx *Context, args []string) (string, error) {
	if ctx.Flow == nil {
		return "", fmt.Errorf("%w: flow control not configured", errs.ErrIllegalParameter)
	}
	if len(args) == 0 {
		return ctx.Flow.CredWaitTime.String(), nil
	}
	ms, err := parseInt(args[0])
	if err != nil {
		return "", err
	}
	ctx.Flow.CredWaitTime = time.Duration(ms) * time.Millisecond
	return "", nil
}

// cmdServeTarget implements `serve_target [0|1|2|3]`: selects which sink the service loop drains ring-buffer
// descriptors to — NULL, DAQ, PED_HISTO, or HIT_HISTO.
func cmdServeTarget(ctx *Context, args []string) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("%d %s", ctx.ServeTarget, ctx.ServeTarget), nil
	}
	v, err := parseInt(args[0])
	if err != nil {
		return "", err
	}
	switch ServeTarget(v) {
	case ServeNull, ServeDAQ, ServePedHisto, ServeHitHisto:
		ctx.ServeTarget = ServeTarget(v)
	default:
		return "", fmt.Errorf("%w: serve_target must be 0 (null), 1 (daq), 2 (ped_histo) or 3 (hit_histo)", errs.ErrIllegalParameter)
	}
	return "", nil
}

func parseBool(tok string) (bool, error) {
	switch tok {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not on/off", errs.ErrIllegalParameter, tok)
}

func putShort(buf *bytes.Buffer, v uint16) {
	binary.Write(buf, binary.LittleEndian, v)
}

// putLong packs a 32-bit counter low-short-first, like every multi-short
// field on the wire.
func putLong(buf *bytes.Buffer, v uint32) {
	putShort(buf, uint16(v))
	putShort(buf, uint16(v>>16))
}

// encodeHistoBins appends every non-empty bin of h as a LAT_HISTO_BIN
// tag followed by the two-short count.
func encodeHistoBins(buf *bytes.Buffer, h *histo.Histogram) {
	for i, count := range h.Bins {
		if count == 0 {
			continue
		}
		putShort(buf, frame.PfxLatHistoBin|uint16(i&0xFFF))
		putLong(buf, uint32(count))
	}
}
