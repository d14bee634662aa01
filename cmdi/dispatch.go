// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"strings"

	"github.com/rest-for-physics/minos-core/errs"
	"github.com/rest-for-physics/minos-core/frame"
)

// handlerFunc implements one verb. args excludes the verb token itself.
// The returned string becomes the CFRAME's ASCII message; a non-nil
// error overrides it with errs.CodeOf(err)'s code and err's text.
type handlerFunc func(ctx *Context, args []string) (string, error)

// verb is one entry of the static dispatch table. Name
// is the canonical, full verb string; a typed command token resolves to
// the entry whose Name is its longest leading prefix, so characters
// typed after a verb name do not prevent a match.
type verb struct {
	Name    string
	Handler handlerFunc
}

// table is the command interpreter's static verb list. Verbs are
// matched by longest-registered-prefix, not by declaration order
//.
var table []verb

func init() {
	table = []verb{
		{"help", cmdHelp},
		{"version", cmdVersion},
		{"daq", cmdDaq},
		{"mode", cmdMode},
		{"sca", cmdSca},
		{"reg", cmdReg},
		{"rbf", cmdRbf},
		{"ped", cmdPed},
		{"thr", cmdThr},
		{"forceon", cmdForceOn},
		{"forceoff", cmdForceOff},
		{"after", cmdAfter},
		{"aget", cmdAget},
		{"cmd", cmdCmd},
		{"tdata", cmdTData},
		{"hped", cmdHPed},
		{"hhit", cmdHHit},
		{"hbusy", cmdHBusy},
		{"hperiod", cmdHPeriod},
		{"shisto", cmdSHisto},
		{"list", cmdList},
		{"tstamp_init", cmdTstampInit},
		{"clr", cmdClr},
		{"loss_policy", cmdLossPolicy},
		{"cred_wait_time", cmdCredWaitTime},
		{"serve_target", cmdServeTarget},
	}
	table = append(table, toggleVerbs()...)
	seen := make(map[string]bool, len(table))
	for _, v := range table {
		if seen[v.Name] {
			panic("cmdi: duplicate verb " + v.Name)
		}
		seen[v.Name] = true
	}
}

// lookup finds the table entry whose Name is the longest prefix of the
// typed verb token.
func lookup(typed string) (verb, bool) {
	best := -1
	var bestVerb verb
	for _, v := range table {
		if strings.HasPrefix(typed, v.Name) && len(v.Name) > best {
			best = len(v.Name)
			bestVerb = v
		}
	}
	return bestVerb, best >= 0
}

// Execute parses and runs one command line, returning the encoded
// reply: a CFRAME, or the MFRAME a handler built itself (such as
// `hped getbins`, `cmd stat` or `list`). An empty or whitespace-only line
// produces no reply. from is the sender address of the datagram
// carrying line; it is recorded as LastSender before the
// verb handler runs so that cmdDaq can latch it as the DAQ client.
//
// rx_cmd_cnt is incremented by exactly one for every non-blank line,
// with one exception: a `daq` request that grants credit (cmdDaq sets
// noReply) leaves it untouched.
func (ctx *Context) Execute(line, from string) []byte {
	ctx.LastSender = from

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	v, ok := lookup(fields[0])
	if !ok {
		ctx.RxCmdCnt++
		ctx.ErrCmdCnt++
		return frame.EncodeCFrame(ctx.Version, ctx.CardID, errs.UnknownCommand, "unknown command: "+fields[0])
	}

	msg, err := v.Handler(ctx, fields[1:])
	if ctx.noReply {
		ctx.noReply = false
		ctx.rawReply = nil
		return nil
	}
	ctx.RxCmdCnt++
	if err != nil {
		ctx.ErrCmdCnt++
		ctx.rawReply = nil
		return frame.EncodeCFrame(ctx.Version, ctx.CardID, errs.CodeOf(err), err.Error())
	}
	if ctx.rawReply != nil {
		r := ctx.rawReply
		ctx.rawReply = nil
		return r
	}
	return frame.EncodeCFrame(ctx.Version, ctx.CardID, errs.OK, msg)
}
