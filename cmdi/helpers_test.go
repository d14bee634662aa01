// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/rest-for-physics/minos-core/asicmirror"
	"github.com/rest-for-physics/minos-core/flowctl"
	"github.com/rest-for-physics/minos-core/frame"
	"github.com/rest-for-physics/minos-core/regbank"
	"github.com/rest-for-physics/minos-core/slowcontrol"
)

func newTestFlow() *flowctl.Controller {
	return flowctl.NewController(flowctl.UnitBytes, flowctl.PolicyIgnore, 200*time.Millisecond)
}

// fakeChipIO is a chip that always acknowledges: reads come from the
// mirror, verified writes land in it unconditionally. Enough to
// exercise the interpreter's slow-control verbs without bit-banging.
type fakeChipIO struct{ m *asicmirror.Mirror }

func (f fakeChipIO) read(chip, reg, _ int) ([]uint16, error) {
	return f.m.Get(chip, reg)
}

func (f fakeChipIO) write(chip, reg, _ int, cells []uint16) error {
	cp := make([]uint16, len(cells))
	copy(cp, cells)
	return f.m.Set(chip, reg, cp)
}

func (f fakeChipIO) writeChk(chip, reg, width int, cells []uint16) error {
	return f.write(chip, reg, width, cells)
}

func (f fakeChipIO) mirror() *asicmirror.Mirror { return f.m }

func newTestContext() *Context {
	afterMirror := asicmirror.New(4, slowcontrol.AfterRegisterWidths)
	agetMirror := asicmirror.New(4, slowcontrol.AgetRegisterWidths)

	ctx := New(0, frame.Version, 4, 79, regbank.New(16), afterMirror, agetMirror)
	ctx.afterIO = fakeChipIO{afterMirror}
	ctx.agetIO = fakeChipIO{agetMirror}
	return ctx
}

// decodeReply pulls the error code and message out of an encoded CFRAME
// reply, skipping the start-of-frame short.
func decodeReply(t *testing.T, reply []byte) (code int16, msg string) {
	t.Helper()
	if len(reply) < 4 {
		t.Fatalf("reply too short: %d bytes", len(reply))
	}
	items, err := frame.Decode(reply[2:])
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	code = int16(reply[2]) | int16(reply[3])<<8
	for _, it := range items {
		if it.Kind == frame.KindAsciiMsg {
			msg = it.Text
		}
	}
	return
}

// mframeBody checks reply is a well-formed MFRAME (start short, size,
// END_OF_FRAME, even length) and returns its body as shorts.
func mframeBody(t *testing.T, reply []byte) []uint16 {
	t.Helper()
	if len(reply) < 6 || len(reply)%2 != 0 {
		t.Fatalf("MFRAME reply has bad length %d", len(reply))
	}

	start := binary.LittleEndian.Uint16(reply)
	if start&0xFE00 != frame.PfxStartOfMFrame {
		t.Fatalf("reply does not start with an MFRAME prefix: %#04x", start)
	}
	size := int(binary.LittleEndian.Uint16(reply[2:]))
	if size != len(reply) {
		t.Fatalf("declared size %d != reply length %d", size, len(reply))
	}
	if end := binary.LittleEndian.Uint16(reply[len(reply)-2:]); end != frame.PfxEndOfFrame {
		t.Fatalf("reply does not end with END_OF_FRAME: %#04x", end)
	}

	var body []uint16
	for pos := 4; pos < len(reply)-2; pos += 2 {
		body = append(body, binary.LittleEndian.Uint16(reply[pos:]))
	}
	return body
}
