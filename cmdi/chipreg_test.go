// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"strings"
	"testing"
)

// TestAgetWrchkThenRead covers scenario S5: `aget 0 wrchk 5 0x1234`
// verifies the write and a subsequent `aget 0 read 5` returns the value
// — and, per the mirror invariant, the shadow entry matches too.
func TestAgetWrchkThenRead(t *testing.T) {
	ctx := newTestContext()

	reply := ctx.Execute("aget 0 wrchk 5 0x1234", "1.2.3.4:1")
	code, msg := decodeReply(t, reply)
	if code != 0 {
		t.Fatalf("aget wrchk: code=%d msg=%q", code, msg)
	}
	if !strings.Contains(msg, "0x1234") || !strings.Contains(msg, "(verified)") {
		t.Fatalf("aget wrchk message = %q", msg)
	}

	reply = ctx.Execute("aget 0 read 5", "1.2.3.4:1")
	_, msg = decodeReply(t, reply)
	if !strings.Contains(msg, "0x1234") {
		t.Fatalf("aget read message = %q, want 0x1234", msg)
	}

	cells, err := ctx.AgetMirror.Get(0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if cells[0] != 0x1234 {
		t.Fatalf("mirror[0][5] = %#x, want 0x1234", cells[0])
	}
}

func TestAgetNamedActionVerifiedWrite(t *testing.T) {
	ctx := newTestContext()

	reply := ctx.Execute("aget 2 vicm 5", "1.2.3.4:1")
	if code, _ := decodeReply(t, reply); code != 0 {
		t.Fatalf("aget vicm write failed")
	}

	reply = ctx.Execute("aget 2 vicm", "1.2.3.4:1")
	_, msg := decodeReply(t, reply)
	if msg != "5" {
		t.Fatalf("aget vicm readback = %q, want 5", msg)
	}

	// neighboring fields in register 2 untouched
	v, err := ctx.AgetMirror.GetField(2, 2, 0, 0x3)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("fpn/polarity bits changed by a vicm write: %#x", v)
	}
}

func TestAfterNamedActionNudge(t *testing.T) {
	ctx := newTestContext()

	ctx.Execute("after 1 gain 2", "1.2.3.4:1")
	ctx.Execute("after 1 gain ++", "1.2.3.4:1")

	reply := ctx.Execute("after 1 gain", "1.2.3.4:1")
	_, msg := decodeReply(t, reply)
	if msg != "3" {
		t.Fatalf("after gain readback = %q, want 3", msg)
	}
}

func TestAgetRdhitReadsHitRegister(t *testing.T) {
	ctx := newTestContext()

	// seed the 68-bit hit register shadow
	if err := ctx.AgetMirror.Set(0, 0, []uint16{0xBEEF, 0, 0, 0, 0xF}); err != nil {
		t.Fatal(err)
	}

	reply := ctx.Execute("aget 0 rdhit", "1.2.3.4:1")
	_, msg := decodeReply(t, reply)
	if !strings.Contains(msg, "0xbeef") {
		t.Fatalf("aget rdhit message = %q, want the hit register cells", msg)
	}
}

func TestAfterUnknownRegisterRejected(t *testing.T) {
	ctx := newTestContext()

	reply := ctx.Execute("after 0 read 9", "1.2.3.4:1")
	if code, _ := decodeReply(t, reply); code == 0 {
		t.Fatalf("AFTER has no register 9; read should fail")
	}
}
