// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"strings"
	"testing"
)

func TestAgetThresholdGridWriteAndRead(t *testing.T) {
	ctx := newTestContext()

	// channel 5 lives in register 8, bits 20..23
	reply := ctx.Execute("aget 0 threshold 5 0xa", "1.2.3.4:1")
	code, msg := decodeReply(t, reply)
	if code != 0 {
		t.Fatalf("threshold write: code=%d msg=%q", code, msg)
	}
	if !strings.Contains(msg, "(wrote 1 entries)") {
		t.Fatalf("threshold write message = %q", msg)
	}

	v, err := ctx.AgetMirror.GetBitsAt(0, 8, 5*4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xA {
		t.Fatalf("mirror threshold = %#x, want 0xa", v)
	}

	reply = ctx.Execute("aget 0 threshold 5", "1.2.3.4:1")
	_, msg = decodeReply(t, reply)
	if !strings.Contains(msg, "0xa") {
		t.Fatalf("threshold read = %q, want 0xa", msg)
	}
}

func TestAgetThresholdGridSpansBothRegisters(t *testing.T) {
	ctx := newTestContext()

	// channel 40 lives in register 9
	ctx.Execute("aget 1 threshold 40 0x3", "1.2.3.4:1")

	v, err := ctx.AgetMirror.GetBitsAt(1, 9, (40-32)*4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x3 {
		t.Fatalf("register-9 threshold = %#x, want 0x3", v)
	}
}

func TestAgetGridWildcardWrites(t *testing.T) {
	ctx := newTestContext()

	reply := ctx.Execute("aget * gain * 0x2", "1.2.3.4:1")
	_, msg := decodeReply(t, reply)
	if !strings.Contains(msg, "(wrote 256 entries)") {
		t.Fatalf("gain wildcard write message = %q, want 4*64 entries", msg)
	}

	v, err := ctx.AgetMirror.GetBitsAt(3, 7, (63-32)*2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x2 {
		t.Fatalf("last channel's gain = %#x, want 0x2", v)
	}
}

func TestAgetGridNudgeSaturates(t *testing.T) {
	ctx := newTestContext()

	ctx.Execute("aget 0 inhibit 0 1", "1.2.3.4:1")
	ctx.Execute("aget 0 inhibit 0 ++", "1.2.3.4:1")
	ctx.Execute("aget 0 inhibit 0 ++", "1.2.3.4:1")
	reply := ctx.Execute("aget 0 inhibit 0 ++", "1.2.3.4:1")
	_, msg := decodeReply(t, reply)
	if !strings.Contains(msg, "saturated") {
		t.Fatalf("inhibit ++ at max should report saturation, got %q", msg)
	}

	v, err := ctx.AgetMirror.GetBitsAt(0, 10, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x3 {
		t.Fatalf("inhibit = %#x, want clamped 0x3", v)
	}
}

func TestAgetGridReadRejectsRange(t *testing.T) {
	ctx := newTestContext()

	reply := ctx.Execute("aget 0 gain 0:5", "1.2.3.4:1")
	if code, _ := decodeReply(t, reply); code == 0 {
		t.Fatalf("gain read over a range should fail")
	}
}

func TestAgetHitProbWritesThreshold(t *testing.T) {
	ctx := newTestContext()

	// hit rates fall off as the scan threshold rises: first step below
	// 0.5 is step 5.
	counts := []int64{100, 100, 90, 80, 60, 40, 20, 5, 0, 0, 0, 0, 0, 0, 0, 0}
	for thr, c := range counts {
		if err := ctx.SCurve.Record(0, 0, thr, c); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	reply := ctx.Execute("aget 0 hitprob 0 0.5", "1.2.3.4:1")
	code, msg := decodeReply(t, reply)
	if code != 0 {
		t.Fatalf("hitprob: code=%d msg=%q", code, msg)
	}
	if !strings.Contains(msg, "wrote 1 entries, 0 underrange") {
		t.Fatalf("hitprob message = %q", msg)
	}

	v, err := ctx.AgetMirror.GetBitsAt(0, 8, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Fatalf("threshold = %d, want 5 (first step below 0.5)", v)
	}
}

func TestAgetHitProbCountsUnderrange(t *testing.T) {
	ctx := newTestContext()

	// channel 1 has no scan data at all: total is zero
	reply := ctx.Execute("aget 0 hitprob 1 0.5", "1.2.3.4:1")
	_, msg := decodeReply(t, reply)
	if !strings.Contains(msg, "1 underrange") {
		t.Fatalf("hitprob on an empty channel should report underrange, got %q", msg)
	}
}
