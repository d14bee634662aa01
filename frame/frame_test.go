package frame

import (
	"testing"

	"github.com/rest-for-physics/minos-core/errs"
)

func TestStartOfFrameRoundTrip(t *testing.T) {
	word := EncodeStartOfFrame(PfxStartOfDFrame, 1, 17)

	version, cardID := DecodeStartOfFrame(word)
	if version != 1 || cardID != 17 {
		t.Fatalf("got version=%d card=%d, want 1,17", version, cardID)
	}
}

func TestClassifyDoesNotConfuseStartOfFrameWithHitIx(t *testing.T) {
	word := EncodeStartOfFrame(PfxStartOfDFrame, 0, 0)

	if kind := classify(word); kind != KindStartOfFrame {
		t.Fatalf("classify(%#x) = %v, want KindStartOfFrame", word, kind)
	}
}

func TestClassifyCardChipChan(t *testing.T) {
	word := uint16(PfxCardChipChanHitIx | (1 << 7) | 42)

	if kind := classify(word); kind != KindCardChipChanHitIx {
		t.Fatalf("classify(%#x) = %v, want KindCardChipChanHitIx", word, kind)
	}

	chip, chanIx := decodeCardChipChan(word)
	if chip != 1 || chanIx != 42 {
		t.Fatalf("got chip=%d chan=%d, want 1,42", chip, chanIx)
	}
}

func TestDecodeEndOfFrame(t *testing.T) {
	buf := []byte{0xFF, 0xFF}

	items, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if len(items) != 1 || items[0].Kind != KindEndOfFrame {
		t.Fatalf("got %v, want a single KindEndOfFrame item", items)
	}
}

func TestEncodeDecodeCFrame(t *testing.T) {
	buf := EncodeCFrame(Version, 3, errs.OK, "OK")

	items, err := Decode(buf[2:]) // skip start-of-frame, Decode starts at error_code
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}

	var gotMsg string
	var gotEOF bool
	for _, it := range items {
		if it.Kind == KindAsciiMsg {
			gotMsg = it.Text
		}
		if it.Kind == KindEndOfFrame {
			gotEOF = true
		}
	}

	if gotMsg != "OK" {
		t.Errorf("got message %q, want %q", gotMsg, "OK")
	}
	if !gotEOF {
		t.Errorf("CFRAME body should terminate with END_OF_FRAME")
	}
}

// TestDecodeStripsClassTags guards the payload extraction: sinks
// receive the bare sample or bin index, never the class prefix bits.
func TestDecodeStripsClassTags(t *testing.T) {
	cases := []struct {
		word uint16
		kind Kind
		want uint16
	}{
		{PfxAdcSample | 0x123, KindAdcSample, 0x123},
		{PfxHistoBinIx | 0x1F, KindHistoBinIx, 0x1F},
		{PfxTimeBinIx | 0x42, KindTimeBinIx, 0x42},
	}

	for _, c := range cases {
		buf := []byte{byte(c.word), byte(c.word >> 8), 0xFF, 0xFF}
		items, err := Decode(buf)
		if err != nil {
			t.Fatalf("Decode(%#04x) = %v", c.word, err)
		}
		if items[0].Kind != c.kind {
			t.Fatalf("classify(%#04x) = %v, want %v", c.word, items[0].Kind, c.kind)
		}
		if items[0].Value != c.want {
			t.Errorf("Value = %#x, want %#x with the tag stripped", items[0].Value, c.want)
		}
	}
}

func TestDecodeLatHistoBinCarriesContent(t *testing.T) {
	// LAT_HISTO_BIN tag for bin 7, followed by the two-short count
	// 0x0001_0002 (lo first), then END_OF_FRAME.
	buf := []byte{0x07, 0x20, 0x02, 0x00, 0x01, 0x00, 0xFF, 0xFF}

	items, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want bin + EOF", len(items))
	}
	it := items[0]
	if it.Kind != KindLatHistoBin {
		t.Fatalf("items[0].Kind = %v, want KindLatHistoBin", it.Kind)
	}
	if it.Value != 7 {
		t.Errorf("bin index = %d, want 7 with the class tag stripped", it.Value)
	}
	if it.BinContent != 0x00010002 {
		t.Errorf("BinContent = %#x, want 0x00010002", it.BinContent)
	}
}

func TestDecodeLatHistoBinTruncatedContent(t *testing.T) {
	buf := []byte{0x07, 0x20, 0x02, 0x00}

	if _, err := Decode(buf); err == nil {
		t.Fatalf("a truncated bin content should be a format error")
	}
}

func TestEncodeMFrameSizeField(t *testing.T) {
	body := []byte{0x01, 0x02, 0x03, 0x04}
	f := EncodeMFrame(Version, 5, body)

	wantLen := 4 + len(body) + 2
	if len(f) != wantLen {
		t.Fatalf("frame length = %d, want %d", len(f), wantLen)
	}

	version, cardID := DecodeStartOfFrame(uint16(f[0]) | uint16(f[1])<<8)
	if version != Version || cardID != 5 {
		t.Errorf("got version=%d card=%d, want %d,5", version, cardID, Version)
	}
}

func TestBuiltEventRoundTrip(t *testing.T) {
	// children are size-bearing frames, as produced by the Feminos pump
	f1 := EncodeMFrame(Version, 1, []byte{0x11, 0x22})
	f2 := EncodeMFrame(Version, 2, []byte{0x33, 0x44, 0x55, 0x66})

	env := EncodeBuiltEvent([][]byte{f1, f2})

	frames, err := DecodeBuiltEvent(env)
	if err != nil {
		t.Fatalf("DecodeBuiltEvent() = %v", err)
	}

	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if len(frames[0]) != len(f1) || len(frames[1]) != len(f2) {
		t.Fatalf("child frame lengths = %d, %d; want %d, %d", len(frames[0]), len(frames[1]), len(f1), len(f2))
	}

	// size counts from SOBE_SIZE onward: everything but the leading
	// START_OF_BUILT_EVENT short
	size := uint32(env[4]) | uint32(env[5])<<8 | (uint32(env[6])|uint32(env[7])<<8)<<16
	if int(size) != len(env)-2 {
		t.Fatalf("declared size = %d, want envelope length minus the leading short = %d", size, len(env)-2)
	}
}

func TestBuiltEventSizeMismatchRejected(t *testing.T) {
	env := EncodeBuiltEvent([][]byte{EncodeMFrame(Version, 1, []byte{0x11, 0x22})})
	env = append(env, 0x00, 0x00)

	if _, err := DecodeBuiltEvent(env); err == nil {
		t.Fatalf("an envelope longer than its declared size should be rejected")
	}
}
