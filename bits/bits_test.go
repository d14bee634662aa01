package bits

import "testing"

func TestFieldRoundTrip(t *testing.T) {
	f := Field{Shift: 4, Mask: 0x3f}

	var word uint32 = 0xffffffff
	word = f.Set(word, 0x2a)

	if got := f.Get(word); got != 0x2a {
		t.Errorf("Get() = %#x, want 0x2a", got)
	}

	// bits outside the field must be untouched
	if word&^(0x3f<<4) != 0xffffffff&^(0x3f<<4) {
		t.Errorf("Set() touched bits outside the field: %#08x", word)
	}
}

func TestFieldTruncatesOverwideValue(t *testing.T) {
	f := Field{Shift: 0, Mask: 0xf}

	word := f.Set(0, 0xff)
	if got := f.Get(word); got != 0xf {
		t.Errorf("Get() = %#x, want 0xf (value truncated to field width)", got)
	}
}

func TestSetNMasksValue(t *testing.T) {
	var reg uint32 = 0
	SetN(&reg, 4, 0x3, 0xff)

	if reg != 0x3<<4 {
		t.Errorf("SetN() = %#08x, want %#08x", reg, uint32(0x3<<4))
	}
}

func TestSetToClearsOnFalse(t *testing.T) {
	var reg uint32 = 1 << 3
	SetTo(&reg, 3, false)

	if Get(&reg, 3, 1) != 0 {
		t.Errorf("SetTo(false) did not clear bit")
	}

	SetTo(&reg, 3, true)
	if Get(&reg, 3, 1) != 1 {
		t.Errorf("SetTo(true) did not set bit")
	}
}
