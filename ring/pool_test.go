package ring

import (
	"testing"

	"github.com/rest-for-physics/minos-core/regbank"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()

	bank := regbank.New(1)
	p := New(bank, 0)

	if err := p.Init(1500 - 8); err != nil {
		t.Fatalf("Init() = %v", err)
	}

	return p
}

func TestInitPostsAllBuffers(t *testing.T) {
	p := newTestPool(t)

	if got := len(p.posted); got != NumBuffers {
		t.Fatalf("posted FIFO has %d descriptors, want %d", got, NumBuffers)
	}
	if got := len(p.filled); got != 0 {
		t.Fatalf("filled FIFO has %d descriptors, want 0", got)
	}
}

func TestInitRejectsOversizeBuffer(t *testing.T) {
	p := New(regbank.New(1), 0)

	if err := p.Init(HardwareMaxBufCapacity + 1); err == nil {
		t.Fatalf("Init() should reject a capacity exceeding the hardware maximum")
	}
}

func TestGetFilledEmptyReturnsNone(t *testing.T) {
	p := newTestPool(t)

	if _, ok := p.GetFilled(); ok {
		t.Fatalf("GetFilled() on an empty output FIFO should report false")
	}
}

func TestFillThenGetFilledRoundTrip(t *testing.T) {
	p := newTestPool(t)

	if err := p.Fill(3, 128); err != nil {
		t.Fatalf("Fill() = %v", err)
	}

	id, ok := p.GetFilled()
	if !ok {
		t.Fatalf("GetFilled() should return the buffer just filled")
	}
	if id.Index() != 3 {
		t.Errorf("Index() = %d, want 3", id.Index())
	}
	if id.PayloadSize() != 128 {
		t.Errorf("PayloadSize() = %d, want 128", id.PayloadSize())
	}
}

func TestFillTwiceWithoutRepostFails(t *testing.T) {
	p := newTestPool(t)

	if err := p.Fill(5, 64); err != nil {
		t.Fatalf("first Fill() = %v", err)
	}
	if err := p.Fill(5, 64); err == nil {
		t.Fatalf("second Fill() without a PostFree should fail: buffer 5 is not owned by hardware")
	}
}

func TestPostFreeRecyclesBuffer(t *testing.T) {
	p := newTestPool(t)

	if err := p.Fill(7, 64); err != nil {
		t.Fatalf("Fill() = %v", err)
	}

	id, ok := p.GetFilled()
	if !ok {
		t.Fatalf("GetFilled() should succeed")
	}

	p.PostFree(p.Addr(id))

	if err := p.Fill(7, 32); err != nil {
		t.Fatalf("Fill() after PostFree() = %v, want nil", err)
	}
}

func TestPostFreeIgnoresForeignAddress(t *testing.T) {
	p := newTestPool(t)
	before := len(p.posted)

	p.PostFree(0xDEADBEEF)

	if len(p.posted) != before {
		t.Errorf("PostFree() with a foreign address should be a silent no-op")
	}
}

func TestFrameFilledStampsHeaderAndSentinel(t *testing.T) {
	p := newTestPool(t)

	// hardware wrote a 128-byte payload (header space included) into
	// buffer 2 starting at the user offset
	if err := p.Fill(2, 128); err != nil {
		t.Fatalf("Fill() = %v", err)
	}
	id, _ := p.GetFilled()

	f, err := p.FrameFilled(id, 1, 9)
	if err != nil {
		t.Fatalf("FrameFilled() = %v", err)
	}

	if len(f) != 130 {
		t.Fatalf("frame length = %d, want payload+sentinel = 130", len(f))
	}
	if len(f)%2 != 0 {
		t.Errorf("frames must be an even number of bytes")
	}

	start := uint16(f[0]) | uint16(f[1])<<8
	if start&0xFE00 != 0x8000 {
		t.Errorf("frame does not start with START_OF_DFRAME: %#04x", start)
	}
	if start&0x1F != 9 {
		t.Errorf("card id = %d, want 9", start&0x1F)
	}
	size := uint16(f[2]) | uint16(f[3])<<8
	if int(size) != len(f) {
		t.Errorf("declared size %d != frame length %d", size, len(f))
	}
	if end := uint16(f[128]) | uint16(f[129])<<8; end != 0xFFFF {
		t.Errorf("frame does not end with END_OF_FRAME: %#04x", end)
	}
}

func TestFrameFilledRejectsOverrun(t *testing.T) {
	p := newTestPool(t)

	if err := p.Fill(4, 1500); err != nil {
		t.Fatalf("Fill() = %v", err)
	}
	id, _ := p.GetFilled()

	if _, err := p.FrameFilled(id, 1, 0); err == nil {
		t.Fatalf("a payload overrunning the buffer should be rejected")
	}
}

func TestIOControlAndGetConfiguration(t *testing.T) {
	p := newTestPool(t)

	p.IOControl(1<<BitRun, 1<<BitRun)

	if got := p.GetConfiguration(); got&(1<<BitRun) == 0 {
		t.Errorf("GetConfiguration() = %#x, want BitRun set", got)
	}
}
