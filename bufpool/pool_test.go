package bufpool

import "testing"

func TestAllocFreeRoundTrip(t *testing.T) {
	p := New(4, 64)

	h, buf, err := p.Get(32, false)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if len(buf) != 32 {
		t.Fatalf("got block of %d bytes, want 32", len(buf))
	}

	p.Put(h)

	for i := 0; i < 4; i++ {
		if _, _, err := p.Get(p.BlockSize(), false); err != nil {
			t.Fatalf("after Put() the whole arena should be free again: %v", err)
		}
	}
}

func TestGetRejectsOversizeBlock(t *testing.T) {
	p := New(2, 64)

	if _, _, err := p.Get(65, false); err == nil {
		t.Fatalf("Get() should reject a request larger than BlockSize")
	}
}

func TestOutOfMemory(t *testing.T) {
	p := New(2, 64)

	if _, _, err := p.Get(64, false); err != nil {
		t.Fatalf("first Get() = %v, want nil", err)
	}
	if _, _, err := p.Get(64, false); err != nil {
		t.Fatalf("second Get() = %v, want nil", err)
	}
	if _, _, err := p.Get(1, false); err == nil {
		t.Fatalf("third Get() should fail: arena exhausted")
	}
}

func TestAutoReturnFlag(t *testing.T) {
	p := New(2, 64)

	h, _, err := p.Get(16, true)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if !p.AutoReturn(h) {
		t.Errorf("AutoReturn(h) = false, want true")
	}

	h2, _, err := p.Get(16, false)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if p.AutoReturn(h2) {
		t.Errorf("AutoReturn(h2) = true, want false")
	}
}

func TestPutUnknownHandleIsNoOp(t *testing.T) {
	p := New(2, 64)
	p.Put(Handle(999))
}

func TestDefragMergesFreedNeighbors(t *testing.T) {
	p := New(1, 96)

	a, _, _ := p.Get(32, false)
	b, _, _ := p.Get(32, false)
	c, _, _ := p.Get(32, false)

	p.Put(a)
	p.Put(b)
	p.Put(c)

	if _, _, err := p.Get(96, false); err != nil {
		t.Fatalf("after freeing all three blocks defrag should yield one 96-byte free block: %v", err)
	}
}
