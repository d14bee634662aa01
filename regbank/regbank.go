// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package regbank models the fixed-size array of 32-bit words the FPGA
// exposes to software. Each register is a single volatile
// word; the hardware provides no atomic read-modify-write, so Bank
// serializes access with a mutex and documents that callers must not
// assume the bank's own lock protects against hardware spontaneously
// changing status bits between a Get and the matching Set.
package regbank

import (
	"fmt"
	"sync"

	"github.com/rest-for-physics/minos-core/bits"
)

// Bank is a fixed-size array of 32-bit registers, single-writer from the
// service loop's perspective but guarded anyway since the command
// interpreter and the periodic-check path both call into it from the same
// goroutine at different points in one iteration.
type Bank struct {
	mu   sync.Mutex
	regs []uint32
}

// New allocates a bank of n zero-initialized registers.
func New(n int) *Bank {
	return &Bank{regs: make([]uint32, n)}
}

// Len reports the number of registers in the bank.
func (b *Bank) Len() int {
	return len(b.regs)
}

func (b *Bank) check(addr int) {
	if addr < 0 || addr >= len(b.regs) {
		panic(fmt.Sprintf("regbank: register %d out of range [0,%d)", addr, len(b.regs)))
	}
}

// Read returns the raw contents of register addr.
func (b *Bank) Read(addr int) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.check(addr)
	return b.regs[addr]
}

// Write overwrites register addr with val.
func (b *Bank) Write(addr int, val uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.check(addr)
	b.regs[addr] = val
}

// Field reads the (mask, shift) field f out of register addr.
func (b *Bank) Field(addr int, f bits.Field) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.check(addr)
	return f.Get(b.regs[addr])
}

// SetField performs a read-modify-write of field f within register addr,
// leaving every bit outside the field untouched.
func (b *Bank) SetField(addr int, f bits.Field, val uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.check(addr)
	b.regs[addr] = f.Set(b.regs[addr], val)
}

// SetBit sets a single bit of register addr.
func (b *Bank) SetBit(addr int, pos int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.check(addr)
	bits.Set(&b.regs[addr], pos)
}

// ClearBit clears a single bit of register addr.
func (b *Bank) ClearBit(addr int, pos int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.check(addr)
	bits.Clear(&b.regs[addr], pos)
}

// SetBitTo sets or clears a single bit of register addr depending on val.
func (b *Bank) SetBitTo(addr int, pos int, val bool) {
	if val {
		b.SetBit(addr, pos)
	} else {
		b.ClearBit(addr, pos)
	}
}

// Bit reports whether a single bit of register addr is set.
func (b *Bank) Bit(addr int, pos int) bool {
	return (b.Read(addr)>>pos)&1 == 1
}

// IOControl performs an atomic mask-modify of register addr: bits set in
// mask within value replace the current contents, bits outside mask are
// preserved. This is the primitive behind the ring buffer pump's
// io_control and any
// other multi-bit control-word update.
func (b *Bank) IOControl(addr int, mask uint32, value uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.check(addr)
	b.regs[addr] = (b.regs[addr] &^ mask) | (value & mask)
	return b.regs[addr]
}

// WaitBit polls bit pos of register addr for up to retries iterations,
// returning true as soon as it reads as want. Used by the slow-control
// preamble to wait for SC_GRANT and by the ring buffer
// pump to wait on reset-complete style status bits.
func (b *Bank) WaitBit(addr int, pos int, want bool, retries int) bool {
	for i := 0; i < retries; i++ {
		if b.Bit(addr, pos) == want {
			return true
		}
	}
	return false
}
