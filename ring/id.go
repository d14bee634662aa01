// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ring

// NumBuffers is the fixed number of hardware buffers that exist for the
// lifetime of the program.
const NumBuffers = 128

// Bit layout of a 32-bit buffer descriptor: buffer index in bits 31..21, then either a user-offset (bits
// 7..0, set by software before posting to hardware) or a payload size
// (bits 12..0, set by hardware on a filled descriptor) — the two never
// coexist, since the field means different things depending on which
// FIFO the descriptor travels through.
const (
	indexShift     = 21
	indexFieldMask = 0x7FF // 11 bits

	offsetFieldMask = 0xFF   // 8 bits, bits 7..0
	sizeFieldMask   = 0x1FFF // 13 bits, bits 12..0

	// descriptorIndexMask isolates the index field within the raw
	// 32-bit descriptor, used by the address conversion below.
	descriptorIndexMask = 0xFFE00000

	// bufferStride is the byte spacing between buffers in the address
	// space implied by descriptorIndexMask: shifting the index field
	// right by 8 turns a one-buffer increment in the index into a
	// 1<<13 byte increment in the address.
	bufferStride = 1 << 13
)

// BufferId is the opaque 32-bit ring-buffer descriptor. It is never
// dereferenced directly; Index, Offset and PayloadSize decode the
// fields that are meaningful depending on whether the descriptor came
// from the posted (input) or filled (output) side of the ring.
type BufferId uint32

func newPosted(index, offset int) BufferId {
	return BufferId(uint32(index&indexFieldMask)<<indexShift | uint32(offset)&offsetFieldMask)
}

func newFilled(index, size int) BufferId {
	return BufferId(uint32(index&indexFieldMask)<<indexShift | uint32(size)&sizeFieldMask)
}

// Index returns the hardware buffer index encoded in the descriptor.
func (id BufferId) Index() int {
	return int((uint32(id) >> indexShift) & indexFieldMask)
}

// Offset returns the software-assigned user-offset of a posted
// descriptor.
func (id BufferId) Offset() int {
	return int(uint32(id) & offsetFieldMask)
}

// PayloadSize returns the hardware-reported payload size of a filled
// descriptor.
func (id BufferId) PayloadSize() int {
	return int(uint32(id) & sizeFieldMask)
}

// addr reconstructs the raw buffer base address from the descriptor and
// the ring's base address:
// addr = base | ((descriptor & 0xFFE00000) >> 8).
func (id BufferId) addr(base uint32) uint32 {
	return base | ((uint32(id) & descriptorIndexMask) >> 8)
}

// idFromAddr is the inverse of addr: it recovers the buffer index that
// produced addr under base, or reports that addr does not belong to
// this ring.
func idFromAddr(base, addr uint32) (index int, ok bool) {
	if addr < base {
		return 0, false
	}

	off := addr - base
	if off%bufferStride != 0 {
		return 0, false
	}

	idx := off / bufferStride
	if idx >= NumBuffers {
		return 0, false
	}

	return int(idx), true
}
