// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ring implements the ring-buffer pump: the
// component that moves hardware-filled buffers to the network and
// recycles them once transmission completes, without a software-side
// copy. Descriptors hand ownership back and forth between a
// software-owned input FIFO and a hardware-owned output FIFO, with the
// backing store an ordinary software-owned register bank and buffer
// set since this pump runs as a host process rather than on the
// card's own CPU.
package ring

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/rest-for-physics/minos-core/bits"
	"github.com/rest-for-physics/minos-core/frame"
	"github.com/rest-for-physics/minos-core/regbank"
)

// UserOffset is where the application's data-frame header lands inside
// every buffer: the bytes ahead of it are reserved for the Ethernet/IP/
// UDP headers the network layer prepends in place, so transmission
// needs no gather.
const UserOffset = 44

// Control register bits.
const (
	BitRun    = 0
	BitReset  = 1
	BitRetPnd = 2 // retrieve pending (partially filled) buffer
	BitTimed  = 3 // enable timeout on a partially filled buffer
)

// TimeVal is the 2-bit timeout selector for a partially filled buffer
// when BitTimed is set.
var TimeVal = bits.Field{Shift: 4, Mask: 0x3}

const (
	TimeVal1ms = iota
	TimeVal10ms
	TimeVal100ms
	TimeVal1s
)

// HardwareMaxBufCapacity bounds a single buffer to the stride between
// buffer base addresses in the descriptor's address encoding;
// requesting more than this cannot be represented by the
// (index, offset) scheme.
const HardwareMaxBufCapacity = bufferStride

// ringBase is a synthetic DMA base address. There is no physical DMA
// region backing this pool — buffers live in ordinary Go memory — but
// the descriptor <-> address conversion in id.go still needs some base
// to round-trip against.
const ringBase = 0x10000000

// Pool owns the 128 fixed-size hardware buffers for the lifetime of
// the program plus the control register that gates
// RUN/RESET/RETPND/TIMED behavior.
type Pool struct {
	mu sync.Mutex

	bank     *regbank.Bank
	ctrlAddr int

	bufCapacity int
	buffers     [][]byte

	// posted holds descriptors posted to the hardware input FIFO,
	// pending a fill. filled holds descriptors reaped from the
	// hardware output FIFO, owned by software until recycled.
	posted []BufferId
	filled []BufferId
}

// New constructs a Pool bound to bank's control register at ctrlAddr.
// Init must be called before the pool is usable.
func New(bank *regbank.Bank, ctrlAddr int) *Pool {
	return &Pool{bank: bank, ctrlAddr: ctrlAddr}
}

// Init allocates 128 equal-size buffers and posts all of them to the
// hardware input FIFO. It fails if bufCapacity
// exceeds what the descriptor encoding can address.
func (p *Pool) Init(bufCapacity int) error {
	if bufCapacity <= 0 || bufCapacity > HardwareMaxBufCapacity {
		return fmt.Errorf("ring: buffer capacity %d exceeds hardware maximum %d", bufCapacity, HardwareMaxBufCapacity)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.bufCapacity = bufCapacity
	p.buffers = make([][]byte, NumBuffers)
	for i := range p.buffers {
		p.buffers[i] = make([]byte, bufCapacity)
	}

	p.bank.SetBit(p.ctrlAddr, BitReset)
	p.bank.ClearBit(p.ctrlAddr, BitReset)

	p.posted = make([]BufferId, 0, NumBuffers)
	p.filled = nil

	for i := 0; i < NumBuffers; i++ {
		p.posted = append(p.posted, newPosted(i, UserOffset))
	}

	return nil
}

// GetFilled pops one descriptor from the hardware output FIFO. The
// second return value is false on underflow — the caller's "None"
// sentinel.
func (p *Pool) GetFilled() (BufferId, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.filled) == 0 {
		return 0, false
	}

	id := p.filled[0]
	p.filled = p.filled[1:]

	return id, true
}

// PostFree accepts a raw buffer base address, as produced by the
// Ethernet transmit-completion callback, reconstructs the matching
// descriptor and reposts it to the hardware input FIFO. Addresses
// outside this ring are silently ignored, since the same callback is
// registered against both the ring and the software buffer pool and
// foreign addresses arrive here routinely.
func (p *Pool) PostFree(addr uint32) {
	index, ok := idFromAddr(ringBase, addr)
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.posted = append(p.posted, newPosted(index, UserOffset))
}

// Fill stands in for the hardware DMA engine: it moves buffer index
// from the posted (pending-fill) side of the ring to the filled
// (ready-to-reap) side, recording the payload size hardware would have
// written. There is no physical DMA engine in this host process, so
// whatever drives real acquisition (or a test) calls this once a
// buffer has been written.
func (p *Pool) Fill(index, size int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, id := range p.posted {
		if id.Index() != index {
			continue
		}

		p.posted = append(p.posted[:i], p.posted[i+1:]...)
		p.filled = append(p.filled, newFilled(index, size))
		return nil
	}

	return fmt.Errorf("ring: buffer %d is not owned by hardware", index)
}

// Buffer exposes the raw backing memory of a buffer for in-place
// editing.
func (p *Pool) Buffer(id BufferId) []byte {
	return p.buffers[id.Index()]
}

// FrameFilled stamps the software prefix of a filled buffer in place:
// the two-word data-frame header goes at UserOffset, an END_OF_FRAME
// sentinel right after the hardware payload. The returned slice is the
// complete frame, ready to hand to the network layer without a copy.
func (p *Pool) FrameFilled(id BufferId, version, cardID uint8) ([]byte, error) {
	buf := p.buffers[id.Index()]
	payload := id.PayloadSize()

	total := payload + 2 // END_OF_FRAME
	if UserOffset+total > len(buf) {
		return nil, fmt.Errorf("ring: payload %d overruns buffer %d", payload, id.Index())
	}

	frame.EncodeDFrameHeader(buf[UserOffset:], version, cardID, total)
	binary.LittleEndian.PutUint16(buf[UserOffset+payload:], frame.PfxEndOfFrame)

	return buf[UserOffset : UserOffset+total], nil
}

// Addr returns the raw buffer base address for a descriptor, for
// registering with the Ethernet transmit-completion callback.
func (p *Pool) Addr(id BufferId) uint32 {
	return id.addr(ringBase)
}

// IOControl performs an atomic mask-modify of the control register
//.
func (p *Pool) IOControl(mask, value uint32) uint32 {
	return p.bank.IOControl(p.ctrlAddr, mask, value)
}

// GetConfiguration snapshots the control register for display.
func (p *Pool) GetConfiguration() uint32 {
	return p.bank.Read(p.ctrlAddr)
}
