// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bufpool implements the software buffer pool: a
// pool of MTU-bounded memory blocks used to stage command replies so
// that hardware ring-buffer descriptors are never required on the
// control path. It is a first-fit allocator over a single backing
// arena, handing out opaque Handles rather than raw addresses since
// the control path has no zero-copy requirement.
package bufpool

import (
	"container/list"
	"fmt"
	"sync"
)

// Handle identifies one allocation within a Pool. The zero Handle never
// refers to a live allocation.
type Handle int

// Pool is a fixed-size arena carved into variable-size blocks on demand.
type Pool struct {
	mu sync.Mutex

	arena      []byte
	blockSize  int
	freeBlocks *list.List
	used       map[Handle]*block
	next       Handle
}

// New allocates a pool sized to hold n blocks of at most blockSize bytes
// each.
func New(n, blockSize int) *Pool {
	p := &Pool{
		arena:      make([]byte, n*blockSize),
		blockSize:  blockSize,
		freeBlocks: list.New(),
		used:       make(map[Handle]*block),
	}

	p.freeBlocks.PushFront(&block{offset: 0, size: len(p.arena)})

	return p
}

// BlockSize returns the maximum size of a single allocation.
func (p *Pool) BlockSize() int {
	return p.blockSize
}

func (p *Pool) bytes(b *block) []byte {
	return p.arena[b.offset : b.offset+b.size]
}

// Get allocates a block of size bytes (<= BlockSize) and returns a
// handle plus the backing byte slice. autoReturn marks whether the
// network layer should return the block on transmit completion, or
// whether the caller owns the free.
func (p *Pool) Get(size int, autoReturn bool) (Handle, []byte, error) {
	if size <= 0 || size > p.blockSize {
		return 0, nil, fmt.Errorf("bufpool: invalid block size %d (max %d)", size, p.blockSize)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.alloc(size)
	if b == nil {
		return 0, nil, fmt.Errorf("bufpool: out of memory")
	}
	b.autoReturn = autoReturn

	p.next++
	h := p.next
	p.used[h] = b

	return h, p.bytes(b), nil
}

// AutoReturn reports whether the block behind h was allocated with the
// auto-return flag set.
func (p *Pool) AutoReturn(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.used[h]
	return ok && b.autoReturn
}

// Put returns a block to the free list, coalescing it with adjacent free
// blocks. Putting an unknown or already-freed handle is a no-op, since
// both the network-layer auto-return path and an explicit owner release
// may race to free the same datagram buffer once a reply both completes
// transmission and is explicitly discarded.
func (p *Pool) Put(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.used[h]
	if !ok {
		return
	}

	delete(p.used, h)
	p.free(b)
}

func (p *Pool) alloc(size int) *block {
	for e := p.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)
		if b.size < size {
			continue
		}

		if r := b.size - size; r != 0 {
			p.freeBlocks.InsertAfter(&block{offset: b.offset + size, size: r}, e)
		}
		b.size = size

		p.freeBlocks.Remove(e)
		return b
	}

	return nil
}

func (p *Pool) free(freed *block) {
	for e := p.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)
		if b.offset > freed.offset {
			p.freeBlocks.InsertBefore(freed, e)
			p.defrag()
			return
		}
	}

	p.freeBlocks.PushBack(freed)
	p.defrag()
}

// defrag merges contiguous free blocks, keeping free-list fragmentation
// from accumulating across repeated allocate/free cycles.
func (p *Pool) defrag() {
	var prev *block

	for e := p.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		if prev != nil && prev.offset+prev.size == b.offset {
			prev.size += b.size
			defer p.freeBlocks.Remove(e)
			continue
		}

		prev = b
	}
}
