// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bufpool

// block is one allocation carved out of the pool's backing arena. The
// control path has no zero-copy requirement, only the ring buffer pump
// does, so a block is addressed by its offset into the arena rather
// than by a raw pointer.
type block struct {
	offset int
	size   int
	// autoReturn: if set, the network layer returns this block to the
	// pool when transmission completes; if clear, the owner of the
	// block is responsible for returning it.
	autoReturn bool
}
