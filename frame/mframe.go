// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package frame

import (
	"bytes"
	"encoding/binary"
)

// EncodeMFrame wraps body (a sequence of already-encoded prefix-tagged
// items) into a multi-purpose frame: register dumps,
// command statistics, pedestal/hit-count/S-curve/busy histograms, and
// pedestal/threshold lists all use this envelope. size covers the
// start-of-frame short, the size short itself, body, and END_OF_FRAME.
func EncodeMFrame(version, cardID uint8, body []byte) []byte {
	size := 4 + len(body) + 2 // start-of-frame + size + body + end-of-frame

	buf := new(bytes.Buffer)
	buf.Grow(size)

	binary.Write(buf, binary.LittleEndian, EncodeStartOfFrame(PfxStartOfMFrame, version, cardID))
	binary.Write(buf, binary.LittleEndian, uint16(size))
	buf.Write(body)
	binary.Write(buf, binary.LittleEndian, uint16(PfxEndOfFrame))

	return buf.Bytes()
}

// EncodeDFrameHeader overwrites the first 4 bytes of a ring-buffer
// buffer in place with a data-frame header:
// {PFX_START_OF_DFRAME | version | card_id, size_in_bytes}. size is
// the total frame byte count as reported to the network layer.
func EncodeDFrameHeader(buf []byte, version, cardID uint8, size int) {
	binary.LittleEndian.PutUint16(buf[0:], EncodeStartOfFrame(PfxStartOfDFrame, version, cardID))
	binary.LittleEndian.PutUint16(buf[2:], uint16(size))
}
