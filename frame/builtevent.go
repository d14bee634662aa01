// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/rest-for-physics/minos-core/errs"
)

// EncodeBuiltEvent concatenates one already-encoded frame per
// participating Feminos into a TCM built-event envelope. size counts
// the envelope from SOBE_SIZE onward — SOBE_SIZE, the two size shorts,
// the child frames, and the END_OF_BUILT_EVENT sentinel — excluding
// the leading START_OF_BUILT_EVENT short.
func EncodeBuiltEvent(frames [][]byte) []byte {
	body := 0
	for _, f := range frames {
		body += len(f)
	}
	size := uint32(8 + body)

	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, uint16(PfxStartOfBuiltEvent))
	binary.Write(buf, binary.LittleEndian, uint16(PfxSobeSize))
	binary.Write(buf, binary.LittleEndian, uint16(size&0xFFFF))
	binary.Write(buf, binary.LittleEndian, uint16(size>>16))

	for _, f := range frames {
		buf.Write(f)
	}

	binary.Write(buf, binary.LittleEndian, uint16(PfxEndOfBuiltEvent))

	return buf.Bytes()
}

// DecodeBuiltEvent splits a built-event envelope into its child frame
// bytes. Consumers must read exactly size-6 further bytes after
// SOBE_SIZE; a mismatch between that and the actual
// buffer length is a FormatError.
func DecodeBuiltEvent(buf []byte) ([][]byte, error) {
	if len(buf) < 12 {
		return nil, fmt.Errorf("%w: built-event envelope too short", errs.ErrFormat)
	}

	if binary.LittleEndian.Uint16(buf[0:]) != PfxStartOfBuiltEvent {
		return nil, fmt.Errorf("%w: missing START_OF_BUILT_EVENT", errs.ErrFormat)
	}
	if binary.LittleEndian.Uint16(buf[2:]) != PfxSobeSize {
		return nil, fmt.Errorf("%w: missing SOBE_SIZE", errs.ErrFormat)
	}

	sizeLo := binary.LittleEndian.Uint16(buf[4:])
	sizeHi := binary.LittleEndian.Uint16(buf[6:])
	size := uint32(sizeLo) | uint32(sizeHi)<<16

	// size counts from SOBE_SIZE onward, so the whole envelope is the
	// START_OF_BUILT_EVENT short plus size bytes.
	if int(size)+2 != len(buf) {
		return nil, fmt.Errorf("%w: built-event size %d does not match buffer length %d", errs.ErrFormat, size, len(buf))
	}

	body := buf[8 : len(buf)-2]

	if binary.LittleEndian.Uint16(buf[len(buf)-2:]) != PfxEndOfBuiltEvent {
		return nil, fmt.Errorf("%w: missing END_OF_BUILT_EVENT", errs.ErrFormat)
	}

	var frames [][]byte
	pos := 0

	for pos < len(body) {
		if pos+4 > len(body) {
			return nil, fmt.Errorf("%w: truncated child frame header", errs.ErrFormat)
		}

		frameSize := int(binary.LittleEndian.Uint16(body[pos+2:]))
		if frameSize < 4 || pos+frameSize > len(body) {
			return nil, fmt.Errorf("%w: child frame size %d out of range", errs.ErrFormat, frameSize)
		}

		frames = append(frames, body[pos:pos+frameSize])
		pos += frameSize
	}

	return frames, nil
}
