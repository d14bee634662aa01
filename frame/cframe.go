// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package frame

import (
	"bytes"
	"encoding/binary"

	"github.com/rest-for-physics/minos-core/errs"
)

// EncodeCFrame builds a configuration-reply frame: a
// signed error code and a human-readable, null-terminated, even-padded
// message. code is the error code reported to the consumer on
// completion of a command.
func EncodeCFrame(version, cardID uint8, code errs.Code, msg string) []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, EncodeStartOfFrame(PfxStartOfCFrame, version, cardID))
	binary.Write(buf, binary.LittleEndian, int16(code))

	msgBytes := []byte(msg)
	msgBytes = append(msgBytes, 0)
	if len(msgBytes)%2 != 0 {
		msgBytes = append(msgBytes, 0)
	}

	binary.Write(buf, binary.LittleEndian, PfxAsciiMsgLen|uint16(len(msg)&0xFF))
	buf.Write(msgBytes)

	binary.Write(buf, binary.LittleEndian, uint16(PfxEndOfFrame))

	return buf.Bytes()
}
