// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/rest-for-physics/minos-core/errs"
)

// Kind tags the variant carried by a FrameItem.
type Kind int

const (
	KindStartOfFrame Kind = iota
	KindEndOfFrame
	KindNullContent
	KindCardChipChanHitIx
	KindCardChipChanHitCnt
	KindCardChipChanHisto
	KindAdcSample
	KindLatHistoBin
	KindAsciiMsg
	KindStartOfEvent
	KindEndOfEvent
	KindTimeBinIx
	KindHistoBinIx
	KindDeadtimeHstatBins
	KindOther
)

// FrameItem is one decoded element of a frame body. Only the fields
// relevant to Kind are populated. Sinks (pedestal, hit-count, S-curve,
// DAQ forwarder) should switch on Kind rather than re-deriving it from
// raw prefix bits.
type FrameItem struct {
	Kind Kind
	Raw  uint16

	// KindStartOfFrame
	Version uint8
	CardID  uint8

	// KindCardChipChan*
	Chip int
	Chan int

	// KindAdcSample, KindLatHistoBin, KindTimeBinIx, KindHistoBinIx:
	// the class payload with the prefix tag stripped.
	Value uint16

	// KindLatHistoBin: the two-short bin content following the tag,
	// packed low-short-first.
	BinContent uint32

	// KindAsciiMsg
	Text string

	// KindStartOfEvent, KindEndOfEvent
	TimestampLo, TimestampMid, TimestampHi uint16
	EventCountLo, EventCountHi             uint16
}

// classify identifies the prefix class of word using the precedence
// narrowest-mask-first: a literal match is checked before 4-bit, then
// 8-bit, 9-bit, 12-bit, and finally the 14-bit class as a catch-all, so
// that e.g. START_OF_DFRAME (an exact member of the 9-bit class) is
// never misread as a 14-bit CARD_CHIP_CHAN_HIT_IX short even though
// its top 2 bits also satisfy that class's mask.
func classify(word uint16) Kind {
	switch word {
	case PfxEndOfFrame:
		return KindEndOfFrame
	case PfxNullContent:
		return KindNullContent
	case PfxDeadtimeHstatBins:
		return KindDeadtimeHstatBins
	case PfxPedestalHMd, PfxPedestalHstat, PfxShistoBins,
		PfxStartOfBuiltEvent, PfxEndOfBuiltEvent, PfxSobeSize,
		PfxCmdStatistics, PfxPedthrList:
		return KindOther
	}
	// per-chip hit-count section markers are literals too
	if word&0xFFF0 == pfxChHitCntHistoChipBase {
		return KindOther
	}

	if word&mask4Bit == PfxStartOfEvent {
		return KindStartOfEvent
	}
	if word&mask4Bit == PfxEndOfEvent {
		return KindEndOfEvent
	}

	if word&mask8Bit == PfxAsciiMsgLen {
		return KindAsciiMsg
	}

	switch word & mask9Bit {
	case PfxStartOfDFrame, PfxStartOfMFrame, PfxStartOfCFrame:
		return KindStartOfFrame
	case PfxTimeBinIx:
		return KindTimeBinIx
	case PfxHistoBinIx:
		return KindHistoBinIx
	}

	switch word & mask12Bit {
	case PfxAdcSample:
		return KindAdcSample
	case PfxLatHistoBin:
		return KindLatHistoBin
	}

	switch word & mask14Bit {
	case PfxCardChipChanHitIx:
		return KindCardChipChanHitIx
	case PfxCardChipChanHitCnt:
		return KindCardChipChanHitCnt
	case PfxCardChipChanHisto:
		return KindCardChipChanHisto
	}

	return KindOther
}

// decodeCardChipChan splits the low 14 bits of a CARD_CHIP_CHAN_* short
// into (card:5, chip:2, chan:7); card is dropped since every frame
// already carries its own card id in the start-of-frame header.
func decodeCardChipChan(word uint16) (chip, chanIx int) {
	low := word & 0x3FFF
	chip = int((low >> 7) & 0x3)
	chanIx = int(low & 0x7F)
	return
}

// Decode walks buf short-by-short and returns every FrameItem in it.
// Decoding stops at END_OF_FRAME, at END_OF_BUILT_EVENT, or at the end
// of buf. Decode reads no declared size word and does not check the
// bytes consumed against one; an item whose payload runs past the end
// of buf is a FormatError.
func Decode(buf []byte) ([]FrameItem, error) {
	if len(buf)%2 != 0 {
		return nil, fmt.Errorf("%w: odd-length frame body", errs.ErrFormat)
	}

	var items []FrameItem
	pos := 0

	for pos < len(buf) {
		word := binary.LittleEndian.Uint16(buf[pos:])
		kind := classify(word)

		item := FrameItem{Kind: kind, Raw: word}

		switch kind {
		case KindEndOfFrame:
			items = append(items, item)
			return items, nil

		case KindStartOfFrame:
			item.Version, item.CardID = DecodeStartOfFrame(word)
			pos += 2

		case KindCardChipChanHitIx, KindCardChipChanHitCnt, KindCardChipChanHisto:
			item.Chip, item.Chan = decodeCardChipChan(word)
			pos += 2

		case KindAdcSample:
			item.Value = word &^ mask12Bit
			pos += 2

		case KindTimeBinIx, KindHistoBinIx:
			item.Value = word &^ mask9Bit
			pos += 2

		case KindLatHistoBin:
			item.Value = word &^ mask12Bit
			pos += 2
			if pos+4 > len(buf) {
				return nil, fmt.Errorf("%w: histogram bin content overruns frame", errs.ErrFormat)
			}
			item.BinContent = uint32(binary.LittleEndian.Uint16(buf[pos:])) |
				uint32(binary.LittleEndian.Uint16(buf[pos+2:]))<<16
			pos += 4

		case KindAsciiMsg:
			n := int(word & 0xFF)
			pos += 2

			if pos+n > len(buf) {
				return nil, fmt.Errorf("%w: ASCII payload overruns frame", errs.ErrFormat)
			}

			item.Text = string(buf[pos : pos+n])
			pos += n

			// skip the trailing null(s) so the total bytes advanced for
			// this item, including the length short, is even.
			if n%2 == 0 {
				pos += 2
			} else {
				pos += 1
			}

		case KindStartOfEvent, KindEndOfEvent:
			pos += 2
			if pos+10 > len(buf) {
				return nil, fmt.Errorf("%w: event header overruns frame", errs.ErrFormat)
			}
			item.TimestampLo = binary.LittleEndian.Uint16(buf[pos:])
			item.TimestampMid = binary.LittleEndian.Uint16(buf[pos+2:])
			item.TimestampHi = binary.LittleEndian.Uint16(buf[pos+4:])
			item.EventCountLo = binary.LittleEndian.Uint16(buf[pos+6:])
			item.EventCountHi = binary.LittleEndian.Uint16(buf[pos+8:])
			pos += 10

		case KindDeadtimeHstatBins:
			pos += 2
			// 2 header shorts + 9 four-byte summary fields.
			skip := 4 + 9*4
			if pos+skip > len(buf) {
				return nil, fmt.Errorf("%w: deadtime histogram overruns frame", errs.ErrFormat)
			}
			pos += skip

		default:
			pos += 2
			if word == PfxEndOfBuiltEvent {
				items = append(items, item)
				return items, nil
			}
		}

		items = append(items, item)
	}

	return items, nil
}
