// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package frame implements the wire codec: frames
// are a byte stream whose atomic unit is a 16-bit short, little-endian,
// self-delimited by prefix-tagged shorts. Multi-short fields are packed
// low-short-first.
package frame

// Version is the framing-protocol version carried in every start-of-
// frame short.
const Version = 1

// Prefix classes, named by payload width: a
// "9-bit class" short fixes the high 7 bits as a tag and leaves 9 bits
// of payload, and so on. Masks fix progressively fewer high bits as the
// payload widens, so decode precedence runs from the narrowest mask
// (an exact literal match) to the widest (the 14-bit class), checking
// the most specific tag first at each short.
const (
	maskLiteral      = 0xFFFF
	mask4Bit         = 0xFFF0
	mask8Bit         = 0xFF00
	mask9Bit         = 0xFE00
	mask12Bit        = 0xF000
	mask14Bit        = 0xC000
)

// 9-bit class: start-of-frame markers and histogram/time bin index
// tags. Values are multiples of 0x0200, the granularity left free by
// mask9Bit.
const (
	PfxStartOfDFrame = 0x8000
	PfxStartOfMFrame = 0x8200
	PfxStartOfCFrame = 0x8400
	PfxTimeBinIx     = 0x8600
	PfxHistoBinIx    = 0x8800
)

// 14-bit class: per-channel hit tags, distinguished by their top 2
// bits alone; the remaining 14 bits carry (card:5, chip:2, chan:7).
// These three codes are checked only after the narrower 9-bit class
// has had a chance to claim START_OF_{D,M,C}FRAME, since 0x8000 would
// otherwise also satisfy PfxCardChipChanHitIx's mask.
const (
	PfxCardChipChanHitIx  = 0x8000
	PfxCardChipChanHitCnt = 0x4000
	PfxCardChipChanHisto  = 0xC000
)

// 12-bit class.
const (
	PfxAdcSample   = 0x1000
	PfxLatHistoBin = 0x2000
)

// 8-bit class: ASCII length-prefixed strings, length in the low byte.
const PfxAsciiMsgLen = 0x9000

// 4-bit class: event boundary markers, each followed by 5 header
// shorts (timestamp low/mid/high, event-count low/high).
const (
	PfxStartOfEvent = 0xA000
	PfxEndOfEvent   = 0xA010
)

// 0-bit (literal) class.
const (
	PfxEndOfFrame           = 0xFFFF
	PfxNullContent          = 0x0000
	PfxDeadtimeHstatBins    = 0xB000
	PfxPedestalHMd          = 0xB001
	PfxPedestalHstat        = 0xB002
	pfxChHitCntHistoChipBase = 0xB010
	PfxShistoBins           = 0xB020
	PfxStartOfBuiltEvent    = 0xB030
	PfxEndOfBuiltEvent      = 0xB031
	PfxSobeSize             = 0xB032
	PfxCmdStatistics        = 0xB033
	PfxPedthrList           = 0xB034
)

// PfxChHitCntHistoChipIx returns the literal tag for the per-chip
// hit-count-histogram section marker of chip n.
func PfxChHitCntHistoChipIx(n int) uint16 {
	return uint16(pfxChHitCntHistoChipBase + n)
}

// EncodeCardChipChan packs one of the three 14-bit-class per-channel
// tags: the 2-bit class prefix over (card:5, chip:2, chan:7).
func EncodeCardChipChan(prefix uint16, card, chip, chn int) uint16 {
	return prefix | uint16(card&0x1F)<<9 | uint16(chip&0x3)<<7 | uint16(chn&0x7F)
}

// EncodeStartOfFrame packs a start-of-{D,M,C}FRAME short: the class
// prefix ORed with the protocol version (bits 8..5, 4 bits) and the
// card id (bits 4..0, 5 bits).
func EncodeStartOfFrame(prefix uint16, version, cardID uint8) uint16 {
	return prefix | (uint16(version&0xF) << 5) | uint16(cardID&0x1F)
}

// DecodeStartOfFrame splits a start-of-frame short into its protocol
// version and card id.
func DecodeStartOfFrame(word uint16) (version, cardID uint8) {
	version = uint8((word >> 5) & 0xF)
	cardID = uint8(word & 0x1F)
	return
}
