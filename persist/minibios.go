// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package persist implements the minibios record: the
// fixed-layout, 256-byte page that survives a reboot, holding network
// identity and the handful of per-card boot options the original
// minibios console persists. The console UI itself is out of scope
// is the SPI flash controller and the minibios console itself; this
// package models only the record shape and the erase/write/read
// sequencing a real SPI backend would drive, behind the Flash
// interface, so that swapping in a real controller is a one-function
// change.
package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// PageSize is the page written to flash; RecordSize is the portion of
// it actually occupied by Record's fields.
const (
	PageSize   = 256
	RecordSize = 2 + 2 + 6 + 4 + 1 + 1 + 1 + 1
)

// PLL selects which TCM clock-distribution chip, if any, is fitted
//.
type PLL uint8

const (
	PLLNone PLL = 0
	PLLLMK03000 PLL = 1
	PLLLMK03200 PLL = 2
)

// Record is the minibios persisted page, packed
// low-field-first exactly as the fixed C struct it mirrors.
type Record struct {
	MTU      uint16
	Speed    uint16
	MAC      [6]byte
	IP       [4]byte
	CardID   uint8
	PLL      PLL  // TCM only
	PLLODel  uint8 // TCM only, PLL CLKOUT delay in steps of 150ps
	FECOn    bool  // Feminos only: power FEC at boot
}

// Marshal packs r into a PageSize-byte page, zero-padded after
// RecordSize bytes.
func (r Record) Marshal() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(PageSize)

	binary.Write(buf, binary.LittleEndian, r.MTU)
	binary.Write(buf, binary.LittleEndian, r.Speed)
	buf.Write(r.MAC[:])
	buf.Write(r.IP[:])
	buf.WriteByte(r.CardID)
	buf.WriteByte(byte(r.PLL))
	buf.WriteByte(r.PLLODel)
	if r.FECOn {
		buf.WriteByte('Y')
	} else {
		buf.WriteByte(0)
	}

	page := make([]byte, PageSize)
	copy(page, buf.Bytes())
	return page
}

// Unmarshal parses a page previously produced by Marshal (or read back
// from flash). It errors if page is shorter than RecordSize.
func Unmarshal(page []byte) (Record, error) {
	if len(page) < RecordSize {
		return Record{}, fmt.Errorf("persist: page too short: %d bytes, need %d", len(page), RecordSize)
	}

	var r Record
	r.MTU = binary.LittleEndian.Uint16(page[0:])
	r.Speed = binary.LittleEndian.Uint16(page[2:])
	copy(r.MAC[:], page[4:10])
	copy(r.IP[:], page[10:14])
	r.CardID = page[14]
	r.PLL = PLL(page[15])
	r.PLLODel = page[16]
	r.FECOn = page[17] == 'Y' || page[17] == 'y'

	return r, nil
}

// Flash is the out-of-scope SPI flash controller's interface as seen by
// the minibios record: erase a 4KB sector, then write
// one 256-byte page to it; read back by page.
type Flash interface {
	EraseSector(sectorAddr uint32) error
	WritePage(pageAddr uint32, data []byte) error
	ReadPage(pageAddr uint32) ([]byte, error)
}

// MemFlash is an in-memory Flash substitute for the out-of-scope SPI
// controller: faithful to the erase/write/read
// sequencing a real device enforces (a page write is only valid
// immediately after the sector containing it was erased) without any
// actual non-volatile storage, so tests can exercise Store/Load without
// hardware.
type MemFlash struct {
	sectorSize int
	sectors    map[uint32][]byte
	erased     map[uint32]bool
}

// NewMemFlash allocates a MemFlash with the given sector size.
func NewMemFlash(sectorSize int) *MemFlash {
	return &MemFlash{
		sectorSize: sectorSize,
		sectors:    make(map[uint32][]byte),
		erased:     make(map[uint32]bool),
	}
}

func (f *MemFlash) sectorOf(addr uint32) uint32 {
	return addr - addr%uint32(f.sectorSize)
}

// EraseSector fills the sector containing sectorAddr with 0xFF, the
// erased-flash idiom, and marks it ready to accept page writes.
func (f *MemFlash) EraseSector(sectorAddr uint32) error {
	sector := f.sectorOf(sectorAddr)
	buf := make([]byte, f.sectorSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	f.sectors[sector] = buf
	f.erased[sector] = true
	return nil
}

// WritePage writes data into the page at pageAddr. It rejects oversize
// writes explicitly.
func (f *MemFlash) WritePage(pageAddr uint32, data []byte) error {
	if len(data) > PageSize {
		return fmt.Errorf("persist: write of %d bytes exceeds page size %d", len(data), PageSize)
	}

	sector := f.sectorOf(pageAddr)
	if !f.erased[sector] {
		return fmt.Errorf("persist: sector 0x%x not erased before page write", sector)
	}

	buf, ok := f.sectors[sector]
	if !ok {
		return fmt.Errorf("persist: sector 0x%x not allocated", sector)
	}

	off := pageAddr - sector
	copy(buf[off:], data)
	return nil
}

// ReadPage returns a copy of the PageSize bytes at pageAddr.
func (f *MemFlash) ReadPage(pageAddr uint32) ([]byte, error) {
	sector := f.sectorOf(pageAddr)
	buf, ok := f.sectors[sector]
	if !ok {
		return make([]byte, PageSize), nil
	}

	off := pageAddr - sector
	if int(off)+PageSize > len(buf) {
		return nil, fmt.Errorf("persist: page at 0x%x overruns sector", pageAddr)
	}

	out := make([]byte, PageSize)
	copy(out, buf[off:int(off)+PageSize])
	return out, nil
}

// Store erases the sector at sectorAddr then writes r's marshaled page
// at pageAddr, which must lie in that sector.
func Store(f Flash, sectorAddr, pageAddr uint32, r Record) error {
	if err := f.EraseSector(sectorAddr); err != nil {
		return err
	}
	return f.WritePage(pageAddr, r.Marshal())
}

// Load reads the page at pageAddr back and parses it with the same
// fixed layout Store wrote.
func Load(f Flash, pageAddr uint32) (Record, error) {
	page, err := f.ReadPage(pageAddr)
	if err != nil {
		return Record{}, err
	}
	return Unmarshal(page)
}
