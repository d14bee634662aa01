// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package histo

import (
	"fmt"

	"github.com/rest-for-physics/minos-core/errs"
)

const hitHistoBins = 79 // channel hit count per event, 0..78 (AFTER channel count)

// HitCountTable holds one hit-count histogram per chip: how many
// channels fired in a single event, one entry per chip on the card.
type HitCountTable struct {
	perChip []*Histogram
}

// NewHitCountTable allocates a hit-count histogram for each of numChip
// chips.
func NewHitCountTable(numChip int) *HitCountTable {
	t := &HitCountTable{perChip: make([]*Histogram, numChip)}
	for i := range t.perChip {
		t.perChip[i] = New(0, 1, hitHistoBins)
	}
	return t
}

func (t *HitCountTable) chip(chip int) (*Histogram, error) {
	if chip < 0 || chip >= len(t.perChip) {
		return nil, fmt.Errorf("%w: chip %d out of range", errs.ErrIllegalParameter, chip)
	}
	return t.perChip[chip], nil
}

// AddEvent records that hitCount channels fired in the latest event on
// chip.
func (t *HitCountTable) AddEvent(chip, hitCount int) error {
	h, err := t.chip(chip)
	if err != nil {
		return err
	}
	h.AddEntry(hitCount)
	return nil
}

// Clear resets the hit-count histogram for chip.
func (t *HitCountTable) Clear(chip int) error {
	h, err := t.chip(chip)
	if err != nil {
		return err
	}
	h.Clear()
	return nil
}

// Get returns the hit-count histogram for chip (hhit get).
func (t *HitCountTable) Get(chip int) (*Histogram, error) {
	return t.chip(chip)
}
