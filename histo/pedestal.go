// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package histo

import (
	"fmt"

	"github.com/rest-for-physics/minos-core/errs"
)

// PedThrEntry is one entry of the compile-time pedestal/threshold LUT:
// read by hardware directly, written by software through the command
// interpreter.
type PedThrEntry struct {
	Ped int16
	Thr int16
}

// ForceEntry is the companion (force-on, force-off) override LUT for
// the hit-register modifier.
type ForceEntry struct {
	ForceOn  bool
	ForceOff bool
}

// Pedestal is the per-(ASIC, channel) pedestal histogram plus its
// cached statistics validity flag.
type Pedestal struct {
	Histo     *Histogram
	statValid bool
	stats     Stats
}

// PedestalTable holds one Pedestal per (ASIC, channel) and the
// pedestal/threshold LUT it feeds.
type PedestalTable struct {
	NumAsic, NumChan int
	Pedestals        [][]*Pedestal
	LUT              [][]PedThrEntry
	Force            [][]ForceEntry
}

const (
	pedestalHistoMin   = 0
	pedestalHistoWidth = 1
	pedestalHistoBins  = 1024
)

// NewPedestalTable allocates a zeroed table for numAsic ASICs of
// numChan channels each.
func NewPedestalTable(numAsic, numChan int) *PedestalTable {
	t := &PedestalTable{
		NumAsic:   numAsic,
		NumChan:   numChan,
		Pedestals: make([][]*Pedestal, numAsic),
		LUT:       make([][]PedThrEntry, numAsic),
		Force:     make([][]ForceEntry, numAsic),
	}

	for a := 0; a < numAsic; a++ {
		t.Pedestals[a] = make([]*Pedestal, numChan)
		t.LUT[a] = make([]PedThrEntry, numChan)
		t.Force[a] = make([]ForceEntry, numChan)

		for c := 0; c < numChan; c++ {
			t.Pedestals[a][c] = &Pedestal{
				Histo: New(pedestalHistoMin, pedestalHistoWidth, pedestalHistoBins),
			}
		}
	}

	return t
}

func (t *PedestalTable) inRange(asic, chn int) bool {
	return asic >= 0 && asic < t.NumAsic && chn >= 0 && chn < t.NumChan
}

// AddSample bins one ADC sample into the (asic, channel) pedestal
// histogram (Pedestal_UpdateHisto).
func (t *PedestalTable) AddSample(asic, chn, sample int) {
	if !t.inRange(asic, chn) {
		return
	}
	p := t.Pedestals[asic][chn]
	p.Histo.AddEntry(sample)
	p.statValid = false
}

// Clear resets the (asic, channel) histogram (Pedestal_ClearHisto).
func (t *PedestalTable) Clear(asic, chn int) error {
	if !t.inRange(asic, chn) {
		return errIllegalParameter(asic, chn)
	}
	p := t.Pedestals[asic][chn]
	p.Histo.Clear()
	p.statValid = false
	return nil
}

// SetOffset moves the histogram's bin origin (Pedestal_SetHistoOffset).
func (t *PedestalTable) SetOffset(asic, chn, offset int) error {
	if !t.inRange(asic, chn) {
		return errIllegalParameter(asic, chn)
	}
	p := t.Pedestals[asic][chn]
	p.Histo.SetOffset(offset)
	p.statValid = false
	return nil
}

// Stats returns the cached or freshly computed statistics of one
// channel's histogram (Pedestal_ComputeHistoMath).
func (t *PedestalTable) Stats(asic, chn int) (Stats, error) {
	if !t.inRange(asic, chn) {
		return Stats{}, errIllegalParameter(asic, chn)
	}
	p := t.Pedestals[asic][chn]
	if !p.statValid {
		p.stats = p.Histo.Statistics()
		p.statValid = true
	}
	return p.stats, nil
}

// CenterMean writes a pedestal-equalization correction into the LUT so
// that the channel's histogram mean sits at target, saturating to
// [-256, 255] (Pedestal_IntrepretCommand "centermean").
func (t *PedestalTable) CenterMean(asic, chn int, target int16) (saturated bool, err error) {
	stats, err := t.Stats(asic, chn)
	if err != nil {
		return false, err
	}

	shift := target - int16(stats.Mean+0.5)
	switch {
	case shift < -256:
		shift = -256
		saturated = true
	case shift > 255:
		shift = 255
		saturated = true
	}

	t.LUT[asic][chn].Ped = shift
	return saturated, nil
}

// SetThreshold writes a channel threshold at target + polarity-signed
// (stdevFactor * stddev), saturating to [0, 511]
// (Pedestal_IntrepretCommand "setthr").
func (t *PedestalTable) SetThreshold(asic, chn int, target int16, stdevFactor float64, negativePolarity bool) (saturated bool, err error) {
	stats, err := t.Stats(asic, chn)
	if err != nil {
		return false, err
	}

	margin := int16(stdevFactor*stats.StdDev + 0.5)

	var thr int16
	if !negativePolarity {
		thr = target + margin
		if thr > 511 {
			thr = 511
			saturated = true
		}
	} else {
		thr = target - margin
		if thr < 0 {
			thr = 0
			saturated = true
		}
	}

	t.LUT[asic][chn].Thr = thr
	return saturated, nil
}

func errIllegalParameter(asic, chn int) error {
	return fmt.Errorf("%w: asic %d channel %d out of range", errs.ErrIllegalParameter, asic, chn)
}
