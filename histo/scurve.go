// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package histo

import (
	"fmt"

	"github.com/rest-for-physics/minos-core/errs"
)

// SCurveBins is the number of threshold points scanned per channel.
const SCurveBins = 16

// SCurveTable holds one 16-point hit-rate-vs-threshold S-curve per
// (ASIC, channel).
type SCurveTable struct {
	NumAsic, NumChan int

	// ScanIx is the threshold step currently being scanned; hits
	// accumulated through AddHit land in this bin (shisto thr).
	ScanIx int

	bins [][][SCurveBins]int64
}

// NewSCurveTable allocates a zeroed S-curve table.
func NewSCurveTable(numAsic, numChan int) *SCurveTable {
	t := &SCurveTable{NumAsic: numAsic, NumChan: numChan}
	t.bins = make([][][SCurveBins]int64, numAsic)
	for a := range t.bins {
		t.bins[a] = make([][SCurveBins]int64, numChan)
	}
	return t
}

func (t *SCurveTable) inRange(asic, chn int) bool {
	return asic >= 0 && asic < t.NumAsic && chn >= 0 && chn < t.NumChan
}

// Record stores the hit count observed at threshold index thr (0..15)
// for a scan of (asic, channel).
func (t *SCurveTable) Record(asic, chn, thr int, hitCount int64) error {
	if !t.inRange(asic, chn) {
		return fmt.Errorf("%w: asic %d channel %d out of range", errs.ErrIllegalParameter, asic, chn)
	}
	if thr < 0 || thr >= SCurveBins {
		return fmt.Errorf("%w: threshold index %d out of range", errs.ErrIllegalParameter, thr)
	}
	t.bins[asic][chn][thr] = hitCount
	return nil
}

// SetScanIx selects which threshold step subsequent AddHit calls
// accumulate into.
func (t *SCurveTable) SetScanIx(ix int) error {
	if ix < 0 || ix >= SCurveBins {
		return fmt.Errorf("%w: threshold index %d out of range", errs.ErrIllegalParameter, ix)
	}
	t.ScanIx = ix
	return nil
}

// AddHit counts one above-threshold hit on (asic, channel) at the
// current scan step. Out-of-range coordinates are dropped silently,
// like the pedestal sample path: one malformed hardware frame must not
// abort the drain.
func (t *SCurveTable) AddHit(asic, chn int) {
	if !t.inRange(asic, chn) {
		return
	}
	t.bins[asic][chn][t.ScanIx]++
}

// Bins returns the 16-point S-curve for (asic, channel).
func (t *SCurveTable) Bins(asic, chn int) ([SCurveBins]int64, error) {
	if !t.inRange(asic, chn) {
		return [SCurveBins]int64{}, fmt.Errorf("%w: asic %d channel %d out of range", errs.ErrIllegalParameter, asic, chn)
	}
	return t.bins[asic][chn], nil
}

// Clear zeros the S-curve of (asic, channel).
func (t *SCurveTable) Clear(asic, chn int) error {
	if !t.inRange(asic, chn) {
		return fmt.Errorf("%w: asic %d channel %d out of range", errs.ErrIllegalParameter, asic, chn)
	}
	t.bins[asic][chn] = [SCurveBins]int64{}
	return nil
}

// HitProb scans the threshold bins 0..15 of one channel's S-curve and
// returns the smallest threshold index at which the hit rate
// bins[i]/totalEvents falls below p. underrange reports true, with thr
// undefined, when no such threshold exists.
func HitProb(bins [SCurveBins]int64, totalEvents int64, p float64) (thr int, underrange bool) {
	if totalEvents == 0 {
		return 0, true
	}

	for i, count := range bins {
		rate := float64(count) / float64(totalEvents)
		if rate < p {
			return i, false
		}
	}

	return 0, true
}
