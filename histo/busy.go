// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package histo

const busyHistoBins = 256

// BusyMeter histograms the duration of the FPGA's BUSY signal: a
// single card-wide histogram, unlike the per-ASIC pedestal table.
type BusyMeter struct {
	Histo *Histogram
}

// NewBusyMeter allocates a busy-duration histogram with binWidth-wide
// bins in microseconds.
func NewBusyMeter(binWidth int) *BusyMeter {
	return &BusyMeter{Histo: New(0, binWidth, busyHistoBins)}
}

// AddDuration records one BUSY assertion of the given duration.
func (b *BusyMeter) AddDuration(duration int) {
	b.Histo.AddEntry(duration)
}

// Clear resets the busy histogram (hbusy clr).
func (b *BusyMeter) Clear() {
	b.Histo.Clear()
}
