// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package histo implements the 1D integer histogram and
// its specializations: pedestal histograms per (ASIC, channel),
// hit-count histograms, S-curve scans, and the busy-duration meter. The
// summary (Stats) is fixed: min_bin, max_bin, bin_wid, min_val,
// max_val, mean, stddev, entries and the saturation count.
package histo

import "math"

// Histogram is a fixed-bin-layout 1D integer histogram. Entries are
// added one at a time without locking, since the service loop is the
// sole producer.
type Histogram struct {
	MinBin, MaxBin, BinWidth int
	Bins                     []int64

	Saturations int64
	entries     int64
	sum         int64
	sumSq       float64
}

// New allocates a histogram with bin count bins covering
// [minBin, minBin+bins*binWidth).
func New(minBin, binWidth, bins int) *Histogram {
	return &Histogram{
		MinBin:    minBin,
		MaxBin:    minBin + (bins-1)*binWidth,
		BinWidth:  binWidth,
		Bins:      make([]int64, bins),
	}
}

// Clear zeros the bin array and resets derived statistics.
func (h *Histogram) Clear() {
	for i := range h.Bins {
		h.Bins[i] = 0
	}
	h.Saturations = 0
	h.entries = 0
	h.sum = 0
	h.sumSq = 0
}

// SetOffset shifts the histogram's bin range to start at minBin,
// keeping bin width and count fixed.
func (h *Histogram) SetOffset(minBin int) {
	h.MinBin = minBin
	h.MaxBin = minBin + (len(h.Bins)-1)*h.BinWidth
}

// binIndex returns the bin index for value, clamping (and counting a
// saturation) when value falls outside [MinBin, MaxBin].
func (h *Histogram) binIndex(value int) (int, bool) {
	if value < h.MinBin {
		return 0, false
	}
	if value > h.MaxBin {
		return len(h.Bins) - 1, false
	}
	return (value - h.MinBin) / h.BinWidth, true
}

// AddEntry bins one sample, maintaining the running sum/sum-of-squares
// used for on-demand mean/stddev.
func (h *Histogram) AddEntry(value int) {
	idx, inRange := h.binIndex(value)
	if !inRange {
		h.Saturations++
	}

	h.Bins[idx]++
	h.entries++
	h.sum += int64(value)
	h.sumSq += float64(value) * float64(value)
}

// Stats is the on-demand-computed statistics summary.
type Stats struct {
	MinBin, MaxBin, BinWidth int
	MinVal, MaxVal           int
	Mean, StdDev             float64
	Entries                  int64
	Saturations              int64
}

// Statistics computes Stats on demand, mirroring Histo_ComputeStatistics:
// mean and stddev from the running sums AddEntry keeps, min/max values
// from the non-empty bins.
func (h *Histogram) Statistics() Stats {
	s := Stats{
		MinBin:      h.MinBin,
		MaxBin:      h.MaxBin,
		BinWidth:    h.BinWidth,
		Entries:     h.entries,
		Saturations: h.Saturations,
	}

	if h.entries == 0 {
		return s
	}

	s.Mean = float64(h.sum) / float64(h.entries)

	variance := h.sumSq/float64(h.entries) - s.Mean*s.Mean
	if variance < 0 {
		variance = 0
	}
	s.StdDev = math.Sqrt(variance)

	minSet, maxSet := false, false
	for i, n := range h.Bins {
		if n == 0 {
			continue
		}
		v := h.MinBin + i*h.BinWidth
		if !minSet || v < s.MinVal {
			s.MinVal = v
			minSet = true
		}
		if !maxSet || v > s.MaxVal {
			s.MaxVal = v
			maxSet = true
		}
	}

	return s
}
