// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package histo

const periodHistoBins = 1024

// PeriodMeter histograms the time between consecutive events (a TCM
// diagnostic, grounded on tcm/periodmeter.h's evper_histogram — same
// single card-wide-histogram shape as BusyMeter, created "from
// busymeter" per that file's own history comment).
type PeriodMeter struct {
	Histo *Histogram
}

// NewPeriodMeter allocates an inter-event-period histogram with
// binWidth-wide bins in microseconds.
func NewPeriodMeter(binWidth int) *PeriodMeter {
	return &PeriodMeter{Histo: New(0, binWidth, periodHistoBins)}
}

// AddPeriod records the interval since the previous event.
func (p *PeriodMeter) AddPeriod(interval int) {
	p.Histo.AddEntry(interval)
}

// Clear resets the period histogram.
func (p *PeriodMeter) Clear() {
	p.Histo.Clear()
}
