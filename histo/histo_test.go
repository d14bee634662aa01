package histo

import "testing"

func TestAddEntryAndStatistics(t *testing.T) {
	h := New(0, 1, 100)

	for _, v := range []int{10, 10, 20, 30} {
		h.AddEntry(v)
	}

	s := h.Statistics()
	if s.Entries != 4 {
		t.Fatalf("Entries = %d, want 4", s.Entries)
	}
	if s.Mean != 17.5 {
		t.Fatalf("Mean = %v, want 17.5", s.Mean)
	}
	if s.MinVal != 10 || s.MaxVal != 30 {
		t.Fatalf("got min=%d max=%d, want 10,30", s.MinVal, s.MaxVal)
	}
}

func TestAddEntryOutOfRangeCountsSaturation(t *testing.T) {
	h := New(0, 1, 10)

	h.AddEntry(-5)
	h.AddEntry(1000)

	if h.Saturations != 2 {
		t.Fatalf("Saturations = %d, want 2", h.Saturations)
	}
}

func TestClearResetsStatistics(t *testing.T) {
	h := New(0, 1, 10)
	h.AddEntry(5)
	h.Clear()

	s := h.Statistics()
	if s.Entries != 0 || s.Mean != 0 {
		t.Fatalf("Clear() left stale statistics: %+v", s)
	}
}

func TestSetOffsetShiftsRange(t *testing.T) {
	h := New(0, 2, 5)
	h.SetOffset(100)

	if h.MinBin != 100 {
		t.Fatalf("MinBin = %d, want 100", h.MinBin)
	}
	if h.MaxBin != 100+4*2 {
		t.Fatalf("MaxBin = %d, want %d", h.MaxBin, 100+4*2)
	}
}

func TestPedestalCenterMeanSaturates(t *testing.T) {
	table := NewPedestalTable(1, 1)

	for i := 0; i < 10; i++ {
		table.AddSample(0, 0, 1000)
	}

	saturated, err := table.CenterMean(0, 0, 250)
	if err != nil {
		t.Fatalf("CenterMean() = %v", err)
	}
	if !saturated {
		t.Errorf("CenterMean() should saturate when the shift exceeds ±256")
	}
	if table.LUT[0][0].Ped != -256 {
		t.Errorf("Ped = %d, want -256", table.LUT[0][0].Ped)
	}
}

func TestPedestalSetThresholdPolarity(t *testing.T) {
	table := NewPedestalTable(1, 1)
	for _, v := range []int{100, 102, 98, 101} {
		table.AddSample(0, 0, v)
	}

	_, err := table.SetThreshold(0, 0, 250, 3.5, false)
	if err != nil {
		t.Fatalf("SetThreshold() = %v", err)
	}
	if table.LUT[0][0].Thr <= 250 {
		t.Errorf("positive polarity threshold should sit above target: got %d", table.LUT[0][0].Thr)
	}

	_, err = table.SetThreshold(0, 0, 250, 3.5, true)
	if err != nil {
		t.Fatalf("SetThreshold() = %v", err)
	}
	if table.LUT[0][0].Thr >= 250 {
		t.Errorf("negative polarity threshold should sit below target: got %d", table.LUT[0][0].Thr)
	}
}

func TestPedestalOutOfRangeIsIllegalParameter(t *testing.T) {
	table := NewPedestalTable(2, 2)

	if err := table.Clear(5, 0); err == nil {
		t.Fatalf("Clear() should reject an out-of-range ASIC index")
	}
}

func TestHitCountTable(t *testing.T) {
	ht := NewHitCountTable(4)

	if err := ht.AddEvent(2, 7); err != nil {
		t.Fatalf("AddEvent() = %v", err)
	}

	h, err := ht.Get(2)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if h.Statistics().Entries != 1 {
		t.Fatalf("Entries = %d, want 1", h.Statistics().Entries)
	}

	if err := ht.AddEvent(9, 1); err == nil {
		t.Fatalf("AddEvent() should reject an out-of-range chip index")
	}
}

func TestSCurveHitProb(t *testing.T) {
	var bins [SCurveBins]int64
	for i := range bins {
		bins[i] = int64(100 - i*10) // monotonically decreasing hit count
	}

	thr, underrange := HitProb(bins, 100, 0.5)
	if underrange {
		t.Fatalf("HitProb() reported underrange unexpectedly")
	}
	if thr != 6 {
		t.Fatalf("HitProb() = %d, want 6 (first bin below 50%%)", thr)
	}
}

func TestSCurveHitProbUnderrange(t *testing.T) {
	var bins [SCurveBins]int64
	for i := range bins {
		bins[i] = 100
	}

	_, underrange := HitProb(bins, 100, 0.5)
	if !underrange {
		t.Fatalf("HitProb() should report underrange when no threshold satisfies p")
	}
}

func TestBusyMeterAndPeriodMeter(t *testing.T) {
	b := NewBusyMeter(10)
	b.AddDuration(55)
	if b.Histo.Statistics().Entries != 1 {
		t.Fatalf("BusyMeter did not record an entry")
	}
	b.Clear()
	if b.Histo.Statistics().Entries != 0 {
		t.Fatalf("Clear() did not reset BusyMeter")
	}

	p := NewPeriodMeter(5)
	p.AddPeriod(23)
	if p.Histo.Statistics().Entries != 1 {
		t.Fatalf("PeriodMeter did not record an entry")
	}
}
