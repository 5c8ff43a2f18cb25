package charger

import "time"

// Reading is one gauge sample fed to the low-power debouncer.
type Reading struct {
	GaugeEnabled bool
	AvgMilliA    int
	SOC          int
}

// Debouncer latches a depleted-battery condition (discharge current at
// zero capacity) and reports fake offline once it has held for the dwell.
type Debouncer struct {
	dwell time.Duration
	armed bool
	since time.Duration
}

func NewDebouncer(dwell time.Duration) *Debouncer {
	return &Debouncer{dwell: dwell}
}

// Check feeds a reading taken at monotonic time now.
func (d *Debouncer) Check(r Reading, now time.Duration) bool {
	if !r.GaugeEnabled {
		return false
	}
	if r.AvgMilliA >= 0 || r.SOC != 0 {
		d.armed = false
		return false
	}
	if !d.armed {
		d.armed = true
		d.since = now
	}
	return now-d.since >= d.dwell
}

func (d *Debouncer) Reset() { d.armed = false }
