package charger

import (
	"testing"
	"time"
)

func TestDebouncerDwell(t *testing.T) {
	d := NewDebouncer(30 * time.Second)
	low := Reading{GaugeEnabled: true, AvgMilliA: -100, SOC: 0}

	for s := 0; s <= 29; s++ {
		if d.Check(low, time.Duration(s)*time.Second) {
			t.Fatalf("fake offline asserted after %ds", s)
		}
	}
	if !d.Check(low, 30*time.Second) {
		t.Fatal("fake offline not asserted at 30s")
	}
	if !d.Check(low, 45*time.Second) {
		t.Fatal("fake offline dropped while condition holds")
	}
}

func TestDebouncerResetByOtherReading(t *testing.T) {
	d := NewDebouncer(30 * time.Second)
	low := Reading{GaugeEnabled: true, AvgMilliA: -100, SOC: 0}

	d.Check(low, 0)
	d.Check(low, 20*time.Second)
	if d.Check(Reading{GaugeEnabled: true, AvgMilliA: 50, SOC: 0}, 21*time.Second) {
		t.Fatal("positive current must not report fake offline")
	}
	// Latch restarted at 22s.
	if d.Check(low, 22*time.Second) || d.Check(low, 51*time.Second) {
		t.Fatal("latch was not reset")
	}
	if !d.Check(low, 52*time.Second) {
		t.Fatal("fake offline not asserted after a full new dwell")
	}
	if d.Check(Reading{GaugeEnabled: true, AvgMilliA: -100, SOC: 1}, 53*time.Second) {
		t.Fatal("non-zero capacity must clear")
	}
}

func TestDebouncerGaugeDisabled(t *testing.T) {
	d := NewDebouncer(0)
	if d.Check(Reading{GaugeEnabled: false, AvgMilliA: -100}, time.Hour) {
		t.Fatal("disabled gauge must never report fake offline")
	}
}
