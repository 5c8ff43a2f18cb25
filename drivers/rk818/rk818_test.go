package rk818

import (
	"errors"
	"testing"
)

func TestUpdateBitsSkipsUnchanged(t *testing.T) {
	sim := NewSim()
	d := New(sim, Config{})

	if err := SetOTGBoost(d, true); err != nil {
		t.Fatalf("SetOTGBoost: %v", err)
	}
	if err := SetOTGBoost(d, true); err != nil {
		t.Fatalf("SetOTGBoost: %v", err)
	}
	if n := sim.Writes(RegDCDCEn); n != 1 {
		t.Fatalf("DCDC_EN writes=%d want 1", n)
	}
	if sim.Get(RegDCDCEn)&OTGEnMask != OTGEnMask {
		t.Fatalf("boost bits not set: %#x", sim.Get(RegDCDCEn))
	}
	if err := SetOTGBoost(d, false); err != nil {
		t.Fatalf("SetOTGBoost off: %v", err)
	}
	if sim.Get(RegDCDCEn) != 0 {
		t.Fatalf("boost bits not cleared: %#x", sim.Get(RegDCDCEn))
	}
}

func TestApplyChargeCodes(t *testing.T) {
	sim := NewSim()
	d := New(sim, Config{})
	sim.Set(RegSupSts, USBVLimitEn|BatExists)

	c := Codes(4200, 1400, 2000, 1)
	if err := ApplyChargeCodes(d, c); err != nil {
		t.Fatalf("ApplyChargeCodes: %v", err)
	}
	if got := sim.Get(RegSupSts); got != BatExists|USBCLimitEn {
		t.Fatalf("SUP_STS=%#x", got)
	}
	if got := sim.Get(RegChrgCtrl1); got != ChrgEn|0x30|0x02 {
		t.Fatalf("CHRG_CTRL1=%#x", got)
	}
	if code, _ := InputCode(d); code != 7 {
		t.Fatalf("input code=%d", code)
	}
}

func TestFinishModeAndMask(t *testing.T) {
	sim := NewSim()
	d := New(sim, Config{})

	_ = SetFinishMode(d, true)
	if sim.Get(RegChrgCtrl3)&ChrgFinishModeMask == 0 {
		t.Fatal("digital mode not set")
	}
	_ = SetFinishMode(d, false)
	if sim.Get(RegChrgCtrl3)&ChrgFinishModeMask != 0 {
		t.Fatal("analog mode not set")
	}
	_ = MaskPlugIRQ(d, true)
	if sim.Get(RegIntStsMsk2)&PlugIntMask != PlugIntMask {
		t.Fatal("plug irqs not masked")
	}
	_ = MaskPlugIRQ(d, false)
	if sim.Get(RegIntStsMsk2) != 0 {
		t.Fatal("plug irqs not unmasked")
	}
}

func TestAvgCurrentSignAndDivisor(t *testing.T) {
	sim := NewSim()
	d := New(sim, Config{})

	sim.SetAvgCurrentRaw(0xFFF) // -1 LSB
	if got, _ := AvgCurrentMilliA(d, 1); got != -1 {
		t.Fatalf("-1 LSB: got %d", got)
	}
	sim.SetAvgCurrentRaw(1000)
	if got, _ := AvgCurrentMilliA(d, 1); got != 1506 {
		t.Fatalf("1000 LSB: got %d", got)
	}
	if got, _ := AvgCurrentMilliA(d, 2); got != 3012 {
		t.Fatalf("1000 LSB div2: got %d", got)
	}
}

func TestDrainPlugIRQ(t *testing.T) {
	sim := NewSim()
	d := New(sim, Config{})

	sim.RaisePlugIRQ(true)
	sim.SetBits(RegIntSts2, ChrgCVTLmtInt, true)
	p, err := DrainPlugIRQ(d)
	if err != nil {
		t.Fatalf("DrainPlugIRQ: %v", err)
	}
	if !p.In || p.Out {
		t.Fatalf("unexpected %+v", p)
	}
	if got := sim.Get(RegIntSts2); got != ChrgCVTLmtInt {
		t.Fatalf("plug bits not acknowledged, INT_STS2=%#x", got)
	}
	if p, _ = DrainPlugIRQ(d); p.In || p.Out {
		t.Fatalf("second drain saw %+v", p)
	}
}

func TestReadInfoKeepsGoingOnFault(t *testing.T) {
	sim := NewSim()
	d := New(sim, Config{})
	sim.Set(RegSOC, 55)
	sim.Plug(true)
	sim.FailRead(RegSupSts, true)

	in, err := ReadInfo(d, 1)
	if !errors.Is(err, ErrSimFault) {
		t.Fatalf("expected injected fault, got %v", err)
	}
	if !in.Plugged || in.SOC != 55 || in.Battery {
		t.Fatalf("unexpected info %+v", in)
	}
}

func TestSimWrongAddress(t *testing.T) {
	sim := NewSim()
	d := New(sim, Config{Address: 0x20})
	if _, err := d.Read(RegSOC); err == nil {
		t.Fatal("expected error for wrong address")
	}
}

func TestZeroAddressUsesDefault(t *testing.T) {
	d := New(NewSim(), Config{})
	if d.Addr() != AddressDefault {
		t.Fatalf("addr=%#x", d.Addr())
	}
	if _, err := d.Read(RegSOC); err != nil {
		t.Fatalf("read at default address: %v", err)
	}
	if got := New(NewSim(), Config{Address: 0x20}).Addr(); got != 0x20 {
		t.Fatalf("explicit addr=%#x", got)
	}
}
