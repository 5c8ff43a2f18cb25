package rk818

import "testing"

func TestQuantizeBounds(t *testing.T) {
	tables := map[string][]int{
		"voltage": ChargeMilliVTable[:],
		"charge":  ChargeMilliATable[:],
		"input":   InputMilliATable[:],
	}
	for name, tbl := range tables {
		t.Run(name, func(t *testing.T) {
			if got := Quantize(tbl[0]-1, tbl); got != 0 {
				t.Fatalf("below first: got %d", got)
			}
			if got := Quantize(0, tbl); got != 0 {
				t.Fatalf("zero: got %d", got)
			}
			last := len(tbl) - 1
			if got := Quantize(tbl[last], tbl); got != last {
				t.Fatalf("at last: got %d", got)
			}
			if got := Quantize(tbl[last]+1000, tbl); got != last {
				t.Fatalf("above last: got %d", got)
			}
			for i, v := range tbl {
				if got := Quantize(v, tbl); got != i {
					t.Fatalf("exact %d: got %d want %d", v, got, i)
				}
				if i+1 < len(tbl) && tbl[i+1]-v > 1 {
					if got := Quantize(v+1, tbl); got != i {
						t.Fatalf("between %d and %d: got %d want %d", v, tbl[i+1], got, i)
					}
				}
			}
		})
	}
}

func TestChargeCurrentLowRes(t *testing.T) {
	// 2500 / 2 = 1250 -> 1200 entry.
	if got := ChargeCurrentCode(2500, 2); got != 1 {
		t.Fatalf("2500mA/2: got code %d want 1", got)
	}
	// Floored to 1000.
	if got := ChargeCurrentCode(1500, 2); got != 0 {
		t.Fatalf("1500mA/2: got code %d want 0", got)
	}
	if got := ChargeCurrentCode(1500, 1); got != 2 {
		t.Fatalf("1500mA/1: got code %d want 2", got)
	}
}

func TestCodesDefaults(t *testing.T) {
	c := Codes(4200, 1400, 2000, SampleResDivisor(SampleRes20mOhm))
	if c.Voltage != 3<<ChrgVolShift || c.Current != 2 || c.Input != 7 {
		t.Fatalf("unexpected codes: %+v", c)
	}
	if SampleResDivisor(SampleRes10mOhm) != 2 || SampleResDivisor(20) != 1 {
		t.Fatal("divisor mapping")
	}
	if InputCurrentCode(1500) != InputCode1500mA || InputCurrentCode(450) != InputCode450mA {
		t.Fatal("fixed input codes disagree with table")
	}
}
