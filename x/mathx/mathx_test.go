package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(150, 0, 100); got != 100 {
		t.Fatalf("high: %d", got)
	}
	if got := Clamp(-3, 0, 100); got != 0 {
		t.Fatalf("low: %d", got)
	}
	if got := Clamp(5, 10, 0); got != 5 {
		t.Fatalf("swapped bounds: %d", got)
	}
}

func TestSignExtend(t *testing.T) {
	cases := []struct {
		v    uint16
		bits uint
		want int32
	}{
		{0x000, 12, 0},
		{0x7FF, 12, 2047},
		{0x800, 12, -2048},
		{0xFFF, 12, -1},
		{0xF0FF, 12, 255}, // bits above the width are ignored
	}
	for _, tc := range cases {
		if got := SignExtend(tc.v, tc.bits); got != tc.want {
			t.Errorf("SignExtend(%#x,%d)=%d want %d", tc.v, tc.bits, got, tc.want)
		}
	}
}
