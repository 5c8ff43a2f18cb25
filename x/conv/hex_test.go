package conv

import "testing"

func TestU8Hex(t *testing.T) {
	var b [4]byte
	for _, tc := range []struct {
		in   uint8
		want string
	}{{0x00, "0x00"}, {0x1c, "0x1c"}, {0xA5, "0xa5"}, {0xff, "0xff"}} {
		if got := string(U8Hex(b[:], tc.in)); got != tc.want {
			t.Fatalf("U8Hex(%d)=%q want %q", tc.in, got, tc.want)
		}
	}
	if got := U8Hex(make([]byte, 2), 1); len(got) != 0 {
		t.Fatalf("short buffer should yield empty slice, got %q", got)
	}
}
