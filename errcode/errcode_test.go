package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	cause := errors.New("nack")
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"code", Busy, Busy},
		{"wrapped_code", fmt.Errorf("ctx: %w", Closed), Closed},
		{"e", &E{C: InvalidConfig, Op: "attach"}, InvalidConfig},
		{"wrapped_e", fmt.Errorf("outer: %w", &E{C: Timeout}), Timeout},
		{"plain", cause, Error},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Of(tc.err); got != tc.want {
				t.Fatalf("Of(%v)=%q want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestMapDriverErr(t *testing.T) {
	if got := MapDriverErr(nil); got != OK {
		t.Fatalf("nil: got %q", got)
	}
	if got := MapDriverErr(errors.New("i2c nack")); got != IOError {
		t.Fatalf("plain: got %q", got)
	}
	if got := MapDriverErr(Timeout); got != Timeout {
		t.Fatalf("code: got %q", got)
	}
}

func TestWrapUnwrap(t *testing.T) {
	if Wrap(IOError, "read", nil) != nil {
		t.Fatal("Wrap(nil) must be nil")
	}
	cause := errors.New("bus stuck")
	err := Wrap(IOError, "read", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable via errors.Is")
	}
	if got, want := err.Error(), "read: io_error: bus stuck"; got != want {
		t.Fatalf("Error()=%q want %q", got, want)
	}
}
