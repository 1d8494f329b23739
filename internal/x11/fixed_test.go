package x11

import "testing"

func TestToFixed(t *testing.T) {
	cases := []struct {
		in   float64
		want Fixed
	}{
		{1.0, 65536},
		{2.0, 131072},
		{0.0, 0},
		{0.5, 32768},
		{1.5, 98304},
		{0.25, 16384},
		{-1.0, -65536},
		{-0.5, -32768},
		{1.0 / 3.0, 21845},
		{1920.0, 1920 * 65536},
		{1080.0, 1080 * 65536},
	}
	for _, c := range cases {
		if got := ToFixed(c.in); got != c.want {
			t.Errorf("ToFixed(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
