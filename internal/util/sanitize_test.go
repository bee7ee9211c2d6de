package util

import "testing"

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Planet Money", "Planet Money"},
		{"Ep. 101: Why? / How?", "Ep. 101- Why- - How"},
		{`a\b/c:d*e?f"g<h>i|j`, "a-b-c-d-e-f-g-h-i-j"},
		{"trailing dots...", "trailing dots"},
		{"  spaced  ", "spaced"},
		{"---", "untitled"},
		{"", ""},
		{"CON", "CON_"},
		{"lpt1", "lpt1_"},
		{"runs----of----dashes", "runs-of-dashes"},
		{"null\x00byte", "nullbyte"},
	}

	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
