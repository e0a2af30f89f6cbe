package helper

import (
	"testing"
)

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0"},
		{1, "0.01"},
		{10, "0.1"},
		{100, "1"},
		{100050, "1000.5"},
		{149000, "1490"},
		{-2550, "-25.5"},
	}
	for _, c := range cases {
		if got := FormatCents(c.cents); got != c.want {
			t.Fatalf("FormatCents(%d) = %q, want %q", c.cents, got, c.want)
		}
	}
}
