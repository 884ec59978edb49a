package models

import "testing"

func TestParseDirection(t *testing.T) {
	cases := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"up", DirectionUp, true},
		{"Down", DirectionDown, true},
		{"LEFT", DirectionLeft, true},
		{"right", DirectionRight, true},
		{"diagonal", "", false},
		{"", "", false},
	}

	for _, c := range cases {
		got, ok := ParseDirection(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseDirection(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseDirectionRejectsWhitespace(t *testing.T) {
	for _, in := range []string{" up", "up ", " up ", "\tup"} {
		if _, ok := ParseDirection(in); ok {
			t.Errorf("ParseDirection(%q) should reject whitespace-padded input", in)
		}
	}
}
