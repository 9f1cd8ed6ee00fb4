package repository

import "testing"

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"trip":     "trip",
		"100%":     `100\%`,
		"a_b":      `a\_b`,
		`c:\notes`: `c:\\notes`,
	}
	for in, want := range cases {
		if got := escapeLike(in); got != want {
			t.Fatalf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}
