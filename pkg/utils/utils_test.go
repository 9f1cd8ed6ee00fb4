package utils

import (
	"errors"
	"testing"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := VerifyPassword("correct horse", hash)
	if err != nil || !ok {
		t.Fatalf("verify correct = %v, %v", ok, err)
	}
	ok, err = VerifyPassword("wrong horse", hash)
	if err != nil || ok {
		t.Fatalf("verify wrong = %v, %v", ok, err)
	}
	if _, err := VerifyPassword("x", "$bcrypt$nope"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected invalid hash, got %v", err)
	}
}

func TestValidateUsername(t *testing.T) {
	cases := map[string]bool{
		"ab":                    false,
		"writer_1":              true,
		"_hidden":               false,
		"with space":            false,
		"abcdefghijklmnopqrstu": false,
		"  padded  ":            true,
	}
	for in, valid := range cases {
		if err := ValidateUsername(in); (err == nil) != valid {
			t.Fatalf("ValidateUsername(%q) = %v, want valid=%v", in, err, valid)
		}
	}
}

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer("MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	sealed, err := s.Seal(`{"name":"Jane Doe"}`)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if sealed == `{"name":"Jane Doe"}` {
		t.Fatal("plaintext stored unchanged")
	}
	opened, err := s.Open(sealed)
	if err != nil || opened != `{"name":"Jane Doe"}` {
		t.Fatalf("open = %q, %v", opened, err)
	}
	if out, _ := s.Seal(""); out != "" {
		t.Fatalf("empty input sealed to %q", out)
	}
	if _, err := NewSealer("c2hvcnQ="); err == nil {
		t.Fatal("short key accepted")
	}
}
