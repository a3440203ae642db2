package market

import "testing"

func TestParsePayoffs(t *testing.T) {
	payoffs, err := ParsePayoffs("100,0,50")
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(payoffs) != 3 || payoffs[0] != 100 || payoffs[2] != 50 {
		t.Fatalf("unexpected payoffs: %v", payoffs)
	}
}

func TestParsePayoffsMalformed(t *testing.T) {
	for _, desc := range []string{"", "abc", "100,,0"} {
		if _, err := ParsePayoffs(desc); err == nil {
			t.Fatalf("expected error for %q", desc)
		}
	}
}

func TestNewSecurityBounds(t *testing.T) {
	if _, err := NewSecurity("m1", "A", "100,0", 99, 1); err == nil {
		t.Fatal("expected error for inverted bounds")
	}
	sec, err := NewSecurity("m1", "A", "100,0", 1, 99)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sec.MinPrice != 1 || sec.MaxPrice != 99 || len(sec.Payoffs) != 2 {
		t.Fatalf("unexpected security: %+v", sec)
	}
}
