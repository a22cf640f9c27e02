package otp

import "testing"

func TestGenerateShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != Length {
			t.Fatalf("expected %d digits, got %q", Length, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected varied codes, got %d distinct", len(seen))
	}
}

func TestMatches(t *testing.T) {
	if !Matches("4821", "4821") {
		t.Fatal("equal codes must match")
	}
	if Matches("4821", "0000") {
		t.Fatal("different codes must not match")
	}
	if Matches("4821", "48211") {
		t.Fatal("length mismatch must not match")
	}
	if Matches("", "") {
		t.Fatal("empty codes must not match")
	}
}
