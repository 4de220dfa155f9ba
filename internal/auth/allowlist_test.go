package auth

import (
	"math/rand"
	"testing"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		entries []string
		want    bool
	}{
		{"exact match is case-insensitive", "User@Example.com", []string{"user@example.com"}, true},
		{"entry is normalized too", "user@example.com", []string{"  USER@example.com "}, true},
		{"input whitespace is trimmed", "  user@example.com\t", []string{"user@example.com"}, true},
		{"domain match", "a@example.com", []string{"@example.com"}, true},
		{"subdomain does not match domain entry", "a@sub.example.com", []string{"@example.com"}, false},
		{"suffix lookalike does not match", "a@badexample.com", []string{"@example.com"}, false},
		{"not listed", "stranger@example.net", []string{"user@example.com", "@example.com"}, false},
		{"empty email denied", "", []string{"", "@"}, false},
		{"empty allowlist denies", "user@example.com", nil, false},
		{"no at sign", "example.com", []string{"@example.com"}, false},
		{"bare domain entry without at does not match", "a@example.com", []string{"example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			al := NewAllowlist(tt.entries)
			if got := IsAllowed(tt.email, al); got != tt.want {
				t.Errorf("IsAllowed(%q, %v) = %v, want %v", tt.email, tt.entries, got, tt.want)
			}
		})
	}
}

func TestIsAllowed_OrderIndependentAndDeterministic(t *testing.T) {
	entries := []string{"owner@example.com", "@example.org", "friend@example.net", "@corp.example"}
	emails := []string{
		"owner@example.com", "OWNER@EXAMPLE.COM", "x@example.org", "x@sub.example.org",
		"friend@example.net", "enemy@example.net", "a@corp.example", "", "nobody",
	}

	base := NewAllowlist(entries)
	want := make(map[string]bool, len(emails))
	for _, e := range emails {
		want[e] = IsAllowed(e, base)
	}

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), entries...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		al := NewAllowlist(shuffled)

		for _, e := range emails {
			if got := IsAllowed(e, al); got != want[e] {
				t.Fatalf("IsAllowed(%q) changed with entry order %v: got %v, want %v", e, shuffled, got, want[e])
			}
			if got := IsAllowed(e, al); got != want[e] {
				t.Fatalf("IsAllowed(%q) not stable across repeated calls", e)
			}
		}
	}
}

func TestParseAllowlist(t *testing.T) {
	al := ParseAllowlist("a@example.com, @Example.org,,")

	if len(al) != 2 {
		t.Fatalf("len = %d, want 2", len(al))
	}
	if !al.Contains("A@example.com") {
		t.Error("expected exact entry to be allowed")
	}
	if !al.Contains("b@example.org") {
		t.Error("expected domain entry to be allowed")
	}
}
