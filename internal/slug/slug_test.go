package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Go 1.25 -- Release Notes!  ", "go-1-25-release-notes"},
		{"already-a-slug", "already-a-slug"},
		{"Café au lait", "caf-au-lait"},
		{"日本語のみ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Make(tt.in); got != tt.want {
			t.Errorf("Make(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMake_ResultIsValid(t *testing.T) {
	for _, in := range []string{"A B C", "--x--", "Tutorial #1: Setup", "x"} {
		if got := Make(in); !Valid(got) {
			t.Errorf("Make(%q) = %q is not a valid slug", in, got)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"hello-world", true},
		{"a1", true},
		{"Hello", false},
		{"-lead", false},
		{"trail-", false},
		{"double--dash", false},
		{"with space", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
