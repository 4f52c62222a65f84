package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Control", "Control"},
		{"trimmed", "  Sample 1 ", "Sample 1"},
		{"slashes", "a/b\\c", "a-b-c"},
		{"removed", `why?"<x>|`, "whyx"},
		{"colon", "t:1", "t-1"},
		{"decomposed", "Cafe\u0301", "Caf\u00e9"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.in); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFoldKey(t *testing.T) {
	if FoldKey(" a1 ") != FoldKey("A1") {
		t.Fatalf("FoldKey should ignore case and surrounding space: %q vs %q", FoldKey(" a1 "), FoldKey("A1"))
	}
	if FoldKey("B2") == FoldKey("B3") {
		t.Fatal("distinct positions must not fold together")
	}
}
