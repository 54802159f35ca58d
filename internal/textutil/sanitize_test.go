package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"demo_ratings.csv", "demo_ratings.csv"},
		{" a/b:c*d?.csv ", "a-b-c-d.csv"},
		{"<\"quoted\">", "quoted"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileTokenKeepsSafeIdentifiers(t *testing.T) {
	for _, in := range []string{"P-42", "demo_study", "participant.7"} {
		if got := FileToken(in); got != in {
			t.Errorf("FileToken(%q) = %q, want unchanged", in, got)
		}
	}
	if got := FileToken(""); got != "unknown" {
		t.Errorf("FileToken(empty) = %q", got)
	}
}

func TestFileTokenDisambiguatesSanitizedValues(t *testing.T) {
	a := FileToken("anna/b")
	b := FileToken("anna:b")
	if a == b {
		t.Fatalf("expected distinct tokens, both %q", a)
	}
	if a == "anna_b" || len(a) <= len("anna_b") {
		t.Fatalf("expected hash suffix, got %q", a)
	}
	if got := FileToken("../.."); got == "" || got == ".." {
		t.Fatalf("expected traversal to be neutralized, got %q", got)
	}
}
