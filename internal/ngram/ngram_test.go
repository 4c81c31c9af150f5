package ngram

import "testing"

func TestExtractBasic(t *testing.T) {
	got := Extract("hello", 3)
	want := []string{"hel", "ell", "llo"}
	if len(got) != len(want) {
		t.Fatalf("Extract returned %d n-grams, want %d: %v", len(got), len(want), got)
	}
	for _, w := range want {
		if _, ok := got[w]; !ok {
			t.Errorf("missing n-gram %q", w)
		}
	}
}

func TestExtractShortText(t *testing.T) {
	got := Extract("ab", 5)
	if len(got) != 0 {
		t.Fatalf("Extract(short) = %v, want empty", got)
	}
}

func TestExtractEmpty(t *testing.T) {
	got := Extract("", 5)
	if len(got) != 0 {
		t.Fatalf("Extract(\"\") = %v, want empty", got)
	}
}

func TestExtractUnicodeCodepoints(t *testing.T) {
	// "café" has 4 code points but more than 4 bytes in UTF-8; n-gram
	// extraction must operate on code points, not bytes.
	got := Extract("café", 4)
	if len(got) != 1 {
		t.Fatalf("Extract(café, 4) = %v, want exactly 1 n-gram", got)
	}
	if _, ok := got["café"]; !ok {
		t.Fatalf("Extract(café, 4) = %v, want {café}", got)
	}
}
