package prosody

import (
	"strings"
	"testing"
)

func TestTokenize_MatchesFieldCount(t *testing.T) {
	inputs := []string{
		"Hello, world!",
		"one",
		"  leading and trailing  ",
		"tabs\tand\nnewlines mixed   with spaces",
		"punctuation... everywhere! right? yes.",
	}
	for _, input := range inputs {
		tokens := Tokenize(input)
		want := len(strings.Fields(input))
		if len(tokens) != want {
			t.Errorf("Tokenize(%q): got %d tokens, want %d", input, len(tokens), want)
		}
	}
}

func TestTokenize_Offsets(t *testing.T) {
	text := "The quick  brown fox."
	tokens := Tokenize(text)
	if len(tokens) != 4 {
		t.Fatalf("got %d tokens, want 4", len(tokens))
	}
	for i, tok := range tokens {
		if text[tok.Start:tok.End] != tok.Text {
			t.Errorf("token %d: offsets [%d,%d) yield %q, want %q",
				i, tok.Start, tok.End, text[tok.Start:tok.End], tok.Text)
		}
		if tok.End-tok.Start != len(tok.Text) {
			t.Errorf("token %d: End-Start = %d, want %d", i, tok.End-tok.Start, len(tok.Text))
		}
		if i > 0 && tokens[i-1].End > tok.Start {
			t.Errorf("token %d overlaps previous: prev.End=%d start=%d", i, tokens[i-1].End, tok.Start)
		}
	}
	// Double space between "quick" and "brown" shows up as a gap of 2.
	if gap := tokens[2].Start - tokens[1].End; gap != 2 {
		t.Errorf("gap = %d, want 2", gap)
	}
}

func TestTokenize_Empty(t *testing.T) {
	if got := Tokenize(""); len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %v, want empty", got)
	}
	if got := Tokenize("   \n\t "); len(got) != 0 {
		t.Errorf("whitespace-only input: got %v, want empty", got)
	}
}

func TestStripPunctuation(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello,", "Hello"},
		{"world!", "world"},
		{`"quoted"`, "quoted"},
		{"it's", "its"},
		{"well-known", "wellknown"},
		{"...", ""},
		{"under_score", "under_score"},
		{"num123", "num123"},
	}
	for _, c := range cases {
		if got := StripPunctuation(c.in); got != c.want {
			t.Errorf("StripPunctuation(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTrailingPunctuation(t *testing.T) {
	cases := []struct {
		in   string
		want rune
	}{
		{"Hello,", ','},
		{"world!", '!'},
		{"wait...", '.'},
		{"really?!", '?'},
		{"done.", '.'},
		{"dash—", '—'},
		{"ellipsis…", '…'},
		{"plain", 0},
		{`"start`, 0},
	}
	for _, c := range cases {
		if got := TrailingPunctuation(c.in); got != c.want {
			t.Errorf("TrailingPunctuation(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPivotIndex_Policy(t *testing.T) {
	cases := []struct {
		word string
		want int
	}{
		{"", 0},
		{"a", 0},
		{"an", 1},
		{"the", 1},
		{"four", 2},
		{"fives", 2},
		{"sixsix", 1}, // floor(6*0.33)
		{"sevens7", 2},
		{"abcdefghij", 3},
	}
	for _, c := range cases {
		if got := PivotIndex(c.word); got != c.want {
			t.Errorf("PivotIndex(%q) = %d, want %d", c.word, got, c.want)
		}
	}
}

func TestPivotIndex_TotalAndInRange(t *testing.T) {
	words := []string{"", "a", "ab", "abc", "abcd", "abcde", "abcdef",
		"supercalifragilistic", strings.Repeat("x", 100)}
	for _, w := range words {
		got := PivotIndex(w)
		upper := len(w)
		if upper < 1 {
			upper = 1
		}
		if got < 0 || got >= upper {
			t.Errorf("PivotIndex(%q) = %d, out of [0,%d)", w, got, upper)
		}
	}
}
