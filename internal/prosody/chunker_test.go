package prosody

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{
			"Hello world. How are you? Fine!",
			[]string{"Hello world.", "How are you?", "Fine!"},
		},
		{
			"One sentence only",
			[]string{"One sentence only"},
		},
		{
			"Wait... what?! Then a fragment without ending",
			[]string{"Wait...", "what?!", "Then a fragment without ending"},
		},
		{
			"Trailing punctuation at the very end.",
			[]string{"Trailing punctuation at the very end."},
		},
		{
			"",
			nil,
		},
	}
	for _, c := range cases {
		got := SplitSentences(c.in)
		if len(got) != len(c.want) {
			t.Errorf("SplitSentences(%q) = %q, want %q", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("SplitSentences(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestBuildChunks_NeverSplitsSentences(t *testing.T) {
	sentences := []string{
		"one two three.",
		"four five six.",
		"seven eight nine.",
	}
	chunks := buildChunks(sentences, 5)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %q", len(chunks), chunks)
	}
	for i, c := range chunks {
		if c != sentences[i] {
			t.Errorf("chunk %d = %q, want %q", i, c, sentences[i])
		}
	}
}

func TestBuildChunks_PacksUpToBudget(t *testing.T) {
	sentences := []string{
		"one two.",
		"three four.",
		"five six.",
	}
	chunks := buildChunks(sentences, 4)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(chunks), chunks)
	}
	if chunks[0] != "one two. three four." {
		t.Errorf("chunk 0 = %q", chunks[0])
	}
	if chunks[1] != "five six." {
		t.Errorf("chunk 1 = %q", chunks[1])
	}
}

func TestBuildChunks_OversizedSentenceStandsAlone(t *testing.T) {
	sentences := []string{"this single sentence has far too many words for the budget."}
	chunks := buildChunks(sentences, 3)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

// syntheticText builds n words grouped into ten-word sentences.
func syntheticText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "word%d", i)
		if i%10 == 9 {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func TestBatchAnalyze_ReindexesDensely(t *testing.T) {
	rb := newTestRuleBased()
	opts := DefaultOptions()
	text := syntheticText(1000)

	res, err := BatchAnalyze(context.Background(), rb, text, opts, ChunkOptions{ChunkSize: 500})
	if err != nil {
		t.Fatalf("BatchAnalyze: %v", err)
	}
	if len(res.Words) != 1000 {
		t.Fatalf("got %d words, want 1000", len(res.Words))
	}
	for i, w := range res.Words {
		if w.Index != i {
			t.Fatalf("word %d has index %d, want %d", i, w.Index, i)
		}
	}
	if res.Method != "rule-based" {
		t.Errorf("Method = %q", res.Method)
	}
	if res.Metadata.WordCount != 1000 {
		t.Errorf("WordCount = %d", res.Metadata.WordCount)
	}
}

func TestBatchAnalyze_MatchesUnchunked(t *testing.T) {
	rb := newTestRuleBased()
	opts := DefaultOptions()
	text := syntheticText(1000)

	batched, err := BatchAnalyze(context.Background(), rb, text, opts, ChunkOptions{ChunkSize: 500})
	if err != nil {
		t.Fatalf("BatchAnalyze: %v", err)
	}
	single, err := rb.Analyze(context.Background(), text, opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(batched.Words) != len(single.Words) {
		t.Fatalf("word counts differ: %d vs %d", len(batched.Words), len(single.Words))
	}
	// Offsets are chunk-local in batch mode and the first word of each later
	// chunk misses the paragraph-gap bonus; text and prosody must otherwise
	// agree word for word. Single-spaced input has no gaps, so even the
	// accepted seam divergence cannot appear here.
	for i := range single.Words {
		b, s := batched.Words[i], single.Words[i]
		if b.Text != s.Text {
			t.Fatalf("word %d text %q vs %q", i, b.Text, s.Text)
		}
		if b.Prosody != s.Prosody {
			t.Errorf("word %d prosody %+v vs %+v", i, b.Prosody, s.Prosody)
		}
		if b.BaseDelay != s.BaseDelay || b.PivotIndex != s.PivotIndex {
			t.Errorf("word %d timing fields differ", i)
		}
	}
}

func TestBatchAnalyze_AssortedChunkSizes(t *testing.T) {
	rb := newTestRuleBased()
	opts := DefaultOptions()
	text := syntheticText(137)

	for _, size := range []int{1, 7, 50, 137, 5000} {
		res, err := BatchAnalyze(context.Background(), rb, text, opts, ChunkOptions{ChunkSize: size})
		if err != nil {
			t.Fatalf("chunk size %d: %v", size, err)
		}
		if len(res.Words) != 137 {
			t.Fatalf("chunk size %d: got %d words", size, len(res.Words))
		}
		for i, w := range res.Words {
			if w.Index != i {
				t.Fatalf("chunk size %d: word %d has index %d", size, i, w.Index)
			}
		}
	}
}

func TestBatchAnalyze_ConcurrentMatchesSequential(t *testing.T) {
	rb := newTestRuleBased()
	opts := DefaultOptions()
	text := syntheticText(400)

	seq, err := BatchAnalyze(context.Background(), rb, text, opts, ChunkOptions{ChunkSize: 40, Workers: 1})
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	conc, err := BatchAnalyze(context.Background(), rb, text, opts, ChunkOptions{ChunkSize: 40, Workers: 4})
	if err != nil {
		t.Fatalf("concurrent: %v", err)
	}
	if len(seq.Words) != len(conc.Words) {
		t.Fatalf("word counts differ: %d vs %d", len(seq.Words), len(conc.Words))
	}
	for i := range seq.Words {
		if seq.Words[i].Text != conc.Words[i].Text || seq.Words[i].Index != conc.Words[i].Index {
			t.Fatalf("word %d differs between sequential and concurrent runs", i)
		}
	}
}

func TestBatchAnalyze_EmptyText(t *testing.T) {
	rb := newTestRuleBased()
	_, err := BatchAnalyze(context.Background(), rb, "  ", DefaultOptions(), ChunkOptions{})
	var ie *InputError
	if !errors.As(err, &ie) {
		t.Fatalf("error %T, want *InputError", err)
	}
}

// failAfterProvider fails on the nth Analyze call.
type failAfterProvider struct {
	*RuleBased
	calls int
	failAt int
}

func (f *failAfterProvider) Analyze(ctx context.Context, text string, opts AnalysisOptions) (*Result, error) {
	f.calls++
	if f.calls == f.failAt {
		return nil, fmt.Errorf("backend exploded")
	}
	return f.RuleBased.Analyze(ctx, text, opts)
}

func TestBatchAnalyze_FirstFailureAborts(t *testing.T) {
	p := &failAfterProvider{RuleBased: newTestRuleBased(), failAt: 2}
	text := syntheticText(100)

	res, err := BatchAnalyze(context.Background(), p, text, DefaultOptions(), ChunkOptions{ChunkSize: 20})
	if err == nil {
		t.Fatal("expected error from failing chunk")
	}
	if res != nil {
		t.Error("partial result returned alongside error")
	}
	if !strings.Contains(err.Error(), "chunk 2/") {
		t.Errorf("error %q does not identify the failed chunk", err)
	}
}

func TestStreamAnalyze_YieldsAllWordsInOrder(t *testing.T) {
	rb := newTestRuleBased()
	text := "First sentence here. Second one follows! Third asks a question? trailing fragment"

	stream, err := StreamAnalyze(context.Background(), rb, text, DefaultOptions())
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}

	var words []Word
	for {
		w, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		words = append(words, *w)
	}

	wantCount := len(strings.Fields(text))
	if len(words) != wantCount {
		t.Fatalf("got %d words, want %d", len(words), wantCount)
	}
	for i, w := range words {
		if w.Index != i {
			t.Errorf("word %d has index %d", i, w.Index)
		}
	}
	if words[0].Text != "First" || words[len(words)-1].Text != "fragment" {
		t.Errorf("unexpected word order: first=%q last=%q", words[0].Text, words[len(words)-1].Text)
	}
	if got := stream.Model(); got != ruleBasedModelTag {
		t.Errorf("Model() = %q, want %q", got, ruleBasedModelTag)
	}

	// Exhausted streams stay exhausted.
	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("Next after EOF = %v, want io.EOF", err)
	}
}

func TestStreamAnalyze_EmptyText(t *testing.T) {
	rb := newTestRuleBased()
	_, err := StreamAnalyze(context.Background(), rb, "", DefaultOptions())
	var ie *InputError
	if !errors.As(err, &ie) {
		t.Fatalf("error %T, want *InputError", err)
	}
}

func TestStreamAnalyze_PropagatesError(t *testing.T) {
	p := &failAfterProvider{RuleBased: newTestRuleBased(), failAt: 2}
	stream, err := StreamAnalyze(context.Background(), p, "First one. Second one. Third one.", DefaultOptions())
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}

	// First sentence streams fine.
	for i := 0; i < 2; i++ {
		if _, err := stream.Next(); err != nil {
			t.Fatalf("word %d: %v", i, err)
		}
	}
	// Second sentence fails and the error sticks.
	if _, err := stream.Next(); err == nil || err == io.EOF {
		t.Fatalf("Next = %v, want provider error", err)
	}
	if _, err := stream.Next(); err == nil || err == io.EOF {
		t.Fatalf("repeated Next = %v, want same error", err)
	}
}

func TestStreamAnalyze_CancelledContext(t *testing.T) {
	rb := newTestRuleBased()
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := StreamAnalyze(ctx, rb, "One here. Two here.", DefaultOptions())
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}
	if _, err := stream.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	cancel()
	// Buffered words from the current sentence still drain; the next
	// sentence boundary observes cancellation.
	for {
		_, err := stream.Next()
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		t.Fatalf("Next = %v, want context.Canceled", err)
	}
}
