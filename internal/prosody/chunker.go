package prosody

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
)

// DefaultChunkSize is the word budget per chunk for batch analysis.
const DefaultChunkSize = 500

// ChunkOptions configures batch and streaming analysis.
type ChunkOptions struct {
	// ChunkSize is the maximum tokenized word count per chunk. Sentences are
	// never split across chunks, so a single oversized sentence still forms
	// one chunk.
	ChunkSize int
	// Workers bounds concurrent chunk analyses in batch mode. <= 1 runs
	// strictly sequentially. Concatenation is always in input order.
	Workers int
}

func (c ChunkOptions) normalized() ChunkOptions {
	if c.ChunkSize < 1 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+\s+`)

// SplitSentences splits text on runs of sentence-ending punctuation followed
// by whitespace, keeping the punctuation with the preceding sentence. A
// trailing fragment without terminal punctuation becomes its own sentence;
// empty fragments are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	prev := 0
	for _, m := range sentenceEndRe.FindAllStringIndex(text, -1) {
		// m[1] includes the separating whitespace; the sentence ends at the
		// last punctuation character.
		end := m[1]
		for end > m[0] && isSpaceByte(text[end-1]) {
			end--
		}
		if s := strings.TrimSpace(text[prev:end]); s != "" {
			sentences = append(sentences, s)
		}
		prev = m[1]
	}
	if s := strings.TrimSpace(text[prev:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// buildChunks packs whole sentences into chunks of at most size words. The
// sentence that would overflow a chunk starts the next one.
func buildChunks(sentences []string, size int) []string {
	var chunks []string
	var current []string
	wordCount := 0

	for _, sentence := range sentences {
		n := len(Tokenize(sentence))
		if wordCount+n > size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			wordCount = 0
		}
		current = append(current, sentence)
		wordCount += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// ChunkCount reports how many chunks BatchAnalyze would process text in.
func ChunkCount(text string, size int) int {
	if size < 1 {
		size = DefaultChunkSize
	}
	return len(buildChunks(SplitSentences(text), size))
}

// BatchAnalyze processes long text through p one sentence-bounded chunk at a
// time and concatenates the per-chunk words into a single re-indexed Result.
// The first chunk failure aborts the remaining chunks; no partial result is
// returned.
//
// Known divergence from a single unchunked pass: the first word of every
// chunk after the first is re-tokenized from offset 0 and therefore never
// receives the inter-token paragraph-gap bonus it would have gotten with the
// full text in view.
func BatchAnalyze(ctx context.Context, p Provider, text string, opts AnalysisOptions, copts ChunkOptions) (*Result, error) {
	start := time.Now()
	copts = copts.normalized()

	if err := validateText(text, 0); err != nil {
		return nil, err
	}

	chunks := buildChunks(SplitSentences(text), copts.ChunkSize)
	results := make([]*Result, len(chunks))

	if copts.Workers == 1 || len(chunks) == 1 {
		for i, chunk := range chunks {
			res, err := p.Analyze(ctx, chunk, opts)
			if err != nil {
				return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			results[i] = res
		}
	} else if err := analyzeConcurrent(ctx, p, chunks, opts, copts.Workers, results); err != nil {
		return nil, err
	}

	var words []Word
	model := ""
	for _, res := range results {
		words = append(words, res.Words...)
		model = res.Metadata.Model
	}
	// Each chunk restarted indexing at 0; overwrite with dense global indexes.
	for i := range words {
		words[i].Index = i
	}

	return &Result{
		Version:  ResultVersion,
		Method:   p.Name(),
		Metadata: ComputeMetadata(words, time.Since(start), model),
		Words:    words,
	}, nil
}

// analyzeConcurrent fans chunks out to a bounded worker pool. Results land in
// input-order slots; the first error cancels the remaining work.
func analyzeConcurrent(ctx context.Context, p Provider, chunks []string, opts AnalysisOptions, workers int, results []*Result) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type job struct {
		idx   int
		chunk string
	}
	jobs := make(chan job)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := p.Analyze(ctx, j.chunk, opts)
				if err != nil {
					select {
					case errCh <- fmt.Errorf("chunk %d/%d: %w", j.idx+1, len(chunks), err):
					default:
					}
					cancel()
					return
				}
				results[j.idx] = res
			}
		}()
	}

feed:
	for i, chunk := range chunks {
		select {
		case jobs <- job{idx: i, chunk: chunk}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Stream yields Words one at a time as sentences are analyzed. It is a lazy,
// single-pass, non-restartable sequence: the caller drives consumption and
// simply stops calling Next to cancel.
type Stream struct {
	ctx       context.Context
	provider  Provider
	opts      AnalysisOptions
	sentences []string
	next      int // next sentence to analyze

	buf       []Word
	pos       int
	nextIndex int
	model     string
	err       error
}

// StreamAnalyze prepares an incremental analysis of text. Words carry a
// strictly increasing global index assigned as they are produced.
func StreamAnalyze(ctx context.Context, p Provider, text string, opts AnalysisOptions) (*Stream, error) {
	if err := validateText(text, 0); err != nil {
		return nil, err
	}
	return &Stream{
		ctx:       ctx,
		provider:  p,
		opts:      opts,
		sentences: SplitSentences(text),
	}, nil
}

// Next returns the next word, io.EOF when the input is exhausted, or the
// first analysis error. After a non-nil error every subsequent call returns
// the same error.
func (s *Stream) Next() (*Word, error) {
	if s.err != nil {
		return nil, s.err
	}
	for s.pos >= len(s.buf) {
		if s.next >= len(s.sentences) {
			s.err = io.EOF
			return nil, s.err
		}
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return nil, s.err
		}
		sentence := s.sentences[s.next]
		s.next++
		res, err := s.provider.Analyze(s.ctx, sentence, s.opts)
		if err != nil {
			s.err = fmt.Errorf("sentence %d/%d: %w", s.next, len(s.sentences), err)
			return nil, s.err
		}
		s.buf = res.Words
		s.pos = 0
		s.model = res.Metadata.Model
	}
	w := s.buf[s.pos]
	s.pos++
	w.Index = s.nextIndex
	s.nextIndex++
	return &w, nil
}

// Model reports the model tag of the most recently analyzed sentence, empty
// before the first word is produced.
func (s *Stream) Model() string { return s.model }
