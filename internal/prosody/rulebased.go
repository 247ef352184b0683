package prosody

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ProviderRuleBased is the registry name of the rule-based engine.
const ProviderRuleBased = "rule-based"

const ruleBasedModelTag = "rule-based-v1.0"

// punctuationPauses maps a trailing punctuation character to its pause
// multiplier before sensitivity scaling.
var punctuationPauses = map[rune]float64{
	'.': 2.5,
	'!': 2.5,
	'?': 2.5,
	';': 2.0,
	':': 1.8,
	',': 1.5,
	'—': 1.5,
	'-': 1.3,
	'…': 2.0,
}

// RuleBased assigns prosody from punctuation, casing, word length and
// inter-token gaps. It needs no network, credentials or files, and its output
// is a pure function of (text, wpm, sensitivity).
type RuleBased struct {
	maxTextLength int
	log           zerolog.Logger
}

// NewRuleBased creates a rule-based provider. Only MaxTextLength and Log are
// read from cfg.
func NewRuleBased(cfg Config) *RuleBased {
	maxLen := cfg.MaxTextLength
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLength
	}
	return &RuleBased{
		maxTextLength: maxLen,
		log:           cfg.Log.With().Str("provider", ProviderRuleBased).Logger(),
	}
}

// Name returns the provider identifier.
func (rb *RuleBased) Name() string { return ProviderRuleBased }

// ValidateConfig never fails for the rule-based engine.
func (rb *RuleBased) ValidateConfig() error { return nil }

// Capabilities describes the rule-based engine.
func (rb *RuleBased) Capabilities() Capabilities {
	return Capabilities{
		Name:             ProviderRuleBased,
		MaxTextLength:    rb.maxTextLength,
		Offline:          true,
		CostPer100KWords: 0.001,
		AccuracyRating:   3,
	}
}

// Analyze tokenizes text and assigns per-word timing and prosody.
func (rb *RuleBased) Analyze(_ context.Context, text string, opts AnalysisOptions) (*Result, error) {
	start := time.Now()

	if err := validateText(text, rb.maxTextLength); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	text = PreprocessText(text)
	tokens := Tokenize(text)

	words := make([]Word, 0, len(tokens))
	for i := range tokens {
		words = append(words, rb.analyzeWord(tokens, i, opts))
	}

	rb.log.Debug().
		Int("words", len(words)).
		Int("wpm", opts.WPM).
		Float64("sensitivity", opts.Sensitivity).
		Msg("rule-based analysis complete")

	return &Result{
		Version:  ResultVersion,
		Method:   ProviderRuleBased,
		Metadata: ComputeMetadata(words, time.Since(start), ruleBasedModelTag),
		Words:    words,
	}, nil
}

// analyzeWord derives one Word from token i. Rule ordering matters: the
// punctuation pass sets pause/pauseAfter/tone, the caps check may raise
// emphasis to high, then quote and asterisk markers overwrite emphasis
// unconditionally, in that order.
func (rb *RuleBased) analyzeWord(tokens []Token, i int, opts AnalysisOptions) Word {
	tok := tokens[i]
	baseDelay := opts.BaseDelay()
	clean := StripPunctuation(tok.Text)

	prosody := ProsodyData{
		Pause:    1.0,
		Emphasis: EmphasisNone,
		Tone:     ToneNeutral,
	}

	if p := TrailingPunctuation(tok.Text); p != 0 && opts.Sensitivity > 0 {
		mult, ok := punctuationPauses[p]
		if !ok {
			mult = 1.0
		}
		prosody.Pause = 1.0 + (mult-1.0)*opts.Sensitivity
		prosody.PauseAfter = int(float64(baseDelay) * (mult - 1.0) * 0.5)

		switch p {
		case '?':
			prosody.Tone = ToneRising
		case '.', '!':
			prosody.Tone = ToneFalling
		}
	}

	cleanLen := len([]rune(clean))
	if cleanLen > 2 && isAllUpper(clean) {
		prosody.Emphasis = EmphasisHigh
		prosody.Pause *= 1.2
	}

	// Longer words get slightly more display time. The thresholds do not
	// overlap: a >15 word never takes the >10 bonus as well.
	if cleanLen > 15 {
		prosody.Pause *= 1.2
	} else if cleanLen > 10 {
		prosody.Pause *= 1.1
	}

	// A gap wider than a single separating space between adjacent tokens
	// signals a likely paragraph break.
	if i > 0 && tok.Start-tokens[i-1].End > 2 {
		prosody.PauseAfter += baseDelay
	}

	if strings.HasPrefix(tok.Text, `"`) || strings.HasPrefix(tok.Text, "'") {
		prosody.Emphasis = EmphasisMedium
	}
	if strings.HasPrefix(tok.Text, "*") && strings.HasSuffix(tok.Text, "*") {
		prosody.Emphasis = EmphasisMedium
	}

	prosody.Clamp()

	return Word{
		Text:       tok.Text,
		Index:      i,
		Start:      tok.Start,
		End:        tok.End,
		PivotIndex: PivotIndex(clean),
		BaseDelay:  baseDelay,
		Prosody:    prosody,
	}
}

// isAllUpper reports whether s contains at least one letter and no lowercase
// letters.
func isAllUpper(s string) bool {
	return s != strings.ToLower(s) && s == strings.ToUpper(s)
}
