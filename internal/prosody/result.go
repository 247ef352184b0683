package prosody

import (
	"math"
	"time"
)

// ResultVersion is the format version stamped on every Result.
const ResultVersion = "1.0"

// Emphasis is the stress level assigned to a word.
type Emphasis string

const (
	EmphasisNone   Emphasis = "none"
	EmphasisLow    Emphasis = "low"
	EmphasisMedium Emphasis = "medium"
	EmphasisHigh   Emphasis = "high"
)

// ParseEmphasis maps a raw provider value to an Emphasis, degrading unknown
// values to EmphasisNone rather than failing the analysis.
func ParseEmphasis(s string) Emphasis {
	switch Emphasis(s) {
	case EmphasisLow, EmphasisMedium, EmphasisHigh:
		return Emphasis(s)
	default:
		return EmphasisNone
	}
}

// Tone is the intonation pattern assigned to a word.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneRising  Tone = "rising"
	ToneFalling Tone = "falling"
)

// ParseTone maps a raw provider value to a Tone, degrading unknown values to
// ToneNeutral.
func ParseTone(s string) Tone {
	switch Tone(s) {
	case ToneRising, ToneFalling:
		return Tone(s)
	default:
		return ToneNeutral
	}
}

// Pause and PauseAfter domains. Every ProsodyData attached to a Word is
// clamped to these before use.
const (
	MinPause      = 0.5
	MaxPause      = 5.0
	MaxPauseAfter = 2000
)

// ProsodyData holds the per-word prosodic attributes.
type ProsodyData struct {
	// Pause multiplies the base display duration. 1.0 = normal.
	Pause float64 `json:"pause"`
	// PauseAfter is extra display time in milliseconds after the word.
	PauseAfter int      `json:"pauseAfter"`
	Emphasis   Emphasis `json:"emphasis"`
	Tone       Tone     `json:"tone"`
	// Pitch (Hz) and Loudness (dB) are provider-specific and unset unless
	// the backing model produced them.
	Pitch    *float64 `json:"pitch,omitempty"`
	Loudness *float64 `json:"loudness,omitempty"`
}

// Clamp forces every field into its declared domain: Pause and PauseAfter
// into their numeric ranges, empty or unknown enum values to the defaults.
func (p *ProsodyData) Clamp() {
	if p.Pause < MinPause {
		p.Pause = MinPause
	}
	if p.Pause > MaxPause {
		p.Pause = MaxPause
	}
	if p.PauseAfter < 0 {
		p.PauseAfter = 0
	}
	if p.PauseAfter > MaxPauseAfter {
		p.PauseAfter = MaxPauseAfter
	}
	p.Emphasis = ParseEmphasis(string(p.Emphasis))
	p.Tone = ParseTone(string(p.Tone))
}

// Word is one display unit of an analysis result. Words are value objects:
// created once and never mutated afterwards, except that batch/stream
// assembly overwrites Index while re-indexing across chunk boundaries.
type Word struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	// PivotIndex is the recommended fixation offset into the
	// punctuation-stripped word.
	PivotIndex int `json:"pivotIndex"`
	// BaseDelay is the uniform per-word display time in ms (60000/WPM).
	BaseDelay int         `json:"baseDelay"`
	Prosody   ProsodyData `json:"prosody"`
}

// ProcessingMetadata summarizes an analysis. It is always recomputed from the
// final word sequence, never hand-authored.
type ProcessingMetadata struct {
	WordCount     int     `json:"wordCount"`
	AvgWordLength float64 `json:"avgWordLength"`
	TotalPauses   int     `json:"totalPauses"`
	EmphasisCount int     `json:"emphasisCount"`
	// ProcessingTime is elapsed wall time in seconds.
	ProcessingTime float64 `json:"processingTime"`
	Model          string  `json:"model,omitempty"`
}

// ComputeMetadata derives metadata from a finished word sequence.
func ComputeMetadata(words []Word, elapsed time.Duration, model string) ProcessingMetadata {
	total := 0
	pauses := 0
	emphasized := 0
	for _, w := range words {
		total += len([]rune(StripPunctuation(w.Text)))
		if w.Prosody.PauseAfter > 0 {
			pauses++
		}
		if ParseEmphasis(string(w.Prosody.Emphasis)) != EmphasisNone {
			emphasized++
		}
	}
	avg := 0.0
	if len(words) > 0 {
		avg = round(float64(total)/float64(len(words)), 2)
	}
	return ProcessingMetadata{
		WordCount:      len(words),
		AvgWordLength:  avg,
		TotalPauses:    pauses,
		EmphasisCount:  emphasized,
		ProcessingTime: round(elapsed.Seconds(), 4),
		Model:          model,
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// Analysis option domains and defaults.
const (
	MinWPM             = 100
	MaxWPM             = 1000
	DefaultWPM         = 300
	DefaultSensitivity = 0.7
)

// AnalysisOptions are the per-call knobs shared by all providers. Immutable
// for the duration of an analyze call.
type AnalysisOptions struct {
	// WPM is the target words-per-minute base reading speed.
	WPM int `json:"wpm"`
	// Sensitivity in [0,1] scales how strongly punctuation and structure
	// perturb the uniform base timing.
	Sensitivity float64 `json:"sensitivity"`
	// Model selects a provider-specific model; empty means the provider
	// default.
	Model string `json:"model,omitempty"`
	// Temperature and MaxTokens apply to LLM-backed providers only.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// DefaultOptions returns AnalysisOptions with the documented defaults.
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{WPM: DefaultWPM, Sensitivity: DefaultSensitivity}
}

// Validate checks the option domains.
func (o AnalysisOptions) Validate() error {
	if o.WPM < MinWPM || o.WPM > MaxWPM {
		return &InputError{Reason: "wpm out of range [100,1000]"}
	}
	if o.Sensitivity < 0 || o.Sensitivity > 1 {
		return &InputError{Reason: "sensitivity out of range [0.0,1.0]"}
	}
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 2) {
		return &InputError{Reason: "temperature out of range [0.0,2.0]"}
	}
	if o.MaxTokens < 0 {
		return &InputError{Reason: "max_tokens must be > 0"}
	}
	return nil
}

// BaseDelay returns the uniform per-word display time in milliseconds.
func (o AnalysisOptions) BaseDelay() int {
	return 60000 / o.WPM
}

// Result is the sole artifact of a successful analysis. The caller owns it
// after return; it has no further lifecycle.
type Result struct {
	Version  string             `json:"version"`
	Method   string             `json:"method"`
	Metadata ProcessingMetadata `json:"metadata"`
	Words    []Word             `json:"words"`
}
