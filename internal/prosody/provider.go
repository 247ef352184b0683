package prosody

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxTextLength caps a single analyze call unless the provider is
// configured otherwise.
const DefaultMaxTextLength = 500000

// Provider is the interface every prosody timing source implements.
//
// Analyze returns exactly one Result per call. It fails with an InputError
// for empty/oversized text and a ConfigError when required credentials or
// resources are absent. Externally-backed providers apply their own
// timeout/retry policy before surfacing a failure.
type Provider interface {
	Analyze(ctx context.Context, text string, opts AnalysisOptions) (*Result, error)
	// Name is the stable identifier used for registry lookup and as the
	// Result.Method field.
	Name() string
	// ValidateConfig is called once before the first Analyze and returns a
	// ConfigError when the provider cannot run.
	ValidateConfig() error
	Capabilities() Capabilities
}

// Capabilities describes what a provider needs and supports. Providers may
// extend the base fields with cost/accuracy/offline metadata.
type Capabilities struct {
	Name              string  `json:"name"`
	RequiresNetwork   bool    `json:"requires_network"`
	RequiresAPIKey    bool    `json:"requires_api_key"`
	SupportsStreaming bool    `json:"supports_streaming"`
	MaxTextLength     int     `json:"max_text_length"`
	Offline           bool    `json:"offline"`
	CostPer100KWords  float64 `json:"cost_per_100k_words"`
	AccuracyRating    int     `json:"accuracy_rating,omitempty"`
}

// Config carries construction options for any provider. Each provider reads
// the fields it understands and ignores the rest; zero values mean "use the
// provider default".
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Voice       string
	Speed       float64
	Timeout     time.Duration
	// MaxTextLength overrides DefaultMaxTextLength when > 0.
	MaxTextLength int
	Log           zerolog.Logger
}

// PreprocessText is the default text normalization applied before analysis:
// all whitespace runs collapse to single spaces and the ends are trimmed.
func PreprocessText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
