package prosody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ProviderKokoroTTS is the registry name of the TTS-timing provider.
const ProviderKokoroTTS = "kokoro-tts"

const (
	kokoroDefaultURL     = "http://localhost:8880"
	kokoroDefaultVoice   = "af_heart"
	kokoroDefaultSpeed   = 1.0
	kokoroDefaultTimeout = 2 * time.Minute
	kokoroTimingPath     = "/v1/timing"
)

// Kokoro extracts natural word timing from a Kokoro TTS timing server. The
// server runs the model's duration predictor without synthesizing audio; the
// predicted per-word durations are mapped onto pause/emphasis values relative
// to the caller's base reading speed.
type Kokoro struct {
	baseURL       string
	voice         string
	speed         float64
	maxTextLength int
	client        *http.Client
	log           zerolog.Logger
}

// NewKokoro creates a Kokoro timing client. BaseURL, Voice, Speed, Timeout
// and MaxTextLength are read from cfg.
func NewKokoro(cfg Config) *Kokoro {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = kokoroDefaultURL
	}
	voice := cfg.Voice
	if voice == "" {
		voice = kokoroDefaultVoice
	}
	speed := cfg.Speed
	if speed == 0 {
		speed = kokoroDefaultSpeed
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = kokoroDefaultTimeout
	}
	maxLen := cfg.MaxTextLength
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLength
	}
	return &Kokoro{
		baseURL:       strings.TrimRight(baseURL, "/"),
		voice:         voice,
		speed:         speed,
		maxTextLength: maxLen,
		client:        &http.Client{Timeout: timeout},
		log:           cfg.Log.With().Str("provider", ProviderKokoroTTS).Logger(),
	}
}

// Name returns the provider identifier.
func (k *Kokoro) Name() string { return ProviderKokoroTTS }

// ValidateConfig fails when no server URL is configured.
func (k *Kokoro) ValidateConfig() error {
	if k.baseURL == "" {
		return &ConfigError{Provider: ProviderKokoroTTS, Reason: "timing server URL required (set KOKORO_URL)"}
	}
	return nil
}

// Capabilities describes the TTS-timing provider.
func (k *Kokoro) Capabilities() Capabilities {
	return Capabilities{
		Name:              ProviderKokoroTTS,
		RequiresNetwork:   true,
		SupportsStreaming: true,
		MaxTextLength:     k.maxTextLength,
		AccuracyRating:    5,
	}
}

// kokoroRequest is the JSON body sent to the timing endpoint.
type kokoroRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// kokoroResponse is the JSON response from the timing endpoint.
type kokoroResponse struct {
	Model string       `json:"model"`
	Words []kokoroWord `json:"words"`
}

// kokoroWord is one word with predicted speech timing.
type kokoroWord struct {
	Text    string  `json:"text"`
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
}

// Analyze sends text to the timing server and converts predicted durations
// into prosody values scaled by the caller's sensitivity.
func (k *Kokoro) Analyze(ctx context.Context, text string, opts AnalysisOptions) (*Result, error) {
	start := time.Now()

	if err := validateText(text, k.maxTextLength); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	text = PreprocessText(text)
	tokens := Tokenize(text)

	resp, err := k.requestTiming(ctx, text)
	if err != nil {
		return nil, err
	}

	words := k.mergeTiming(tokens, resp.Words, opts)

	model := resp.Model
	if model == "" {
		model = "kokoro-82m"
	}
	return &Result{
		Version:  ResultVersion,
		Method:   ProviderKokoroTTS,
		Metadata: ComputeMetadata(words, time.Since(start), model),
		Words:    words,
	}, nil
}

// requestTiming posts text to the timing endpoint and decodes the response.
func (k *Kokoro) requestTiming(ctx context.Context, text string) (*kokoroResponse, error) {
	payload, err := json.Marshal(kokoroRequest{Text: text, Voice: k.voice, Speed: k.speed})
	if err != nil {
		return nil, fmt.Errorf("marshal timing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+kokoroTimingPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kokoro request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kokoro API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result kokoroResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// mergeTiming pairs predicted word durations with local token positions.
// Words the server did not time fall back to the uniform base delay.
func (k *Kokoro) mergeTiming(tokens []Token, timed []kokoroWord, opts AnalysisOptions) []Word {
	baseDelay := opts.BaseDelay()
	words := make([]Word, 0, len(tokens))

	for i, tok := range tokens {
		durationMs := baseDelay
		if i < len(timed) {
			if d := int(timed[i].EndMs - timed[i].StartMs); d > 0 {
				durationMs = d
			}
		}

		clean := StripPunctuation(tok.Text)
		words = append(words, Word{
			Text:       tok.Text,
			Index:      i,
			Start:      tok.Start,
			End:        tok.End,
			PivotIndex: PivotIndex(clean),
			BaseDelay:  durationMs,
			Prosody:    timingToProsody(tok.Text, durationMs, baseDelay, opts.Sensitivity),
		})
	}
	return words
}

// timingToProsody converts a predicted duration into prosody values. The
// duration ratio against the uniform base delay drives pause and emphasis;
// trailing punctuation drives pauseAfter and tone. Exclamations vary too much
// in natural speech to commit to a falling tone here, unlike the rule-based
// engine.
func timingToProsody(text string, durationMs, baseDelay int, sensitivity float64) ProsodyData {
	pause := 1.0
	if baseDelay > 0 {
		pause = float64(durationMs) / float64(baseDelay)
	}
	pause = 1.0 + (pause-1.0)*sensitivity

	var emphasis Emphasis
	switch {
	case pause > 1.5:
		emphasis = EmphasisHigh
	case pause > 1.2:
		emphasis = EmphasisMedium
	case pause > 1.05:
		emphasis = EmphasisLow
	default:
		emphasis = EmphasisNone
	}

	pauseAfter := 0
	tone := ToneNeutral
	switch {
	case strings.HasSuffix(text, "?"):
		pauseAfter = int(float64(baseDelay) * 0.5 * sensitivity)
		tone = ToneRising
	case strings.HasSuffix(text, "!"):
		pauseAfter = int(float64(baseDelay) * 0.5 * sensitivity)
	case strings.HasSuffix(text, "."):
		pauseAfter = int(float64(baseDelay) * 0.5 * sensitivity)
		tone = ToneFalling
	case strings.HasSuffix(text, ",") || strings.HasSuffix(text, ";") || strings.HasSuffix(text, ":"):
		pauseAfter = int(float64(baseDelay) * 0.3 * sensitivity)
	case strings.HasSuffix(text, "—") || strings.HasSuffix(text, "…") || strings.HasSuffix(text, "-"):
		pauseAfter = int(float64(baseDelay) * 0.4 * sensitivity)
	}

	p := ProsodyData{Pause: pause, PauseAfter: pauseAfter, Emphasis: emphasis, Tone: tone}
	p.Clamp()
	return p
}
