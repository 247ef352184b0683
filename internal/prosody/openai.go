package prosody

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// ProviderOpenAI is the registry name of the chat-completion provider.
const ProviderOpenAI = "openai"

const (
	openAIDefaultModel       = "gpt-4o-mini"
	openAIDefaultTemperature = 0.3
	openAIDefaultMaxTokens   = 2000
)

const openAISystemPrompt = "You are an expert in prosody analysis for " +
	"text-to-speech and speed reading applications."

const openAIUserPromptFmt = `Analyze the following text and provide prosody information for each word.

Text: %s

For each word, determine:
1. pause: multiplier on the base reading time (1.0 = normal, 2.5 = long pause)
2. pauseAfter: additional milliseconds to pause after this word (0-500)
3. emphasis: level of stress ("none", "low", "medium", "high")
4. tone: intonation pattern ("neutral", "rising", "falling")

Respond with a JSON array where each element represents a word in order. Only return the JSON array, no other text.

Example format:
[{"text": "word", "pause": 1.0, "pauseAfter": 0, "emphasis": "none", "tone": "neutral"}, ...]`

// OpenAI asks a chat-completion model for per-word prosody and merges the
// response with locally tokenized word positions. The model's raw values are
// treated as untrusted: unknown enums degrade to defaults and numeric fields
// are clamped, so a sloppy response never fails the analysis outright.
type OpenAI struct {
	client        *openai.Client
	apiKey        string
	model         string
	temperature   float64
	maxTokens     int
	maxTextLength int
	log           zerolog.Logger
}

// NewOpenAI creates the chat-completion provider. The API key requirement is
// checked in ValidateConfig, not here, so the registry can still construct an
// instance to report capabilities.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = openAIDefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = openAIDefaultMaxTokens
	}
	maxLen := cfg.MaxTextLength
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLength
	}

	return &OpenAI{
		client:        openai.NewClientWithConfig(clientCfg),
		apiKey:        cfg.APIKey,
		model:         model,
		temperature:   temperature,
		maxTokens:     maxTokens,
		maxTextLength: maxLen,
		log:           cfg.Log.With().Str("provider", ProviderOpenAI).Logger(),
	}, nil
}

// Name returns the provider identifier.
func (o *OpenAI) Name() string { return ProviderOpenAI }

// ValidateConfig fails when no API key is configured.
func (o *OpenAI) ValidateConfig() error {
	if o.apiKey == "" {
		return &ConfigError{Provider: ProviderOpenAI, Reason: "API key required (set OPENAI_API_KEY)"}
	}
	return nil
}

// Capabilities describes the chat-completion provider.
func (o *OpenAI) Capabilities() Capabilities {
	return Capabilities{
		Name:             ProviderOpenAI,
		RequiresNetwork:  true,
		RequiresAPIKey:   true,
		MaxTextLength:    o.maxTextLength,
		CostPer100KWords: 0.15,
		AccuracyRating:   5,
	}
}

// Analyze sends text to the chat model and merges its prosody JSON with
// locally computed token positions, pivot indexes and base delays.
func (o *OpenAI) Analyze(ctx context.Context, text string, opts AnalysisOptions) (*Result, error) {
	start := time.Now()

	if err := validateText(text, o.maxTextLength); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := o.ValidateConfig(); err != nil {
		return nil, err
	}

	text = PreprocessText(text)
	tokens := Tokenize(text)

	model := opts.Model
	if model == "" {
		model = o.model
	}
	temperature := o.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := o.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	raw, err := o.callAPI(ctx, text, model, temperature, maxTokens)
	if err != nil {
		return nil, err
	}

	words := o.mergeResults(tokens, raw, opts)

	return &Result{
		Version:  ResultVersion,
		Method:   ProviderOpenAI,
		Metadata: ComputeMetadata(words, time.Since(start), model),
		Words:    words,
	}, nil
}

// rawProsody is one element of the model's JSON array response.
type rawProsody struct {
	Text       string   `json:"text"`
	Pause      *float64 `json:"pause"`
	PauseAfter *int     `json:"pauseAfter"`
	Emphasis   string   `json:"emphasis"`
	Tone       string   `json:"tone"`
	Pitch      *float64 `json:"pitch"`
	Loudness   *float64 `json:"loudness"`
}

// callAPI performs the chat completion with exponential-backoff retries.
func (o *OpenAI) callAPI(ctx context.Context, text, model string, temperature float64, maxTokens int) ([]rawProsody, error) {
	var result []rawProsody
	err := retryWithBackoff(ctx, 3, time.Second, o.log, func() error {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Temperature: float32(temperature),
			MaxTokens:   maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: openAISystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(openAIUserPromptFmt, text)},
			},
		})
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("chat completion: empty response")
		}
		parsed, err := parseProsodyJSON(resp.Choices[0].Message.Content)
		if err != nil {
			return err
		}
		result = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// parseProsodyJSON extracts the prosody array from a model response,
// tolerating markdown code fences and an enclosing object keyed by
// words/prosody/result/data.
func parseProsodyJSON(content string) ([]rawProsody, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			lines = lines[1 : len(lines)-1]
		}
		content = strings.Join(lines, "\n")
	}

	var arr []rawProsody
	if err := json.Unmarshal([]byte(content), &arr); err == nil {
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	for _, key := range []string{"words", "prosody", "result", "data"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &arr); err == nil {
			return arr, nil
		}
	}
	return nil, fmt.Errorf("model returned JSON with no prosody array")
}

// mergeResults pairs the model's prosody entries with local tokens by
// position. Missing entries and unknown values fall back to safe defaults.
func (o *OpenAI) mergeResults(tokens []Token, raw []rawProsody, opts AnalysisOptions) []Word {
	baseDelay := opts.BaseDelay()
	words := make([]Word, 0, len(tokens))

	for i, tok := range tokens {
		prosody := ProsodyData{Pause: 1.0, Emphasis: EmphasisNone, Tone: ToneNeutral}
		if i < len(raw) {
			r := raw[i]
			if r.Pause != nil {
				prosody.Pause = *r.Pause
			}
			if r.PauseAfter != nil {
				prosody.PauseAfter = *r.PauseAfter
			}
			prosody.Emphasis = ParseEmphasis(strings.ToLower(r.Emphasis))
			prosody.Tone = ParseTone(strings.ToLower(r.Tone))
			prosody.Pitch = r.Pitch
			prosody.Loudness = r.Loudness
		}
		prosody.Clamp()

		clean := StripPunctuation(tok.Text)
		words = append(words, Word{
			Text:       tok.Text,
			Index:      i,
			Start:      tok.Start,
			End:        tok.End,
			PivotIndex: PivotIndex(clean),
			BaseDelay:  baseDelay,
			Prosody:    prosody,
		})
	}
	return words
}

// retryWithBackoff calls fn up to attempts times, doubling the delay between
// tries. The last error is returned; ctx cancellation stops early.
func retryWithBackoff(ctx context.Context, attempts int, base time.Duration, log zerolog.Logger, fn func() error) error {
	var last error
	delay := base
	for attempt := 1; attempt <= attempts; attempt++ {
		last = fn()
		if last == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		log.Warn().Err(last).Int("attempt", attempt).Dur("retry_in", delay).Msg("provider call failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return last
}
