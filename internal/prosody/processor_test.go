package prosody

import (
	"context"
	"errors"
	"testing"
)

func TestProcessor_RuleBasedRoundTrip(t *testing.T) {
	reg := NewDefaultRegistry()
	pr, err := NewProcessor(reg, "rule-based", Config{})
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	res, err := pr.Analyze(context.Background(), "Hello, world!", DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Method != "rule-based" {
		t.Errorf("Method = %q", res.Method)
	}
	if pr.ProviderInfo().Name != "rule-based" {
		t.Errorf("ProviderInfo().Name = %q", pr.ProviderInfo().Name)
	}
	if names := pr.ListProviders(); len(names) != 3 {
		t.Errorf("ListProviders() = %v", names)
	}
}

func TestProcessor_UnknownProviderFailsFast(t *testing.T) {
	reg := NewDefaultRegistry()
	_, err := NewProcessor(reg, "nope", Config{})
	var upe *UnknownProviderError
	if !errors.As(err, &upe) {
		t.Fatalf("error %T, want *UnknownProviderError", err)
	}
}

func TestProcessor_InvalidConfigFailsFast(t *testing.T) {
	reg := NewDefaultRegistry()
	// openai without an API key must fail at construction time, not on the
	// first analyze.
	_, err := NewProcessor(reg, "openai", Config{})
	if err == nil {
		t.Fatal("missing API key accepted")
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error %T, want *ConfigError", err)
	}
}

func TestProcessor_BatchAndStream(t *testing.T) {
	reg := NewDefaultRegistry()
	pr, err := NewProcessor(reg, "rule-based", Config{})
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	res, err := pr.BatchAnalyze(context.Background(), "One here. Two here.", DefaultOptions(), ChunkOptions{ChunkSize: 2})
	if err != nil {
		t.Fatalf("BatchAnalyze: %v", err)
	}
	if len(res.Words) != 4 {
		t.Errorf("got %d words, want 4", len(res.Words))
	}

	stream, err := pr.StreamAnalyze(context.Background(), "One here. Two here.", DefaultOptions())
	if err != nil {
		t.Fatalf("StreamAnalyze: %v", err)
	}
	if w, err := stream.Next(); err != nil || w.Text != "One" {
		t.Errorf("first streamed word = %v, %v", w, err)
	}
}
