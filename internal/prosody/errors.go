package prosody

import (
	"fmt"
	"strings"
)

// InputError reports invalid analysis input: empty or whitespace-only text,
// text exceeding the provider's maximum length, or out-of-range options.
// Input errors are surfaced to the caller and never retried.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

// ConfigError reports a provider that cannot run as configured: missing
// credentials, unreachable resources, bad option values. Raised fail-fast at
// construction or first ValidateConfig, never silently defaulted.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q: %s", e.Provider, e.Reason)
}

// UnknownProviderError reports a registry lookup miss. It lists the
// registered names so callers can correct the request.
type UnknownProviderError struct {
	Name      string
	Available []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %q. Available providers: %s",
		e.Name, strings.Join(e.Available, ", "))
}

// validateText enforces the non-empty and maximum-length input rules shared
// by every provider.
func validateText(text string, maxLen int) error {
	if strings.TrimSpace(text) == "" {
		return &InputError{Reason: "text cannot be empty"}
	}
	if maxLen > 0 && len(text) > maxLen {
		return &InputError{Reason: fmt.Sprintf("text length (%d) exceeds maximum (%d)", len(text), maxLen)}
	}
	return nil
}
