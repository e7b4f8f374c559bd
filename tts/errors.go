package tts

import (
	"fmt"
	"strings"
)

// SynthesisError reports a single provider's failure to produce audio.
type SynthesisError struct {
	Provider string
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s synthesis failed: %v", e.Provider, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// ProviderFailure pairs a provider name with its last error, for diagnostics.
type ProviderFailure struct {
	Provider string
	Err      error
}

// AllProvidersError means every configured provider was tried and failed.
type AllProvidersError struct {
	Failures []ProviderFailure
}

func (e *AllProvidersError) Error() string {
	if len(e.Failures) == 0 {
		return "no speech providers configured"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Provider, f.Err))
	}
	return "all speech providers failed: " + strings.Join(parts, "; ")
}
