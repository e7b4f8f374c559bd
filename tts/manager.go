package tts

import (
	"context"
	"fmt"
	"log"

	"narravid/config"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Manager orders providers by priority, translates when needed and caches
// synthesized audio. One Manager is constructed at process start and shared
// by every pipeline run; it is safe for concurrent use.
type Manager struct {
	providers      []Provider
	translator     Translator
	sourceLanguage string
	keyLength      int
	cache          *expirable.LRU[string, []byte]
}

// NewManager builds a manager over the given providers, tried in order.
// translator may be nil, in which case text passes through untranslated.
func NewManager(cfg *config.Config, providers []Provider, translator Translator) *Manager {
	return &Manager{
		providers:      providers,
		translator:     translator,
		sourceLanguage: cfg.SourceLanguage,
		keyLength:      cfg.CacheKeyLength,
		cache:          expirable.NewLRU[string, []byte](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Providers returns the names of the active providers in priority order.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	return names
}

// Generate produces narration audio for text in languageCode. The text is
// translated first when the target differs from the source language and a
// translator is configured; translation failure falls back to the original
// text rather than failing the request.
func (m *Manager) Generate(ctx context.Context, text, languageCode string) ([]byte, error) {
	if m.translator != nil && languageCode != m.sourceLanguage {
		translated, err := m.translator.Translate(ctx, text, languageCode)
		if err != nil {
			log.Printf("Translation to %s failed, keeping original text: %v", languageCode, err)
		} else {
			text = translated
		}
	}

	key := m.cacheKey(text, languageCode)
	if audio, ok := m.cache.Get(key); ok {
		return append([]byte(nil), audio...), nil
	}

	var failures []ProviderFailure
	for _, p := range m.providers {
		audio, err := p.Synthesize(ctx, text, languageCode)
		if err != nil {
			log.Printf("Provider %s failed: %v", p.Name(), err)
			failures = append(failures, ProviderFailure{Provider: p.Name(), Err: err})
			continue
		}
		m.cache.Add(key, append([]byte(nil), audio...))
		return audio, nil
	}

	return nil, &AllProvidersError{Failures: failures}
}

// cacheKey hashes on a text prefix plus language, matching cache granularity
// to how narration requests repeat in practice.
func (m *Manager) cacheKey(text, languageCode string) string {
	prefix := text
	if len(prefix) > m.keyLength {
		prefix = prefix[:m.keyLength]
	}
	return fmt.Sprintf("%s_%s", prefix, languageCode)
}
