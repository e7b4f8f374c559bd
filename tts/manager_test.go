package tts

import (
	"context"
	"errors"
	"testing"
	"time"

	"narravid/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider is a scriptable Provider for manager tests.
type mockProvider struct {
	name  string
	audio []byte
	err   error
	calls int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.audio, nil
}

// mockTranslator returns a fixed translation or error.
type mockTranslator struct {
	out   string
	err   error
	calls int
	last  string
}

func (m *mockTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	m.calls++
	m.last = text
	if m.err != nil {
		return "", m.err
	}
	return m.out, nil
}

func testManagerConfig() *config.Config {
	return &config.Config{
		SourceLanguage: "en",
		CacheKeyLength: 50,
		CacheSize:      10,
		CacheTTL:       time.Hour,
	}
}

func TestManager_FallbackOrder(t *testing.T) {
	t.Run("first provider wins", func(t *testing.T) {
		first := &mockProvider{name: "openai", audio: []byte("first")}
		second := &mockProvider{name: "google", audio: []byte("second")}
		m := NewManager(testManagerConfig(), []Provider{first, second}, nil)

		audio, err := m.Generate(context.Background(), "hello", "en")
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), audio)
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 0, second.calls)
	})

	t.Run("falls back when the first provider fails", func(t *testing.T) {
		first := &mockProvider{name: "openai", err: errors.New("quota exceeded")}
		second := &mockProvider{name: "google", audio: []byte("second")}
		m := NewManager(testManagerConfig(), []Provider{first, second}, nil)

		audio, err := m.Generate(context.Background(), "hello", "en")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), audio)
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 1, second.calls)
	})

	t.Run("aggregates errors when every provider fails", func(t *testing.T) {
		first := &mockProvider{name: "openai", err: errors.New("quota exceeded")}
		second := &mockProvider{name: "google", err: errors.New("bad credentials")}
		m := NewManager(testManagerConfig(), []Provider{first, second}, nil)

		_, err := m.Generate(context.Background(), "hello", "en")
		require.Error(t, err)

		var all *AllProvidersError
		require.ErrorAs(t, err, &all)
		assert.Len(t, all.Failures, 2)
		assert.Contains(t, err.Error(), "openai: quota exceeded")
		assert.Contains(t, err.Error(), "google: bad credentials")
	})
}

func TestManager_Cache(t *testing.T) {
	t.Run("second identical request hits the cache", func(t *testing.T) {
		p := &mockProvider{name: "openai", audio: []byte("cached-audio")}
		m := NewManager(testManagerConfig(), []Provider{p}, nil)

		first, err := m.Generate(context.Background(), "same text", "en")
		require.NoError(t, err)
		second, err := m.Generate(context.Background(), "same text", "en")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, p.calls)
	})

	t.Run("different language misses the cache", func(t *testing.T) {
		p := &mockProvider{name: "openai", audio: []byte("audio")}
		m := NewManager(testManagerConfig(), []Provider{p}, nil)

		_, err := m.Generate(context.Background(), "same text", "en")
		require.NoError(t, err)
		_, err = m.Generate(context.Background(), "same text", "fr")
		require.NoError(t, err)

		assert.Equal(t, 2, p.calls)
	})

	t.Run("callers cannot mutate cached audio", func(t *testing.T) {
		p := &mockProvider{name: "openai", audio: []byte("pristine")}
		m := NewManager(testManagerConfig(), []Provider{p}, nil)

		first, err := m.Generate(context.Background(), "text", "en")
		require.NoError(t, err)
		first[0] = 'X'

		second, err := m.Generate(context.Background(), "text", "en")
		require.NoError(t, err)
		assert.Equal(t, []byte("pristine"), second)
	})

	t.Run("long texts share a key on the prefix", func(t *testing.T) {
		cfg := testManagerConfig()
		cfg.CacheKeyLength = 10
		p := &mockProvider{name: "openai", audio: []byte("audio")}
		m := NewManager(cfg, []Provider{p}, nil)

		_, err := m.Generate(context.Background(), "0123456789 first tail", "en")
		require.NoError(t, err)
		_, err = m.Generate(context.Background(), "0123456789 second tail", "en")
		require.NoError(t, err)

		assert.Equal(t, 1, p.calls)
	})
}

func TestManager_Translation(t *testing.T) {
	t.Run("translates before synthesis for non-source languages", func(t *testing.T) {
		tr := &mockTranslator{out: "hola"}
		p := &mockProvider{name: "openai", audio: []byte("audio")}
		m := NewManager(testManagerConfig(), []Provider{p}, tr)

		_, err := m.Generate(context.Background(), "hello", "es")
		require.NoError(t, err)
		assert.Equal(t, 1, tr.calls)
		assert.Equal(t, "hello", tr.last)
	})

	t.Run("skips translation for the source language", func(t *testing.T) {
		tr := &mockTranslator{out: "unused"}
		p := &mockProvider{name: "openai", audio: []byte("audio")}
		m := NewManager(testManagerConfig(), []Provider{p}, tr)

		_, err := m.Generate(context.Background(), "hello", "en")
		require.NoError(t, err)
		assert.Equal(t, 0, tr.calls)
	})

	t.Run("translation failure falls back to the original text", func(t *testing.T) {
		tr := &mockTranslator{err: errors.New("translation offline")}
		p := &mockProvider{name: "openai", audio: []byte("audio")}
		m := NewManager(testManagerConfig(), []Provider{p}, tr)

		audio, err := m.Generate(context.Background(), "hello", "es")
		require.NoError(t, err)
		assert.Equal(t, []byte("audio"), audio)
		assert.Equal(t, 1, p.calls)
	})
}

func TestManager_Providers(t *testing.T) {
	m := NewManager(testManagerConfig(), []Provider{
		&mockProvider{name: "openai"},
		&mockProvider{name: "google"},
	}, nil)
	assert.Equal(t, []string{"openai", "google"}, m.Providers())
}
