package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"narravid/config"
)

const openAIBaseURL = "https://api.openai.com/v1"

// Language-specific OpenAI voice overrides; the configured default voice
// covers everything else.
var openAIVoices = map[string]string{
	"te": "onyx",
	"hi": "onyx",
	"ar": "onyx",
}

// OpenAIProvider synthesizes speech through the OpenAI audio API.
type OpenAIProvider struct {
	apiKey       string
	model        string
	defaultVoice string
	baseURL      string
	client       *http.Client
}

func NewOpenAIProvider(cfg *config.Config) (*OpenAIProvider, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("openai: no API key configured")
	}
	return &OpenAIProvider{
		apiKey:       cfg.OpenAIAPIKey,
		model:        cfg.OpenAITTSModel,
		defaultVoice: cfg.OpenAITTSVoice,
		baseURL:      openAIBaseURL,
		client:       &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) voiceFor(languageCode string) string {
	if v, ok := openAIVoices[languageCode]; ok {
		return v
	}
	return p.defaultVoice
}

type openAISpeechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

// Synthesize posts to /audio/speech and returns the raw MP3 body.
func (p *OpenAIProvider) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	audio, err := retrySynthesize(ctx, func() ([]byte, error) {
		return p.synthesizeOnce(ctx, text, languageCode)
	})
	if err != nil {
		return nil, &SynthesisError{Provider: p.Name(), Err: err}
	}
	return audio, nil
}

func (p *OpenAIProvider) synthesizeOnce(ctx context.Context, text, languageCode string) ([]byte, error) {
	body, err := json.Marshal(openAISpeechRequest{
		Model: p.model,
		Voice: p.voiceFor(languageCode),
		Input: text,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyHTTPError(resp.StatusCode, string(diag))
	}

	return io.ReadAll(resp.Body)
}
