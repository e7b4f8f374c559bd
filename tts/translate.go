package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"narravid/config"
)

// Translator converts text to a target language. Translation is best-effort
// at the manager level: callers keep the original text when it fails.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var languageNames = map[string]string{
	"te": "Telugu", "es": "Spanish", "fr": "French", "de": "German",
	"it": "Italian", "pt": "Portuguese", "ru": "Russian", "ja": "Japanese",
	"ko": "Korean", "zh": "Chinese", "hi": "Hindi", "ar": "Arabic",
}

// GeminiTranslator translates through the Gemini generateContent API.
type GeminiTranslator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeminiTranslator(cfg *config.Config) (*GeminiTranslator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini: no API key configured")
	}
	return &GeminiTranslator{
		apiKey:  cfg.GeminiAPIKey,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (t *GeminiTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	langName, ok := languageNames[targetLanguage]
	if !ok {
		langName = targetLanguage
	}

	prompt := fmt.Sprintf("Translate this text to %s. Return only the translation:\n\n%s", langName, text)
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.1,
			MaxOutputTokens: 1000,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/models/gemini-pro:generateContent?key="+t.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("translation failed with status %d: %s", resp.StatusCode, diag)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("translation response contained no candidates")
	}

	return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
}
