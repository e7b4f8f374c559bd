package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"narravid/config"
)

const googleBaseURL = "https://texttospeech.googleapis.com/v1"

type googleVoice struct {
	LanguageCode string
	Name         string
}

var googleVoices = map[string]googleVoice{
	"en": {"en-US", "en-US-Standard-C"},
	"te": {"te-IN", "te-IN-Standard-A"},
	"es": {"es-ES", "es-ES-Standard-A"},
	"fr": {"fr-FR", "fr-FR-Standard-A"},
	"de": {"de-DE", "de-DE-Standard-A"},
	"it": {"it-IT", "it-IT-Standard-A"},
	"pt": {"pt-PT", "pt-PT-Standard-A"},
	"ru": {"ru-RU", "ru-RU-Standard-A"},
	"ja": {"ja-JP", "ja-JP-Standard-A"},
	"ko": {"ko-KR", "ko-KR-Standard-A"},
	"zh": {"cmn-CN", "cmn-CN-Standard-A"},
	"hi": {"hi-IN", "hi-IN-Standard-A"},
	"ar": {"ar-XA", "ar-XA-Standard-A"},
}

var googleDefaultVoice = googleVoices["en"]

// GoogleProvider synthesizes speech through the Google Cloud TTS REST API.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGoogleProvider(cfg *config.Config) (*GoogleProvider, error) {
	if cfg.GoogleTTSKey == "" {
		return nil, fmt.Errorf("google: no API key configured")
	}
	return &GoogleProvider{
		apiKey:  cfg.GoogleTTSKey,
		baseURL: googleBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func voiceForLanguage(languageCode string) googleVoice {
	if v, ok := googleVoices[languageCode]; ok {
		return v
	}
	return googleDefaultVoice
}

type googleSynthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type googleSynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize posts to text:synthesize and decodes the base64 audio payload.
func (p *GoogleProvider) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	audio, err := retrySynthesize(ctx, func() ([]byte, error) {
		return p.synthesizeOnce(ctx, text, languageCode)
	})
	if err != nil {
		return nil, &SynthesisError{Provider: p.Name(), Err: err}
	}
	return audio, nil
}

func (p *GoogleProvider) synthesizeOnce(ctx context.Context, text, languageCode string) ([]byte, error) {
	var reqBody googleSynthesizeRequest
	reqBody.Input.Text = text
	voice := voiceForLanguage(languageCode)
	reqBody.Voice.LanguageCode = voice.LanguageCode
	reqBody.Voice.Name = voice.Name
	reqBody.AudioConfig.AudioEncoding = "MP3"

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/text:synthesize?key="+p.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
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

	var out googleSynthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("undecodable audio payload: %w", err)
	}
	return audio, nil
}
