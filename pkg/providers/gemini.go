// Neha - Hinglish chat companion
// License: MIT
//
// Copyright (c) 2026 Neha contributors

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nehalabs/neha/pkg/config"
)

const (
	defaultGeminiAPIBase = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash"
)

type GeminiProvider struct {
	apiKey     string
	apiBase    string
	model      string
	httpClient *http.Client
}

func NewGeminiProvider(apiKey, apiBase, model string) *GeminiProvider {
	if apiBase == "" {
		apiBase = defaultGeminiAPIBase
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		apiBase: strings.TrimRight(apiBase, "/"),
		model:   model,
		// Completions can take seconds but must not hang a turn forever.
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.apiBase, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API request failed:\n  Status: %d\n  Body:   %s", resp.StatusCode, string(body))
	}

	return parseGeminiResponse(body)
}

func parseGeminiResponse(body []byte) (string, error) {
	var apiResponse struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(apiResponse.Candidates) == 0 {
		return "", fmt.Errorf("Gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range apiResponse.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("Gemini returned an empty completion")
	}
	return text, nil
}

// CreateProvider builds the configured language model collaborator.
func CreateProvider(cfg *config.Config) (LanguageModel, error) {
	apiKey := strings.TrimSpace(cfg.Providers.Gemini.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set providers.gemini.api_key or NEHA_PROVIDERS_GEMINI_API_KEY)")
	}

	return NewGeminiProvider(
		apiKey,
		strings.TrimSpace(cfg.Providers.Gemini.APIBase),
		strings.TrimSpace(cfg.Providers.Gemini.Model),
	), nil
}
