// Neha - Hinglish chat companion
// License: MIT
//
// Copyright (c) 2026 Neha contributors

// Package speech converts reply text to audio. The preferred vendor is
// ElevenLabs with the Google Translate TTS endpoint as fallback, and
// synthesized audio is cached durably so a repeated reply never pays
// for synthesis twice.
package speech

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nehalabs/neha/pkg/logger"
)

// Synthesizer produces MP3 bytes for the given text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// reClean strips symbols that trip TTS engines; words, whitespace and
// basic punctuation survive.
var reClean = regexp.MustCompile(`[^\w\s,?.!]`)

// CleanText normalizes reply text before synthesis and cache keying.
func CleanText(text string) string {
	return strings.TrimSpace(reClean.ReplaceAllString(text, ""))
}

const defaultElevenLabsAPIBase = "https://api.elevenlabs.io/v1"

type ElevenLabsSynthesizer struct {
	apiKey     string
	apiBase    string
	voice      string
	model      string
	httpClient *http.Client
}

func NewElevenLabsSynthesizer(apiKey, voice, model string) *ElevenLabsSynthesizer {
	if voice == "" {
		voice = "Rachel"
	}
	if model == "" {
		model = "eleven_multilingual_v2"
	}
	return &ElevenLabsSynthesizer{
		apiKey:     apiKey,
		apiBase:    defaultElevenLabsAPIBase,
		voice:      voice,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/text-to-speech/%s", s.apiBase, url.PathEscape(s.voice))

	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("ElevenLabs API request failed:\n  Status: %d\n  Body:   %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("ElevenLabs returned empty audio")
	}
	return audio, nil
}

type GTTSSynthesizer struct {
	lang       string
	tld        string
	httpClient *http.Client
}

func NewGTTSSynthesizer(lang, tld string) *GTTSSynthesizer {
	if lang == "" {
		lang = "hi"
	}
	if tld == "" {
		tld = "com"
	}
	return &GTTSSynthesizer{
		lang:       lang,
		tld:        tld,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *GTTSSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	endpoint := fmt.Sprintf("https://translate.google.%s/translate_tts?ie=UTF-8&client=tw-ob&tl=%s&q=%s",
		s.tld, url.QueryEscape(s.lang), url.QueryEscape(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("translate TTS request failed: status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("translate TTS returned empty audio")
	}
	return audio, nil
}

// Service chains the preferred synthesizer, the fallback, and the
// durable cache. A nil primary (no vendor key configured) skips
// straight to the fallback.
type Service struct {
	primary  Synthesizer
	fallback Synthesizer
	cache    *SQLiteCache
	voice    string
}

func NewService(primary, fallback Synthesizer, cache *SQLiteCache, voice string) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		cache:    cache,
		voice:    voice,
	}
}

// Synthesize returns MP3 bytes for text, or nil when every synthesizer
// failed. Speech is decorative: callers must not fail a turn on nil.
func (s *Service) Synthesize(ctx context.Context, text string) []byte {
	clean := CleanText(text)
	if clean == "" {
		return nil
	}

	key := hashText(clean)
	if s.cache != nil {
		if audio, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return audio
		} else if err != nil {
			logger.WarnCF("speech", "Audio cache read failed",
				map[string]interface{}{"error": err.Error()})
		}
	}

	audio := s.generate(ctx, clean)
	if audio == nil {
		return nil
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, s.voice, audio); err != nil {
			logger.WarnCF("speech", "Audio cache write failed",
				map[string]interface{}{"error": err.Error()})
		}
	}
	return audio
}

func (s *Service) generate(ctx context.Context, clean string) []byte {
	if s.primary != nil {
		audio, err := s.primary.Synthesize(ctx, clean)
		if err == nil {
			return audio
		}
		logger.WarnCF("speech", "Primary synthesizer failed, trying fallback",
			map[string]interface{}{"error": err.Error()})
	}

	if s.fallback == nil {
		return nil
	}
	audio, err := s.fallback.Synthesize(ctx, clean)
	if err != nil {
		logger.ErrorCF("speech", "Fallback synthesizer failed",
			map[string]interface{}{"error": err.Error()})
		return nil
	}
	return audio
}

func hashText(clean string) string {
	sum := sha1.Sum([]byte(strings.ToLower(clean)))
	return hex.EncodeToString(sum[:])
}
