package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Persona   PersonaConfig   `json:"persona"`
	Providers ProvidersConfig `json:"providers"`
	Speech    SpeechConfig    `json:"speech"`
	Search    SearchConfig    `json:"search"`
	Memory    MemoryConfig    `json:"memory"`
	Gateway   GatewayConfig   `json:"gateway"`
	mu        sync.RWMutex
}

type PersonaConfig struct {
	Name      string `json:"name" env:"NEHA_PERSONA_NAME"`
	Workspace string `json:"workspace" env:"NEHA_PERSONA_WORKSPACE"`
	Timezone  string `json:"timezone" env:"NEHA_PERSONA_TIMEZONE"`
}

type ProvidersConfig struct {
	Gemini GeminiConfig `json:"gemini"`
}

type GeminiConfig struct {
	APIKey  string `json:"api_key" env:"NEHA_PROVIDERS_GEMINI_API_KEY"`
	APIBase string `json:"api_base" env:"NEHA_PROVIDERS_GEMINI_API_BASE"`
	Model   string `json:"model" env:"NEHA_PROVIDERS_GEMINI_MODEL"`
}

type SpeechConfig struct {
	Enabled    bool             `json:"enabled" env:"NEHA_SPEECH_ENABLED"`
	ElevenLabs ElevenLabsConfig `json:"elevenlabs"`
	GTTS       GTTSConfig       `json:"gtts"`
}

type ElevenLabsConfig struct {
	APIKey string `json:"api_key" env:"NEHA_SPEECH_ELEVENLABS_API_KEY"`
	Voice  string `json:"voice" env:"NEHA_SPEECH_ELEVENLABS_VOICE"`
	Model  string `json:"model" env:"NEHA_SPEECH_ELEVENLABS_MODEL"`
}

type GTTSConfig struct {
	Lang string `json:"lang" env:"NEHA_SPEECH_GTTS_LANG"`
	TLD  string `json:"tld" env:"NEHA_SPEECH_GTTS_TLD"`
}

type SearchConfig struct {
	Enabled        bool     `json:"enabled" env:"NEHA_SEARCH_ENABLED"`
	MaxResults     int      `json:"max_results" env:"NEHA_SEARCH_MAX_RESULTS"`
	TimeoutSeconds int      `json:"timeout_seconds" env:"NEHA_SEARCH_TIMEOUT_SECONDS"`
	TriggerWords   []string `json:"trigger_words"`
}

type MemoryConfig struct {
	HistoryPrompt  int `json:"history_prompt" env:"NEHA_MEMORY_HISTORY_PROMPT"`
	HistoryKeep    int `json:"history_keep" env:"NEHA_MEMORY_HISTORY_KEEP"`
	CompactEvery   int `json:"compact_every" env:"NEHA_MEMORY_COMPACT_EVERY"`
	CompactMinimum int `json:"compact_minimum" env:"NEHA_MEMORY_COMPACT_MINIMUM"`
	FactsPrompt    int `json:"facts_prompt" env:"NEHA_MEMORY_FACTS_PROMPT"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"NEHA_GATEWAY_HOST"`
	Port int    `json:"port" env:"NEHA_GATEWAY_PORT"`
}

func DefaultConfig() *Config {
	return &Config{
		Persona: PersonaConfig{
			Name:      "Neha",
			Workspace: "~/.neha/workspace",
			Timezone:  "Asia/Kolkata",
		},
		Providers: ProvidersConfig{
			Gemini: GeminiConfig{
				Model: "gemini-2.5-flash",
			},
		},
		Speech: SpeechConfig{
			Enabled: true,
			ElevenLabs: ElevenLabsConfig{
				Voice: "Rachel",
				Model: "eleven_multilingual_v2",
			},
			GTTS: GTTSConfig{
				Lang: "hi",
				TLD:  "co.in",
			},
		},
		Search: SearchConfig{
			Enabled:        true,
			MaxResults:     3,
			TimeoutSeconds: 12,
			TriggerWords: []string{
				"news", "weather", "mausam", "temperature",
				"price", "rate", "stock", "score", "update", "today",
			},
		},
		Memory: MemoryConfig{
			HistoryPrompt:  8,
			HistoryKeep:    8,
			CompactEvery:   20,
			CompactMinimum: 10,
			FactsPrompt:    3,
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 18850,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config-less installs still honor env overrides.
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Persona.Workspace)
}

func (c *Config) SearchTimeout() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Search.TimeoutSeconds <= 0 {
		return 12
	}
	return c.Search.TimeoutSeconds
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
