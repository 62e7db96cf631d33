// Neha - Hinglish chat companion
// License: MIT
//
// Copyright (c) 2026 Neha contributors

// Package engine orchestrates one conversation turn: fact extraction,
// live-data routing, prompt construction, reply generation, history
// compaction and persistence.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nehalabs/neha/pkg/config"
	"github.com/nehalabs/neha/pkg/logger"
	"github.com/nehalabs/neha/pkg/memory"
	"github.com/nehalabs/neha/pkg/providers"
	"github.com/nehalabs/neha/pkg/search"
)

const (
	// EmptyInputReply short-circuits blank input; nothing is persisted.
	EmptyInputReply = "Kuch toh likho, main sun rahi hoon!"

	// FallbackPrefix opens the degraded reply when the language model
	// is unavailable. The turn still completes and is persisted.
	FallbackPrefix = "Sorry, mujhe thoda issue hua reply karne mein."

	// SearchLeadIn prefixes replies served from the live-data path.
	SearchLeadIn = "Dekho, yeh mila mujhe abhi: "
)

type Engine struct {
	store      *memory.FileStore
	provider   providers.LanguageModel
	search     search.Lookup
	summarizer *memory.Summarizer
	prompt     promptBuilder
	triggers   []string
	now        func() time.Time
}

func New(cfg *config.Config, store *memory.FileStore, provider providers.LanguageModel, lookup search.Lookup) *Engine {
	summarize := func(ctx context.Context, transcript string) (string, error) {
		prompt := "Summarize durable facts about the user from this conversation in 3 short bullets.\n" +
			"Keep only things worth remembering next week: name, relationships, preferences, plans.\n\n" +
			transcript
		return provider.Complete(ctx, prompt)
	}

	triggers := cfg.Search.TriggerWords
	if !cfg.Search.Enabled {
		lookup = nil
	}

	return &Engine{
		store:    store,
		provider: provider,
		search:   lookup,
		summarizer: memory.NewSummarizer(
			cfg.Memory.CompactEvery,
			cfg.Memory.CompactMinimum,
			cfg.Memory.HistoryKeep,
			summarize,
		),
		prompt: promptBuilder{
			persona:       cfg.Persona.Name,
			historyPrompt: cfg.Memory.HistoryPrompt,
			factsPrompt:   cfg.Memory.FactsPrompt,
		},
		triggers: triggers,
		now:      time.Now,
	}
}

// ResolveSessionID delegates to the store's session identity scheme.
func (e *Engine) ResolveSessionID(identity memory.SessionIdentity) string {
	return e.store.ResolveSessionID(identity)
}

// HandleTurn runs one full turn for sessionID and returns the reply.
//
// Collaborator failures (language model, search) degrade to fallback
// text and the turn still completes; a persistence failure is returned
// to the caller because silently losing a write would break the
// "remembers me" guarantee. When err is non-nil the reply is still
// valid and may be shown to the user.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, userText string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return EmptyInputReply, nil
	}

	turnID := "turn-" + uuid.NewString()

	release := e.store.Lock(sessionID)
	defer release()

	profile, err := e.store.Load(sessionID)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}

	memory.ExtractFacts(profile, userText)

	var reply string
	if e.search != nil && e.isLiveDataQuery(userText) {
		// Live-data turns never touch the language model; the search
		// digest is the reply.
		reply = SearchLeadIn + e.search.Lookup(ctx, userText)
		logger.InfoCF("engine", "Turn routed to search",
			map[string]interface{}{"session": sessionID, "turn_id": turnID})
	} else {
		reply = e.generateReply(ctx, profile, userText, sessionID, turnID)
	}

	profile.ChatHistory = append(profile.ChatHistory, memory.Turn{User: userText, Bot: reply})

	if e.summarizer.OnCadence(len(profile.ChatHistory)) {
		e.summarizer.MaybeCompact(ctx, profile)
	}

	if err := e.store.Save(sessionID, profile); err != nil {
		logger.ErrorCF("engine", "Failed to persist session",
			map[string]interface{}{"session": sessionID, "turn_id": turnID, "error": err.Error()})
		return reply, fmt.Errorf("persist session: %w", err)
	}

	return reply, nil
}

func (e *Engine) generateReply(ctx context.Context, profile *memory.Profile, userText, sessionID, turnID string) string {
	prompt := e.prompt.build(profile, userText, e.now())

	raw, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		logger.WarnCF("engine", "Language model failed, using fallback reply",
			map[string]interface{}{"session": sessionID, "turn_id": turnID, "error": err.Error()})
		return fmt.Sprintf("%s (%v)", FallbackPrefix, err)
	}

	return stripPersonaLabel(raw, e.prompt.persona)
}

func (e *Engine) isLiveDataQuery(userText string) bool {
	lower := strings.ToLower(userText)
	for _, word := range e.triggers {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
