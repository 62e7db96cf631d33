package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nehalabs/neha/pkg/config"
	"github.com/nehalabs/neha/pkg/memory"
	"github.com/nehalabs/neha/pkg/providers"
	"github.com/nehalabs/neha/pkg/search"
)

type fakeLookup struct {
	result string
	calls  int
}

func (f *fakeLookup) Lookup(ctx context.Context, query string) string {
	f.calls++
	return f.result
}

func newTestEngine(t *testing.T, provider providers.LanguageModel, lookup search.Lookup) (*Engine, *memory.FileStore) {
	t.Helper()
	cfg := config.DefaultConfig()
	store := memory.NewFileStore(t.TempDir())
	e := New(cfg, store, provider, lookup)
	return e, store
}

func TestHandleTurn_EmptyInput(t *testing.T) {
	calls := 0
	provider := providers.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "hi", nil
	})
	e, store := newTestEngine(t, provider, nil)

	reply, err := e.HandleTurn(context.Background(), "v1:s", "   \t ")
	if err != nil {
		t.Fatalf("empty input: %v", err)
	}
	if reply != EmptyInputReply {
		t.Fatalf("reply = %q, want %q", reply, EmptyInputReply)
	}
	if calls != 0 {
		t.Fatal("empty input must not reach the language model")
	}

	p, err := store.Load("v1:s")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.ChatHistory) != 0 {
		t.Fatal("empty input must not be persisted")
	}
}

func TestHandleTurn_ReplyAndPersistence(t *testing.T) {
	provider := providers.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return "Neha: arre wah, badhiya!", nil
	})
	e, store := newTestEngine(t, provider, nil)

	reply, err := e.HandleTurn(context.Background(), "v1:s", "aaj bahut accha din tha")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if reply != "arre wah, badhiya!" {
		t.Fatalf("persona label not stripped: %q", reply)
	}

	p, err := store.Load("v1:s")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.ChatHistory) != 1 {
		t.Fatalf("history = %d entries, want 1", len(p.ChatHistory))
	}
	if p.ChatHistory[0].User != "aaj bahut accha din tha" || p.ChatHistory[0].Bot != reply {
		t.Fatalf("stored turn mismatch: %+v", p.ChatHistory[0])
	}
}

func TestHandleTurn_FactExtractionPersists(t *testing.T) {
	provider := providers.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return "hello!", nil
	})
	e, store := newTestEngine(t, provider, nil)

	if _, err := e.HandleTurn(context.Background(), "v1:s", "my name is asha and i am a girl"); err != nil {
		t.Fatalf("turn: %v", err)
	}

	p, err := store.Load("v1:s")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.UserName != "Asha" {
		t.Fatalf("name = %q, want Asha", p.UserName)
	}
	if p.Gender != memory.GenderFemale {
		t.Fatalf("gender = %q, want female", p.Gender)
	}
}

func TestHandleTurn_ProviderFailureFallsBack(t *testing.T) {
	provider := providers.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	})
	e, store := newTestEngine(t, provider, nil)

	reply, err := e.HandleTurn(context.Background(), "v1:s", "kaisi ho")
	if err != nil {
		t.Fatalf("provider failure must not fail the turn: %v", err)
	}
	if !strings.HasPrefix(reply, FallbackPrefix) {
		t.Fatalf("reply = %q, want %q prefix", reply, FallbackPrefix)
	}
	if !strings.Contains(reply, "quota exceeded") {
		t.Fatalf("fallback should carry the cause: %q", reply)
	}

	p, err := store.Load("v1:s")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.ChatHistory) != 1 || p.ChatHistory[0].Bot != reply {
		t.Fatal("fallback turn must still be persisted")
	}
}

func TestHandleTurn_LiveDataBypassesModel(t *testing.T) {
	modelCalls := 0
	provider := providers.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		modelCalls++
		return "should not be used", nil
	})
	lookup := &fakeLookup{result: "Delhi mein 34°C, clear sky"}
	e, store := newTestEngine(t, provider, lookup)

	reply, err := e.HandleTurn(context.Background(), "v1:s", "aaj ka weather kaisa hai?")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if reply != SearchLeadIn+"Delhi mein 34°C, clear sky" {
		t.Fatalf("reply = %q", reply)
	}
	if modelCalls != 0 {
		t.Fatal("live-data turns must not touch the language model")
	}
	if lookup.calls != 1 {
		t.Fatalf("lookup calls = %d, want 1", lookup.calls)
	}

	// Search turns are part of the conversation record too.
	p, err := store.Load("v1:s")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.ChatHistory) != 1 || p.ChatHistory[0].Bot != reply {
		t.Fatal("search turn must be persisted in history")
	}
}

func TestHandleTurn_SearchDisabledUsesModel(t *testing.T) {
	provider := providers.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return "mausam ka pata nahi, lekin mood mast hai!", nil
	})
	cfg := config.DefaultConfig()
	cfg.Search.Enabled = false
	store := memory.NewFileStore(t.TempDir())
	lookup := &fakeLookup{result: "unused"}
	e := New(cfg, store, provider, lookup)

	reply, err := e.HandleTurn(context.Background(), "v1:s", "weather batao")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if strings.HasPrefix(reply, SearchLeadIn) {
		t.Fatalf("disabled search must not serve replies: %q", reply)
	}
	if lookup.calls != 0 {
		t.Fatal("disabled search must not be invoked")
	}
}

func TestHandleTurn_CompactionOnCadence(t *testing.T) {
	provider := providers.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "Summarize durable facts") {
			return "- dost hai", nil
		}
		return "ok", nil
	})
	e, store := newTestEngine(t, provider, nil)

	// Seed 19 turns; the 20th append lands on the compaction cadence.
	seed := memory.NewProfile()
	for i := 0; i < 19; i++ {
		seed.ChatHistory = append(seed.ChatHistory, memory.Turn{User: "u", Bot: "b"})
	}
	if err := store.Save("v1:s", seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := e.HandleTurn(context.Background(), "v1:s", "ek aur baat"); err != nil {
		t.Fatalf("turn: %v", err)
	}

	p, err := store.Load("v1:s")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.Facts) != 1 || p.Facts[0] != "- dost hai" {
		t.Fatalf("compaction summary missing: %+v", p.Facts)
	}
	if len(p.ChatHistory) != 8 {
		t.Fatalf("history = %d entries after compaction, want 8", len(p.ChatHistory))
	}
}

func TestPromptBuilder_Content(t *testing.T) {
	pb := promptBuilder{persona: "Neha", historyPrompt: 8, factsPrompt: 3}

	p := memory.NewProfile()
	p.UserName = "Asha"
	p.Gender = memory.GenderFemale
	p.Facts = []string{"old fact", "fact-1", "fact-2", "fact-3"}
	p.ChatHistory = []memory.Turn{{User: "hi", Bot: "hello ji"}}

	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	prompt := pb.build(p, "kya haal hai", now)

	if !strings.Contains(prompt, "Neha is a friendly Hindi-speaking girl.") {
		t.Fatalf("persona instruction missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "The user's name is Asha.") {
		t.Fatalf("name missing from prompt:\n%s", prompt)
	}
	if strings.Contains(prompt, "old fact") {
		t.Fatal("only the newest facts belong in the prompt")
	}
	if !strings.Contains(prompt, "fact-3") {
		t.Fatal("newest fact missing from prompt")
	}
	// Asia/Kolkata is UTC+05:30.
	if !strings.Contains(prompt, "3:00 PM") {
		t.Fatalf("local time not rendered in profile timezone:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "User: kya haal hai\nNeha:") {
		t.Fatalf("prompt must end with the pending turn:\n%s", prompt)
	}
}

func TestStripPersonaLabel(t *testing.T) {
	if got := stripPersonaLabel("  neha: theek hoon  ", "Neha"); got != "theek hoon" {
		t.Fatalf("got %q", got)
	}
	if got := stripPersonaLabel("theek hoon", "Neha"); got != "theek hoon" {
		t.Fatalf("got %q", got)
	}
	if got := stripPersonaLabel("Nehaji: hello", "Neha"); got != "Nehaji: hello" {
		t.Fatalf("label strip must match the exact persona: %q", got)
	}
}

func TestStyleHint_NeverNamesGender(t *testing.T) {
	for _, g := range []memory.Gender{memory.GenderUnknown, memory.GenderMale, memory.GenderFemale} {
		hint := strings.ToLower(styleHint(g))
		if strings.Contains(hint, "male") || strings.Contains(hint, "female") {
			t.Fatalf("style hint leaks gender wording: %q", hint)
		}
	}
}
