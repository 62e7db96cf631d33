package memory

import (
	"context"
	"strings"

	"github.com/nehalabs/neha/pkg/logger"
)

// SummaryFunc turns a transcript of recent turns into a few short
// bullets of durable facts about the user.
type SummaryFunc func(ctx context.Context, transcript string) (string, error)

// Summarizer compacts chat history: older turns are summarized into one
// facts entry and the history is trimmed to its newest entries.
// Compaction is an optimization and must never abort the surrounding
// turn, so every failure degrades to a no-op.
type Summarizer struct {
	every     int
	minimum   int
	keep      int
	window    int
	summarize SummaryFunc
}

// NewSummarizer builds a compactor that triggers on a modulo cadence of
// every turns, requires at least minimum history entries before acting,
// summarizes the newest window entries, and trims history to keep.
func NewSummarizer(every, minimum, keep int, summarize SummaryFunc) *Summarizer {
	if every <= 0 {
		every = 20
	}
	if minimum <= 0 {
		minimum = 10
	}
	if keep <= 0 {
		keep = 8
	}
	return &Summarizer{
		every:     every,
		minimum:   minimum,
		keep:      keep,
		window:    10,
		summarize: summarize,
	}
}

// OnCadence reports whether a history of this length is due for a
// compaction attempt.
func (s *Summarizer) OnCadence(turnCount int) bool {
	return turnCount > 0 && turnCount%s.every == 0
}

// MaybeCompact summarizes the newest window of history into one facts
// entry and trims the history. Below the minimum it returns unchanged.
func (s *Summarizer) MaybeCompact(ctx context.Context, profile *Profile) {
	if len(profile.ChatHistory) < s.minimum {
		return
	}
	if s.summarize == nil {
		return
	}

	transcript := buildTranscript(profile.RecentHistory(s.window))
	if transcript == "" {
		return
	}

	summary, err := s.summarize(ctx, transcript)
	if err != nil {
		logger.WarnCF("memory", "Compaction summarization failed, keeping history as-is",
			map[string]interface{}{"error": err.Error()})
		return
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return
	}

	profile.Facts = append(profile.Facts, summary)
	if len(profile.ChatHistory) > s.keep {
		trimmed := profile.RecentHistory(s.keep)
		profile.ChatHistory = append([]Turn{}, trimmed...)
	}

	logger.InfoCF("memory", "Compacted chat history",
		map[string]interface{}{
			"facts":   len(profile.Facts),
			"history": len(profile.ChatHistory),
		})
}

func buildTranscript(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		user := strings.TrimSpace(t.User)
		bot := strings.TrimSpace(t.Bot)
		if user == "" && bot == "" {
			continue
		}
		if user != "" {
			b.WriteString("user: ")
			b.WriteString(user)
			b.WriteString("\n")
		}
		if bot != "" {
			b.WriteString("assistant: ")
			b.WriteString(bot)
			b.WriteString("\n")
		}
	}
	return b.String()
}
