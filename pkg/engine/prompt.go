package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/nehalabs/neha/pkg/memory"
)

// promptBuilder renders the persona instruction plus conversational
// context into the single completion prompt the provider consumes.
type promptBuilder struct {
	persona       string
	historyPrompt int
	factsPrompt   int
}

func (pb *promptBuilder) build(profile *memory.Profile, userText string, now time.Time) string {
	var b strings.Builder

	b.WriteString(pb.persona)
	b.WriteString(" is a friendly Hindi-speaking girl. Reply in Hinglish (Roman Hindi only, no Devanagari). Be casual and natural.\n")

	b.WriteString("Current date and time: ")
	b.WriteString(renderLocalTime(now, profile.Timezone))
	b.WriteString("\n")

	if summary := profileSummary(profile, pb.factsPrompt); summary != "" {
		b.WriteString(summary)
		b.WriteString("\n")
	}

	b.WriteString(styleHint(profile.Gender))
	b.WriteString("\n")

	for _, turn := range profile.RecentHistory(pb.historyPrompt) {
		b.WriteString("User: ")
		b.WriteString(turn.User)
		b.WriteString("\n")
		b.WriteString(pb.persona)
		b.WriteString(": ")
		b.WriteString(turn.Bot)
		b.WriteString("\n")
	}

	b.WriteString("User: ")
	b.WriteString(userText)
	b.WriteString("\n")
	b.WriteString(pb.persona)
	b.WriteString(":")

	return b.String()
}

func renderLocalTime(now time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc, err = time.LoadLocation(memory.DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}
	return now.In(loc).Format("Monday, 02 January 2006, 3:04 PM")
}

func profileSummary(profile *memory.Profile, factsPrompt int) string {
	parts := []string{}
	if profile.UserName != "" {
		parts = append(parts, fmt.Sprintf("The user's name is %s.", profile.UserName))
	}
	if facts := profile.RecentFacts(factsPrompt); len(facts) > 0 {
		parts = append(parts, "What you remember about the user:\n"+strings.Join(facts, "\n"))
	}
	return strings.Join(parts, "\n")
}

// styleHint conditions tone on the remembered gender without ever
// stating the user's gender back to them.
func styleHint(g memory.Gender) string {
	switch g {
	case memory.GenderMale:
		return "Talk the way a close friend teases a guy: relaxed, a little playful banter."
	case memory.GenderFemale:
		return "Talk the way best girlfriends chat: warm, expressive, supportive."
	default:
		return "Keep the tone light, friendly and easygoing."
	}
}

// stripPersonaLabel removes a leading "<persona>:" echo some models
// prepend to their completion.
func stripPersonaLabel(reply, persona string) string {
	trimmed := strings.TrimSpace(reply)
	prefix := strings.ToLower(persona) + ":"
	if strings.HasPrefix(strings.ToLower(trimmed), prefix) {
		return strings.TrimSpace(trimmed[len(prefix):])
	}
	return trimmed
}
