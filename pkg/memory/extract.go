package memory

import "strings"

// Fact extraction is deliberately an ordered rule table rather than a
// cascade of conditionals: the tie-break order is part of the contract
// and has to stay auditable.

// namePhrases are evaluated in declared order; the first phrase found
// in the lowered text wins and captures the single following token.
var namePhrases = []string{
	"my name is",
	"this is",
	"i am",
}

// Gender keyword sets are disjoint and evaluated male-first. A male
// match sets gender unconditionally and a female match then overrides
// it, so text containing both resolves female (declared-order
// last-match-wins).
var (
	maleWords   = []string{"i am a boy", "i'm a boy", "i am male", "im a boy", "i am a man"}
	femaleWords = []string{"i am a girl", "i'm a girl", "i am female", "im a girl", "i am a woman"}
)

// ExtractFacts scans raw user text and opportunistically fills the
// profile's name and gender fields. It is a pure transform; the caller
// persists the updated profile before prompt building.
func ExtractFacts(profile *Profile, userText string) {
	lower := strings.ToLower(userText)

	if name, ok := extractName(lower); ok {
		profile.UserName = name
	}

	for _, w := range maleWords {
		if strings.Contains(lower, w) {
			profile.Gender = GenderMale
			break
		}
	}
	for _, w := range femaleWords {
		if strings.Contains(lower, w) {
			profile.Gender = GenderFemale
			break
		}
	}
}

func extractName(lower string) (string, bool) {
	for _, phrase := range namePhrases {
		idx := strings.Index(lower, phrase)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(lower[idx+len(phrase):])
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			// Phrase at end of input; discard the attempt but do not
			// fall through to later phrases, first match still wins.
			return "", false
		}
		token := strings.Trim(fields[0], ".,!?:;\"'")
		if token == "" {
			return "", false
		}
		return titleCase(token), true
	}
	return "", false
}

func titleCase(token string) string {
	if token == "" {
		return token
	}
	r := []rune(token)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
