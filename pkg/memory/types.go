package memory

import "encoding/json"

// Gender is set opportunistically from user text and never cleared.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
)

// Turn is one user/bot exchange, oldest first within Profile.ChatHistory.
type Turn struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// Profile captures persistent per-session conversational state.
//
// The on-disk shape is fixed: unset user_name and unknown gender
// serialize as JSON null so records stay readable by the other
// frontends that share this store.
type Profile struct {
	UserName    string
	Gender      Gender
	ChatHistory []Turn
	Facts       []string
	Timezone    string
}

const DefaultTimezone = "Asia/Kolkata"

// NewProfile returns the default-initialized record for a fresh session.
func NewProfile() *Profile {
	return &Profile{
		ChatHistory: []Turn{},
		Facts:       []string{},
		Timezone:    DefaultTimezone,
	}
}

type profileJSON struct {
	UserName    *string  `json:"user_name"`
	Gender      *string  `json:"gender"`
	ChatHistory []Turn   `json:"chat_history"`
	Facts       []string `json:"facts"`
	Timezone    string   `json:"timezone"`
}

func (p *Profile) MarshalJSON() ([]byte, error) {
	out := profileJSON{
		ChatHistory: p.ChatHistory,
		Facts:       p.Facts,
		Timezone:    p.Timezone,
	}
	if out.ChatHistory == nil {
		out.ChatHistory = []Turn{}
	}
	if out.Facts == nil {
		out.Facts = []string{}
	}
	if p.UserName != "" {
		name := p.UserName
		out.UserName = &name
	}
	if p.Gender != GenderUnknown {
		g := string(p.Gender)
		out.Gender = &g
	}
	return json.Marshal(out)
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	var in profileJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Profile{
		ChatHistory: in.ChatHistory,
		Facts:       in.Facts,
		Timezone:    in.Timezone,
	}
	if p.ChatHistory == nil {
		p.ChatHistory = []Turn{}
	}
	if p.Facts == nil {
		p.Facts = []string{}
	}
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if in.UserName != nil {
		p.UserName = *in.UserName
	}
	if in.Gender != nil {
		switch Gender(*in.Gender) {
		case GenderMale, GenderFemale:
			p.Gender = Gender(*in.Gender)
		}
	}
	return nil
}

// RecentHistory returns the newest n turns, oldest first.
func (p *Profile) RecentHistory(n int) []Turn {
	if n <= 0 || len(p.ChatHistory) == 0 {
		return nil
	}
	if len(p.ChatHistory) <= n {
		return p.ChatHistory
	}
	return p.ChatHistory[len(p.ChatHistory)-n:]
}

// RecentFacts returns the newest n compaction summaries, oldest first.
func (p *Profile) RecentFacts(n int) []string {
	if n <= 0 || len(p.Facts) == 0 {
		return nil
	}
	if len(p.Facts) <= n {
		return p.Facts
	}
	return p.Facts[len(p.Facts)-n:]
}
