package settings

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Settings is the player facing configuration of a game
type Settings struct {
	MoveCap      int      `json:"move_cap" toml:"move_cap"`
	Images       []string `json:"images" toml:"images"`
	Logo         string   `json:"logo" toml:"logo"`
	CardBackLogo string   `json:"card_back_logo" toml:"card_back_logo"`
	Title        string   `json:"title" toml:"title"`
}

// Clone returns a copy that shares no slices with s
func (s Settings) Clone() Settings {
	clone := s
	clone.Images = append([]string{}, s.Images...)
	return clone
}

// Refs returns every image reference the settings point at
func (s Settings) Refs() []string {
	refs := make([]string, 0, len(s.Images)+2)
	refs = append(refs, s.Images...)
	if s.Logo != "" {
		refs = append(refs, s.Logo)
	}
	if s.CardBackLogo != "" {
		refs = append(refs, s.CardBackLogo)
	}
	return refs
}

// Patch is a partial update of staged settings. Nil fields are left alone.
type Patch struct {
	MoveCap      interface{} `json:"move_cap,omitempty"`
	Images       *[]string   `json:"images,omitempty"`
	Logo         *string     `json:"logo,omitempty"`
	CardBackLogo *string     `json:"card_back_logo,omitempty"`
	Title        *string     `json:"title,omitempty"`
}

// Apply writes the patch onto s
func (p Patch) Apply(s *Settings) {
	if p.MoveCap != nil {
		s.MoveCap = ParseMoveCap(p.MoveCap)
	}
	if p.Images != nil {
		s.Images = append([]string{}, (*p.Images)...)
	}
	if p.Logo != nil {
		s.Logo = *p.Logo
	}
	if p.CardBackLogo != nil {
		s.CardBackLogo = *p.CardBackLogo
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
}

// ParseMoveCap coerces admin input into a move cap. Strings are read like a
// form field: the leading integer is used and anything non-numeric or
// negative becomes 0 (unlimited).
func ParseMoveCap(raw interface{}) int {
	var n int
	switch v := raw.(type) {
	case nil:
		return 0
	case string:
		n = leadingInt(v)
	default:
		parsed, err := cast.ToIntE(v)
		if err != nil {
			return 0
		}
		n = parsed
	}

	if n < 0 {
		return 0
	}
	return n
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
