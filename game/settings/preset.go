package settings

import (
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/pairsgame/game/engine"
)

var ErrInvalidPreset = errors.New("invalid preset")

// Preset is a named starting point for a session's settings plus the default
// image set boards fall back to
type Preset struct {
	Name          string   `json:"name" toml:"name"`
	Description   string   `json:"description" toml:"description"`
	Title         string   `json:"title" toml:"title"`
	MoveCap       int      `json:"move_cap" toml:"move_cap"`
	Logo          string   `json:"logo" toml:"logo"`
	CardBackLogo  string   `json:"card_back_logo" toml:"card_back_logo"`
	Images        []string `json:"images,omitempty" toml:"images"`
	DefaultImages []string `json:"default_images" toml:"default_images"`
}

// Settings returns the initial committed settings for a session
func (p *Preset) Settings() Settings {
	return Settings{
		MoveCap:      p.MoveCap,
		Images:       append([]string{}, p.Images...),
		Logo:         p.Logo,
		CardBackLogo: p.CardBackLogo,
		Title:        p.Title,
	}
}

// Options builds engine options from committed settings and the preset's
// default images
func (p *Preset) Options(s Settings) engine.Options {
	return engine.Options{
		Images:   append([]string(nil), s.Images...),
		Defaults: append([]string(nil), p.DefaultImages...),
		MoveCap:  s.MoveCap,
	}
}

// ValidatePreset checks that a preset can seed a playable session
func ValidatePreset(p *Preset) error {
	if p == nil {
		return fmt.Errorf("%w: preset is nil", ErrInvalidPreset)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPreset)
	}

	for _, ref := range append(append([]string{}, p.Images...), p.Logo, p.CardBackLogo) {
		if IsHandle(ref) {
			return fmt.Errorf("%w: %q is an upload handle, presets must use urls", ErrInvalidPreset, ref)
		}
	}
	for _, ref := range p.DefaultImages {
		if IsHandle(ref) {
			return fmt.Errorf("%w: %q is an upload handle, presets must use urls", ErrInvalidPreset, ref)
		}
	}

	if err := engine.ValidateOptions(p.Options(p.Settings())); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	return nil
}
