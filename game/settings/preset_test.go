package settings

import (
	"errors"
	"testing"
)

func createTestPreset() *Preset {
	return &Preset{
		Name:        "Test Preset",
		Description: "Test preset",
		Title:       "Test",
		MoveCap:     20,
		Logo:        "/assets/logo.svg",
		DefaultImages: []string{
			"/img/1.svg", "/img/2.svg", "/img/3.svg", "/img/4.svg",
			"/img/5.svg", "/img/6.svg", "/img/7.svg", "/img/8.svg",
		},
	}
}

func TestValidatePreset(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Preset)
	}{
		{"missing name", func(p *Preset) { p.Name = "" }},
		{"negative move cap", func(p *Preset) { p.MoveCap = -1 }},
		{"too few defaults", func(p *Preset) { p.DefaultImages = p.DefaultImages[:7] }},
		{"duplicate defaults", func(p *Preset) { p.DefaultImages[7] = p.DefaultImages[0] }},
		{"handle in images", func(p *Preset) { p.Images = []string{HandlePrefix + "abc"} }},
		{"handle as logo", func(p *Preset) { p.Logo = HandlePrefix + "abc" }},
	}

	if err := ValidatePreset(createTestPreset()); err != nil {
		t.Fatalf("Valid preset rejected: %v", err)
	}
	if err := ValidatePreset(nil); !errors.Is(err, ErrInvalidPreset) {
		t.Errorf("Expected ErrInvalidPreset for nil preset, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := createTestPreset()
			tt.modify(p)
			if err := ValidatePreset(p); !errors.Is(err, ErrInvalidPreset) {
				t.Errorf("Expected ErrInvalidPreset, got %v", err)
			}
		})
	}
}

func TestPreset_SettingsAndOptions(t *testing.T) {
	p := createTestPreset()
	p.Images = []string{"/custom/a.png"}

	s := p.Settings()
	if s.MoveCap != 20 || s.Title != "Test" || s.Logo != "/assets/logo.svg" {
		t.Errorf("Unexpected settings: %+v", s)
	}
	s.Images[0] = "changed"
	if p.Images[0] != "/custom/a.png" {
		t.Error("Settings should not share the preset's image slice")
	}

	s.MoveCap = 5
	opts := p.Options(s)
	if opts.MoveCap != 5 {
		t.Errorf("Expected options to use the settings move cap, got %d", opts.MoveCap)
	}
	if len(opts.Defaults) != 8 {
		t.Errorf("Expected 8 defaults, got %d", len(opts.Defaults))
	}
	if opts.Images[0] != "changed" {
		t.Errorf("Expected options to use the settings images, got %v", opts.Images)
	}
}
