package engine

import (
	"errors"
	"testing"
)

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"valid defaults", Options{Defaults: testDefaults()}, false},
		{"valid with cap", Options{Defaults: testDefaults(), MoveCap: 12}, false},
		{"custom images do not replace defaults", Options{Images: testDefaults(), Defaults: []string{"a"}}, true},
		{"negative cap", Options{Defaults: testDefaults(), MoveCap: -1}, true},
		{"no defaults", Options{}, true},
		{"duplicate defaults", Options{Defaults: []string{"a", "a", "b", "c", "d", "e", "f", "g"}}, true},
		{"blank defaults skipped", Options{Defaults: []string{"", "a", "b", "c", "d", "e", "f", "g", "h"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOptions(tt.opts)
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestValidateOptions_WrapsNotEnoughImages(t *testing.T) {
	err := ValidateOptions(Options{Defaults: []string{"a", "b"}})
	if !errors.Is(err, ErrNotEnoughImages) {
		t.Errorf("Expected ErrNotEnoughImages, got %v", err)
	}
}

func TestOptions_Clone(t *testing.T) {
	opts := Options{Images: []string{"x"}, Defaults: testDefaults(), MoveCap: 3}
	clone := opts.Clone()

	clone.Images[0] = "changed"
	clone.Defaults[0] = "changed"

	if opts.Images[0] != "x" || opts.Defaults[0] == "changed" {
		t.Error("Clone must not share slices with the original")
	}
	if clone.MoveCap != 3 {
		t.Errorf("Expected move cap 3, got %d", clone.MoveCap)
	}
}
