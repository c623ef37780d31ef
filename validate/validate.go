// Package validate checks preset files before they are deployed. It
// verifies that:
//   - the file parses as JSON or TOML and passes preset validation
//   - every built-in asset URL it references is embedded in the binary
//   - a move cap, when set, still allows the board to be cleared
//
// It also summarizes each preset for the analyze command.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/pairsgame/assets"
	"github.com/wricardo/mcp-training/pairsgame/game/config"
	"github.com/wricardo/mcp-training/pairsgame/game/engine"
	"github.com/wricardo/mcp-training/pairsgame/game/settings"
)

// ValidationResult captures the outcome of validating a single file.
// Warnings never make a file invalid.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Preset   *settings.Preset
}

// Summary is a quick, human-readable description of a preset
type Summary struct {
	File string
	Name string
	// MoveCap is 0 for unlimited
	MoveCap int
	// Slack is how many flips beyond a perfect game the cap allows. -1 when
	// there is no cap.
	Slack int
	// ImageSource is "custom" when the preset's own images fill a board,
	// otherwise "defaults"
	ImageSource    string
	DistinctImages int
}

// File validates a single preset file
func File(path string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(path),
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	p, err := config.LoadPresetFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Preset = p

	refs := append(append([]string{}, p.Images...), p.DefaultImages...)
	refs = append(refs, p.Logo, p.CardBackLogo)
	for _, ref := range refs {
		if strings.HasPrefix(ref, assets.URLPrefix) && !assets.Exists(ref) {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("asset %s is not embedded", ref))
		}
	}

	if p.MoveCap > 0 && p.MoveCap < engine.BoardSize {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("move_cap %d is below the %d flips a perfect game needs; no game can be completed", p.MoveCap, engine.BoardSize))
	}
	if n := distinct(p.Images); n > 0 && n < engine.TotalPairs {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d distinct custom images, %d needed; boards use the default images", n, engine.TotalPairs))
	}

	return result
}

// Dir validates every preset file in dir, in name order
func Dir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".json", ".toml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	results := make([]ValidationResult, 0, len(names))
	for _, name := range names {
		results = append(results, File(filepath.Join(dir, name)))
	}
	return results, nil
}

// Summarize describes a preset that loaded successfully
func Summarize(file string, p *settings.Preset) Summary {
	s := Summary{
		File:    file,
		Name:    p.Name,
		MoveCap: p.MoveCap,
		Slack:   -1,
	}
	if p.MoveCap > 0 {
		s.Slack = p.MoveCap - engine.BoardSize
	}

	if n := distinct(p.Images); n >= engine.TotalPairs {
		s.ImageSource = "custom"
		s.DistinctImages = n
	} else {
		s.ImageSource = "defaults"
		s.DistinctImages = distinct(p.DefaultImages)
	}
	return s
}

func distinct(refs []string) int {
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref != "" {
			seen[ref] = true
		}
	}
	return len(seen)
}
