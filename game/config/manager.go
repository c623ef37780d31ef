package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/mcp-training/pairsgame/assets"
	"github.com/wricardo/mcp-training/pairsgame/game/service"
	"github.com/wricardo/mcp-training/pairsgame/game/settings"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidPreset  = settings.ErrInvalidPreset
)

// BuiltinPreset is the id of the preset compiled into the binary
const BuiltinPreset = "default"

var presetExtensions = []string{".json", ".toml"}

// Manager handles preset loading and caching
type Manager struct {
	configDir     string
	builtin       *settings.Preset
	defaultPreset *settings.Preset
	presets       map[string]*settings.Preset
	mu            sync.RWMutex
}

// NewManager creates a new preset manager. An empty configDir serves only
// the built-in preset.
func NewManager(configDir string) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("config directory does not exist: %s", configDir)
		}
	}

	builtin, err := createBuiltinPreset()
	if err != nil {
		return nil, fmt.Errorf("failed to build the built-in preset: %w", err)
	}

	m := &Manager{
		configDir: configDir,
		builtin:   builtin,
		presets:   make(map[string]*settings.Preset),
	}

	if err := m.loadDefaultPreset(); err != nil {
		return nil, fmt.Errorf("failed to load default preset: %w", err)
	}

	return m, nil
}

// LoadPreset loads a preset by id. The id is the file name without its
// .json or .toml extension.
func (m *Manager) LoadPreset(name string) (*settings.Preset, error) {
	id := presetID(name)

	m.mu.RLock()
	if p, exists := m.presets[id]; exists {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, exists := m.presets[id]; exists {
		return p, nil
	}

	p, err := m.readPreset(name)
	if errors.Is(err, ErrPresetNotFound) && id == BuiltinPreset {
		p, err = m.builtin, nil
	}
	if err != nil {
		return nil, err
	}

	m.presets[id] = p
	return p, nil
}

// ListPresets returns information about all available presets, sorted by id
func (m *Manager) ListPresets() ([]*service.PresetInfo, error) {
	files := map[string]string{}
	if m.configDir != "" {
		entries, err := os.ReadDir(m.configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read config directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !hasPresetExtension(entry.Name()) {
				continue
			}
			id := presetID(entry.Name())
			if _, dup := files[id]; dup {
				// .json wins over .toml, matching readPreset
				if filepath.Ext(entry.Name()) != ".json" {
					continue
				}
			}
			files[id] = entry.Name()
		}
	}
	if _, ok := files[BuiltinPreset]; !ok {
		files[BuiltinPreset] = ""
	}

	var presets []*service.PresetInfo
	for id, filename := range files {
		p, err := m.LoadPreset(id)
		if err != nil {
			log.Warn().Err(err).Str("preset", id).Msg("skipping invalid preset")
			continue
		}

		presets = append(presets, &service.PresetInfo{
			Filename:    filename,
			PresetID:    id,
			Name:        p.Name,
			Description: p.Description,
			Title:       p.Title,
			MoveCap:     p.MoveCap,
			ImageCount:  len(p.DefaultImages),
		})
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].PresetID < presets[j].PresetID })
	return presets, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *settings.Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault sets the default preset by id
func (m *Manager) SetDefault(name string) error {
	p, err := m.LoadPreset(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPreset = p
	return nil
}

// RefreshCache drops cached presets and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.presets = make(map[string]*settings.Preset)
	m.mu.Unlock()

	return m.loadDefaultPreset()
}

// loadDefaultPreset prefers classic, then the first preset on disk, then the
// built-in one
func (m *Manager) loadDefaultPreset() error {
	p, err := m.LoadPreset("classic")
	if err != nil {
		p = m.builtin

		presets, listErr := m.ListPresets()
		if listErr != nil {
			return listErr
		}
		for _, info := range presets {
			if info.PresetID == BuiltinPreset {
				continue
			}
			if loaded, err := m.LoadPreset(info.PresetID); err == nil {
				p = loaded
				break
			}
		}
	}

	m.mu.Lock()
	m.defaultPreset = p
	m.mu.Unlock()
	return nil
}

// readPreset reads and validates a preset file. Caller must hold mu.
func (m *Manager) readPreset(name string) (*settings.Preset, error) {
	if m.configDir == "" {
		return nil, ErrPresetNotFound
	}

	candidates := []string{name}
	if !hasPresetExtension(name) {
		candidates = candidates[:0]
		for _, ext := range presetExtensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, filename := range candidates {
		path := filepath.Join(m.configDir, filepath.Base(filename))
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read preset file: %w", err)
		}

		p, err := decodePreset(filename, data)
		if err != nil {
			return nil, err
		}
		if err := settings.ValidatePreset(p); err != nil {
			return nil, err
		}
		return p, nil
	}

	return nil, ErrPresetNotFound
}

// decodePreset parses preset data in the format named by the file extension
func decodePreset(filename string, data []byte) (*settings.Preset, error) {
	var p settings.Preset
	switch filepath.Ext(filename) {
	case ".toml":
		if _, err := toml.Decode(string(data), &p); err != nil {
			return nil, fmt.Errorf("failed to parse preset %s: %w", filename, err)
		}
	default:
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse preset %s: %w", filename, err)
		}
	}
	return &p, nil
}

// LoadPresetFile reads and validates a single preset file outside any
// manager
func LoadPresetFile(path string) (*settings.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	p, err := decodePreset(path, data)
	if err != nil {
		return nil, err
	}
	if err := settings.ValidatePreset(p); err != nil {
		return nil, err
	}
	return p, nil
}

// createBuiltinPreset builds the preset backed by the embedded card set
func createBuiltinPreset() (*settings.Preset, error) {
	images, err := assets.DefaultImages()
	if err != nil {
		return nil, err
	}

	p := &settings.Preset{
		Name:          "Default",
		Description:   "Built-in fruit card set, unlimited moves",
		Title:         "Pairs",
		Logo:          assets.LogoURL(),
		CardBackLogo:  assets.CardBackURL(),
		DefaultImages: images,
	}
	if err := settings.ValidatePreset(p); err != nil {
		return nil, err
	}
	return p, nil
}

func presetID(name string) string {
	base := filepath.Base(name)
	for _, ext := range presetExtensions {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func hasPresetExtension(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range presetExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
