// Package config provides preset management for the pairs game.
//
// A preset seeds a new session: title, logos, move cap, optional custom
// images and the default image set boards fall back to. Presets live in the
// configs directory as JSON or TOML files; the file name without extension
// is the preset id. When both formats exist for an id the JSON file wins.
//
// A built-in "default" preset backed by the embedded card set is always
// available, so the server can run without a configs directory.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal().Err(err).Msg("presets")
//	}
//
//	preset, err := manager.LoadPreset("challenge")
//	presets, err := manager.ListPresets()
//	fallback := manager.GetDefault()
//
// Every preset is validated on load: a name is required, the move cap must
// not be negative, at least 8 distinct default images are needed and upload
// handles are rejected since they do not outlive a session.
package config
