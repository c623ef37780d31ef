package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/pairsgame/game/engine"
	"github.com/wricardo/mcp-training/pairsgame/game/schedule"
	"github.com/wricardo/mcp-training/pairsgame/game/settings"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrImageNotFound   = errors.New("image not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, presetName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Flip(ctx context.Context, sessionID string, cardID int) (*FlipResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.StateView, error)
	GetGameState(ctx context.Context, sessionID string) (*engine.StateView, error)
	SetFullscreen(ctx context.Context, sessionID string, requested bool, failure string) (*FullscreenInfo, error)

	// Settings
	GetSettings(ctx context.Context, sessionID string) (*SettingsInfo, error)
	BeginEdit(ctx context.Context, sessionID string) (*SettingsInfo, error)
	UpdateSettings(ctx context.Context, sessionID string, patch settings.Patch) (*SettingsInfo, error)
	UploadImage(ctx context.Context, sessionID string, kind settings.ImageKind, data []byte, contentType string) (*UploadResult, error)
	RemoveImage(ctx context.Context, sessionID, ref string) (*SettingsInfo, error)
	CommitSettings(ctx context.Context, sessionID string) (*CommitResult, error)
	DiscardSettings(ctx context.Context, sessionID string) (*SettingsInfo, error)
	ImageBlob(ctx context.Context, sessionID, ref string) (*settings.Blob, error)

	// Presets
	ListPresets(ctx context.Context) ([]*PresetInfo, error)
	LoadPreset(ctx context.Context, presetName string) (*settings.Preset, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, presetID string, preset *settings.Preset) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, presetID string, preset *settings.Preset) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles preset loading
type ConfigManager interface {
	LoadPreset(name string) (*settings.Preset, error)
	ListPresets() ([]*PresetInfo, error)
	GetDefault() *settings.Preset
}

// EventPublisher pushes session events to connected clients
type EventPublisher interface {
	Publish(event *GameEvent)
}

// Session represents an active game session
type Session struct {
	ID        string
	PresetID  string
	Preset    *settings.Preset
	Engine    *engine.GameEngine
	Settings  *settings.Store
	CreatedAt time.Time

	mu           sync.Mutex
	fullscreen   bool
	lastAccessed time.Time
}

// NewSession builds a session from a preset: a settings store seeded with
// the preset's settings and an engine whose board is rebuilt on every commit.
// Engine events are forwarded to pub when it is not nil.
func NewSession(id, presetID string, preset *settings.Preset, sched schedule.Scheduler, pub EventPublisher) (*Session, error) {
	if err := settings.ValidatePreset(preset); err != nil {
		return nil, err
	}

	initial := preset.Settings()
	eng, err := engine.NewEngine(preset.Options(initial), sched)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	store := settings.NewStore(initial, nil)
	store.OnCommit(func(s settings.Settings) error {
		_, err := eng.Configure(preset.Options(s))
		return err
	})

	if pub != nil {
		eng.Subscribe(func(ev engine.Event) {
			pub.Publish(NewGameEvent(id, ev))
		})
	}

	now := time.Now()
	return &Session{
		ID:           id,
		PresetID:     presetID,
		Preset:       preset,
		Engine:       eng,
		Settings:     store,
		CreatedAt:    now,
		lastAccessed: now,
	}, nil
}

// Fullscreen reports the session's fullscreen state
func (s *Session) Fullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreen
}

// SetFullscreen records the session's fullscreen state
func (s *Session) SetFullscreen(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullscreen = on
}

// Touch marks the session as accessed now
func (s *Session) Touch() {
	s.TouchAt(time.Now())
}

// TouchAt records t as the session's last access time
func (s *Session) TouchAt(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = t
}

// LastAccessed returns when the session was last used
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Close stops the engine's timers and releases every uploaded image
func (s *Session) Close() {
	s.Engine.Close()
	s.Settings.Close()
}
