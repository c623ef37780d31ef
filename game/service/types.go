package service

import (
	"time"

	"github.com/wricardo/mcp-training/pairsgame/game/engine"
	"github.com/wricardo/mcp-training/pairsgame/game/settings"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	PresetID       string            `json:"preset_id"`
	Title          string            `json:"title"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	Fullscreen     bool              `json:"fullscreen"`
	Seq            uint64            `json:"seq"`
	GameState      *engine.StateView `json:"game_state"`
	Settings       settings.Settings `json:"settings"`
}

// FlipResult contains the result of a flip. Rejected flips are not errors:
// the state is returned unchanged together with the rejection reason.
type FlipResult struct {
	Accepted  bool              `json:"accepted"`
	Reason    string            `json:"reason,omitempty"`
	Message   string            `json:"message"`
	GameState *engine.StateView `json:"game_state"`
}

// SettingsInfo is the committed and staged settings of a session
type SettingsInfo struct {
	Committed settings.Settings `json:"committed"`
	Staged    settings.Settings `json:"staged"`
	Editing   bool              `json:"editing"`
	Uploads   int               `json:"uploads"`
	// UploadBytes is the total size of uploads held by the session
	UploadBytes int `json:"upload_bytes"`
}

// UploadResult is returned after an image upload
type UploadResult struct {
	Ref      string             `json:"ref"`
	Kind     settings.ImageKind `json:"kind"`
	Settings *SettingsInfo      `json:"settings"`
}

// CommitResult is returned after committing staged settings
type CommitResult struct {
	Settings  *SettingsInfo     `json:"settings"`
	GameState *engine.StateView `json:"game_state"`
}

// FullscreenInfo reports the fullscreen state after a toggle
type FullscreenInfo struct {
	Fullscreen bool   `json:"fullscreen"`
	Requested  bool   `json:"requested"`
	Error      string `json:"error,omitempty"`
}

// PresetInfo provides information about an available preset
type PresetInfo struct {
	Filename    string `json:"filename,omitempty"`
	PresetID    string `json:"preset_id"` // identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Title       string `json:"title"`
	MoveCap     int    `json:"move_cap"`
	ImageCount  int    `json:"image_count"`
}

// Event types pushed to clients on top of the engine's own
const (
	EventSettingsUpdate = "settings_update"
	EventFullscreen     = "fullscreen"
)

// GameEvent is a session scoped notification pushed to connected clients
type GameEvent struct {
	Type        string             `json:"type"`
	SessionID   string             `json:"session_id"`
	Seq         uint64             `json:"seq,omitempty"`
	BoardID     string             `json:"board_id,omitempty"`
	GameState   *engine.StateView  `json:"game_state,omitempty"`
	Outcome     string             `json:"outcome,omitempty"`
	Bursts      []engine.Burst     `json:"bursts,omitempty"`
	RemainingMs int64              `json:"remaining_ms,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Settings    *settings.Settings `json:"settings,omitempty"`
	Fullscreen  *bool              `json:"fullscreen,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// NewGameEvent converts an engine event into its client facing form
func NewGameEvent(sessionID string, ev engine.Event) *GameEvent {
	return &GameEvent{
		Type:        string(ev.Type),
		SessionID:   sessionID,
		Seq:         ev.Seq,
		BoardID:     ev.BoardID,
		GameState:   ev.State.View(),
		Outcome:     string(ev.Outcome),
		Bursts:      ev.Bursts,
		RemainingMs: ev.Remaining,
		Reason:      ev.Reason,
		Timestamp:   time.Now(),
	}
}

// InstructionsText describes the game for agents and API users
const InstructionsText = `Pairs is a memory game on a 4x4 board of 16 face-down cards: 8 images, each on exactly two cards.

Flip two cards per turn. After a short delay the pair is checked:
- Same image: both cards stay face up as matched.
- Different images: both cards turn face down again.

While a pair is being checked the board is locked and further flips are ignored.
Face-down cards do not reveal their image; remember what you have seen.

A move cap may limit the number of flips (0 means unlimited). The game is won when all 8 pairs
are matched; a celebration plays and a new board is dealt 10 seconds later unless you reset first.`
