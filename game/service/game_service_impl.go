package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/mcp-training/pairsgame/game/engine"
	"github.com/wricardo/mcp-training/pairsgame/game/settings"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	publisher EventPublisher
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// NewGameServiceWithPublisher creates a game service that also pushes
// settings and fullscreen changes to pub
func NewGameServiceWithPublisher(sessions SessionManager, configs ConfigManager, pub EventPublisher) GameService {
	return &gameServiceImpl{
		sessions:  sessions,
		configs:   configs,
		publisher: pub,
	}
}

// CreateSession creates a new game session from a preset. An empty preset
// name uses the default preset.
func (s *gameServiceImpl) CreateSession(ctx context.Context, presetName string) (*SessionInfo, error) {
	presetID := presetName
	var preset *settings.Preset
	var err error
	if presetName != "" {
		preset, err = s.configs.LoadPreset(presetName)
		if err != nil {
			if strings.Contains(err.Error(), "preset not found") {
				available, listErr := s.configs.ListPresets()
				if listErr == nil && len(available) > 0 {
					var ids []string
					for _, p := range available {
						ids = append(ids, p.PresetID)
					}
					return nil, fmt.Errorf("preset '%s' not found. Available presets: %v: %w", presetName, ids, err)
				}
			}
			return nil, fmt.Errorf("failed to load preset %s: %w", presetName, err)
		}
	} else {
		preset = s.configs.GetDefault()
		presetID = s.presetID(preset)
	}

	// Let the session manager generate a 4-character ID
	sess, err := s.sessions.Create("", presetID, preset)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("session", sess.ID).Str("preset", presetID).Msg("session created")
	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions, newest first
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteSession removes a session and stops its timers
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	log.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// Flip turns a card face up
func (s *gameServiceImpl) Flip(ctx context.Context, sessionID string, cardID int) (*FlipResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := sess.Engine.Flip(cardID)
	switch {
	case err == nil:
		log.Debug().Str("session", sessionID).Int("card", cardID).Int("moves", state.Moves).Msg("card flipped")
		return &FlipResult{
			Accepted:  true,
			Message:   flipMessage(state),
			GameState: state.View(),
		}, nil
	case errors.Is(err, engine.ErrUnknownCard):
		return nil, fmt.Errorf("card %d: %w", cardID, err)
	case errors.Is(err, engine.ErrEngineClosed):
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	default:
		log.Debug().Str("session", sessionID).Int("card", cardID).Err(err).Msg("flip ignored")
		return &FlipResult{
			Accepted:  false,
			Reason:    RejectionReason(err),
			Message:   err.Error(),
			GameState: state.View(),
		}, nil
	}
}

// Reset starts a new game, cancelling any pending auto reset
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.StateView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset()
	log.Info().Str("session", sessionID).Str("board", state.BoardID).Msg("game reset")
	return state.View(), nil
}

// GetGameState returns the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.StateView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.State().View(), nil
}

// SetFullscreen records the outcome of a fullscreen request. A request the
// platform refused leaves the session out of fullscreen.
func (s *gameServiceImpl) SetFullscreen(ctx context.Context, sessionID string, requested bool, failure string) (*FullscreenInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	on := requested
	if failure != "" {
		log.Warn().Str("session", sessionID).Str("error", failure).Msg("fullscreen request failed")
		on = false
	}
	sess.SetFullscreen(on)

	s.publish(&GameEvent{Type: EventFullscreen, SessionID: sess.ID, Fullscreen: &on})
	return &FullscreenInfo{Fullscreen: on, Requested: requested, Error: failure}, nil
}

// GetSettings returns the committed and staged settings
func (s *gameServiceImpl) GetSettings(ctx context.Context, sessionID string) (*SettingsInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return settingsInfo(sess), nil
}

// BeginEdit opens an edit on a fresh copy of the committed settings
func (s *gameServiceImpl) BeginEdit(ctx context.Context, sessionID string) (*SettingsInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Settings.BeginEdit(); err != nil {
		return nil, err
	}
	return settingsInfo(sess), nil
}

// UpdateSettings applies a partial update to the staged settings
func (s *gameServiceImpl) UpdateSettings(ctx context.Context, sessionID string, patch settings.Patch) (*SettingsInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Settings.ApplyPatch(patch); err != nil {
		return nil, err
	}
	return settingsInfo(sess), nil
}

// UploadImage stores an uploaded image and stages its handle
func (s *gameServiceImpl) UploadImage(ctx context.Context, sessionID string, kind settings.ImageKind, data []byte, contentType string) (*UploadResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	ref, _, err := sess.Settings.AddImage(kind, data, contentType)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("session", sessionID).Str("ref", ref).Str("kind", string(kind)).Int("bytes", len(data)).Msg("image uploaded")
	return &UploadResult{Ref: ref, Kind: kind, Settings: settingsInfo(sess)}, nil
}

// RemoveImage drops an image reference from the staged settings
func (s *gameServiceImpl) RemoveImage(ctx context.Context, sessionID, ref string) (*SettingsInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Settings.RemoveImage(ref); err != nil {
		return nil, err
	}
	return settingsInfo(sess), nil
}

// CommitSettings makes the staged settings active and rebuilds the board
func (s *gameServiceImpl) CommitSettings(ctx context.Context, sessionID string) (*CommitResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	committed, err := sess.Settings.Commit()
	if err != nil {
		return nil, err
	}

	log.Info().Str("session", sessionID).Int("move_cap", committed.MoveCap).Int("images", len(committed.Images)).Msg("settings committed")
	s.publish(&GameEvent{Type: EventSettingsUpdate, SessionID: sess.ID, Settings: &committed})

	return &CommitResult{
		Settings:  settingsInfo(sess),
		GameState: sess.Engine.State().View(),
	}, nil
}

// DiscardSettings abandons the open edit
func (s *gameServiceImpl) DiscardSettings(ctx context.Context, sessionID string) (*SettingsInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Settings.Discard(); err != nil {
		return nil, err
	}
	return settingsInfo(sess), nil
}

// ImageBlob resolves an upload handle of the session
func (s *gameServiceImpl) ImageBlob(ctx context.Context, sessionID, ref string) (*settings.Blob, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	blob, ok := sess.Settings.Arena().Get(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, ref)
	}
	return blob, nil
}

// ListPresets returns the available presets
func (s *gameServiceImpl) ListPresets(ctx context.Context) ([]*PresetInfo, error) {
	return s.configs.ListPresets()
}

// LoadPreset loads a preset by id
func (s *gameServiceImpl) LoadPreset(ctx context.Context, presetName string) (*settings.Preset, error) {
	return s.configs.LoadPreset(presetName)
}

// session looks a session up and marks it as accessed
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// presetID finds the id a preset is listed under
func (s *gameServiceImpl) presetID(preset *settings.Preset) string {
	available, err := s.configs.ListPresets()
	if err == nil {
		for _, p := range available {
			if p.Name == preset.Name {
				return p.PresetID
			}
		}
	}
	return "default"
}

func (s *gameServiceImpl) publish(ev *GameEvent) {
	if s.publisher == nil {
		return
	}
	ev.Timestamp = time.Now()
	s.publisher.Publish(ev)
}

func sessionInfo(sess *Session) *SessionInfo {
	committed := sess.Settings.Committed()
	state, seq := sess.Engine.Snapshot()
	return &SessionInfo{
		ID:             sess.ID,
		PresetID:       sess.PresetID,
		Title:          committed.Title,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		Fullscreen:     sess.Fullscreen(),
		Seq:            seq,
		GameState:      state.View(),
		Settings:       committed,
	}
}

func settingsInfo(sess *Session) *SettingsInfo {
	arena := sess.Settings.Arena()
	return &SettingsInfo{
		Committed:   sess.Settings.Committed(),
		Staged:      sess.Settings.Staged(),
		Editing:     sess.Settings.Editing(),
		Uploads:     arena.Len(),
		UploadBytes: arena.Bytes(),
	}
}

// RejectionReason maps a flip rejection to a stable reason code
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, engine.ErrBoardLocked):
		return "board_locked"
	case errors.Is(err, engine.ErrAlreadyFlipped):
		return "already_flipped"
	case errors.Is(err, engine.ErrAlreadyMatched):
		return "already_matched"
	case errors.Is(err, engine.ErrTwoFlipped):
		return "two_flipped"
	case errors.Is(err, engine.ErrMoveCapReached):
		return "move_cap_reached"
	case errors.Is(err, engine.ErrUnknownCard):
		return "unknown_card"
	default:
		return "rejected"
	}
}

func flipMessage(state *engine.GameState) string {
	switch state.Phase() {
	case engine.PhaseEvaluating:
		return "Two cards flipped, checking for a match"
	case engine.PhaseOneFlipped:
		return "Card flipped, pick another one"
	default:
		return fmt.Sprintf("%d of %d pairs found", state.Matches, state.TotalPairs)
	}
}
