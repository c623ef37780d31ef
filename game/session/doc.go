// Package session provides session management for the pairs game.
//
// The session package implements:
//   - Thread-safe in-memory session storage and retrieval
//   - Unique session ID generation
//   - Session cleanup and expiration
//
// Each session owns a game engine and a settings store built from a preset
// (see service.NewSession). Deleting or expiring a session closes it: the
// engine's pending timers are cancelled and every uploaded image is released.
// Sessions are not persisted; a restart starts from an empty manager.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs generated with crypto/rand. Lookups are
// case-insensitive.
//
// Usage:
//
//	manager := session.NewManagerWithPublisher(hub, nil)
//
//	sess, err := manager.Create("", "classic", preset)
//	sess, err = manager.Get(sess.ID)
//
//	// periodically
//	removed := manager.CleanupExpiredSessions(24 * time.Hour)
package session
