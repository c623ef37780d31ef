// Package mcp exposes the pairs game to AI agents over the Model Context
// Protocol.
//
// The client is a thin proxy: every tool call becomes one or more REST calls
// against the api package, so agents and browsers share the same sessions.
//
// Tools:
//   - create_session, get_session, list_sessions
//   - game_state: the board as a 4x4 grid, face-down cards shown as ??
//   - flip_card, flip_pair: flip one card, or a whole turn
//   - describe_card: position and visibility of a single card
//   - reset_game
//   - list_presets, game_instructions
//   - admin_login, get_settings, edit_settings, commit_settings, discard_settings
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
