// Package service provides the business logic layer for the pairs game.
//
// The service package implements:
//   - Multi-session game management
//   - Preset lookup for new sessions
//   - Flip processing with rejection reasons
//   - Staged settings edits, uploads and atomic commits
//   - Client facing views that hide face-down cards
//
// Core Interfaces:
//
// GameService is the main service interface used by every transport.
// SessionManager handles session creation, retrieval and lifecycle.
// ConfigManager loads presets. EventPublisher receives the events a
// session emits so transports can push them to clients.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the game engine. Each Session owns one engine and one settings store; the
// store's commit listener reconfigures the engine, which rebuilds the board.
//
// Usage:
//
//	sessionMgr := session.NewManager(hub)
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameServiceWithPublisher(sessionMgr, configMgr, hub)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	result, err := gameService.Flip(ctx, info.ID, 3)
package service
