// Package api provides the HTTP REST API for the pairs game.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session from a preset ({"preset_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=n)
//   - GET /api/sessions/{id} - Session details
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game:
//   - GET /api/sessions/{id}/state - Current board (face-down cards hide their image)
//   - POST /api/sessions/{id}/flip - Flip a card ({"card_id": 3})
//   - POST /api/sessions/{id}/reset - Deal a new board
//   - POST /api/sessions/{id}/fullscreen - Report a fullscreen toggle ({"fullscreen": true, "error": ""})
//
// Settings (admin token required when admin auth is configured):
//   - GET /api/sessions/{id}/settings - Committed and staged settings
//   - POST /api/sessions/{id}/settings/edit - Open an edit
//   - PATCH /api/sessions/{id}/settings/staged - Partial update of the staged settings
//   - POST /api/sessions/{id}/settings/images?kind=card|logo|card_back - Upload images
//   - DELETE /api/sessions/{id}/settings/images/{ref} - Drop a staged image
//   - POST /api/sessions/{id}/settings/commit - Apply staged settings and rebuild the board
//   - POST /api/sessions/{id}/settings/discard - Abandon the edit
//   - GET /api/sessions/{id}/images/{ref} - Uploaded image, or a placeholder
//
// Presets and admin:
//   - GET /api/presets, GET /api/presets/{name}
//   - POST /api/admin/login - Exchange the admin password for a token
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket event stream
//   - GET /assets/... - Built-in card images and logos
//
// All errors are returned as {"error": "message"} with a status code chosen
// from the error kind. Rejected flips are not errors: they return 200 with
// "accepted": false and a reason.
package api
