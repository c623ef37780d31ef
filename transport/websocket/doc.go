// Package websocket pushes game events to browser clients.
//
// A central Hub owns every connection. Clients attach to one session with
// GET /ws?session={id}; the hub implements service.EventPublisher, so every
// engine event of that session (state_update, evaluated, celebration,
// board_reset) and the service's settings_update and fullscreen events are
// forwarded to its clients as one JSON object per text frame:
//
//	{"type": "celebration", "session_id": "ab12", "board_id": "...",
//	 "bursts": [...], "remaining_ms": 2750, "timestamp": "..."}
//
// Game state inside events uses the client view, so face-down cards never
// reveal their image. Clients act through the REST API; frames they send
// are read and discarded.
//
// Publish never blocks. Events are dropped when the hub's queue is full and
// a client whose own queue is full is disconnected.
package websocket
