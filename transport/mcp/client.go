package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/pairsgame/game/engine"
	"github.com/wricardo/mcp-training/pairsgame/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer

	mu         sync.RWMutex
	adminToken string
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// SetAdminToken sets the token sent with settings requests
func (c *Client) SetAdminToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adminToken = token
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.adminToken
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Pairs",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Pairs - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Find all 8 pairs on a 4x4 board of face-down cards. Flip two cards per turn; matching cards stay face up.

AVAILABLE TOOLS:
- create_session: Create a new game session from a preset
- get_session / list_sessions: Inspect sessions
- game_state: Board as a 4x4 grid (?? = face down)
- flip_card: Flip one card - requires intent explanation
- flip_pair: Flip two cards in one turn - requires intent explanation
- describe_card: Position and visibility of one card
- reset_game: Deal a new board
- list_presets: Available presets
- admin_login, get_settings, edit_settings, commit_settings, discard_settings: Board settings
- game_instructions: Full rules

NOTE: Unmatched cards turn face down about one second after the second flip. Remember what you saw!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional preset selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"preset_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the preset to use (optional, see list_presets)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flip_card",
		Description: "Flip a single card face up",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"card_id": map[string]interface{}{
					"type":        "integer",
					"minimum":     0,
					"maximum":     engine.BoardSize - 1,
					"description": "Card position, 0-15 in row-major order",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why you are flipping this card (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "card_id"},
		},
	}, c.handleFlipCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flip_pair",
		Description: "Flip two cards as one turn and show both before they are evaluated",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"first": map[string]interface{}{
					"type":        "integer",
					"description": "First card position",
				},
				"second": map[string]interface{}{
					"type":        "integer",
					"description": "Second card position",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this pair (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "first", "second"},
		},
	}, c.handleFlipPair)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Deal a new board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_card",
		Description: "Get the grid position and visibility of one card",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"card_id": map[string]interface{}{
					"type":        "integer",
					"description": "Card position, 0-15",
				},
			},
			Required: []string{"session_id", "card_id"},
		},
	}, c.handleDescribeCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List available game presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	// Settings
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "admin_login",
		Description: "Log in as admin so settings can be changed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"password": map[string]interface{}{
					"type":        "string",
					"description": "Admin password",
				},
			},
			Required: []string{"password"},
		},
	}, c.handleAdminLogin)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_settings",
		Description: "Show committed and staged settings of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSettings)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "edit_settings",
		Description: "Stage settings changes. Nothing changes on the board until commit_settings.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"move_cap": map[string]interface{}{
					"type":        "string",
					"description": "Maximum flips per game; 0 or empty means unlimited",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Board title",
				},
				"images": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Card image URLs; fewer than 8 distinct images falls back to the built-in set",
				},
				"logo": map[string]interface{}{
					"type":        "string",
					"description": "Logo image URL",
				},
				"card_back_logo": map[string]interface{}{
					"type":        "string",
					"description": "Image shown on the back of every card",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEditSettings)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "commit_settings",
		Description: "Apply staged settings and deal a new board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleCommitSettings)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "discard_settings",
		Description: "Throw away staged settings",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleDiscardSettings)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return fmt.Sprintf("/api/sessions/%s%s", sessionID, suffix)
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	presetID := request.GetString("preset_id", "")

	body := map[string]string{}
	if presetID != "" {
		body["preset_id"] = presetID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nPreset: %s\n\n", session.ID, session.PresetID)
	result += formatGameState(session.GameState)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		matches := 0
		if s.GameState != nil {
			matches = s.GameState.Matches
		}
		result += fmt.Sprintf("- %s (Preset: %s, Pairs: %d/%d, Created: %s)\n",
			s.ID, s.PresetID, matches, engine.TotalPairs, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.StateView
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) flip(ctx context.Context, sessionID string, cardID int) (*service.FlipResult, error) {
	var result service.FlipResult
	err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/flip"), map[string]int{"card_id": cardID}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) handleFlipCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cardID, err := request.RequireInt("card_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Intent is only there for the caller's reasoning
	_ = request.GetString("intent", "")

	result, err := c.flip(ctx, sessionID, cardID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFlipResult(cardID, result)), nil
}

func (c *Client) handleFlipPair(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	first, err := request.RequireInt("first")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	second, err := request.RequireInt("second")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if first == second {
		return mcp.NewToolResultError("first and second must be different cards"), nil
	}

	_ = request.GetString("intent", "")

	firstResult, err := c.flip(ctx, sessionID, first)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !firstResult.Accepted {
		return mcp.NewToolResultText(formatFlipResult(first, firstResult)), nil
	}

	secondResult, err := c.flip(ctx, sessionID, second)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPairResult(first, second, secondResult)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.StateView `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("New board dealt.\n\n" + formatGameState(response.State)), nil
}

func (c *Client) handleDescribeCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cardID, err := request.RequireInt("card_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.StateView
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if cardID < 0 || cardID >= len(state.Cards) {
		return mcp.NewToolResultError(fmt.Sprintf("card %d is outside the board (0-%d)", cardID, len(state.Cards)-1)), nil
	}

	card := state.Cards[cardID]
	row, col := cardID/engine.GridSize, cardID%engine.GridSize

	var b strings.Builder
	fmt.Fprintf(&b, "Card %d (row %d, column %d)\n", cardID, row, col)
	switch {
	case card.Matched:
		fmt.Fprintf(&b, "Matched: %s\nFlipping it again is rejected.\n", imageName(card.Image))
	case card.FaceUp:
		fmt.Fprintf(&b, "Face up: %s\nWaiting for evaluation.\n", imageName(card.Image))
	default:
		b.WriteString("Face down. It can be flipped")
		if state.Locked {
			b.WriteString(" once the current pair is evaluated")
		}
		b.WriteString(".\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []service.PresetInfo
	if err := c.apiCall(ctx, "GET", "/api/presets", nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Presets:\n\n"
	for _, p := range presets {
		moveCap := "unlimited"
		if p.MoveCap > 0 {
			moveCap = fmt.Sprintf("%d flips", p.MoveCap)
		}
		result += fmt.Sprintf("- %s: %s (%s, %d images)\n", p.PresetID, p.Name, moveCap, p.ImageCount)
		if p.Description != "" {
			result += fmt.Sprintf("  %s\n", p.Description)
		}
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := service.InstructionsText + `

BOARD LAYOUT (card ids):
   0  1  2  3
   4  5  6  7
   8  9 10 11
  12 13 14 15

TOOL TIPS:
- flip_pair shows both images before they are checked; use it for whole turns
- A rejected flip is not an error: the reason tells you why (board_locked, already_flipped, already_matched, move_cap_reached)
- After the last pair is found the board deals itself again after ten seconds
`
	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleAdminLogin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	password, err := request.RequireString("password")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := c.apiCall(ctx, "POST", "/api/admin/login", map[string]string{"password": password}, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c.SetAdminToken(response.Token)
	return mcp.NewToolResultText(fmt.Sprintf("Logged in as admin until %s", response.ExpiresAt.Format(time.RFC3339))), nil
}

func (c *Client) handleGetSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SettingsInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/settings"), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSettings(&info)), nil
}

func (c *Client) handleEditSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	patch := map[string]interface{}{}
	for _, key := range []string{"move_cap", "title", "images", "logo", "card_back_logo"} {
		if v, ok := args[key]; ok {
			patch[key] = v
		}
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/settings/edit"), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SettingsInfo
	if len(patch) > 0 {
		if err := c.apiCall(ctx, "PATCH", sessionPath(sessionID, "/settings/staged"), patch, &info); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	} else if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/settings"), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Changes staged. Run commit_settings to apply them.\n\n" + formatSettings(&info)), nil
}

func (c *Client) handleCommitSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.CommitResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/settings/commit"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := "Settings applied. A new board was dealt.\n\n"
	if result.Settings != nil {
		text += formatSettings(result.Settings) + "\n"
	}
	text += formatGameState(result.GameState)
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleDiscardSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SettingsInfo
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/settings/discard"), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Staged changes discarded.\n\n" + formatSettings(&info)), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nPreset: %s\nCreated: %s\nLast accessed: %s\n",
		session.ID, session.PresetID,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.Title != "" {
		result += fmt.Sprintf("Title: %s\n", session.Title)
	}
	result += "\n" + formatGameState(session.GameState)
	return result
}

// imageName shortens an image URL to something readable in a grid cell
func imageName(image string) string {
	if image == "" {
		return "??"
	}
	name := path.Base(image)
	return strings.TrimSuffix(name, path.Ext(name))
}

func formatGameState(state *engine.StateView) string {
	if state == nil {
		return "No game state available\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Board %s - phase: %s\n", state.BoardID, state.Phase)
	fmt.Fprintf(&b, "Pairs: %d/%d  Moves: %d", state.Matches, state.TotalPairs, state.Moves)
	if state.MoveCap > 0 {
		fmt.Fprintf(&b, " (%d left)", state.MovesLeft)
	}
	b.WriteString("\n\n")

	for i, card := range state.Cards {
		cell := fmt.Sprintf("%2d ??", card.ID)
		switch {
		case card.Matched:
			cell = fmt.Sprintf("%2d *%s*", card.ID, imageName(card.Image))
		case card.FaceUp:
			cell = fmt.Sprintf("%2d %s", card.ID, imageName(card.Image))
		}
		fmt.Fprintf(&b, "%-14s", cell)
		if (i+1)%engine.GridSize == 0 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\nLegend: ?? = face down, *name* = matched\n")
	if state.Locked {
		b.WriteString("Board is locked while the flipped pair is evaluated.\n")
	}
	if state.Completed {
		b.WriteString("All pairs found! A new board will be dealt shortly.\n")
	} else if state.MoveCap > 0 && state.MovesLeft == 0 {
		b.WriteString("No moves left. Use reset_game to play again.\n")
	}
	return b.String()
}

func formatFlipResult(cardID int, result *service.FlipResult) string {
	var b strings.Builder
	if result.Accepted {
		image := ""
		if result.GameState != nil && cardID < len(result.GameState.Cards) {
			image = imageName(result.GameState.Cards[cardID].Image)
		}
		fmt.Fprintf(&b, "Flipped card %d: %s\n", cardID, image)
	} else {
		fmt.Fprintf(&b, "Flip of card %d rejected (%s)\n", cardID, result.Reason)
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatPairResult(first, second int, result *service.FlipResult) string {
	if !result.Accepted || result.GameState == nil {
		return formatFlipResult(second, result)
	}

	a := imageName(result.GameState.Cards[first].Image)
	bImg := imageName(result.GameState.Cards[second].Image)

	var b strings.Builder
	fmt.Fprintf(&b, "Card %d: %s\nCard %d: %s\n", first, a, second, bImg)
	if a == bImg {
		b.WriteString("Same image: this pair will be matched.\n\n")
	} else {
		b.WriteString("Different images: both cards turn face down after evaluation.\n\n")
	}
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatSettings(info *service.SettingsInfo) string {
	var b strings.Builder
	writeSettings := func(label string, title string, moveCap int, images []string, logo, back string) {
		capText := "unlimited"
		if moveCap > 0 {
			capText = fmt.Sprintf("%d", moveCap)
		}
		fmt.Fprintf(&b, "%s:\n  Title: %s\n  Move cap: %s\n  Images: %d\n", label, title, capText, len(images))
		if logo != "" {
			fmt.Fprintf(&b, "  Logo: %s\n", logo)
		}
		if back != "" {
			fmt.Fprintf(&b, "  Card back: %s\n", back)
		}
	}

	c := info.Committed
	writeSettings("Committed", c.Title, c.MoveCap, c.Images, c.Logo, c.CardBackLogo)
	if info.Editing {
		s := info.Staged
		writeSettings("Staged", s.Title, s.MoveCap, s.Images, s.Logo, s.CardBackLogo)
	} else {
		b.WriteString("No edit in progress.\n")
	}
	if info.Uploads > 0 {
		fmt.Fprintf(&b, "Uploaded images held: %d (%d bytes)\n", info.Uploads, info.UploadBytes)
	}
	return b.String()
}
