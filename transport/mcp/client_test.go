package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/mcp-training/pairsgame/api"
	"github.com/wricardo/mcp-training/pairsgame/game/config"
	"github.com/wricardo/mcp-training/pairsgame/game/engine"
	"github.com/wricardo/mcp-training/pairsgame/game/schedule"
	"github.com/wricardo/mcp-training/pairsgame/game/service"
	"github.com/wricardo/mcp-training/pairsgame/game/session"
)

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	if args == nil {
		args = map[string]interface{}{}
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func faceDownState() *engine.StateView {
	cards := make([]engine.CardView, engine.BoardSize)
	for i := range cards {
		cards[i] = engine.CardView{ID: i}
	}
	return &engine.StateView{BoardID: "b1", Phase: engine.PhaseIdle, Cards: cards, TotalPairs: engine.TotalPairs, MovesLeft: -1}
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080/"
	client := NewClient(baseURL)

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash to be trimmed, got %s", client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.mcpServer == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]string
	if err := client.apiCall(context.Background(), "GET", "/health", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["status"] != "healthy" {
		t.Errorf("Unexpected response: %v", response)
	}
	if gotAuth != "" {
		t.Errorf("Expected no Authorization header, got %q", gotAuth)
	}

	client.SetAdminToken("tok")
	if err := client.apiCall(context.Background(), "GET", "/health", nil, nil); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Expected bearer token, got %q", gotAuth)
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/api", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "API error") {
		t.Errorf("Expected 'API error', got: %v", err)
	}

	err = client.apiCall(context.Background(), "GET", "/json", nil, nil)
	if err == nil || err.Error() != "session not found" {
		t.Errorf("Expected API error message, got: %v", err)
	}
}

func TestClient_createSession(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)

		resp := service.SessionInfo{
			ID:        "ab12",
			PresetID:  "classic",
			GameState: faceDownState(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleCreateSession(context.Background(), toolRequest("create_session", map[string]interface{}{"preset_id": "classic"}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "ab12") || !strings.Contains(text, "Preset: classic") {
		t.Errorf("Expected session ID and preset in result, got: %s", text)
	}
	if gotBody["preset_id"] != "classic" {
		t.Errorf("Expected preset_id to be sent, got %v", gotBody)
	}
}

func TestClient_flipCardMissingArgs(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleFlipCard(context.Background(), toolRequest("flip_card", map[string]interface{}{"session_id": "ab12"}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected tool error for missing card_id")
	}
}

func TestClient_flipPairSameCard(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, _ := client.handleFlipPair(context.Background(), toolRequest("flip_pair", map[string]interface{}{
		"session_id": "ab12", "first": 3, "second": 3,
	}))
	if !result.IsError {
		t.Error("Expected tool error when flipping the same card twice")
	}
}

func TestClient_editSettings(t *testing.T) {
	var calls []string
	var patch map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == "PATCH" {
			json.NewDecoder(r.Body).Decode(&patch)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(service.SettingsInfo{Editing: true})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleEditSettings(context.Background(), toolRequest("edit_settings", map[string]interface{}{
		"session_id": "ab12",
		"move_cap":   "12",
		"title":      "Fruit",
	}))
	if err != nil {
		t.Fatalf("editSettings failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Unexpected tool error: %s", resultText(t, result))
	}

	want := []string{"POST /api/sessions/ab12/settings/edit", "PATCH /api/sessions/ab12/settings/staged"}
	if len(calls) != len(want) || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("Expected calls %v, got %v", want, calls)
	}
	if patch["move_cap"] != "12" || patch["title"] != "Fruit" {
		t.Errorf("Unexpected patch: %v", patch)
	}
	if _, ok := patch["session_id"]; ok {
		t.Error("session_id should not be part of the patch")
	}
}

func TestFormatGameState(t *testing.T) {
	state := faceDownState()
	state.Cards[0] = engine.CardView{ID: 0, Image: "/assets/cards/apple.svg", FaceUp: true, Matched: true}
	state.Cards[5] = engine.CardView{ID: 5, Image: "/assets/cards/apple.svg", FaceUp: true, Matched: true}
	state.Cards[6] = engine.CardView{ID: 6, Image: "blob:abc", FaceUp: true}
	state.Matches = 1
	state.Moves = 3
	state.MoveCap = 10
	state.MovesLeft = 7

	result := formatGameState(state)

	expected := []string{
		"Pairs: 1/8",
		"Moves: 3 (7 left)",
		" 0 *apple*",
		" 6 blob:abc",
		" 1 ??",
	}
	for _, field := range expected {
		if !strings.Contains(result, field) {
			t.Errorf("Expected %q in formatted output, got:\n%s", field, result)
		}
	}

	if got := strings.Count(result, "\n"); got < engine.GridSize+2 {
		t.Errorf("Expected a %d-row grid, got:\n%s", engine.GridSize, result)
	}
}

func TestFormatGameState_Nil(t *testing.T) {
	if got := formatGameState(nil); !strings.Contains(got, "No game state") {
		t.Errorf("Unexpected output for nil state: %s", got)
	}
}

func TestFormatFlipResult_Rejected(t *testing.T) {
	result := formatFlipResult(4, &service.FlipResult{
		Accepted:  false,
		Reason:    "board_locked",
		GameState: faceDownState(),
	})

	if !strings.Contains(result, "rejected (board_locked)") {
		t.Errorf("Expected rejection reason, got: %s", result)
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), toolRequest("game_instructions", nil))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, content := range []string{"4x4", "BOARD LAYOUT", "12 13 14 15", "flip_pair"} {
		if !strings.Contains(text, content) {
			t.Errorf("Expected %q in instructions", content)
		}
	}
}

// TestClient_AgainstAPI drives the tools against a real API server
func TestClient_AgainstAPI(t *testing.T) {
	configs, err := config.NewManager("")
	if err != nil {
		t.Fatalf("config.NewManager failed: %v", err)
	}
	sessions := session.NewManagerWithPublisher(nil, schedule.NewManual())
	defer sessions.CloseAll()

	svc := service.NewGameService(sessions, configs)
	server := httptest.NewServer(api.NewServer(svc, nil, nil))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	created, err := client.handleCreateSession(ctx, toolRequest("create_session", nil))
	if err != nil || created.IsError {
		t.Fatalf("create_session failed: %v %s", err, resultText(t, created))
	}

	list := sessions.List()
	if len(list) != 1 {
		t.Fatalf("Expected one session, got %d", len(list))
	}
	id := list[0].ID

	pair, err := client.handleFlipPair(ctx, toolRequest("flip_pair", map[string]interface{}{
		"session_id": id, "first": 0, "second": 15,
	}))
	if err != nil || pair.IsError {
		t.Fatalf("flip_pair failed: %v %s", err, resultText(t, pair))
	}
	if text := resultText(t, pair); !strings.Contains(text, "Card 0:") || !strings.Contains(text, "locked") {
		t.Errorf("Unexpected flip_pair output:\n%s", text)
	}

	locked, _ := client.handleFlipCard(ctx, toolRequest("flip_card", map[string]interface{}{
		"session_id": id, "card_id": 7,
	}))
	if text := resultText(t, locked); !strings.Contains(text, "board_locked") {
		t.Errorf("Expected board_locked rejection, got:\n%s", text)
	}

	described, _ := client.handleDescribeCard(ctx, toolRequest("describe_card", map[string]interface{}{
		"session_id": id, "card_id": 15,
	}))
	if text := resultText(t, described); !strings.Contains(text, "row 3, column 3") {
		t.Errorf("Unexpected describe_card output:\n%s", text)
	}

	presets, _ := client.handleListPresets(ctx, toolRequest("list_presets", nil))
	if text := resultText(t, presets); !strings.Contains(text, config.BuiltinPreset) {
		t.Errorf("Expected builtin preset listed, got:\n%s", text)
	}
}
