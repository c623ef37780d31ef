package engine

import (
	"encoding/json"
	"testing"
)

func TestGameState_Phase(t *testing.T) {
	state := createTestState()
	if state.Phase() != PhaseIdle {
		t.Errorf("Expected idle, got %s", state.Phase())
	}

	state.Flipped = []int{1}
	if state.Phase() != PhaseOneFlipped {
		t.Errorf("Expected one_flipped, got %s", state.Phase())
	}

	state.Flipped = []int{1, 2}
	state.Locked = true
	if state.Phase() != PhaseEvaluating {
		t.Errorf("Expected evaluating, got %s", state.Phase())
	}
}

func TestGameState_MovesLeft(t *testing.T) {
	state := createTestState()
	if state.MovesLeft() != -1 {
		t.Errorf("Expected -1 for unlimited, got %d", state.MovesLeft())
	}

	state.MoveCap = 5
	state.Moves = 3
	if state.MovesLeft() != 2 {
		t.Errorf("Expected 2 moves left, got %d", state.MovesLeft())
	}
	if state.MoveCapReached() {
		t.Error("Cap should not be reached yet")
	}

	state.Moves = 5
	if !state.MoveCapReached() || state.MovesLeft() != 0 {
		t.Error("Expected cap reached with no moves left")
	}
}

func TestGameState_Clone(t *testing.T) {
	state := createTestState()
	state.Flipped = []int{4}

	clone := state.Clone()
	clone.Cards[0].Matched = true
	clone.Flipped[0] = 9

	if state.Cards[0].Matched || state.Flipped[0] != 4 {
		t.Error("Clone must be a deep copy")
	}

	var nilState *GameState
	if nilState.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestGameState_ViewHidesFaceDownImages(t *testing.T) {
	state := createTestState()
	state.Cards[0].Matched = true
	state.Cards[1].Matched = true
	state.Flipped = []int{4}

	view := state.View()
	if len(view.Cards) != BoardSize {
		t.Fatalf("Expected %d card views, got %d", BoardSize, len(view.Cards))
	}

	for _, cv := range view.Cards {
		switch cv.ID {
		case 0, 1:
			if !cv.Matched || !cv.FaceUp || cv.Image == "" {
				t.Errorf("Matched card %d should be face up with image: %+v", cv.ID, cv)
			}
		case 4:
			if !cv.FaceUp || cv.Image != state.Cards[4].Image {
				t.Errorf("Flipped card should expose its image: %+v", cv)
			}
		default:
			if cv.FaceUp || cv.Image != "" {
				t.Errorf("Face down card %d leaked its image: %+v", cv.ID, cv)
			}
		}
	}

	if view.Phase != PhaseOneFlipped {
		t.Errorf("Expected one_flipped phase in view, got %s", view.Phase)
	}

	data, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("Failed to marshal view: %v", err)
	}
	var decoded map[string]interface{}
	json.Unmarshal(data, &decoded)
	for _, key := range []string{"board_id", "phase", "cards", "moves", "moves_left", "matches", "locked", "completed"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Expected key %q in view JSON", key)
		}
	}
}
