package engine

import "time"

const (
	// Board geometry. The grid is fixed at 4x4.
	GridSize   = 4
	BoardSize  = GridSize * GridSize
	TotalPairs = BoardSize / 2

	// Timing
	EvaluationDelay     = 1000 * time.Millisecond
	CompletionDelay     = 500 * time.Millisecond
	AutoResetDelay      = 10000 * time.Millisecond
	CelebrationDuration = 3000 * time.Millisecond
	CelebrationInterval = 250 * time.Millisecond

	// Celebration burst shape
	MaxParticles     = 50
	BurstVelocity    = 30
	BurstSpread      = 360
	BurstTicks       = 60
	BurstZIndex      = 1000
	MaxFlippedCards  = 2
	UnlimitedMoveCap = 0
)

// Phase describes where the flip/match state machine currently is
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseOneFlipped Phase = "one_flipped"
	PhaseEvaluating Phase = "evaluating"
)

// Card is a single tile on the board. ID is its position in shuffled order.
type Card struct {
	ID      int    `json:"id"`
	Image   string `json:"image"`
	Matched bool   `json:"matched"`
}

// GameState is the complete state of one game. It is replaced wholesale
// whenever the board is rebuilt.
type GameState struct {
	BoardID            string `json:"board_id"`
	Cards              []Card `json:"cards"`
	Moves              int    `json:"moves"`
	Matches            int    `json:"matches"`
	TotalPairs         int    `json:"total_pairs"`
	Flipped            []int  `json:"flipped"`
	Locked             bool   `json:"locked"`
	Completed          bool   `json:"completed"`
	CelebrationVisible bool   `json:"celebration_visible"`
	MoveCap            int    `json:"move_cap"`
}

// Phase derives the state machine phase from the flipped set
func (s *GameState) Phase() Phase {
	switch {
	case len(s.Flipped) >= MaxFlippedCards:
		return PhaseEvaluating
	case len(s.Flipped) == 1:
		return PhaseOneFlipped
	default:
		return PhaseIdle
	}
}

// IsFlipped reports whether the card is currently face up and unmatched
func (s *GameState) IsFlipped(cardID int) bool {
	for _, id := range s.Flipped {
		if id == cardID {
			return true
		}
	}
	return false
}

// MoveCapReached reports whether a configured move cap has been used up
func (s *GameState) MoveCapReached() bool {
	return s.MoveCap > UnlimitedMoveCap && s.Moves >= s.MoveCap
}

// MovesLeft returns the remaining moves, or -1 when there is no cap
func (s *GameState) MovesLeft() int {
	if s.MoveCap <= UnlimitedMoveCap {
		return -1
	}
	left := s.MoveCap - s.Moves
	if left < 0 {
		return 0
	}
	return left
}

// Clone returns a deep copy of the state
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Cards = make([]Card, len(s.Cards))
	copy(clone.Cards, s.Cards)
	clone.Flipped = make([]int, len(s.Flipped))
	copy(clone.Flipped, s.Flipped)
	return &clone
}

// Origin is a normalized screen position for a celebration burst
type Origin struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Burst configures one particle burst of the celebration effect
type Burst struct {
	ParticleCount int    `json:"particle_count"`
	StartVelocity int    `json:"start_velocity"`
	Spread        int    `json:"spread"`
	Ticks         int    `json:"ticks"`
	ZIndex        int    `json:"z_index"`
	Origin        Origin `json:"origin"`
}

// EventType names the notifications an engine emits
type EventType string

const (
	EventStateUpdate EventType = "state_update"
	EventEvaluated   EventType = "evaluated"
	EventCelebration EventType = "celebration"
	EventBoardReset  EventType = "board_reset"
)

// Event is delivered to engine listeners after every state change and
// celebration tick
type Event struct {
	// Seq increases by one for every event an engine emits
	Seq       uint64     `json:"seq"`
	Type      EventType  `json:"type"`
	BoardID   string     `json:"board_id"`
	State     *GameState `json:"state,omitempty"`
	Outcome   Outcome    `json:"outcome,omitempty"`
	Bursts    []Burst    `json:"bursts,omitempty"`
	Remaining int64      `json:"remaining_ms,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// Listener receives engine events in emission order. It is called without
// the engine lock held.
type Listener func(Event)
