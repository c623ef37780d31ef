package engine

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/wricardo/mcp-training/pairsgame/game/schedule"
)

func testDefaults() []string {
	return []string{
		"/assets/cards/apple.svg",
		"/assets/cards/banana.svg",
		"/assets/cards/cherry.svg",
		"/assets/cards/grape.svg",
		"/assets/cards/lemon.svg",
		"/assets/cards/orange.svg",
		"/assets/cards/pear.svg",
		"/assets/cards/plum.svg",
		"/assets/cards/melon.svg",
	}
}

func newTestEngine(t *testing.T, opts Options) (*GameEngine, *schedule.Manual) {
	t.Helper()
	if opts.Defaults == nil {
		opts.Defaults = testDefaults()
	}
	clock := schedule.NewManual()
	eng, err := NewEngineWithRand(opts, clock, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng, clock
}

// findPair returns two unmatched cards sharing an image
func findPair(t *testing.T, state *GameState) (int, int) {
	t.Helper()
	first := make(map[string]int)
	for _, card := range state.Cards {
		if card.Matched {
			continue
		}
		if id, ok := first[card.Image]; ok {
			return id, card.ID
		}
		first[card.Image] = card.ID
	}
	t.Fatal("No unmatched pair left on board")
	return -1, -1
}

// findMismatch returns two unmatched cards with different images
func findMismatch(t *testing.T, state *GameState) (int, int) {
	t.Helper()
	for _, a := range state.Cards {
		for _, b := range state.Cards {
			if !a.Matched && !b.Matched && a.Image != b.Image {
				return a.ID, b.ID
			}
		}
	}
	t.Fatal("No mismatching cards on board")
	return -1, -1
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) listen(ev Event) {
	r.events = append(r.events, ev)
}

func (r *eventRecorder) count(typ EventType) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func (r *eventRecorder) ofType(typ EventType) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestNewEngine(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	state := eng.State()

	if err := ValidateBoard(state.Cards); err != nil {
		t.Fatalf("Initial board invalid: %v", err)
	}
	if state.BoardID == "" {
		t.Error("Expected board id to be set")
	}
	if state.Moves != 0 || state.Matches != 0 {
		t.Errorf("Expected zero counters, got moves=%d matches=%d", state.Moves, state.Matches)
	}
	if state.TotalPairs != TotalPairs {
		t.Errorf("Expected %d total pairs, got %d", TotalPairs, state.TotalPairs)
	}
	if eng.Phase() != PhaseIdle {
		t.Errorf("Expected idle phase, got %s", eng.Phase())
	}
	if state.Locked || state.Completed || state.CelebrationVisible {
		t.Error("Expected fresh game to be unlocked, incomplete and without celebration")
	}
}

func TestNewEngine_InvalidOptions(t *testing.T) {
	clock := schedule.NewManual()

	_, err := NewEngine(Options{Defaults: []string{"a", "b", "c"}}, clock)
	if !errors.Is(err, ErrNotEnoughImages) {
		t.Errorf("Expected ErrNotEnoughImages, got %v", err)
	}

	_, err = NewEngine(Options{Defaults: testDefaults(), MoveCap: -1}, clock)
	if err == nil {
		t.Error("Expected error for negative move cap")
	}
}

func TestNewEngine_RealTimeDefault(t *testing.T) {
	eng, err := NewEngine(Options{Defaults: testDefaults()}, nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Close()

	if _, ok := eng.sched.(*schedule.RealTime); !ok {
		t.Errorf("Expected real time scheduler, got %T", eng.sched)
	}
}

func TestEngine_FlipMatchingPair(t *testing.T) {
	eng, clock := newTestEngine(t, Options{})
	rec := &eventRecorder{}
	eng.Subscribe(rec.listen)

	a, b := findPair(t, eng.State())

	if _, err := eng.Flip(a); err != nil {
		t.Fatalf("First flip failed: %v", err)
	}
	if eng.Phase() != PhaseOneFlipped {
		t.Errorf("Expected one_flipped phase, got %s", eng.Phase())
	}

	state, err := eng.Flip(b)
	if err != nil {
		t.Fatalf("Second flip failed: %v", err)
	}
	if !state.Locked {
		t.Error("Expected board to lock after second flip")
	}
	if state.Moves != 2 {
		t.Errorf("Expected 2 moves, got %d", state.Moves)
	}
	if eng.Phase() != PhaseEvaluating {
		t.Errorf("Expected evaluating phase, got %s", eng.Phase())
	}

	clock.Advance(EvaluationDelay - 1)
	if !eng.State().Locked {
		t.Fatal("Evaluation ran before its delay")
	}

	clock.Advance(1)
	state = eng.State()
	if state.Locked {
		t.Error("Expected board unlocked after evaluation")
	}
	if len(state.Flipped) != 0 {
		t.Errorf("Expected no flipped cards, got %v", state.Flipped)
	}
	if !state.Cards[a].Matched || !state.Cards[b].Matched {
		t.Error("Expected both cards matched")
	}
	if state.Matches != 1 {
		t.Errorf("Expected 1 match, got %d", state.Matches)
	}
	if state.Moves != 2 {
		t.Errorf("Evaluation must not change moves, got %d", state.Moves)
	}

	evaluated := rec.ofType(EventEvaluated)
	if len(evaluated) != 1 || evaluated[0].Outcome != OutcomeMatch {
		t.Errorf("Expected one match evaluation event, got %+v", evaluated)
	}
	if rec.count(EventStateUpdate) != 2 {
		t.Errorf("Expected 2 state updates, got %d", rec.count(EventStateUpdate))
	}
}

func TestEngine_FlipMismatchedPair(t *testing.T) {
	eng, clock := newTestEngine(t, Options{})
	a, b := findMismatch(t, eng.State())

	eng.Flip(a)
	eng.Flip(b)
	clock.Advance(EvaluationDelay)

	state := eng.State()
	if state.Locked || len(state.Flipped) != 0 {
		t.Errorf("Expected flipped set cleared and unlocked, got flipped=%v locked=%v", state.Flipped, state.Locked)
	}
	if state.Cards[a].Matched || state.Cards[b].Matched {
		t.Error("Mismatched cards must not be matched")
	}
	if state.Matches != 0 {
		t.Errorf("Expected 0 matches, got %d", state.Matches)
	}
	if state.Moves != 2 {
		t.Errorf("Expected 2 moves, got %d", state.Moves)
	}
}

func TestEngine_ThirdFlipRejectedWhileLocked(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	a, b := findMismatch(t, eng.State())

	eng.Flip(a)
	eng.Flip(b)

	third := 0
	for third == a || third == b {
		third++
	}

	before := eng.State()
	after, err := eng.Flip(third)
	if !errors.Is(err, ErrBoardLocked) {
		t.Errorf("Expected ErrBoardLocked, got %v", err)
	}
	if after.Moves != before.Moves {
		t.Errorf("Rejected flip changed moves from %d to %d", before.Moves, after.Moves)
	}
}

func TestEngine_MoveCapScenario(t *testing.T) {
	eng, clock := newTestEngine(t, Options{MoveCap: 1})
	a, b := findMismatch(t, eng.State())

	state, err := eng.Flip(a)
	if err != nil {
		t.Fatalf("First flip should succeed: %v", err)
	}
	if state.Moves != 1 {
		t.Errorf("Expected 1 move, got %d", state.Moves)
	}

	// Cap reached with one card flipped and the board unlocked
	if _, err := eng.Flip(b); !errors.Is(err, ErrMoveCapReached) {
		t.Errorf("Expected ErrMoveCapReached, got %v", err)
	}

	clock.Advance(EvaluationDelay)
	state = eng.State()
	if state.Moves != 1 || len(state.Flipped) != 1 {
		t.Errorf("Expected state unchanged after cap, got moves=%d flipped=%v", state.Moves, state.Flipped)
	}
	if state.MovesLeft() != 0 {
		t.Errorf("Expected no moves left, got %d", state.MovesLeft())
	}

	// Reset restores the budget
	state = eng.Reset()
	if _, err := eng.Flip(state.Cards[0].ID); err != nil {
		t.Errorf("Expected flip after reset to succeed, got %v", err)
	}
}

func TestEngine_Reset(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})
	rec := &eventRecorder{}
	eng.Subscribe(rec.listen)

	old := eng.State()
	eng.Flip(0)

	state := eng.Reset()
	if state.BoardID == old.BoardID {
		t.Error("Expected a new board id after reset")
	}
	if state.Moves != 0 || len(state.Flipped) != 0 {
		t.Errorf("Expected fresh state, got moves=%d flipped=%v", state.Moves, state.Flipped)
	}
	if err := ValidateBoard(state.Cards); err != nil {
		t.Errorf("Reset produced invalid board: %v", err)
	}

	resets := rec.ofType(EventBoardReset)
	if len(resets) != 1 || resets[0].Reason != "manual" {
		t.Errorf("Expected one manual board_reset event, got %+v", resets)
	}
}

func TestEngine_EventSequence(t *testing.T) {
	eng, clock := newTestEngine(t, Options{})
	rec := &eventRecorder{}
	eng.Subscribe(rec.listen)

	a, b := findMismatch(t, eng.State())
	eng.Flip(a)
	eng.Flip(b)
	clock.Advance(EvaluationDelay)
	eng.Reset()

	if len(rec.events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(rec.events))
	}
	for i, ev := range rec.events {
		if ev.Seq != uint64(i+1) {
			t.Errorf("Event %d (%s) has seq %d, expected %d", i, ev.Type, ev.Seq, i+1)
		}
	}
	if rec.events[2].Type != EventEvaluated {
		t.Errorf("Expected evaluated after both flips, got %s", rec.events[2].Type)
	}
}

func TestEngine_ConcurrentEventsArriveInOrder(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})

	var mu sync.Mutex
	var seqs []uint64
	eng.Subscribe(func(ev Event) {
		mu.Lock()
		seqs = append(seqs, ev.Seq)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(card int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				eng.Reset()
				eng.Flip(card)
			}
		}(i)
	}
	wg.Wait()

	if len(seqs) == 0 {
		t.Fatal("Expected events")
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] != seqs[i-1]+1 {
			t.Fatalf("Event %d delivered with seq %d after seq %d", i, seqs[i], seqs[i-1])
		}
	}
}

func TestEngine_Configure(t *testing.T) {
	eng, _ := newTestEngine(t, Options{})

	custom := []string{"blob:1", "blob:2", "blob:3", "blob:4", "blob:5", "blob:6", "blob:7", "blob:8"}
	state, err := eng.Configure(Options{Images: custom, Defaults: testDefaults(), MoveCap: 20})
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if state.MoveCap != 20 {
		t.Errorf("Expected move cap 20, got %d", state.MoveCap)
	}
	allowed := make(map[string]bool)
	for _, ref := range custom {
		allowed[ref] = true
	}
	for _, card := range state.Cards {
		if !allowed[card.Image] {
			t.Errorf("Card %d uses %q, expected a custom image", card.ID, card.Image)
		}
	}

	if _, err := eng.Configure(Options{Defaults: []string{"x"}}); err == nil {
		t.Error("Expected invalid options to be rejected")
	}
	if got := eng.Options(); got.MoveCap != 20 {
		t.Errorf("Rejected options must not replace current ones, got move cap %d", got.MoveCap)
	}
}

func TestEngine_ClosedEngine(t *testing.T) {
	eng, clock := newTestEngine(t, Options{})
	a, b := findPair(t, eng.State())
	eng.Flip(a)
	eng.Flip(b)

	eng.Close()
	if pending := clock.Pending(); len(pending) != 0 {
		t.Errorf("Expected no pending tasks after close, got %v", pending)
	}

	if _, err := eng.Flip(0); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Expected ErrEngineClosed, got %v", err)
	}
	if _, err := eng.Configure(Options{Defaults: testDefaults()}); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Expected ErrEngineClosed, got %v", err)
	}
}
