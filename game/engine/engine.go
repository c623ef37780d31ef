package engine

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/pairsgame/game/schedule"
)

var ErrEngineClosed = errors.New("engine is closed")

// Engine provides the main interface for game operations
type Engine interface {
	// Game state
	State() *GameState
	Snapshot() (*GameState, uint64)
	Phase() Phase

	// Player actions
	Flip(cardID int) (*GameState, error)
	Reset() *GameState

	// Configuration
	Options() Options
	Configure(opts Options) (*GameState, error)

	// Notifications and lifecycle
	Subscribe(l Listener)
	Close()
}

// GameEngine is the single writer of a GameState. Player actions and timer
// callbacks all go through its lock.
type GameEngine struct {
	mu        sync.Mutex
	emitMu    sync.Mutex
	seq       uint64
	opts      Options
	state     *GameState
	sched     schedule.Scheduler
	rng       *rand.Rand
	autoReset schedule.Token
	tasks     map[schedule.Token]struct{}
	listeners []Listener
	closed    bool
}

// NewEngine creates a new game engine with a time seeded shuffle
func NewEngine(opts Options, sched schedule.Scheduler) (*GameEngine, error) {
	return NewEngineWithRand(opts, sched, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewEngineWithRand creates a new game engine using rng for shuffles and
// celebration bursts
func NewEngineWithRand(opts Options, sched schedule.Scheduler, rng *rand.Rand) (*GameEngine, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	if sched == nil {
		sched = schedule.NewRealTime()
	}

	e := &GameEngine{
		opts:  opts.Clone(),
		sched: sched,
		rng:   rng,
		tasks: make(map[schedule.Token]struct{}),
	}
	e.state = e.newGame()
	return e, nil
}

// State returns a copy of the current game state
func (e *GameEngine) State() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Snapshot returns a copy of the current state together with the sequence
// number of the last event emitted for it
func (e *GameEngine) Snapshot() (*GameState, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), e.seq
}

// Phase returns the current state machine phase
func (e *GameEngine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Phase()
}

// Options returns the options boards are currently built from
func (e *GameEngine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.Clone()
}

// Subscribe registers a listener for engine events
func (e *GameEngine) Subscribe(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Flip turns a card face up. Rejected flips leave the state unchanged and
// return the reason.
func (e *GameEngine) Flip(cardID int) (*GameState, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}

	next, effects, err := ApplyFlip(e.state, cardID)
	if err != nil {
		snap := e.state.Clone()
		e.mu.Unlock()
		return snap, err
	}

	e.state = next
	e.runEffects(effects)
	snap := e.state.Clone()
	e.unlockAndEmit(Event{Type: EventStateUpdate, BoardID: snap.BoardID, State: snap})
	return snap, nil
}

// Reset cancels any pending auto reset and starts a new game
func (e *GameEngine) Reset() *GameState {
	return e.rebuild("manual")
}

// Configure replaces the options and rebuilds the board
func (e *GameEngine) Configure(opts Options) (*GameState, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	e.opts = opts.Clone()
	snap := e.rebuildLocked()
	e.unlockAndEmit(Event{Type: EventBoardReset, BoardID: snap.BoardID, State: snap, Reason: "configure"})
	return snap, nil
}

// Close cancels every outstanding task and drops all listeners
func (e *GameEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	for tok := range e.tasks {
		tok.Cancel()
	}
	e.tasks = make(map[schedule.Token]struct{})
	e.autoReset = nil
	e.listeners = nil
}

func (e *GameEngine) rebuild(reason string) *GameState {
	e.mu.Lock()
	if e.closed {
		snap := e.state.Clone()
		e.mu.Unlock()
		return snap
	}

	snap := e.rebuildLocked()
	e.unlockAndEmit(Event{Type: EventBoardReset, BoardID: snap.BoardID, State: snap, Reason: reason})
	return snap
}

// rebuildLocked cancels a pending auto reset and replaces the game. Caller
// must hold mu.
func (e *GameEngine) rebuildLocked() *GameState {
	e.cancelAutoReset()
	e.state = e.newGame()
	return e.state.Clone()
}

// newGame builds a fresh state from the current options. Caller must hold mu.
func (e *GameEngine) newGame() *GameState {
	// Options are validated on entry, so the defaults always cover a board.
	cards, _ := NewBoard(e.opts.Images, e.opts.Defaults, e.rng)
	return NewGameState(cards, e.opts.MoveCap)
}

// runEffects hands transition effects to the scheduler. Caller must hold mu.
func (e *GameEngine) runEffects(effects []Effect) {
	for _, eff := range effects {
		eff := eff
		switch eff.Kind {
		case EffectScheduleEvaluation:
			e.after(schedule.TaskEvaluate, EvaluationDelay, func() {
				e.evaluate(eff.BoardID, eff.Cards[0], eff.Cards[1])
			})
		case EffectScheduleCompletion:
			e.after(schedule.TaskCompletion, CompletionDelay, func() {
				e.complete(eff.BoardID)
			})
		}
	}
}

// after schedules a tracked task so Close can cancel it. Caller must hold mu.
func (e *GameEngine) after(name string, delay time.Duration, fn func()) schedule.Token {
	var tok schedule.Token
	tok = e.sched.After(name, delay, func() {
		e.mu.Lock()
		delete(e.tasks, tok)
		closed := e.closed
		e.mu.Unlock()

		if !closed {
			fn()
		}
	})
	e.tasks[tok] = struct{}{}
	return tok
}

// cancelAutoReset stops a pending auto reset. Caller must hold mu.
func (e *GameEngine) cancelAutoReset() {
	if e.autoReset == nil {
		return
	}
	e.autoReset.Cancel()
	delete(e.tasks, e.autoReset)
	e.autoReset = nil
}

func (e *GameEngine) evaluate(boardID string, a, b int) {
	e.mu.Lock()
	next, outcome, effects := ApplyEvaluation(e.state, boardID, a, b)
	if outcome == OutcomeStale {
		e.mu.Unlock()
		return
	}

	e.state = next
	e.runEffects(effects)
	snap := e.state.Clone()
	e.unlockAndEmit(Event{Type: EventEvaluated, BoardID: snap.BoardID, State: snap, Outcome: outcome})
}

// complete runs the completion handler: it starts the celebration and
// schedules the single auto reset for the finished board.
func (e *GameEngine) complete(boardID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.BoardID != boardID || !e.state.Completed {
		return
	}

	e.after(schedule.TaskCelebration, CelebrationInterval, func() {
		e.celebrate(boardID, 1)
	})

	e.cancelAutoReset()
	e.autoReset = e.after(schedule.TaskAutoReset, AutoResetDelay, func() {
		e.fireAutoReset(boardID)
	})
}

// celebrate emits tick n of the celebration. Ticks keep running to the end
// of the celebration window but are only emitted while the celebrated board
// is still displayed.
func (e *GameEngine) celebrate(boardID string, tick int) {
	e.mu.Lock()
	remaining := CelebrationDuration - time.Duration(tick)*CelebrationInterval
	if remaining <= 0 {
		e.mu.Unlock()
		return
	}

	bursts := CelebrationBursts(remaining, e.rng)
	visible := e.state.BoardID == boardID
	e.after(schedule.TaskCelebration, CelebrationInterval, func() {
		e.celebrate(boardID, tick+1)
	})

	if !visible {
		e.mu.Unlock()
		return
	}
	e.unlockAndEmit(Event{
		Type:      EventCelebration,
		BoardID:   boardID,
		Bursts:    bursts,
		Remaining: remaining.Milliseconds(),
	})
}

func (e *GameEngine) fireAutoReset(boardID string) {
	e.mu.Lock()
	if e.closed || e.state.BoardID != boardID {
		e.mu.Unlock()
		return
	}

	e.autoReset = nil
	snap := e.rebuildLocked()
	e.unlockAndEmit(Event{Type: EventBoardReset, BoardID: snap.BoardID, State: snap, Reason: "auto"})
}

// unlockAndEmit numbers ev, releases mu and delivers ev to the listeners.
// emitMu is taken before mu is released, so listeners see events in the
// order the state changed. Caller must hold mu; listeners must not call
// back into the engine's mutating methods.
func (e *GameEngine) unlockAndEmit(ev Event) {
	e.seq++
	ev.Seq = e.seq
	listeners := e.listeners

	e.emitMu.Lock()
	e.mu.Unlock()
	defer e.emitMu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}
