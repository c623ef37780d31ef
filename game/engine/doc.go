// Package engine provides the core game logic for the pairs memory game.
//
// The engine package implements:
//   - Board initialization: 8 image pairs shuffled onto a fixed 4x4 grid
//   - The flip/match state machine (idle, one flipped, evaluating)
//   - Completion handling: celebration bursts and a cancellable auto reset
//   - Option validation and client facing state views
//
// Core Types:
//
// GameState is an owned value describing one game. ApplyFlip and
// ApplyEvaluation are pure transitions that return the next state plus the
// effects the caller must schedule. GameEngine is the single writer that
// applies them and drives the deferred evaluation, completion, celebration
// and auto reset tasks through a schedule.Scheduler.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.Options{Defaults: images}, schedule.NewRealTime())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng.Subscribe(func(ev engine.Event) {
//		fmt.Println(ev.Type, ev.State.Matches)
//	})
//
//	state, err := eng.Flip(0)
//	if errors.Is(err, engine.ErrBoardLocked) {
//		// wait for the pending evaluation
//	}
//
// Game Rules:
//
// At most two cards may be face up. Flipping the second card locks the board
// for one second, after which the pair is compared: matching cards stay face
// up, others turn back. Every successful flip counts as a move and an
// optional move cap limits them. Matching all 8 pairs completes the game,
// fires a three second celebration and restarts the board after ten seconds
// unless the player resets first.
//
// Pending evaluations carry the identity of the board they were scheduled
// for and do nothing once that board has been replaced.
package engine
