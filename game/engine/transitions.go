package engine

import "errors"

var (
	ErrUnknownCard     = errors.New("unknown card")
	ErrBoardLocked     = errors.New("board is locked")
	ErrAlreadyFlipped  = errors.New("card is already flipped")
	ErrAlreadyMatched  = errors.New("card is already matched")
	ErrTwoFlipped      = errors.New("two cards are already flipped")
	ErrMoveCapReached  = errors.New("move cap reached")
	ErrNotEnoughImages = errors.New("not enough images")
)

// EffectKind names a deferred action requested by a transition
type EffectKind string

const (
	EffectScheduleEvaluation EffectKind = "schedule_evaluation"
	EffectScheduleCompletion EffectKind = "schedule_completion"
)

// Effect is a side effect the engine must carry out after applying a
// transition. BoardID and Cards are snapshots taken when the effect was produced.
type Effect struct {
	Kind    EffectKind
	BoardID string
	Cards   [2]int
}

// Outcome is the result of evaluating a flipped pair
type Outcome string

const (
	OutcomeMatch    Outcome = "match"
	OutcomeMismatch Outcome = "mismatch"
	OutcomeStale    Outcome = "stale"
)

// ApplyFlip returns the state after flipping cardID. A rejected flip returns
// the input state untouched together with the reason.
func ApplyFlip(state *GameState, cardID int) (*GameState, []Effect, error) {
	if cardID < 0 || cardID >= len(state.Cards) {
		return state, nil, ErrUnknownCard
	}
	if state.Locked {
		return state, nil, ErrBoardLocked
	}
	if state.IsFlipped(cardID) {
		return state, nil, ErrAlreadyFlipped
	}
	if state.Cards[cardID].Matched {
		return state, nil, ErrAlreadyMatched
	}
	if len(state.Flipped) >= MaxFlippedCards {
		return state, nil, ErrTwoFlipped
	}
	if state.MoveCapReached() {
		return state, nil, ErrMoveCapReached
	}

	next := state.Clone()
	next.Flipped = append(next.Flipped, cardID)
	next.Moves++

	if len(next.Flipped) < MaxFlippedCards {
		return next, nil, nil
	}

	next.Locked = true
	return next, []Effect{{
		Kind:    EffectScheduleEvaluation,
		BoardID: next.BoardID,
		Cards:   [2]int{next.Flipped[0], next.Flipped[1]},
	}}, nil
}

// ApplyEvaluation compares the two snapshotted cards. Evaluations that
// belong to a replaced board, or whose cards are no longer the flipped pair,
// are stale and leave the state untouched.
func ApplyEvaluation(state *GameState, boardID string, a, b int) (*GameState, Outcome, []Effect) {
	if state.BoardID != boardID || !state.Locked || !state.IsFlipped(a) || !state.IsFlipped(b) || a == b {
		return state, OutcomeStale, nil
	}

	next := state.Clone()
	next.Flipped = []int{}
	next.Locked = false

	if next.Cards[a].Image != next.Cards[b].Image {
		return next, OutcomeMismatch, nil
	}

	next.Cards[a].Matched = true
	next.Cards[b].Matched = true
	next.Matches++

	if next.Matches < next.TotalPairs || next.Completed {
		return next, OutcomeMatch, nil
	}

	next.Completed = true
	next.CelebrationVisible = true
	return next, OutcomeMatch, []Effect{{
		Kind:    EffectScheduleCompletion,
		BoardID: next.BoardID,
	}}
}
