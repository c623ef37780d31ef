package engine

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// SelectPairImages picks the 8 images that make up the pairs of a board.
// The first TotalPairs distinct custom images are used when there are enough
// of them; otherwise the first TotalPairs distinct defaults.
func SelectPairImages(custom, defaults []string) ([]string, error) {
	if picked := firstDistinct(custom, TotalPairs); len(picked) == TotalPairs {
		return picked, nil
	}

	picked := firstDistinct(defaults, TotalPairs)
	if len(picked) < TotalPairs {
		return nil, fmt.Errorf("%w: need %d distinct default images, got %d", ErrNotEnoughImages, TotalPairs, len(picked))
	}
	return picked, nil
}

func firstDistinct(refs []string, n int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for _, ref := range refs {
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
		if len(out) == n {
			break
		}
	}
	return out
}

// NewBoard builds a shuffled board of BoardSize cards from the pair images.
// Card IDs follow the final shuffled order.
func NewBoard(custom, defaults []string, rng *rand.Rand) ([]Card, error) {
	images, err := SelectPairImages(custom, defaults)
	if err != nil {
		return nil, err
	}

	slots := make([]string, 0, BoardSize)
	slots = append(slots, images...)
	slots = append(slots, images...)

	rng.Shuffle(len(slots), func(i, j int) {
		slots[i], slots[j] = slots[j], slots[i]
	})

	cards := make([]Card, BoardSize)
	for i, image := range slots {
		cards[i] = Card{ID: i, Image: image}
	}
	return cards, nil
}

// NewGameState wraps a fresh board in a new game with its own board identity
func NewGameState(cards []Card, moveCap int) *GameState {
	if moveCap < 0 {
		moveCap = UnlimitedMoveCap
	}
	return &GameState{
		BoardID:    uuid.NewString(),
		Cards:      cards,
		TotalPairs: TotalPairs,
		Flipped:    []int{},
		MoveCap:    moveCap,
	}
}

// ValidateBoard checks the structural invariants of a board: BoardSize cards
// with unique sequential IDs and every image appearing exactly twice.
func ValidateBoard(cards []Card) error {
	if len(cards) != BoardSize {
		return fmt.Errorf("board must have %d cards, got %d", BoardSize, len(cards))
	}

	counts := make(map[string]int)
	for i, card := range cards {
		if card.ID != i {
			return fmt.Errorf("card at position %d has id %d", i, card.ID)
		}
		counts[card.Image]++
	}

	if len(counts) != TotalPairs {
		return fmt.Errorf("board must have %d distinct images, got %d", TotalPairs, len(counts))
	}
	for image, n := range counts {
		if n != 2 {
			return fmt.Errorf("image %q appears %d times", image, n)
		}
	}
	return nil
}
