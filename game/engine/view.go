package engine

// CardView is the client facing representation of a card. The image is only
// exposed while the card is face up or matched.
type CardView struct {
	ID      int    `json:"id"`
	Image   string `json:"image,omitempty"`
	FaceUp  bool   `json:"face_up"`
	Matched bool   `json:"matched"`
}

// StateView is the client facing representation of a game
type StateView struct {
	BoardID            string     `json:"board_id"`
	Phase              Phase      `json:"phase"`
	Cards              []CardView `json:"cards"`
	Moves              int        `json:"moves"`
	MoveCap            int        `json:"move_cap"`
	MovesLeft          int        `json:"moves_left"`
	Matches            int        `json:"matches"`
	TotalPairs         int        `json:"total_pairs"`
	Flipped            []int      `json:"flipped"`
	Locked             bool       `json:"locked"`
	Completed          bool       `json:"completed"`
	CelebrationVisible bool       `json:"celebration_visible"`
}

// View builds the client facing representation of the state
func (s *GameState) View() *StateView {
	if s == nil {
		return nil
	}

	cards := make([]CardView, len(s.Cards))
	for i, card := range s.Cards {
		cv := CardView{
			ID:      card.ID,
			FaceUp:  card.Matched || s.IsFlipped(card.ID),
			Matched: card.Matched,
		}
		if cv.FaceUp {
			cv.Image = card.Image
		}
		cards[i] = cv
	}

	flipped := make([]int, len(s.Flipped))
	copy(flipped, s.Flipped)

	return &StateView{
		BoardID:            s.BoardID,
		Phase:              s.Phase(),
		Cards:              cards,
		Moves:              s.Moves,
		MoveCap:            s.MoveCap,
		MovesLeft:          s.MovesLeft(),
		Matches:            s.Matches,
		TotalPairs:         s.TotalPairs,
		Flipped:            flipped,
		Locked:             s.Locked,
		Completed:          s.Completed,
		CelebrationVisible: s.CelebrationVisible,
	}
}
