package types

// Hand is one player's private cards for one game. Mission is assigned
// once at join time and never changes afterwards.
type Hand struct {
	Game    string `json:"game"`
	Player  string `json:"player"`
	Cards   []int  `json:"cards,omitempty"`
	Mission string `json:"mission"`
}

// FillHandDefaults normalizes a hand document read from the store.
func FillHandDefaults(h *Hand) *Hand {
	if h == nil {
		return nil
	}
	if h.Cards == nil {
		h.Cards = []int{}
	}
	return h
}
