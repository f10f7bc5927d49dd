package types

// Game is the central session document: membership, color choices, the
// mission pool, the displayed-cards singleton and the started flag. The
// board, hands, event log and presence flags live in their own documents.
type Game struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Creator string `json:"creator"`
	// Colors maps user id to the chosen color hex. A color belongs to at
	// most one player; SetColor enforces this inside the transaction.
	Colors map[string]string `json:"colors,omitempty"`
	// Members is the ordered, append-only list of joined player ids.
	Members []string `json:"members,omitempty"`
	// Missions is the shared pool; one is popped per player at join time.
	Missions []string `json:"missions,omitempty"`
	// InitialCountries is the per-player starting distribution, recomputed
	// whenever a new member joins.
	InitialCountries map[string][]string `json:"initialCountries,omitempty"`
	// DisplayedCards is nil unless some player is currently showing cards.
	DisplayedCards *DisplayedCards `json:"displayedCards,omitempty"`
	Started        bool            `json:"started,omitempty"`
}

// DisplayedCards is the singleton of cards a player is showing to the
// table. Only UserID's owner may add to or remove from the list; removing
// the last card releases the singleton.
type DisplayedCards struct {
	UserID string          `json:"userId"`
	List   []DisplayedCard `json:"list,omitempty"`
}

// DisplayedCard references a card in the owner's hand. CardIndex is the
// hand index, or MissionCardIndex for the mission card.
type DisplayedCard struct {
	CardType  int `json:"cardType"`
	CardIndex int `json:"cardIndex"`
}

// FillGameDefaults normalizes a game document read from the store so
// downstream code never sees missing collections. A nil game stays nil.
func FillGameDefaults(g *Game) *Game {
	if g == nil {
		return nil
	}
	if g.Colors == nil {
		g.Colors = map[string]string{}
	}
	if g.Members == nil {
		g.Members = []string{}
	}
	if g.Missions == nil {
		g.Missions = []string{}
	}
	if g.InitialCountries == nil {
		g.InitialCountries = map[string][]string{}
	}
	if g.DisplayedCards != nil && g.DisplayedCards.List == nil {
		g.DisplayedCards.List = []DisplayedCard{}
	}
	return g
}

// IsMember reports whether userID has joined the game.
func (g *Game) IsMember(userID string) bool {
	for _, member := range g.Members {
		if member == userID {
			return true
		}
	}
	return false
}
