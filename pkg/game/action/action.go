// Package action holds the client-local staging state machine that turns
// a two-step user gesture (pick something up, then drop it) into a single
// atomic mutation against the shared store.
package action

// State is the discriminated pending-action value. Exactly one State
// exists per connected client; it is never persisted remotely.
type State interface {
	isState()
}

// Idle means no action is pending.
type Idle struct{}

// PlacingArmy stages new armies picked from the player's reserve.
type PlacingArmy struct {
	Color  string
	Amount int
}

// MovingArmy stages armies already removed from OriginCountry. The
// removal has been committed: dropping the stack anywhere but a country
// loses it.
type MovingArmy struct {
	OriginCountry string
	ArmyID        string
	Color         string
	Amount        int
}

// TakingCard stages a draw from the deck.
type TakingCard struct{}

// MovingCard stages a hand or mission card being dragged toward the
// display zone. Nothing has been committed yet.
type MovingCard struct {
	CardType  int
	HandIndex int
}

// MovingDisplayedCard stages one of the player's displayed cards being
// taken back.
type MovingDisplayedCard struct {
	CardType     int
	DisplayIndex int
	CardIndex    int
}

func (Idle) isState()                {}
func (PlacingArmy) isState()         {}
func (MovingArmy) isState()          {}
func (TakingCard) isState()          {}
func (MovingCard) isState()          {}
func (MovingDisplayedCard) isState() {}
