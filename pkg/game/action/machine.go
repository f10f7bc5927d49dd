package action

import (
	"context"

	"github.com/mskovgaard/warboard/pkg/game"
	"github.com/mskovgaard/warboard/pkg/game/constants"
	"github.com/mskovgaard/warboard/pkg/game/types"
)

// logContent is the payload attached to machine-issued log entries.
type logContent struct {
	User  string `json:"user"`
	Type  int    `json:"type,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Machine gates which mutation operations are enabled and what input
// events mean. At most one action is pending at a time; starting a new
// one while another is active is a no-op unless the transition is an
// explicitly allowed re-entry (army re-pickup accumulation).
//
// Gestures run on the client's single logical thread of control; Machine
// is not safe for concurrent use.
type Machine struct {
	ops      *game.Operations
	gameID   string
	userID   string
	userName string
	state    State
}

// NewMachineOptions contains options for creating a Machine.
type NewMachineOptions struct {
	Operations *game.Operations
	GameID     string
	UserID     string
	UserName   string
}

func NewMachine(opts NewMachineOptions) *Machine {
	return &Machine{
		ops:      opts.Operations,
		gameID:   opts.GameID,
		userID:   opts.UserID,
		userName: opts.UserName,
		state:    Idle{},
	}
}

// State returns the current pending action.
func (m *Machine) State() State {
	return m.state
}

// StartPlacingArmy stages a new army of the player's color. Rejected
// without a chosen color, or while any other action is pending.
func (m *Machine) StartPlacingArmy(color string) {
	if color == "" {
		return
	}
	if _, idle := m.state.(Idle); !idle {
		return
	}
	m.state = PlacingArmy{Color: color, Amount: 1}
}

// PickUpArmy lifts one army off an existing stack. The removal commits
// immediately; the army exists only in the staged state until dropped.
// Re-picking the same stack while moving accumulates.
func (m *Machine) PickUpArmy(ctx context.Context, country string, army types.ArmyView) error {
	switch s := m.state.(type) {
	case Idle:
		if army.Amount <= 0 {
			return nil
		}
		if err := m.ops.RemoveArmy(ctx, m.gameID, m.userID, country, army.ID, 1); err != nil {
			return err
		}
		m.state = MovingArmy{
			OriginCountry: country,
			ArmyID:        army.ID,
			Color:         army.Color,
			Amount:        1,
		}
		return nil
	case MovingArmy:
		if s.OriginCountry != country || s.ArmyID != army.ID {
			return nil
		}
		if err := m.ops.RemoveArmy(ctx, m.gameID, m.userID, country, army.ID, 1); err != nil {
			return err
		}
		s.Amount++
		m.state = s
		return nil
	default:
		return nil
	}
}

// DropOnCountry commits the staged armies to a territory.
func (m *Machine) DropOnCountry(ctx context.Context, country string) error {
	switch s := m.state.(type) {
	case PlacingArmy:
		m.state = Idle{}
		return m.ops.PlaceArmy(ctx, m.gameID, m.userID, country, s.Color, s.Amount)
	case MovingArmy:
		m.state = Idle{}
		return m.ops.PlaceArmy(ctx, m.gameID, m.userID, country, s.Color, s.Amount)
	default:
		return nil
	}
}

// DropOnDiscardZone throws staged moving armies away. The armies were
// already removed from their origin and are not returned: the discard is
// destructive.
func (m *Machine) DropOnDiscardZone(ctx context.Context) error {
	s, ok := m.state.(MovingArmy)
	if !ok {
		return nil
	}
	m.state = Idle{}
	return m.ops.PushToLog(ctx, m.gameID, m.userID, constants.EventDiscardArmy, logContent{
		User:  m.userName,
		Count: s.Amount,
	})
}

// StartTakingCard stages a draw from the deck.
func (m *Machine) StartTakingCard() {
	if _, idle := m.state.(Idle); !idle {
		return
	}
	m.state = TakingCard{}
}

// DropOnHand commits a staged draw into the player's hand.
func (m *Machine) DropOnHand(ctx context.Context) error {
	if _, ok := m.state.(TakingCard); !ok {
		return nil
	}
	m.state = Idle{}
	if err := m.ops.TakeCard(ctx, m.gameID, m.userID); err != nil {
		return err
	}
	return m.ops.PushToLog(ctx, m.gameID, m.userID, constants.EventTakeCard, logContent{User: m.userName})
}

// PickUpHandCard stages a hand or mission card for display. A card the
// player is already displaying cannot be picked up again; picking a
// different card while one is staged re-stages.
func (m *Machine) PickUpHandCard(cardType, handIndex int, displayed types.DisplayedCards) {
	switch m.state.(type) {
	case Idle, MovingCard:
	default:
		return
	}
	if s, ok := m.state.(MovingCard); ok && s.HandIndex == handIndex {
		return
	}
	if displayed.UserID == m.userID {
		for _, card := range displayed.List {
			if card.CardIndex == handIndex {
				return
			}
		}
	}
	m.state = MovingCard{CardType: cardType, HandIndex: handIndex}
}

// DropOnDisplayZone shows the staged card to the table. The display is
// only attempted when the singleton is unowned or owned by the player;
// either way the pending action collapses.
func (m *Machine) DropOnDisplayZone(ctx context.Context, displayed types.DisplayedCards) error {
	s, ok := m.state.(MovingCard)
	if !ok {
		return nil
	}
	m.state = Idle{}

	if displayed.UserID != "" && displayed.UserID != m.userID {
		return nil
	}
	if err := m.ops.DisplayCard(ctx, m.gameID, m.userID, s.CardType, s.HandIndex); err != nil {
		return err
	}
	return m.ops.PushToLog(ctx, m.gameID, m.userID, constants.EventDisplayCard, logContent{
		User: m.userName,
		Type: s.CardType,
	})
}

// PickUpDisplayedCard stages taking back one of the player's own
// displayed cards.
func (m *Machine) PickUpDisplayedCard(card types.DisplayedCard, displayIndex int, displayed types.DisplayedCards) {
	if _, idle := m.state.(Idle); !idle {
		return
	}
	if displayed.UserID != m.userID {
		return
	}
	m.state = MovingDisplayedCard{
		CardType:     card.CardType,
		DisplayIndex: displayIndex,
		CardIndex:    card.CardIndex,
	}
}

// DropOutsideDisplay returns the staged displayed card to the hand.
func (m *Machine) DropOutsideDisplay(ctx context.Context) error {
	s, ok := m.state.(MovingDisplayedCard)
	if !ok {
		return nil
	}
	m.state = Idle{}
	if err := m.ops.RemoveDisplayedCard(ctx, m.gameID, m.userID, s.CardIndex); err != nil {
		return err
	}
	return m.ops.PushToLog(ctx, m.gameID, m.userID, constants.EventHideCard, logContent{
		User: m.userName,
		Type: s.CardType,
	})
}

// Cancel discards the pending action with zero remote effect, except for
// MovingArmy where the already-removed armies stay lost.
func (m *Machine) Cancel() {
	m.state = Idle{}
}
