package game

import (
	"context"
	"fmt"

	"github.com/mskovgaard/warboard/pkg/game/constants"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/store"
)

// TakeCard draws a uniformly-random card type into the player's hand.
// The draw happens before the transaction so retries append the same card.
func (o *Operations) TakeCard(ctx context.Context, gameID, userID string) error {
	cardType := o.rand.Intn(constants.CardTypeCount)

	_, err := store.TransactAs(ctx, o.store, types.HandKey(gameID, userID), func(hand *types.Hand) (*types.Hand, error) {
		if hand == nil {
			return nil, nil
		}
		hand.Cards = append(hand.Cards, cardType)
		return hand, nil
	})
	return err
}

// ThrowRandomCard discards one random card from the player's hand. The
// pick happens inside the mutator because it depends on the current hand
// size; a retry may pick a different card, but always exactly one.
func (o *Operations) ThrowRandomCard(ctx context.Context, gameID, userID string) error {
	_, err := store.TransactAs(ctx, o.store, types.HandKey(gameID, userID), func(hand *types.Hand) (*types.Hand, error) {
		if hand == nil || len(hand.Cards) == 0 {
			return hand, nil
		}
		hand.Cards = removeAt(hand.Cards, o.rand.Intn(len(hand.Cards)))
		return hand, nil
	})
	return err
}

// DisplayCard adds a hand card to the displayed-cards singleton. The
// singleton may only be appended to when it is unowned or already owned
// by the acting player; otherwise the display is rejected.
func (o *Operations) DisplayCard(ctx context.Context, gameID, userID string, cardType, cardIndex int) error {
	_, err := store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil {
			return nil, nil
		}

		if g.DisplayedCards == nil {
			g.DisplayedCards = &types.DisplayedCards{UserID: userID}
		}
		if g.DisplayedCards.UserID != userID {
			return nil, &ErrValidation{Message: "another player is showing cards"}
		}

		g.DisplayedCards.List = append(g.DisplayedCards.List, types.DisplayedCard{
			CardType:  cardType,
			CardIndex: cardIndex,
		})
		return g, nil
	})
	return err
}

// RemoveDisplayedCard takes one of the player's displayed cards back into
// the hand. Removing the last card clears the singleton, releasing it for
// any other player.
func (o *Operations) RemoveDisplayedCard(ctx context.Context, gameID, userID string, cardIndex int) error {
	_, err := store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil || g.DisplayedCards == nil {
			return g, nil
		}

		if g.DisplayedCards.UserID == userID {
			list := g.DisplayedCards.List[:0]
			for _, card := range g.DisplayedCards.List {
				if card.CardIndex != cardIndex {
					list = append(list, card)
				}
			}
			g.DisplayedCards.List = list
		}

		if len(g.DisplayedCards.List) == 0 {
			g.DisplayedCards = nil
		}
		return g, nil
	})
	return err
}

// DiscardDisplayedCards removes the displayed cards from the player's
// hand, then clears them from the shared singleton. The two documents are
// transacted independently: if the second write fails the hand is not
// rolled back and the inconsistency stands until the next mutation.
func (o *Operations) DiscardDisplayedCards(ctx context.Context, gameID, userID string, displayed []types.DisplayedCard) error {
	discardIndex := make(map[int]bool, len(displayed))
	for _, card := range displayed {
		discardIndex[card.CardIndex] = true
	}

	_, err := store.TransactAs(ctx, o.store, types.HandKey(gameID, userID), func(hand *types.Hand) (*types.Hand, error) {
		if hand == nil {
			return nil, nil
		}
		cards := make([]int, 0, len(hand.Cards))
		for i, card := range hand.Cards {
			if !discardIndex[i] {
				cards = append(cards, card)
			}
		}
		hand.Cards = cards
		return hand, nil
	})
	if err != nil {
		return fmt.Errorf("failed to discard from hand: %w", err)
	}

	_, err = store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil || g.DisplayedCards == nil {
			return g, nil
		}

		list := g.DisplayedCards.List[:0]
		for _, card := range g.DisplayedCards.List {
			if !discardIndex[card.CardIndex] {
				list = append(list, card)
			}
		}
		g.DisplayedCards.List = list

		if len(g.DisplayedCards.List) == 0 {
			g.DisplayedCards = nil
		}
		return g, nil
	})
	if err != nil {
		// Hand already committed; visible state reconciles on the next
		// successful mutation.
		log.Warn("discard left displayed cards behind for game %s: %v", gameID, err)
		return fmt.Errorf("failed to clear displayed cards: %w", err)
	}
	return nil
}
