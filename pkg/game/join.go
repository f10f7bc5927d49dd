package game

import (
	"context"
	"fmt"

	"github.com/mskovgaard/warboard/pkg/game/constants"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/store"
)

// JoinGame adds the player to the game's member list and creates their
// hand. Joining is idempotent: an already-joined player gets no duplicate
// membership, no redistribution and no second mission. First-time joins
// pop one mission from the shared pool and redistribute the starting
// countries across all current members.
func (o *Operations) JoinGame(ctx context.Context, gameID, userID string) error {
	var chosenMission string

	committed, err := store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil {
			return nil, &ErrValidation{Message: "game does not exist"}
		}
		// Reset on retry: the captured mission must come from the run
		// that commits.
		chosenMission = ""

		if g.IsMember(userID) {
			return g, nil
		}

		g.Members = append(g.Members, userID)
		if len(g.Missions) > 0 {
			chosenMission = g.Missions[len(g.Missions)-1]
			g.Missions = g.Missions[:len(g.Missions)-1]
		}
		g.InitialCountries = o.distribute(g.Members, constants.Countries)
		return g, nil
	})
	if err != nil {
		return fmt.Errorf("failed to join game %s: %w", gameID, err)
	}
	if committed == nil {
		return &ErrValidation{Message: "game does not exist"}
	}

	_, err = store.TransactAs(ctx, o.store, types.HandKey(gameID, userID), func(hand *types.Hand) (*types.Hand, error) {
		if hand != nil {
			return hand, nil
		}
		return &types.Hand{
			Game:    gameID,
			Player:  userID,
			Cards:   []int{},
			Mission: chosenMission,
		}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to create hand for %s: %w", userID, err)
	}
	return nil
}

// StartGame flips the started flag. Rendering the landing screen versus
// the board is the presentation layer's business.
func (o *Operations) StartGame(ctx context.Context, gameID string) error {
	_, err := store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil {
			return nil, nil
		}
		g.Started = true
		return g, nil
	})
	return err
}

// SetColor assigns a color to the player. The same document snapshot the
// transaction already sees is used to reject a color another player has
// committed, so two players can never hold one color durably.
func (o *Operations) SetColor(ctx context.Context, gameID, userID, color string) error {
	_, err := store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil {
			return nil, nil
		}
		for uid, taken := range g.Colors {
			if taken == color && uid != userID {
				return nil, &ErrValidation{Message: "color already taken"}
			}
		}
		if g.Colors == nil {
			g.Colors = map[string]string{}
		}
		g.Colors[userID] = color
		return g, nil
	})
	return err
}
