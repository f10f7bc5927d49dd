package game

import (
	"context"

	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/store"
)

// PlaceArmy adds amount armies of color to country. A placement without a
// chosen color is a no-op: the player has not picked a color yet.
func (o *Operations) PlaceArmy(ctx context.Context, gameID, userID, country, color string, amount int) error {
	if color == "" {
		return nil
	}

	_, err := store.TransactAs(ctx, o.store, types.BoardKey(gameID), func(board *types.Board) (*types.Board, error) {
		if board == nil {
			return nil, nil
		}

		for i := range board.Countries {
			if board.Countries[i].Name != country {
				continue
			}
			if board.Countries[i].Armies == nil {
				board.Countries[i].Armies = map[string]types.Army{}
			}
			key := types.ArmyKey(color)
			prev := board.Countries[i].Armies[key].Amount
			board.Countries[i].Armies[key] = types.Army{
				Color:  color,
				Amount: prev + amount,
			}
		}
		return board, nil
	})
	return err
}

// RemoveArmy subtracts amount armies from the armyID entry at country.
// An entry that reaches zero or below is deleted, never stored
// non-positive.
func (o *Operations) RemoveArmy(ctx context.Context, gameID, userID, country, armyID string, amount int) error {
	if armyID == "" {
		return nil
	}

	_, err := store.TransactAs(ctx, o.store, types.BoardKey(gameID), func(board *types.Board) (*types.Board, error) {
		if board == nil {
			return nil, nil
		}

		for i := range board.Countries {
			if board.Countries[i].Name != country {
				continue
			}
			army, ok := board.Countries[i].Armies[armyID]
			if !ok {
				continue
			}
			if army.Amount-amount > 0 {
				army.Amount -= amount
				board.Countries[i].Armies[armyID] = army
			} else {
				delete(board.Countries[i].Armies, armyID)
			}
		}
		return board, nil
	})
	return err
}
