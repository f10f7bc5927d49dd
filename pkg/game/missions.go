package game

import (
	"context"

	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/store"
)

// Mission pool editing. Only available before the game starts; the
// creator-only restriction lives in the presentation layer, matching the
// rest of the no-authority model.

// AddMission appends a mission to the pool.
func (o *Operations) AddMission(ctx context.Context, gameID, text string) error {
	if text == "" {
		return &ErrValidation{Message: "mission text must not be empty"}
	}
	_, err := store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil {
			return nil, nil
		}
		g.Missions = append(g.Missions, text)
		return g, nil
	})
	return err
}

// SaveMission replaces the mission at index. Out-of-range indexes are a
// no-op: the pool shrank under a concurrent edit.
func (o *Operations) SaveMission(ctx context.Context, gameID string, index int, text string) error {
	if text == "" {
		return &ErrValidation{Message: "mission text must not be empty"}
	}
	_, err := store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil || index < 0 || index >= len(g.Missions) {
			return g, nil
		}
		g.Missions[index] = text
		return g, nil
	})
	return err
}

// DeleteMission removes the mission at index.
func (o *Operations) DeleteMission(ctx context.Context, gameID string, index int) error {
	_, err := store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil || index < 0 || index >= len(g.Missions) {
			return g, nil
		}
		g.Missions = append(g.Missions[:index], g.Missions[index+1:]...)
		return g, nil
	})
	return err
}

// SetMissions overwrites the whole pool.
func (o *Operations) SetMissions(ctx context.Context, gameID string, missions []string) error {
	_, err := store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil {
			return nil, nil
		}
		g.Missions = missions
		return g, nil
	})
	return err
}
