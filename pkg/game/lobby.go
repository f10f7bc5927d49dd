package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mskovgaard/warboard/pkg/game/constants"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/store"
)

// NewGameCode generates a short join code for a new game.
func NewGameCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// CreateGame creates the game and board documents and returns the join
// code. The mission pool starts from the default set.
func (o *Operations) CreateGame(ctx context.Context, creator, title string) (string, error) {
	if title == "" {
		return "", &ErrValidation{Message: "title must not be empty"}
	}

	gameID := NewGameCode()

	missions := make([]string, len(constants.DefaultMissions))
	copy(missions, constants.DefaultMissions)

	g := &types.Game{
		ID:       gameID,
		Title:    title,
		Creator:  creator,
		Missions: missions,
	}
	if err := o.store.Set(ctx, types.GameKey(gameID), store.Encode(g)); err != nil {
		return "", fmt.Errorf("failed to create game: %w", err)
	}

	board := types.NewBoard(gameID, constants.Countries)
	if err := o.store.Set(ctx, types.BoardKey(gameID), store.Encode(board)); err != nil {
		return "", fmt.Errorf("failed to create board: %w", err)
	}

	return gameID, nil
}

// CheckCode verifies that a join code refers to an existing game.
func (o *Operations) CheckCode(ctx context.Context, gameID string) error {
	value, err := o.store.Once(ctx, types.GameKey(gameID))
	if err != nil {
		return fmt.Errorf("failed to check game code: %w", err)
	}
	if len(value) == 0 {
		return &ErrValidation{Message: "invalid game code"}
	}
	return nil
}

// GetGame reads the game document. Returns nil when no game exists for
// the code.
func (o *Operations) GetGame(ctx context.Context, gameID string) (*types.Game, error) {
	g, err := store.OnceAs[types.Game](ctx, o.store, types.GameKey(gameID))
	if err != nil {
		return nil, fmt.Errorf("failed to read game: %w", err)
	}
	return g, nil
}

// ChangeTitle renames the game.
func (o *Operations) ChangeTitle(ctx context.Context, gameID, title string) error {
	if title == "" {
		return &ErrValidation{Message: "title must not be empty"}
	}
	_, err := store.TransactAs(ctx, o.store, types.GameKey(gameID), func(g *types.Game) (*types.Game, error) {
		if g == nil {
			return nil, nil
		}
		g.Title = title
		return g, nil
	})
	return err
}

// DeleteGame tears down the game and its satellite documents. Deletion is
// best effort per document; there is no cross-document transaction.
func (o *Operations) DeleteGame(ctx context.Context, gameID string) error {
	g, err := store.OnceAs[types.Game](ctx, o.store, types.GameKey(gameID))
	if err != nil {
		return fmt.Errorf("failed to read game: %w", err)
	}
	if g == nil {
		return nil
	}

	for _, member := range g.Members {
		if err := o.store.Set(ctx, types.HandKey(gameID, member), nil); err != nil {
			return fmt.Errorf("failed to delete hand for %s: %w", member, err)
		}
		if err := o.store.Set(ctx, types.PresenceKey(gameID, member), nil); err != nil {
			return fmt.Errorf("failed to delete presence for %s: %w", member, err)
		}
	}
	if err := o.store.Set(ctx, types.EventsKey(gameID), nil); err != nil {
		return fmt.Errorf("failed to delete event log: %w", err)
	}
	if err := o.store.Set(ctx, types.BoardKey(gameID), nil); err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}
	if err := o.store.Set(ctx, types.GameKey(gameID), nil); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return nil
}
