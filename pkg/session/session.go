// Package session is the composition root for one client's participation
// in one game: it joins, syncs the clock, attaches presence, starts the
// projector and owns the action machine. No ambient singletons; the
// session context is passed explicitly to whoever needs it.
package session

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mskovgaard/warboard/pkg/clocksync"
	"github.com/mskovgaard/warboard/pkg/game"
	"github.com/mskovgaard/warboard/pkg/game/action"
	"github.com/mskovgaard/warboard/pkg/game/constants"
	"github.com/mskovgaard/warboard/pkg/game/projector"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/presence"
	"github.com/mskovgaard/warboard/pkg/store"
)

// Session is one player's live connection to one game.
type Session struct {
	GameID  string
	User    types.User
	Offset  *clocksync.Offset
	Ops     *game.Operations
	Machine *action.Machine

	projector *projector.Projector
	detach    presence.Detach
	cancel    context.CancelFunc
}

// JoinOptions contains options for joining a game.
type JoinOptions struct {
	Store  store.Store
	Clock  clockwork.Clock
	GameID string
	User   types.User
}

// Join validates the game code, syncs the clock, joins the game, attaches
// presence and starts streaming views. The returned session must be left
// with Leave.
func Join(ctx context.Context, opts JoinOptions) (*Session, error) {
	offset := clocksync.Sync(ctx, opts.Store, opts.Clock)

	ops := game.NewOperations(game.NewOperationsOptions{
		Store:  opts.Store,
		Clock:  opts.Clock,
		Offset: offset,
	})

	if err := ops.CheckCode(ctx, opts.GameID); err != nil {
		return nil, err
	}
	if err := ops.JoinGame(ctx, opts.GameID, opts.User.ID); err != nil {
		return nil, fmt.Errorf("failed to join: %w", err)
	}

	tracker := presence.NewTracker(opts.Store)
	detach, err := tracker.Attach(ctx, opts.GameID, opts.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to attach presence: %w", err)
	}

	proj := projector.NewProjector(projector.NewProjectorOptions{
		Store:  opts.Store,
		Clock:  opts.Clock,
		Offset: offset,
		GameID: opts.GameID,
		UserID: opts.User.ID,
	})
	runCtx, cancel := context.WithCancel(context.Background())
	go proj.Run(runCtx)

	machine := action.NewMachine(action.NewMachineOptions{
		Operations: ops,
		GameID:     opts.GameID,
		UserID:     opts.User.ID,
		UserName:   opts.User.Name,
	})

	return &Session{
		GameID:    opts.GameID,
		User:      opts.User,
		Offset:    offset,
		Ops:       ops,
		Machine:   machine,
		projector: proj,
		detach:    detach,
		cancel:    cancel,
	}, nil
}

// Views delivers the projected view models for rendering.
func (s *Session) Views() <-chan types.View {
	return s.projector.Views()
}

// logContent is the payload attached to session-issued log entries.
type logContent struct {
	User  string `json:"user"`
	Color string `json:"color,omitempty"`
	Count int    `json:"count,omitempty"`
}

// SetColor claims a color for the player and announces the change.
func (s *Session) SetColor(ctx context.Context, color string) error {
	if err := s.Ops.SetColor(ctx, s.GameID, s.User.ID, color); err != nil {
		return err
	}
	return s.Ops.PushToLog(ctx, s.GameID, s.User.ID, constants.EventChangeColor, logContent{
		User:  s.User.Name,
		Color: color,
	})
}

// ThrowRandomCard throws one random card out of the player's hand and
// announces the throw.
func (s *Session) ThrowRandomCard(ctx context.Context) error {
	if err := s.Ops.ThrowRandomCard(ctx, s.GameID, s.User.ID); err != nil {
		return err
	}
	return s.Ops.PushToLog(ctx, s.GameID, s.User.ID, constants.EventThrowCard, logContent{
		User: s.User.Name,
	})
}

// DiscardDisplayedCards throws the player's displayed cards away and
// announces the discard.
func (s *Session) DiscardDisplayedCards(ctx context.Context, displayed []types.DisplayedCard) error {
	if err := s.Ops.DiscardDisplayedCards(ctx, s.GameID, s.User.ID, displayed); err != nil {
		return err
	}
	return s.Ops.PushToLog(ctx, s.GameID, s.User.ID, constants.EventDiscardCards, logContent{
		User:  s.User.Name,
		Count: len(displayed),
	})
}

// Leave stops the projector and releases presence cleanly.
func (s *Session) Leave(ctx context.Context) error {
	s.cancel()
	if err := s.detach(ctx); err != nil {
		return err
	}
	return nil
}
