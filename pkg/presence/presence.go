// Package presence wires a player's online flag to the connection
// lifecycle.
package presence

import (
	"context"
	"fmt"

	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/store"
)

// Tracker maintains per-(game, player) presence flags. The store itself
// flips the flag false on disconnect through a presence hook, with no
// client code running.
type Tracker struct {
	store store.Store
}

func NewTracker(s store.Store) *Tracker {
	return &Tracker{store: s}
}

// Detach cleanly leaves: it cancels the pending disconnect hook and
// explicitly sets the flag false.
type Detach func(ctx context.Context) error

// Attach watches the connection state and, whenever the client is
// connected, registers a disconnect hook before setting the flag true.
// The hook is re-registered after every reconnect. Failures to register
// leave presence in its last known state: fail-open, not fatal.
func (t *Tracker) Attach(ctx context.Context, gameID, userID string) (Detach, error) {
	key := types.PresenceKey(gameID, userID)

	conn, err := t.store.Connectivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to watch connectivity: %w", err)
	}

	hooks := make(chan *store.Hook, 1)
	go func() {
		for connected := range conn.C {
			if !connected {
				continue
			}

			// The hook must be acknowledged before we mark ourselves
			// online, so the store is guaranteed to flip the flag back
			// if we vanish.
			hook, err := t.store.PresenceHook(ctx, key, store.Encode(false))
			if err != nil {
				log.Warn("failed to register presence hook for %s: %v", key, err)
				continue
			}

			select {
			case old := <-hooks:
				old.Cancel()
			default:
			}
			hooks <- hook

			if err := t.store.Set(ctx, key, store.Encode(true)); err != nil {
				log.Warn("failed to set presence flag for %s: %v", key, err)
			}
		}
	}()

	detach := func(ctx context.Context) error {
		conn.Cancel()
		select {
		case hook := <-hooks:
			hook.Cancel()
		default:
		}
		if err := t.store.Set(ctx, key, store.Encode(false)); err != nil {
			return fmt.Errorf("failed to clear presence flag: %w", err)
		}
		return nil
	}
	return detach, nil
}
