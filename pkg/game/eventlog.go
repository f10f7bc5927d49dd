package game

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mskovgaard/warboard/pkg/game/constants"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/store"
)

// PushToLog appends a notification to the game's TTL log. The mutator
// prunes every expired entry before appending, so a quiet game's log
// never grows unbounded: each push re-evaluates expiry first.
func (o *Operations) PushToLog(ctx context.Context, gameID, userID, code string, content interface{}) error {
	encoded, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode log content: %w", err)
	}

	_, err = store.TransactAs(ctx, o.store, types.EventsKey(gameID), func(events *[]types.Event) (*[]types.Event, error) {
		now := o.now()

		kept := make([]types.Event, 0, 8)
		if events != nil {
			for _, event := range *events {
				if event.Expire > now {
					kept = append(kept, event)
				}
			}
		}

		kept = append(kept, types.Event{
			Timestamp: now,
			Expire:    now + constants.EventTTL.Milliseconds(),
			Code:      code,
			UserID:    userID,
			Content:   encoded,
		})
		return &kept, nil
	})
	return err
}
