package projector

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mskovgaard/warboard/pkg/clocksync"
	"github.com/mskovgaard/warboard/pkg/game"
	"github.com/mskovgaard/warboard/pkg/game/constants"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type projectorFixture struct {
	store  *store.InMemoryStore
	ops    *game.Operations
	proj   *Projector
	gameID string
	cancel context.CancelFunc
}

func newProjectorFixture(t *testing.T, clock clockwork.Clock) *projectorFixture {
	t.Helper()
	ctx := context.Background()

	memStore := store.NewInMemoryStore(clock)
	offset := clocksync.Sync(ctx, memStore, clock)
	ops := game.NewOperations(game.NewOperationsOptions{
		Store:  memStore,
		Clock:  clock,
		Offset: offset,
		Rand:   rand.New(rand.NewSource(42)),
	})

	gameID, err := ops.CreateGame(ctx, "alice", "test game")
	require.NoError(t, err)
	require.NoError(t, ops.JoinGame(ctx, gameID, "alice"))

	proj := NewProjector(NewProjectorOptions{
		Store:  memStore,
		Clock:  clock,
		Offset: offset,
		GameID: gameID,
		UserID: "alice",
	})

	runCtx, cancel := context.WithCancel(ctx)
	go proj.Run(runCtx)
	t.Cleanup(cancel)

	return &projectorFixture{
		store:  memStore,
		ops:    ops,
		proj:   proj,
		gameID: gameID,
		cancel: cancel,
	}
}

// waitForView consumes views until cond holds or the timeout elapses.
func waitForView(t *testing.T, proj *Projector, cond func(types.View) bool) types.View {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case view, ok := <-proj.Views():
			if !ok {
				t.Fatal("view channel closed")
			}
			if cond(view) {
				return view
			}
		case <-deadline:
			t.Fatal("timed out waiting for view")
		}
	}
}

func TestProjector_EmitsDefaultFilledView(t *testing.T) {
	f := newProjectorFixture(t, clockwork.NewRealClock())

	view := waitForView(t, f.proj, func(view types.View) bool {
		return len(view.Game.Members) == 1 && len(view.Game.Countries) > 0
	})

	assert.Equal(t, f.gameID, view.Game.ID)
	assert.Equal(t, "test game", view.Game.Title)
	assert.Equal(t, []string{"alice"}, view.Game.Members)
	assert.Len(t, view.Game.Countries, len(constants.Countries))
	// Collections are always present, never nil.
	assert.NotNil(t, view.Game.Colors)
	assert.NotNil(t, view.Game.Events)
	assert.NotNil(t, view.Game.DisplayedCards.List)
	assert.NotNil(t, view.Hand.Cards)
	for _, country := range view.Game.Countries {
		assert.NotNil(t, country.Armies)
		assert.NotNil(t, country.ArmiesList)
	}
}

func TestProjector_ReflectsBoardChanges(t *testing.T) {
	f := newProjectorFixture(t, clockwork.NewRealClock())
	ctx := context.Background()
	country := constants.Countries[0]

	require.NoError(t, f.ops.PlaceArmy(ctx, f.gameID, "alice", country, "#ff0000", 3))

	view := waitForView(t, f.proj, func(view types.View) bool {
		return len(view.Game.Countries) > 0 && len(view.Game.Countries[0].ArmiesList) > 0
	})
	army := view.Game.Countries[0].ArmiesList[0]
	assert.Equal(t, "#ff0000", army.Color)
	assert.Equal(t, 3, army.Amount)
	assert.Equal(t, types.ArmyKey("#ff0000"), army.ID)
}

func TestProjector_MemberListGrowth(t *testing.T) {
	f := newProjectorFixture(t, clockwork.NewRealClock())
	ctx := context.Background()

	require.NoError(t, f.store.Set(ctx, types.UserKey("bob"), store.Encode(&types.User{ID: "bob", Name: "Bob"})))
	require.NoError(t, f.ops.JoinGame(ctx, f.gameID, "bob"))
	require.NoError(t, f.store.Set(ctx, types.PresenceKey(f.gameID, "bob"), store.Encode(true)))

	view := waitForView(t, f.proj, func(view types.View) bool {
		return len(view.Users) == 2 && view.Game.Status["bob"]
	})

	// Users are ordered by the member list.
	assert.Equal(t, "alice", view.Users[0].ID)
	assert.Equal(t, "bob", view.Users[1].ID)
	assert.Equal(t, "Bob", view.Users[1].Name)
	assert.True(t, view.Game.Status["bob"])
}

func TestProjector_FiltersExpiredEvents(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := newProjectorFixture(t, clock)
	ctx := context.Background()

	require.NoError(t, f.ops.PushToLog(ctx, f.gameID, "alice", constants.EventTakeCard, nil))

	view := waitForView(t, f.proj, func(view types.View) bool {
		return len(view.Game.Events) == 1
	})
	assert.Equal(t, constants.EventTakeCard, view.Game.Events[0].Code)

	// Past the TTL the event disappears from the next fold.
	clock.Advance(constants.EventTTL + time.Millisecond)
	require.NoError(t, f.ops.StartGame(ctx, f.gameID))

	view = waitForView(t, f.proj, func(view types.View) bool {
		return view.Game.Started
	})
	assert.Empty(t, view.Game.Events)
}

func TestProjector_NormalizesEventTimestamps(t *testing.T) {
	clock := clockwork.NewFakeClock()
	memStore := store.NewInMemoryStore(clock)
	memStore.SetServerSkew(10 * time.Second)
	ctx := context.Background()

	offset := clocksync.Sync(ctx, memStore, clock)
	require.Equal(t, int64(10000), offset.Millis())

	ops := game.NewOperations(game.NewOperationsOptions{
		Store:  memStore,
		Clock:  clock,
		Offset: offset,
		Rand:   rand.New(rand.NewSource(42)),
	})
	gameID, err := ops.CreateGame(ctx, "alice", "test game")
	require.NoError(t, err)
	require.NoError(t, ops.JoinGame(ctx, gameID, "alice"))

	proj := NewProjector(NewProjectorOptions{
		Store:  memStore,
		Clock:  clock,
		Offset: offset,
		GameID: gameID,
		UserID: "alice",
	})
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go proj.Run(runCtx)

	require.NoError(t, ops.PushToLog(ctx, gameID, "alice", constants.EventTakeCard, nil))

	view := waitForView(t, proj, func(view types.View) bool {
		return len(view.Game.Events) == 1
	})

	// Stored in server time, viewed in local time.
	event := view.Game.Events[0]
	assert.Equal(t, clock.Now().UnixMilli(), event.Timestamp)
	assert.Equal(t, clock.Now().UnixMilli()+constants.EventTTL.Milliseconds(), event.Expire)
}

func TestProjector_CancelStopsRunAndClosesViews(t *testing.T) {
	f := newProjectorFixture(t, clockwork.NewRealClock())

	waitForView(t, f.proj, func(view types.View) bool {
		return len(view.Game.Members) == 1
	})

	f.cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-f.proj.Views():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("view channel did not close after cancellation")
		}
	}
}

func TestProjector_ViewsCoalesceToLatest(t *testing.T) {
	f := newProjectorFixture(t, clockwork.NewRealClock())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, f.ops.AddMission(ctx, f.gameID, "extra mission"))
	}

	view := waitForView(t, f.proj, func(view types.View) bool {
		return len(view.Game.Missions) == len(constants.DefaultMissions)-1+10
	})
	assert.Equal(t, "extra mission", view.Game.Missions[len(view.Game.Missions)-1])
}
