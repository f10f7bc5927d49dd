package action

import (
	"context"
	"math/rand"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/mskovgaard/warboard/pkg/game"
	"github.com/mskovgaard/warboard/pkg/game/constants"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T) (*Machine, *game.Operations, *store.InMemoryStore, string) {
	t.Helper()

	memStore := store.NewInMemoryStore(clockwork.NewRealClock())
	ops := game.NewOperations(game.NewOperationsOptions{
		Store: memStore,
		Clock: clockwork.NewRealClock(),
		Rand:  rand.New(rand.NewSource(42)),
	})

	gameID, err := ops.CreateGame(context.Background(), "alice", "test game")
	require.NoError(t, err)
	require.NoError(t, ops.JoinGame(context.Background(), gameID, "alice"))

	machine := NewMachine(NewMachineOptions{
		Operations: ops,
		GameID:     gameID,
		UserID:     "alice",
		UserName:   "Alice",
	})
	return machine, ops, memStore, gameID
}

func getBoard(t *testing.T, s store.Store, gameID string) *types.Board {
	t.Helper()
	board, err := store.OnceAs[types.Board](context.Background(), s, types.BoardKey(gameID))
	require.NoError(t, err)
	require.NotNil(t, board)
	return board
}

func armyAmount(t *testing.T, s store.Store, gameID, country, armyID string) int {
	t.Helper()
	board := getBoard(t, s, gameID)
	for _, c := range board.Countries {
		if c.Name == country {
			return c.Armies[armyID].Amount
		}
	}
	t.Fatalf("country %s not on board", country)
	return 0
}

func TestMachine_PlaceArmyFlow(t *testing.T) {
	machine, _, memStore, gameID := newTestMachine(t)
	ctx := context.Background()
	country := constants.Countries[0]

	machine.StartPlacingArmy("#ff0000")
	assert.Equal(t, PlacingArmy{Color: "#ff0000", Amount: 1}, machine.State())

	// A second action while one is pending is a no-op.
	machine.StartTakingCard()
	assert.Equal(t, PlacingArmy{Color: "#ff0000", Amount: 1}, machine.State())
	machine.StartPlacingArmy("#0000ff")
	assert.Equal(t, PlacingArmy{Color: "#ff0000", Amount: 1}, machine.State())

	require.NoError(t, machine.DropOnCountry(ctx, country))
	assert.Equal(t, Idle{}, machine.State())
	assert.Equal(t, 1, armyAmount(t, memStore, gameID, country, types.ArmyKey("#ff0000")))
}

func TestMachine_StartPlacingArmy_NoColor(t *testing.T) {
	machine, _, _, _ := newTestMachine(t)

	machine.StartPlacingArmy("")
	assert.Equal(t, Idle{}, machine.State())
}

func TestMachine_MoveArmyAccumulates(t *testing.T) {
	machine, ops, memStore, gameID := newTestMachine(t)
	ctx := context.Background()
	origin := constants.Countries[0]
	target := constants.Countries[1]
	armyID := types.ArmyKey("#ff0000")

	require.NoError(t, ops.PlaceArmy(ctx, gameID, "alice", origin, "#ff0000", 3))

	army := types.ArmyView{ID: armyID, Color: "#ff0000", Amount: 3}
	require.NoError(t, machine.PickUpArmy(ctx, origin, army))
	require.NoError(t, machine.PickUpArmy(ctx, origin, army))
	assert.Equal(t, MovingArmy{OriginCountry: origin, ArmyID: armyID, Color: "#ff0000", Amount: 2}, machine.State())
	assert.Equal(t, 1, armyAmount(t, memStore, gameID, origin, armyID))

	// Picking up from a different stack mid-move is rejected.
	require.NoError(t, machine.PickUpArmy(ctx, target, types.ArmyView{ID: armyID, Color: "#ff0000", Amount: 1}))
	assert.Equal(t, MovingArmy{OriginCountry: origin, ArmyID: armyID, Color: "#ff0000", Amount: 2}, machine.State())

	require.NoError(t, machine.DropOnCountry(ctx, target))
	assert.Equal(t, Idle{}, machine.State())
	assert.Equal(t, 1, armyAmount(t, memStore, gameID, origin, armyID))
	assert.Equal(t, 2, armyAmount(t, memStore, gameID, target, armyID))
}

func TestMachine_DiscardZoneDropsArmies(t *testing.T) {
	machine, ops, memStore, gameID := newTestMachine(t)
	ctx := context.Background()
	origin := constants.Countries[0]
	armyID := types.ArmyKey("#ff0000")

	require.NoError(t, ops.PlaceArmy(ctx, gameID, "alice", origin, "#ff0000", 2))
	require.NoError(t, machine.PickUpArmy(ctx, origin, types.ArmyView{ID: armyID, Color: "#ff0000", Amount: 2}))
	require.NoError(t, machine.DropOnDiscardZone(ctx))

	assert.Equal(t, Idle{}, machine.State())
	// The picked-up army is gone for good.
	assert.Equal(t, 1, armyAmount(t, memStore, gameID, origin, armyID))

	events, err := store.OnceAs[[]types.Event](ctx, memStore, types.EventsKey(gameID))
	require.NoError(t, err)
	require.NotNil(t, events)
	require.Len(t, *events, 1)
	assert.Equal(t, constants.EventDiscardArmy, (*events)[0].Code)
}

func TestMachine_CancelKeepsRemovedArmiesLost(t *testing.T) {
	machine, ops, memStore, gameID := newTestMachine(t)
	ctx := context.Background()
	origin := constants.Countries[0]
	armyID := types.ArmyKey("#ff0000")

	require.NoError(t, ops.PlaceArmy(ctx, gameID, "alice", origin, "#ff0000", 2))
	require.NoError(t, machine.PickUpArmy(ctx, origin, types.ArmyView{ID: armyID, Color: "#ff0000", Amount: 2}))
	machine.Cancel()

	assert.Equal(t, Idle{}, machine.State())
	assert.Equal(t, 1, armyAmount(t, memStore, gameID, origin, armyID))
}

func TestMachine_TakeCardFlow(t *testing.T) {
	machine, _, memStore, gameID := newTestMachine(t)
	ctx := context.Background()

	// Dropping on the hand without a staged draw does nothing.
	require.NoError(t, machine.DropOnHand(ctx))

	machine.StartTakingCard()
	assert.Equal(t, TakingCard{}, machine.State())
	require.NoError(t, machine.DropOnHand(ctx))
	assert.Equal(t, Idle{}, machine.State())

	hand, err := store.OnceAs[types.Hand](ctx, memStore, types.HandKey(gameID, "alice"))
	require.NoError(t, err)
	require.NotNil(t, hand)
	assert.Len(t, hand.Cards, 1)

	events, err := store.OnceAs[[]types.Event](ctx, memStore, types.EventsKey(gameID))
	require.NoError(t, err)
	require.Len(t, *events, 1)
	assert.Equal(t, constants.EventTakeCard, (*events)[0].Code)
}

func TestMachine_DisplayCardFlow(t *testing.T) {
	machine, _, memStore, gameID := newTestMachine(t)
	ctx := context.Background()

	machine.PickUpHandCard(1, 0, types.DisplayedCards{})
	assert.Equal(t, MovingCard{CardType: 1, HandIndex: 0}, machine.State())

	// Re-picking a different card re-stages.
	machine.PickUpHandCard(2, 1, types.DisplayedCards{})
	assert.Equal(t, MovingCard{CardType: 2, HandIndex: 1}, machine.State())

	require.NoError(t, machine.DropOnDisplayZone(ctx, types.DisplayedCards{}))
	assert.Equal(t, Idle{}, machine.State())

	g, err := store.OnceAs[types.Game](ctx, memStore, types.GameKey(gameID))
	require.NoError(t, err)
	require.NotNil(t, g.DisplayedCards)
	assert.Equal(t, "alice", g.DisplayedCards.UserID)
	assert.Equal(t, []types.DisplayedCard{{CardType: 2, CardIndex: 1}}, g.DisplayedCards.List)
}

func TestMachine_DisplayZoneOwnedByOther(t *testing.T) {
	machine, ops, memStore, gameID := newTestMachine(t)
	ctx := context.Background()

	require.NoError(t, ops.DisplayCard(ctx, gameID, "bob", 0, 0))

	machine.PickUpHandCard(1, 0, types.DisplayedCards{})
	displayed := types.DisplayedCards{UserID: "bob", List: []types.DisplayedCard{{CardType: 0, CardIndex: 0}}}
	// Collapse without attempting the display.
	require.NoError(t, machine.DropOnDisplayZone(ctx, displayed))
	assert.Equal(t, Idle{}, machine.State())

	g, err := store.OnceAs[types.Game](ctx, memStore, types.GameKey(gameID))
	require.NoError(t, err)
	require.NotNil(t, g.DisplayedCards)
	assert.Equal(t, "bob", g.DisplayedCards.UserID)
	assert.Len(t, g.DisplayedCards.List, 1)
}

func TestMachine_CannotPickUpDisplayedHandCard(t *testing.T) {
	machine, _, _, _ := newTestMachine(t)

	displayed := types.DisplayedCards{
		UserID: "alice",
		List:   []types.DisplayedCard{{CardType: 1, CardIndex: 2}},
	}
	machine.PickUpHandCard(1, 2, displayed)
	assert.Equal(t, Idle{}, machine.State())

	// Other indexes are still available.
	machine.PickUpHandCard(0, 1, displayed)
	assert.Equal(t, MovingCard{CardType: 0, HandIndex: 1}, machine.State())
}

func TestMachine_TakeBackDisplayedCard(t *testing.T) {
	machine, ops, memStore, gameID := newTestMachine(t)
	ctx := context.Background()

	require.NoError(t, ops.DisplayCard(ctx, gameID, "alice", 1, 0))
	displayed := types.DisplayedCards{
		UserID: "alice",
		List:   []types.DisplayedCard{{CardType: 1, CardIndex: 0}},
	}

	machine.PickUpDisplayedCard(displayed.List[0], 0, displayed)
	assert.Equal(t, MovingDisplayedCard{CardType: 1, DisplayIndex: 0, CardIndex: 0}, machine.State())

	require.NoError(t, machine.DropOutsideDisplay(ctx))
	assert.Equal(t, Idle{}, machine.State())

	g, err := store.OnceAs[types.Game](ctx, memStore, types.GameKey(gameID))
	require.NoError(t, err)
	assert.Nil(t, g.DisplayedCards)
}

func TestMachine_CannotTakeBackOthersCard(t *testing.T) {
	machine, ops, _, gameID := newTestMachine(t)
	ctx := context.Background()

	require.NoError(t, ops.DisplayCard(ctx, gameID, "bob", 1, 0))
	displayed := types.DisplayedCards{
		UserID: "bob",
		List:   []types.DisplayedCard{{CardType: 1, CardIndex: 0}},
	}

	machine.PickUpDisplayedCard(displayed.List[0], 0, displayed)
	assert.Equal(t, Idle{}, machine.State())
}

func TestMachine_FailedPickUpKeepsState(t *testing.T) {
	machine, _, memStore, gameID := newTestMachine(t)
	origin := constants.Countries[0]
	armyID := types.ArmyKey("#ff0000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := machine.PickUpArmy(ctx, origin, types.ArmyView{ID: armyID, Color: "#ff0000", Amount: 2})
	require.Error(t, err)
	assert.Equal(t, Idle{}, machine.State())

	board := getBoard(t, memStore, gameID)
	assert.Empty(t, board.Countries[0].Armies)
}
