package projector

import (
	"sort"

	"github.com/mskovgaard/warboard/pkg/game/types"
)

// fold merges the current documents into one default-filled view model.
// Missing fields become empty collections, never absent; expired events
// are filtered out and timestamps are normalized to the local clock.
func (p *Projector) fold() types.View {
	localNow := p.clock.Now().UnixMilli()
	offset := p.offset.Millis()
	serverNow := localNow + offset

	game := types.GameView{
		ID:               p.gameID,
		Colors:           map[string]string{},
		Members:          []string{},
		Missions:         []string{},
		InitialCountries: map[string][]string{},
		DisplayedCards:   types.DisplayedCards{List: []types.DisplayedCard{}},
		Countries:        []types.CountryView{},
		Events:           []types.Event{},
		Status:           map[string]bool{},
	}

	if p.game != nil {
		game.Title = p.game.Title
		game.Creator = p.game.Creator
		game.Colors = p.game.Colors
		game.Members = p.game.Members
		game.Missions = p.game.Missions
		game.InitialCountries = p.game.InitialCountries
		game.Started = p.game.Started
		if p.game.DisplayedCards != nil {
			game.DisplayedCards = *p.game.DisplayedCards
			if game.DisplayedCards.List == nil {
				game.DisplayedCards.List = []types.DisplayedCard{}
			}
		}
	}

	if p.board != nil {
		for _, country := range p.board.Countries {
			armies := country.Armies
			if armies == nil {
				armies = map[string]types.Army{}
			}
			game.Countries = append(game.Countries, types.CountryView{
				Name:       country.Name,
				Armies:     armies,
				ArmiesList: country.ArmiesList(),
			})
		}
	}

	for _, event := range p.events {
		if event.Expire <= serverNow {
			continue
		}
		event.Timestamp -= offset
		event.Expire -= offset
		game.Events = append(game.Events, event)
	}

	for member, online := range p.online {
		game.Status[member] = online
	}

	hand := types.Hand{
		Game:   p.gameID,
		Player: p.userID,
		Cards:  []int{},
	}
	if p.hand != nil {
		hand = *p.hand
		if hand.Cards == nil {
			hand.Cards = []int{}
		}
	}

	users := make([]types.User, 0, len(p.users))
	if p.game != nil {
		for _, member := range p.game.Members {
			if user, ok := p.users[member]; ok {
				users = append(users, *user)
			} else {
				users = append(users, types.User{ID: member})
			}
		}
	} else {
		for _, user := range p.users {
			users = append(users, *user)
		}
		sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	}

	return types.View{
		Game:      game,
		Hand:      hand,
		Users:     users,
		Timestamp: localNow,
	}
}
