// Package projector folds the game's documents into one normalized view
// model, recomputing on every underlying change.
package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mskovgaard/warboard/pkg/clocksync"
	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/store"
)

type docKind int

const (
	kindGame docKind = iota
	kindBoard
	kindHand
	kindEvents
	kindUser
	kindPresence
)

type update struct {
	kind   docKind
	member string
	value  store.Value
}

type memberSubs struct {
	user     *store.Subscription
	presence *store.Subscription
}

// Projector subscribes to the game, board, hand and event log documents
// plus the per-member user and presence documents, and emits a fresh
// types.View after every change. Member subscriptions follow the game's
// member list as it grows.
type Projector struct {
	store  store.Store
	clock  clockwork.Clock
	offset *clocksync.Offset
	gameID string
	userID string

	game   *types.Game
	board  *types.Board
	hand   *types.Hand
	events []types.Event
	users  map[string]*types.User
	online map[string]bool

	members map[string]*memberSubs
	updates chan update
	views   chan types.View
	done    chan struct{}

	wg sync.WaitGroup
}

// NewProjectorOptions contains options for creating a Projector.
type NewProjectorOptions struct {
	Store  store.Store
	Clock  clockwork.Clock
	Offset *clocksync.Offset
	GameID string
	UserID string
}

func NewProjector(opts NewProjectorOptions) *Projector {
	offset := opts.Offset
	if offset == nil {
		offset = &clocksync.Offset{}
	}
	return &Projector{
		store:   opts.Store,
		clock:   opts.Clock,
		offset:  offset,
		gameID:  opts.GameID,
		userID:  opts.UserID,
		users:   make(map[string]*types.User),
		online:  make(map[string]bool),
		members: make(map[string]*memberSubs),
		updates: make(chan update, 16),
		views:   make(chan types.View, 1),
		done:    make(chan struct{}),
	}
}

// Views delivers view models. Intermediate views may be coalesced; the
// latest is always delivered. The channel closes when Run returns.
func (p *Projector) Views() <-chan types.View {
	return p.views
}

// Run subscribes and folds until ctx is cancelled. All subscriptions are
// cancelled before waiting out the forward goroutines: cancelling closes
// their channels, and done unblocks any of them parked on a send.
func (p *Projector) Run(ctx context.Context) error {
	defer close(p.views)

	var fixedSubs []*store.Subscription
	defer func() {
		close(p.done)
		for _, sub := range fixedSubs {
			sub.Cancel()
		}
		for _, subs := range p.members {
			subs.user.Cancel()
			subs.presence.Cancel()
		}
		p.wg.Wait()
	}()

	fixed := []struct {
		kind docKind
		key  string
	}{
		{kindGame, types.GameKey(p.gameID)},
		{kindBoard, types.BoardKey(p.gameID)},
		{kindHand, types.HandKey(p.gameID, p.userID)},
		{kindEvents, types.EventsKey(p.gameID)},
	}
	for _, doc := range fixed {
		sub, err := p.store.Subscribe(ctx, doc.key)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", doc.key, err)
		}
		fixedSubs = append(fixedSubs, sub)
		p.forward(sub, doc.kind, "")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-p.updates:
			if err := p.apply(ctx, u); err != nil {
				log.Error("projector failed to apply update: %v", err)
				continue
			}
			p.emit()
		}
	}
}

// forward pumps a subscription into the single updates channel.
func (p *Projector) forward(sub *store.Subscription, kind docKind, member string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for value := range sub.C {
			select {
			case p.updates <- update{kind: kind, member: member, value: value}:
			case <-p.done:
				return
			}
		}
	}()
}

func (p *Projector) apply(ctx context.Context, u update) error {
	switch u.kind {
	case kindGame:
		g, err := decode[types.Game](u.value)
		if err != nil {
			return err
		}
		p.game = types.FillGameDefaults(g)
		if p.game != nil {
			return p.syncMembers(ctx, p.game.Members)
		}
	case kindBoard:
		b, err := decode[types.Board](u.value)
		if err != nil {
			return err
		}
		p.board = types.FillBoardDefaults(b)
	case kindHand:
		h, err := decode[types.Hand](u.value)
		if err != nil {
			return err
		}
		p.hand = types.FillHandDefaults(h)
	case kindEvents:
		events, err := decode[[]types.Event](u.value)
		if err != nil {
			return err
		}
		if events != nil {
			p.events = *events
		} else {
			p.events = nil
		}
	case kindUser:
		user, err := decode[types.User](u.value)
		if err != nil {
			return err
		}
		if user != nil {
			user.ID = u.member
			p.users[u.member] = user
		} else {
			p.users[u.member] = &types.User{ID: u.member}
		}
	case kindPresence:
		var online bool
		if len(u.value) > 0 {
			if err := json.Unmarshal(u.value, &online); err != nil {
				return fmt.Errorf("failed to decode presence flag: %w", err)
			}
		}
		p.online[u.member] = online
	}
	return nil
}

// syncMembers reconciles the per-member subscriptions with the member
// list. Members are append-only; removed members are handled anyway to
// stay safe against administrative edits.
func (p *Projector) syncMembers(ctx context.Context, members []string) error {
	current := make(map[string]bool, len(members))
	for _, member := range members {
		current[member] = true
		if _, ok := p.members[member]; ok {
			continue
		}

		userSub, err := p.store.Subscribe(ctx, types.UserKey(member))
		if err != nil {
			return fmt.Errorf("failed to subscribe to user %s: %w", member, err)
		}
		presenceSub, err := p.store.Subscribe(ctx, types.PresenceKey(p.gameID, member))
		if err != nil {
			userSub.Cancel()
			return fmt.Errorf("failed to subscribe to presence of %s: %w", member, err)
		}

		p.members[member] = &memberSubs{user: userSub, presence: presenceSub}
		p.forward(userSub, kindUser, member)
		p.forward(presenceSub, kindPresence, member)
	}

	for member, subs := range p.members {
		if current[member] {
			continue
		}
		subs.user.Cancel()
		subs.presence.Cancel()
		delete(p.members, member)
		delete(p.users, member)
		delete(p.online, member)
	}
	return nil
}

// emit folds the current documents into a view and delivers it,
// displacing an unconsumed older view.
func (p *Projector) emit() {
	view := p.fold()
	for {
		select {
		case p.views <- view:
			return
		default:
			select {
			case <-p.views:
			default:
			}
		}
	}
}

func decode[T any](value store.Value) (*T, error) {
	if len(value) == 0 || string(value) == "null" {
		return nil, nil
	}
	typed := new(T)
	if err := json.Unmarshal(value, typed); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return typed, nil
}
