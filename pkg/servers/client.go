package servers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/messages"
	"github.com/mskovgaard/warboard/pkg/store"
)

const outboundBufferSize = 64

// wsClientState is the per-connection server state: open subscriptions
// and registered disconnect hooks. Hooks fire when the connection goes
// away, whatever the reason.
type wsClientState struct {
	store *store.InMemoryStore
	conn  *websocket.Conn

	outbound chan *messages.Message

	lock      sync.Mutex
	subs      map[uint64]*store.Subscription
	hooks     map[uint64]messages.Hook
	closed    bool
	closeOnce sync.Once
}

func newWSClientState(s *store.InMemoryStore, conn *websocket.Conn) *wsClientState {
	return &wsClientState{
		store:    s,
		conn:     conn,
		outbound: make(chan *messages.Message, outboundBufferSize),
		subs:     make(map[uint64]*store.Subscription),
		hooks:    make(map[uint64]messages.Hook),
	}
}

// writeLoop is the single writer for the connection.
func (c *wsClientState) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := WriteMessageToWS(c.conn, msg); err != nil {
				log.Trace("Failed to write to %s: %v", c.conn.RemoteAddr().String(), err)
				return
			}
		}
	}
}

func (c *wsClientState) send(msg *messages.Message) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return
	}
	select {
	case c.outbound <- msg:
	default:
		log.Warn("Dropping message to slow client %s", c.conn.RemoteAddr().String())
	}
}

func (c *wsClientState) reply(id uint64, result *messages.Result) {
	payload, err := json.Marshal(result)
	if err != nil {
		log.Error("Failed to encode result: %v", err)
		return
	}
	c.send(&messages.Message{ID: id, Type: messages.MessageTypeResult, Payload: payload})
}

func (c *wsClientState) replyError(id uint64, err error) {
	c.reply(id, &messages.Result{Error: err.Error()})
}

func (c *wsClientState) handleMessage(ctx context.Context, msg *messages.Message) error {
	switch msg.Type {
	case messages.MessageTypeOnce:
		var req messages.Once
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("bad once payload: %w", err)
		}
		value, version := c.store.OnceVersioned(req.Key)
		c.reply(msg.ID, &messages.Result{Value: value, Version: version})
	case messages.MessageTypeWrite:
		var req messages.Write
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("bad write payload: %w", err)
		}
		if c.store.CommitVersioned(req.Key, req.Version, req.Value) {
			c.reply(msg.ID, &messages.Result{Committed: true})
			return nil
		}
		// Conflict: hand back the fresh value for the retry.
		value, version := c.store.OnceVersioned(req.Key)
		c.reply(msg.ID, &messages.Result{Committed: false, Value: value, Version: version})
	case messages.MessageTypeSet:
		var req messages.Set
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("bad set payload: %w", err)
		}
		if err := c.store.Set(ctx, req.Key, req.Value); err != nil {
			c.replyError(msg.ID, err)
			return nil
		}
		c.reply(msg.ID, &messages.Result{Committed: true})
	case messages.MessageTypeSubscribe:
		var req messages.Subscribe
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("bad subscribe payload: %w", err)
		}
		return c.subscribe(ctx, msg.ID, req)
	case messages.MessageTypeUnsubscribe:
		var req messages.Unsubscribe
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("bad unsubscribe payload: %w", err)
		}
		c.lock.Lock()
		if sub, ok := c.subs[req.Sub]; ok {
			sub.Cancel()
			delete(c.subs, req.Sub)
		}
		c.lock.Unlock()
		c.reply(msg.ID, &messages.Result{})
	case messages.MessageTypeHook:
		var req messages.Hook
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("bad hook payload: %w", err)
		}
		c.lock.Lock()
		c.hooks[req.Hook] = req
		c.lock.Unlock()
		c.reply(msg.ID, &messages.Result{})
	case messages.MessageTypeUnhook:
		var req messages.Unhook
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("bad unhook payload: %w", err)
		}
		c.lock.Lock()
		delete(c.hooks, req.Hook)
		c.lock.Unlock()
		c.reply(msg.ID, &messages.Result{})
	case messages.MessageTypeServerTime:
		millis, err := c.store.ServerTime(ctx)
		if err != nil {
			c.replyError(msg.ID, err)
			return nil
		}
		c.reply(msg.ID, &messages.Result{Millis: millis})
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (c *wsClientState) subscribe(ctx context.Context, id uint64, req messages.Subscribe) error {
	sub, err := c.store.Subscribe(ctx, req.Key)
	if err != nil {
		c.replyError(id, err)
		return nil
	}

	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		sub.Cancel()
		return nil
	}
	c.subs[req.Sub] = sub
	c.lock.Unlock()

	go func() {
		for value := range sub.C {
			payload, err := json.Marshal(&messages.Update{Sub: req.Sub, Value: value})
			if err != nil {
				log.Error("Failed to encode update: %v", err)
				continue
			}
			c.send(&messages.Message{Type: messages.MessageTypeUpdate, Payload: payload})
		}
	}()

	c.reply(id, &messages.Result{})
	return nil
}

// close tears the connection state down: subscriptions are cancelled and
// every registered disconnect hook fires, with no client code involved.
func (c *wsClientState) close() {
	c.closeOnce.Do(func() {
		c.lock.Lock()
		c.closed = true
		subs := c.subs
		hooks := c.hooks
		c.subs = map[uint64]*store.Subscription{}
		c.hooks = map[uint64]messages.Hook{}
		close(c.outbound)
		c.lock.Unlock()

		for _, sub := range subs {
			sub.Cancel()
		}
		for _, hook := range hooks {
			if err := c.store.Set(context.Background(), hook.Key, hook.Value); err != nil {
				log.Error("Failed to apply disconnect hook for %s: %v", hook.Key, err)
			}
		}
		c.conn.Close()
	})
}
