package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/messages"
)

// RemoteStore implements Store over a websocket connection to the store
// server. Transactions run the mutator locally and race the commit
// against other writers; on conflict the server hands back the fresh
// value and the mutator is re-run.
type RemoteStore struct {
	conn *websocket.Conn

	writeLock sync.Mutex

	lock      sync.Mutex
	nextID    uint64
	pending   map[uint64]chan *messages.Result
	subs      map[uint64]chan Value
	connSubs  map[uint64]chan bool
	connected bool
}

// DialRemoteStore connects to a store server.
func DialRemoteStore(ctx context.Context, url string) (*RemoteStore, error) {
	log.Info("Connecting to store server at %s", url)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store server: %w", err)
	}

	s := &RemoteStore{
		conn:      conn,
		pending:   make(map[uint64]chan *messages.Result),
		subs:      make(map[uint64]chan Value),
		connSubs:  make(map[uint64]chan bool),
		connected: true,
	}
	go s.readLoop()
	return s, nil
}

// Close tears the connection down. The server fires any registered
// disconnect hooks.
func (s *RemoteStore) Close() error {
	return s.conn.Close()
}

func (s *RemoteStore) readLoop() {
	defer s.dropped()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error("Error reading from store server: %v", err)
			}
			return
		}

		msg, err := messages.DeserializeMessage(data)
		if err != nil {
			log.Error("Failed to deserialize store message: %v", err)
			continue
		}

		switch msg.Type {
		case messages.MessageTypeResult:
			result := &messages.Result{}
			if err := json.Unmarshal(msg.Payload, result); err != nil {
				log.Error("Failed to decode result: %v", err)
				continue
			}
			s.lock.Lock()
			ch, ok := s.pending[msg.ID]
			delete(s.pending, msg.ID)
			s.lock.Unlock()
			if ok {
				ch <- result
			}
		case messages.MessageTypeUpdate:
			update := &messages.Update{}
			if err := json.Unmarshal(msg.Payload, update); err != nil {
				log.Error("Failed to decode update: %v", err)
				continue
			}
			// Delivered under the lock so Cancel cannot close the channel
			// mid-send. deliverLatest never blocks.
			s.lock.Lock()
			if ch, ok := s.subs[update.Sub]; ok {
				deliverLatest(ch, Value(update.Value))
			}
			s.lock.Unlock()
		default:
			log.Warn("Unexpected message type %q from store server", msg.Type)
		}
	}
}

// dropped fails every pending request and flips connectivity false.
// Presence hooks fire server-side; nothing to do here.
func (s *RemoteStore) dropped() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.connected = false
	for id, ch := range s.pending {
		delete(s.pending, id)
		close(ch)
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	for _, ch := range s.connSubs {
		deliverLatestBool(ch, false)
	}
}

// request sends one frame and waits for its result.
func (s *RemoteStore) request(ctx context.Context, msgType string, payload interface{}) (*messages.Result, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}

	s.lock.Lock()
	if !s.connected {
		s.lock.Unlock()
		return nil, fmt.Errorf("store connection is down")
	}
	s.nextID++
	id := s.nextID
	ch := make(chan *messages.Result, 1)
	s.pending[id] = ch
	s.lock.Unlock()

	frame, err := messages.SerializeMessage(&messages.Message{ID: id, Type: msgType, Payload: encoded})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s message: %w", msgType, err)
	}

	s.writeLock.Lock()
	err = s.conn.WriteMessage(websocket.BinaryMessage, frame)
	s.writeLock.Unlock()
	if err != nil {
		s.lock.Lock()
		delete(s.pending, id)
		s.lock.Unlock()
		return nil, fmt.Errorf("failed to send %s message: %w", msgType, err)
	}

	select {
	case <-ctx.Done():
		s.lock.Lock()
		delete(s.pending, id)
		s.lock.Unlock()
		return nil, ctx.Err()
	case result, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("store connection lost")
		}
		if result.Error != "" {
			return nil, fmt.Errorf("store error: %s", result.Error)
		}
		return result, nil
	}
}

func (s *RemoteStore) Transact(ctx context.Context, key string, mutator Mutator) (Value, error) {
	result, err := s.request(ctx, messages.MessageTypeOnce, &messages.Once{Key: key})
	if err != nil {
		return nil, err
	}
	current, version := Value(result.Value), result.Version

	for attempt := 0; attempt < TransactMaxRetries; attempt++ {
		next, err := mutator(cloneValue(current))
		if err != nil {
			return nil, fmt.Errorf("mutator failed: %w", err)
		}

		if string(next) == string(current) {
			return next, nil
		}

		result, err := s.request(ctx, messages.MessageTypeWrite, &messages.Write{
			Key:     key,
			Version: version,
			Value:   json.RawMessage(next),
		})
		if err != nil {
			return nil, err
		}
		if result.Committed {
			return next, nil
		}
		current, version = Value(result.Value), result.Version
	}

	return nil, &ErrTooManyRetries{}
}

func (s *RemoteStore) Set(ctx context.Context, key string, value Value) error {
	_, err := s.request(ctx, messages.MessageTypeSet, &messages.Set{Key: key, Value: json.RawMessage(value)})
	return err
}

func (s *RemoteStore) Once(ctx context.Context, key string) (Value, error) {
	result, err := s.request(ctx, messages.MessageTypeOnce, &messages.Once{Key: key})
	if err != nil {
		return nil, err
	}
	return Value(result.Value), nil
}

func (s *RemoteStore) Subscribe(ctx context.Context, key string) (*Subscription, error) {
	s.lock.Lock()
	s.nextID++
	subID := s.nextID
	ch := make(chan Value, 1)
	s.subs[subID] = ch
	s.lock.Unlock()

	if _, err := s.request(ctx, messages.MessageTypeSubscribe, &messages.Subscribe{Key: key, Sub: subID}); err != nil {
		s.lock.Lock()
		delete(s.subs, subID)
		s.lock.Unlock()
		return nil, err
	}

	cancel := func() {
		s.lock.Lock()
		if _, ok := s.subs[subID]; !ok {
			s.lock.Unlock()
			return
		}
		delete(s.subs, subID)
		close(ch)
		s.lock.Unlock()
		// Best effort: the server drops the subscription with the
		// connection anyway.
		if _, err := s.request(context.Background(), messages.MessageTypeUnsubscribe, &messages.Unsubscribe{Sub: subID}); err != nil {
			log.Trace("Failed to unsubscribe %d: %v", subID, err)
		}
	}
	return &Subscription{C: ch, cancel: cancel}, nil
}

func (s *RemoteStore) PresenceHook(ctx context.Context, key string, value Value) (*Hook, error) {
	s.lock.Lock()
	s.nextID++
	hookID := s.nextID
	s.lock.Unlock()

	if _, err := s.request(ctx, messages.MessageTypeHook, &messages.Hook{
		Key:   key,
		Value: json.RawMessage(value),
		Hook:  hookID,
	}); err != nil {
		return nil, err
	}

	cancel := func() {
		if _, err := s.request(context.Background(), messages.MessageTypeUnhook, &messages.Unhook{Hook: hookID}); err != nil {
			log.Trace("Failed to cancel hook %d: %v", hookID, err)
		}
	}
	return &Hook{cancel: cancel}, nil
}

func (s *RemoteStore) Connectivity(ctx context.Context) (*ConnSubscription, error) {
	s.lock.Lock()
	s.nextID++
	id := s.nextID
	ch := make(chan bool, 1)
	s.connSubs[id] = ch
	ch <- s.connected
	s.lock.Unlock()

	cancel := func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if _, ok := s.connSubs[id]; !ok {
			return
		}
		delete(s.connSubs, id)
		close(ch)
	}
	return &ConnSubscription{C: ch, cancel: cancel}, nil
}

func (s *RemoteStore) ServerTime(ctx context.Context) (int64, error) {
	result, err := s.request(ctx, messages.MessageTypeServerTime, struct{}{})
	if err != nil {
		return 0, err
	}
	return result.Millis, nil
}
