package store

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// TransactMaxRetries bounds the optimistic retry loop.
	TransactMaxRetries = 32
	// transactBackoff is slept between later retry rounds to let the
	// conflicting writer finish.
	transactBackoff = time.Millisecond
)

type document struct {
	value   Value
	version uint64
}

type subscriber struct {
	ch chan Value
}

type connSubscriber struct {
	ch chan bool
}

type presenceHook struct {
	key   string
	value Value
}

// InMemoryStore implements Store with process-local documents. It is safe
// for concurrent use and is the storage engine behind the websocket store
// server as well as the store used by tests.
type InMemoryStore struct {
	lock      sync.Mutex
	docs      map[string]document
	subs      map[string]map[uint64]*subscriber
	connSubs  map[uint64]*connSubscriber
	hooks     map[uint64]presenceHook
	nextSubID uint64
	connected bool
	clock     clockwork.Clock
	skew      time.Duration
}

// NewInMemoryStore creates a new connected store reading time from clock.
func NewInMemoryStore(clock clockwork.Clock) *InMemoryStore {
	return &InMemoryStore{
		docs:      make(map[string]document),
		subs:      make(map[string]map[uint64]*subscriber),
		connSubs:  make(map[uint64]*connSubscriber),
		hooks:     make(map[uint64]presenceHook),
		connected: true,
		clock:     clock,
	}
}

// SetServerSkew offsets the store's server time relative to clock. Used to
// simulate client/server clock drift.
func (s *InMemoryStore) SetServerSkew(skew time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.skew = skew
}

func (s *InMemoryStore) Transact(ctx context.Context, key string, mutator Mutator) (Value, error) {
	for attempt := 0; attempt < TransactMaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current, version := s.read(key)

		next, err := mutator(cloneValue(current))
		if err != nil {
			return nil, fmt.Errorf("mutator failed: %w", err)
		}

		if bytes.Equal(next, current) {
			// Nothing to write; report the value we based the decision on
			// only if it is still current.
			if s.stillCurrent(key, version) {
				return next, nil
			}
			continue
		}

		if s.commit(key, version, next) {
			return next, nil
		}

		if attempt > 4 {
			s.clock.Sleep(transactBackoff)
		}
	}

	return nil, &ErrTooManyRetries{}
}

func (s *InMemoryStore) read(key string) (Value, uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	doc := s.docs[key]
	return doc.value, doc.version
}

func (s *InMemoryStore) stillCurrent(key string, version uint64) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.docs[key].version == version
}

// commit installs next at key if the document is still at version.
func (s *InMemoryStore) commit(key string, version uint64, next Value) bool {
	s.lock.Lock()
	doc := s.docs[key]
	if doc.version != version {
		s.lock.Unlock()
		return false
	}
	s.install(key, next)
	s.lock.Unlock()
	return true
}

// install stores next at key and notifies subscribers. Caller holds the lock.
func (s *InMemoryStore) install(key string, next Value) {
	doc := s.docs[key]
	doc.value = cloneValue(next)
	doc.version++
	s.docs[key] = doc
	for _, sub := range s.subs[key] {
		deliverLatest(sub.ch, cloneValue(next))
	}
}

// OnceVersioned returns the current value and version at key. The store
// server uses it to drive client-side optimistic commits.
func (s *InMemoryStore) OnceVersioned(key string) (Value, uint64) {
	value, version := s.read(key)
	return cloneValue(value), version
}

// CommitVersioned installs value at key if the document is still at
// version, reporting whether the commit happened.
func (s *InMemoryStore) CommitVersioned(key string, version uint64, value Value) bool {
	return s.commit(key, version, value)
}

func (s *InMemoryStore) Set(ctx context.Context, key string, value Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lock.Lock()
	s.install(key, value)
	s.lock.Unlock()
	return nil
}

func (s *InMemoryStore) Once(ctx context.Context, key string) (Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, _ := s.read(key)
	return cloneValue(value), nil
}

func (s *InMemoryStore) Subscribe(ctx context.Context, key string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.lock.Lock()
	id := s.nextSubID
	s.nextSubID++
	sub := &subscriber{ch: make(chan Value, 1)}
	if s.subs[key] == nil {
		s.subs[key] = make(map[uint64]*subscriber)
	}
	s.subs[key][id] = sub
	sub.ch <- cloneValue(s.docs[key].value)
	s.lock.Unlock()

	cancel := func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if _, ok := s.subs[key][id]; !ok {
			return
		}
		delete(s.subs[key], id)
		close(sub.ch)
	}

	return &Subscription{C: sub.ch, cancel: cancel}, nil
}

func (s *InMemoryStore) PresenceHook(ctx context.Context, key string, value Value) (*Hook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.lock.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.hooks[id] = presenceHook{key: key, value: cloneValue(value)}
	s.lock.Unlock()

	cancel := func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.hooks, id)
	}

	return &Hook{cancel: cancel}, nil
}

func (s *InMemoryStore) Connectivity(ctx context.Context) (*ConnSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.lock.Lock()
	id := s.nextSubID
	s.nextSubID++
	sub := &connSubscriber{ch: make(chan bool, 1)}
	s.connSubs[id] = sub
	sub.ch <- s.connected
	s.lock.Unlock()

	cancel := func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if _, ok := s.connSubs[id]; !ok {
			return
		}
		delete(s.connSubs, id)
		close(sub.ch)
	}

	return &ConnSubscription{C: sub.ch, cancel: cancel}, nil
}

func (s *InMemoryStore) ServerTime(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.clock.Now().Add(s.skew).UnixMilli(), nil
}

// Snapshot returns a copy of every document. Used by the persistence
// worker and at server boot.
func (s *InMemoryStore) Snapshot() map[string]Value {
	s.lock.Lock()
	defer s.lock.Unlock()
	snapshot := make(map[string]Value, len(s.docs))
	for key, doc := range s.docs {
		if doc.value == nil {
			continue
		}
		snapshot[key] = cloneValue(doc.value)
	}
	return snapshot
}

// Load seeds documents without notifying subscribers. Only meant for
// boot-time restore before any client connects.
func (s *InMemoryStore) Load(docs map[string]Value) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for key, value := range docs {
		doc := s.docs[key]
		doc.value = cloneValue(value)
		doc.version++
		s.docs[key] = doc
	}
}

// DropConnection simulates losing the connection: every registered
// presence hook fires exactly once and connectivity flips false.
func (s *InMemoryStore) DropConnection() {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, hook := range s.hooks {
		s.install(hook.key, hook.value)
	}
	s.hooks = make(map[uint64]presenceHook)

	s.connected = false
	for _, sub := range s.connSubs {
		deliverLatestBool(sub.ch, false)
	}
}

// Reconnect flips connectivity back to true.
func (s *InMemoryStore) Reconnect() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.connected = true
	for _, sub := range s.connSubs {
		deliverLatestBool(sub.ch, true)
	}
}

// deliverLatest pushes v, displacing an undelivered older snapshot.
// Subscribers always observe the latest committed value.
func deliverLatest(ch chan Value, v Value) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func deliverLatestBool(ch chan bool, v bool) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func cloneValue(v Value) Value {
	if v == nil {
		return nil
	}
	c := make(Value, len(v))
	copy(c, v)
	return c
}
