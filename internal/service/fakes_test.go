package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/circularsync/gateway/internal/domain/snapshot"
	"github.com/circularsync/gateway/internal/port/cache"
	"github.com/circularsync/gateway/internal/port/messagequeue"
)

var errStoreDown = errors.New("dial tcp 127.0.0.1:6379: connection refused")

// fakeStore is a map-backed cache.Cache that can be made to fail.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	sets    int
	getErr  error
	setErr  error
	delErr  error
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.data, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

// patternStore adds glob deletion to fakeStore.
type patternStore struct {
	*fakeStore
}

func (p *patternStore) DeletePattern(_ context.Context, pattern string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delErr != nil {
		return 0, p.delErr
	}
	var n int64
	for k := range p.data {
		if cache.Match(pattern, k) {
			delete(p.data, k)
			n++
		}
	}
	return n, nil
}

// fakeBackend serves fixed records and counts calls.
type fakeBackend struct {
	mu          sync.Mutex
	submissions []snapshot.Submission
	inventory   map[string][]snapshot.InventoryItem
	users       map[string]*snapshot.UserProfile
	prices      map[string]*snapshot.PriceRecommendation
	err         error
	calls       int
	release     chan struct{} // when set, calls block until closed
}

func (f *fakeBackend) enter() error {
	f.mu.Lock()
	f.calls++
	release := f.release
	err := f.err
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return err
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeBackend) ListMaterialSubmissions(_ context.Context) ([]snapshot.Submission, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.submissions, nil
}

func (f *fakeBackend) ListWarehouseInventory(_ context.Context, id string) ([]snapshot.InventoryItem, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.inventory[id], nil
}

func (f *fakeBackend) GetUser(_ context.Context, id string) (*snapshot.UserProfile, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.users[id], nil
}

func (f *fakeBackend) GetPriceRecommendation(_ context.Context, materialType string) (*snapshot.PriceRecommendation, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.prices[materialType], nil
}

// fakeQueue records published messages and exposes the registered handler.
type fakeQueue struct {
	mu         sync.Mutex
	published  [][]byte
	subjects   []string
	publishErr error
	handler    messagequeue.Handler
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.subjects = append(q.subjects, subject)
	q.published = append(q.published, data)
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, _ string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = h
	return func() {}, nil
}

func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

// fakeBroadcaster records event types.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
	last   any
}

func (b *fakeBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
	b.last = payload
}

func threeSubmissions() []snapshot.Submission {
	return []snapshot.Submission{
		{ID: "s1", Status: "verified", DeliveryMethod: "pickup"},
		{ID: "s2", Status: "rejected", DeliveryMethod: "dropoff"},
		{ID: "s3", Status: "pending"},
	}
}
