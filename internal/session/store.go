// Package session holds the process-wide, in-memory map of in-progress
// workflow state. One Store instance exists per flow type (application,
// account link), each with its own keyspace. State here is deliberately
// not durable: a restart drops every unsubmitted form.
package session

import (
	"hash/fnv"
	"sync"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
)

const shardCount = 16

// Store maps owner ids to in-flight session values. Get/insert/remove are
// individually atomic; Update additionally serializes mutations per owner
// so a fetch-validate-mutate sequence cannot interleave with another
// interaction from the same owner, while distinct owners proceed in
// parallel.
type Store[T any] struct {
	shards [shardCount]shard[T]
	fresh  func(ownerID string) T
}

type shard[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	locks map[string]*sync.Mutex
}

// NewStore creates a Store whose GetOrCreate builds missing entries with
// fresh.
func NewStore[T any](fresh func(ownerID string) T) *Store[T] {
	s := &Store[T]{fresh: fresh}
	for i := range s.shards {
		s.shards[i].items = make(map[string]T)
		s.shards[i].locks = make(map[string]*sync.Mutex)
	}
	return s
}

func (s *Store[T]) shardFor(ownerID string) *shard[T] {
	h := fnv.New32a()
	h.Write([]byte(ownerID))
	return &s.shards[h.Sum32()%shardCount]
}

// GetOrCreate returns the owner's session, creating one if absent.
// Idempotent: two calls without an intervening Remove return the same
// logical value.
func (s *Store[T]) GetOrCreate(ownerID string) T {
	sh := s.shardFor(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if existing, ok := sh.items[ownerID]; ok {
		return existing
	}
	created := s.fresh(ownerID)
	sh.items[ownerID] = created
	return created
}

// Get returns the owner's session if one exists. Absence is a valid
// state, not an error.
func (s *Store[T]) Get(ownerID string) (T, bool) {
	sh := s.shardFor(ownerID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	v, ok := sh.items[ownerID]
	return v, ok
}

// Exists reports whether the owner has an in-flight session.
func (s *Store[T]) Exists(ownerID string) bool {
	_, ok := s.Get(ownerID)
	return ok
}

// Remove drops the owner's session and reports whether one existed.
func (s *Store[T]) Remove(ownerID string) bool {
	sh := s.shardFor(ownerID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, ok := sh.items[ownerID]
	if ok {
		delete(sh.items, ownerID)
		delete(sh.locks, ownerID)
	}
	return ok
}

// Update runs fn against the owner's session under that owner's lock.
// Returns NOT_FOUND when no session exists.
func (s *Store[T]) Update(ownerID string, fn func(T) error) error {
	sh := s.shardFor(ownerID)

	sh.mu.Lock()
	v, ok := sh.items[ownerID]
	if !ok {
		sh.mu.Unlock()
		return errors.NewNotFound("session")
	}
	lock := sh.locks[ownerID]
	if lock == nil {
		lock = &sync.Mutex{}
		sh.locks[ownerID] = lock
	}
	sh.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(v)
}

// Len counts in-flight sessions across all shards.
func (s *Store[T]) Len() int {
	total := 0
	for i := range s.shards {
		s.shards[i].mu.RLock()
		total += len(s.shards[i].items)
		s.shards[i].mu.RUnlock()
	}
	return total
}
