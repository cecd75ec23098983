package core

import (
	"container/list"
	"fmt"
)

// IdempotencyChecker implements two-tier deduplication: an in-memory LRU for
// the hot path backed by a database lookup for keys that aged out.
type IdempotencyChecker struct {
	lru       *idempotencyLRU
	dbChecker DBIdempotencyChecker

	lruHits     int64
	dbHits      int64
	tier2Errors int64
}

// DBIdempotencyChecker is the interface for the cold-path dedup lookup.
type DBIdempotencyChecker interface {
	IsDuplicate(eventType string, idempotencyKey string) (bool, error)
}

func NewIdempotencyChecker(capacity int, dbChecker DBIdempotencyChecker) *IdempotencyChecker {
	return &IdempotencyChecker{
		lru:       newIdempotencyLRU(capacity),
		dbChecker: dbChecker,
	}
}

// IsDuplicate checks if event has been processed (two-tier lookup)
func (ic *IdempotencyChecker) IsDuplicate(eventType string, idempotencyKey string) bool {
	compositeKey := fmt.Sprintf("%s:%s", eventType, idempotencyKey)

	if ic.lru.contains(compositeKey) {
		ic.lruHits++
		return true
	}

	if ic.dbChecker != nil {
		isDup, err := ic.dbChecker.IsDuplicate(eventType, idempotencyKey)
		if err != nil {
			// Conservative: a DB issue must not block event processing.
			// The LRU still catches recent duplicates.
			ic.tier2Errors++
			return false
		}
		if isDup {
			ic.dbHits++
			// Cache so we don't hit the DB again for this key.
			ic.lru.add(compositeKey)
			return true
		}
	}

	return false
}

// IsDuplicateLocal checks only the in-memory tier. Replay feeds events back
// from the very log the cold path queries, so tier 2 would classify every
// replayed event as already processed.
func (ic *IdempotencyChecker) IsDuplicateLocal(eventType string, idempotencyKey string) bool {
	if ic.lru.contains(fmt.Sprintf("%s:%s", eventType, idempotencyKey)) {
		ic.lruHits++
		return true
	}
	return false
}

// MarkProcessed adds key to the LRU after successful processing
func (ic *IdempotencyChecker) MarkProcessed(eventType string, idempotencyKey string) {
	ic.lru.add(fmt.Sprintf("%s:%s", eventType, idempotencyKey))
}

// Stats returns dedup counters for monitoring.
func (ic *IdempotencyChecker) Stats() (lruHits, dbHits, tier2Errors int64) {
	return ic.lruHits, ic.dbHits, ic.tier2Errors
}

// Keys returns all cached composite keys, most recent first.
func (ic *IdempotencyChecker) Keys() []string {
	return ic.lru.keys()
}

// Warm loads composite keys into the LRU, used on restart so recently
// processed events skip the cold path.
func (ic *IdempotencyChecker) Warm(keys []string) {
	for _, key := range keys {
		ic.lru.add(key)
	}
}

// idempotencyLRU is a plain LRU over composite keys.
// Not thread-safe — only accessed from the single-threaded deterministic core.
type idempotencyLRU struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

func newIdempotencyLRU(capacity int) *idempotencyLRU {
	return &idempotencyLRU{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (lru *idempotencyLRU) contains(key string) bool {
	elem, ok := lru.entries[key]
	if ok {
		lru.order.MoveToFront(elem)
	}
	return ok
}

func (lru *idempotencyLRU) add(key string) {
	if elem, ok := lru.entries[key]; ok {
		lru.order.MoveToFront(elem)
		return
	}

	lru.entries[key] = lru.order.PushFront(key)

	if lru.order.Len() > lru.capacity {
		oldest := lru.order.Back()
		lru.order.Remove(oldest)
		delete(lru.entries, oldest.Value.(string))
	}
}

func (lru *idempotencyLRU) keys() []string {
	out := make([]string, 0, lru.order.Len())
	for elem := lru.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(string))
	}
	return out
}

func (lru *idempotencyLRU) size() int {
	return lru.order.Len()
}
