// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package qr

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/buffrhost/buffrhost/internal/logging"
	"github.com/buffrhost/buffrhost/internal/metrics"
)

// Replay errors.
var (
	// ErrNonceAlreadyUsed indicates a second scan of a single-use code.
	ErrNonceAlreadyUsed = errors.New("qr nonce already used")

	// ErrTrackerClosed indicates the store has been closed.
	ErrTrackerClosed = errors.New("replay tracker is closed")
)

// nonceEntry is a stored nonce record.
type nonceEntry struct {
	Nonce     string    `json:"nonce"`
	Type      string    `json:"type"`
	FirstSeen time.Time `json:"first_seen"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReplayTracker enforces single-use semantics for scanned QR nonces.
type ReplayTracker interface {
	// CheckAndStore atomically records a nonce, returning
	// ErrNonceAlreadyUsed when it was seen before within its TTL.
	CheckAndStore(ctx context.Context, nonce string, payloadType PayloadType, ttl time.Duration) error

	// CleanupExpired removes expired nonces, returning how many went.
	CleanupExpired(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// MemoryReplayTracker is an in-memory tracker for tests and single-node
// development. Entries are lost on restart.
type MemoryReplayTracker struct {
	mu      sync.Mutex
	entries map[string]*nonceEntry
	closed  bool
}

// NewMemoryReplayTracker creates an in-memory replay tracker.
func NewMemoryReplayTracker() *MemoryReplayTracker {
	return &MemoryReplayTracker{entries: make(map[string]*nonceEntry)}
}

// CheckAndStore atomically checks and stores a nonce.
func (t *MemoryReplayTracker) CheckAndStore(_ context.Context, nonce string, payloadType PayloadType, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTrackerClosed
	}

	now := time.Now()
	if existing, ok := t.entries[nonce]; ok && now.Before(existing.ExpiresAt) {
		metrics.RecordQRScan(string(payloadType), "replayed")
		logging.Warn().
			Str("nonce", nonce).
			Str("type", string(payloadType)).
			Time("first_seen", existing.FirstSeen).
			Msg("QR replay detected")
		return ErrNonceAlreadyUsed
	}

	t.entries[nonce] = &nonceEntry{
		Nonce:     nonce,
		Type:      string(payloadType),
		FirstSeen: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

// CleanupExpired removes expired nonces.
func (t *MemoryReplayTracker) CleanupExpired(context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrTrackerClosed
	}

	count := 0
	now := time.Now()
	for nonce, entry := range t.entries {
		if now.After(entry.ExpiresAt) {
			delete(t.entries, nonce)
			count++
		}
	}
	return count, nil
}

// Close closes the tracker.
func (t *MemoryReplayTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.entries = nil
	return nil
}

// BadgerReplayTracker persists nonces in BadgerDB so single-use holds
// across restarts. TTLs are enforced both by Badger and by the entry.
type BadgerReplayTracker struct {
	db     *badger.DB
	prefix []byte
	mu     sync.RWMutex
	closed bool
}

// NewBadgerReplayTracker opens (or creates) a Badger store at path.
func NewBadgerReplayTracker(path string) (*BadgerReplayTracker, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerReplayTracker{db: db, prefix: []byte("qrnonce:")}, nil
}

func (t *BadgerReplayTracker) makeKey(nonce string) []byte {
	return append(append([]byte{}, t.prefix...), []byte(nonce)...)
}

// CheckAndStore atomically checks and stores a nonce.
func (t *BadgerReplayTracker) CheckAndStore(_ context.Context, nonce string, payloadType PayloadType, ttl time.Duration) error {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return ErrTrackerClosed
	}
	t.mu.RUnlock()

	key := t.makeKey(nonce)
	now := time.Now()

	err := t.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			var existing nonceEntry
			if valErr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); valErr == nil && now.Before(existing.ExpiresAt) {
				metrics.RecordQRScan(string(payloadType), "replayed")
				logging.Warn().
					Str("nonce", nonce).
					Str("type", string(payloadType)).
					Time("first_seen", existing.FirstSeen).
					Msg("QR replay detected")
				return ErrNonceAlreadyUsed
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(&nonceEntry{
			Nonce:     nonce,
			Type:      string(payloadType),
			FirstSeen: now,
			ExpiresAt: now.Add(ttl),
		})
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(ttl))
	})
	return err
}

// CleanupExpired scans for and deletes expired nonces. Badger expires
// entries on its own during compaction; this forces the issue.
func (t *BadgerReplayTracker) CleanupExpired(context.Context) (int, error) {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return 0, ErrTrackerClosed
	}
	t.mu.RUnlock()

	count := 0
	now := time.Now()

	err := t.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = t.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var keysToDelete [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var entry nonceEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				continue
			}
			if now.After(entry.ExpiresAt) {
				key := make([]byte, len(item.Key()))
				copy(key, item.Key())
				keysToDelete = append(keysToDelete, key)
			}
		}

		for _, key := range keysToDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// Close closes the underlying store.
func (t *BadgerReplayTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.db.Close()
}
