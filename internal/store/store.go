// Package store keeps one ordered JSON collection per storage key.
//
// Every mutation is a whole-collection read-modify-write against a KV medium.
// A process-local mutex serializes mutations; writers in other processes are
// not coordinated (last writer wins).
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/hpungsan/ghar/internal/errors"
	"github.com/hpungsan/ghar/internal/logging"
)

// KV is the durable medium a RecordStore persists into.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Store is the record persistence contract consumed by the form engine and ops.
type Store interface {
	Load(ctx context.Context, key string) (Collection, error)
	Save(ctx context.Context, key string, coll Collection) error
	Append(ctx context.Context, key string, rec Record) (Collection, error)
	Replace(ctx context.Context, key string, id int64, rec Record) (Collection, error)
	Remove(ctx context.Context, key string, id int64) (Collection, error)
	Mutate(ctx context.Context, key string, fn func(Collection) (Collection, error)) (Collection, error)
	Clear(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// RecordStore implements Store on top of a KV.
type RecordStore struct {
	kv KV
	mu sync.Mutex
}

var _ Store = (*RecordStore)(nil)

// New creates a RecordStore over kv.
func New(kv KV) *RecordStore {
	return &RecordStore{kv: kv}
}

// Load returns the collection stored under key.
// A missing key is initialized to an empty collection. Text that does not parse
// as a JSON array of objects is logged and treated as empty; it is overwritten
// by the next mutation.
func (s *RecordStore) Load(ctx context.Context, key string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, key)
}

// Save replaces the collection stored under key.
func (s *RecordStore) Save(ctx context.Context, key string, coll Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, key, coll)
}

// Mutate loads key, applies fn, and saves the result as one serialized step.
// If fn returns an error nothing is written.
func (s *RecordStore) Mutate(ctx context.Context, key string, fn func(Collection) (Collection, error)) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("save " + key)
	}

	coll, err := s.loadLocked(ctx, key)
	if err != nil {
		return nil, err
	}
	updated, err := fn(coll)
	if err != nil {
		return nil, err
	}
	if err := s.saveLocked(ctx, key, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Append adds rec at the end of the collection. rec must carry an id that is
// not already present.
func (s *RecordStore) Append(ctx context.Context, key string, rec Record) (Collection, error) {
	id, ok := rec.ID()
	if !ok {
		return nil, errors.NewInvalidRequest("record has no numeric id")
	}
	return s.Mutate(ctx, key, func(coll Collection) (Collection, error) {
		if coll.Index(id) >= 0 {
			return nil, errors.NewInvalidRequest("record id already exists in " + key)
		}
		return append(coll, rec), nil
	})
}

// Replace substitutes the record whose id matches. The stored id is kept even
// if rec carries a different one.
func (s *RecordStore) Replace(ctx context.Context, key string, id int64, rec Record) (Collection, error) {
	return s.Mutate(ctx, key, func(coll Collection) (Collection, error) {
		idx := coll.Index(id)
		if idx < 0 {
			return nil, errors.NewNotFound(key, id)
		}
		replacement := rec.Clone()
		replacement["id"] = coll[idx]["id"]
		out := coll.Clone()
		out[idx] = replacement
		return out, nil
	})
}

// Remove drops the record whose id matches, keeping the others in order.
func (s *RecordStore) Remove(ctx context.Context, key string, id int64) (Collection, error) {
	return s.Mutate(ctx, key, func(coll Collection) (Collection, error) {
		idx := coll.Index(id)
		if idx < 0 {
			return nil, errors.NewNotFound(key, id)
		}
		out := make(Collection, 0, len(coll)-1)
		out = append(out, coll[:idx]...)
		return append(out, coll[idx+1:]...), nil
	})
}

// Clear deletes the key entirely. The next Load recreates it empty.
func (s *RecordStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, key); err != nil {
		return errors.NewStorageWriteFailed(key, err)
	}
	return nil
}

// Keys lists every storage key that has been written.
func (s *RecordStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return keys, nil
}

func (s *RecordStore) loadLocked(ctx context.Context, key string) (Collection, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if !ok {
		if err := s.kv.Set(ctx, key, "[]"); err != nil {
			logging.From(ctx).Warn("failed to initialize empty collection", "key", key, "error", err)
		}
		return Collection{}, nil
	}

	coll, err := Decode(raw)
	if err != nil {
		logging.From(ctx).Warn("discarding corrupted collection",
			"key", key,
			"error", goerr.Wrap(err, "stored value is not a JSON array of objects", goerr.V("key", key)),
		)
		return Collection{}, nil
	}
	return coll, nil
}

func (s *RecordStore) saveLocked(ctx context.Context, key string, coll Collection) error {
	if coll == nil {
		coll = Collection{}
	}
	data, err := json.Marshal(coll)
	if err != nil {
		return errors.NewStorageWriteFailed(key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		logging.From(ctx).Error("failed to save collection", "key", key, "error", err)
		return errors.NewStorageWriteFailed(key, err)
	}
	return nil
}

// Decode parses raw collection text. Numbers are kept as json.Number so ids
// round-trip without float rounding. null decodes to an empty collection.
func Decode(raw string) (Collection, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var items []Record
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, goerr.New("trailing data after collection")
	}

	coll := make(Collection, 0, len(items))
	for _, item := range items {
		if item != nil {
			coll = append(coll, item)
		}
	}
	return coll, nil
}

// DecodeRecord parses a single JSON object the same way Decode does.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, goerr.New("record is null")
	}
	return rec, nil
}
