package entity

import (
	"context"
	"encoding/json"
	"fmt"
)

// Record is implemented by every state type stored in a Collection.
type Record interface {
	EntityID() string
}

// Config parametrizes a Collection for one record kind. Seed records, when
// present, are inserted exactly once into an empty index by EnsureSeed.
type Config[T Record] struct {
	Kind string
	Seed []T
}

// Collection exposes typed, insertion-ordered operations for one entity kind.
// Values returned from a Collection are copies; nothing aliases the stored
// state.
type Collection[T Record] struct {
	store *Store
	cfg   Config[T]
}

// Page is one cursor-delimited slice of a listing. Next is nil when the page
// reached the end of the index.
type Page[T Record] struct {
	Items []T
	Next  *string
}

// NewCollection binds a typed collection to the store.
func NewCollection[T Record](store *Store, cfg Config[T]) *Collection[T] {
	return &Collection[T]{store: store, cfg: cfg}
}

// Kind returns the entity kind this collection manages.
func (c *Collection[T]) Kind() string {
	return c.cfg.Kind
}

// Create stores a new record and appends it to the kind's index. The record's
// id must already be assigned; creation fails with ErrDuplicateID when the id
// is taken.
func (c *Collection[T]) Create(ctx context.Context, state T) (T, error) {
	var zero T
	id := state.EntityID()
	if id == "" {
		return zero, fmt.Errorf("create %s: record has no id", c.cfg.Kind)
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return zero, fmt.Errorf("marshal %s state: %w", c.cfg.Kind, err)
	}
	if err := c.store.insert(ctx, c.cfg.Kind, id, string(payload)); err != nil {
		return zero, err
	}
	return state, nil
}

// Get returns the current state for id, or ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var state T
	raw, err := c.store.getRaw(ctx, c.cfg.Kind, id)
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return state, fmt.Errorf("unmarshal %s state: %w", c.cfg.Kind, err)
	}
	return state, nil
}

// Exists reports whether a record is present. It never fails on absence.
func (c *Collection[T]) Exists(ctx context.Context, id string) (bool, error) {
	return c.store.exists(ctx, c.cfg.Kind, id)
}

// Mutate atomically reads the current state, applies the transform, and
// writes the result back. Concurrent mutations on the same id serialize;
// mutations on different ids proceed independently. The transform must be
// pure: it may be retried and must not touch the record's id.
func (c *Collection[T]) Mutate(ctx context.Context, id string, transform func(T) T) (T, error) {
	return c.MutateChecked(ctx, id, func(state T) (T, error) {
		return transform(state), nil
	})
}

// MutateChecked is Mutate with a transform that may refuse the update. When
// the transform returns an error the record is left untouched and the error
// is returned as-is, so callers can match their own sentinels.
func (c *Collection[T]) MutateChecked(ctx context.Context, id string, transform func(T) (T, error)) (T, error) {
	var zero T
	mu := c.store.keyLock(c.cfg.Kind + "/" + id)
	mu.Lock()
	defer mu.Unlock()

	current, err := c.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	next, err := transform(current)
	if err != nil {
		return zero, err
	}
	if next.EntityID() != id {
		return zero, fmt.Errorf("mutate %s/%s: transform changed record id", c.cfg.Kind, id)
	}
	payload, err := json.Marshal(next)
	if err != nil {
		return zero, fmt.Errorf("marshal %s state: %w", c.cfg.Kind, err)
	}
	if err := c.store.updateRaw(ctx, c.cfg.Kind, id, string(payload)); err != nil {
		return zero, err
	}
	return next, nil
}

// Delete removes a record and its index entry. The second deletion of the
// same id is not an error; it reports false.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	return c.store.deleteOne(ctx, c.cfg.Kind, id)
}

// DeleteMany removes the given ids best-effort and returns the count of
// records that actually existed at call time.
func (c *Collection[T]) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	return c.store.deleteMany(ctx, c.cfg.Kind, ids)
}

// List returns up to limit records starting strictly after the cursor in
// index order. Concatenating pages via the returned cursors walks the full
// index exactly once.
func (c *Collection[T]) List(ctx context.Context, cursor *string, limit int) (Page[T], error) {
	if limit <= 0 {
		limit = 10
	}
	raws, next, err := c.store.listRaw(ctx, c.cfg.Kind, cursor, limit)
	if err != nil {
		return Page[T]{}, err
	}
	items := make([]T, 0, len(raws))
	for _, raw := range raws {
		var state T
		if err := json.Unmarshal([]byte(raw.stateJSON), &state); err != nil {
			return Page[T]{}, fmt.Errorf("unmarshal %s state: %w", c.cfg.Kind, err)
		}
		items = append(items, state)
	}
	return Page[T]{Items: items, Next: next}, nil
}

// EnsureSeed inserts the configured seed records when the kind's index is
// empty, in order. Calling it again is a no-op, so read paths can invoke it
// unconditionally without double-seeding.
func (c *Collection[T]) EnsureSeed(ctx context.Context) error {
	if len(c.cfg.Seed) == 0 {
		return nil
	}
	mu := c.store.keyLock(c.cfg.Kind)
	mu.Lock()
	defer mu.Unlock()

	total, err := c.store.count(ctx, c.cfg.Kind)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}
	for _, state := range c.cfg.Seed {
		if _, err := c.Create(ctx, state); err != nil {
			return fmt.Errorf("seed %s: %w", c.cfg.Kind, err)
		}
	}
	return nil
}

// ClearAll deletes every record of the kind and returns how many were removed.
func (c *Collection[T]) ClearAll(ctx context.Context) (int64, error) {
	return c.store.clearAll(ctx, c.cfg.Kind)
}

// Count returns the number of records currently in the kind's index.
func (c *Collection[T]) Count(ctx context.Context) (int64, error) {
	return c.store.count(ctx, c.cfg.Kind)
}
