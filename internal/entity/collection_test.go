package entity_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"pwaforge/internal/entity"
	"pwaforge/internal/testsupport"
)

type note struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Hits int    `json:"hits"`
}

func (n note) EntityID() string { return n.ID }

func newNotes(t *testing.T, seed ...note) *entity.Collection[note] {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return entity.NewCollection(store, entity.Config[note]{Kind: "note", Seed: seed})
}

func TestCreateGetRoundTrip(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	created, err := notes.Create(ctx, note{ID: "n1", Text: "hello"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != "n1" {
		t.Fatalf("unexpected created record: %#v", created)
	}

	got, err := notes.Get(ctx, "n1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Text != "hello" {
		t.Fatalf("unexpected state: %#v", got)
	}

	exists, err := notes.Exists(ctx, "n1")
	if err != nil || !exists {
		t.Fatalf("expected record to exist, got %v/%v", exists, err)
	}
	exists, err = notes.Exists(ctx, "missing")
	if err != nil || exists {
		t.Fatalf("expected absence without error, got %v/%v", exists, err)
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	if _, err := notes.Create(ctx, note{ID: "n1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := notes.Create(ctx, note{ID: "n1"})
	if !errors.Is(err, entity.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	notes := newNotes(t)
	_, err := notes.Get(context.Background(), "nope")
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMutatePreservesIDAndAppliesTransform(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	if _, err := notes.Create(ctx, note{ID: "n1", Text: "a"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	updated, err := notes.Mutate(ctx, "n1", func(n note) note {
		n.Text = "b"
		return n
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if updated.Text != "b" || updated.ID != "n1" {
		t.Fatalf("unexpected mutated state: %#v", updated)
	}

	_, err = notes.Mutate(ctx, "n1", func(n note) note {
		n.ID = "other"
		return n
	})
	if err == nil {
		t.Fatal("expected error when transform changes id")
	}
}

func TestMutateCheckedAbortsWithoutWriting(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	if _, err := notes.Create(ctx, note{ID: "n1", Text: "keep"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	refused := errors.New("refused")
	_, err := notes.MutateChecked(ctx, "n1", func(n note) (note, error) {
		n.Text = "discard"
		return n, refused
	})
	if !errors.Is(err, refused) {
		t.Fatalf("expected transform error, got %v", err)
	}
	got, err := notes.Get(ctx, "n1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Text != "keep" {
		t.Fatalf("refused mutation must leave the record untouched: %#v", got)
	}
}

func TestMutateMissingReturnsNotFound(t *testing.T) {
	notes := newNotes(t)
	_, err := notes.Mutate(context.Background(), "ghost", func(n note) note { return n })
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentMutationsDoNotLoseUpdates(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	if _, err := notes.Create(ctx, note{ID: "n1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			if _, err := notes.Mutate(ctx, "n1", func(n note) note {
				n.Hits++
				return n
			}); err != nil {
				t.Errorf("Mutate failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := notes.Get(ctx, "n1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Hits != writers {
		t.Fatalf("lost updates: expected %d hits, got %d", writers, got.Hits)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	if _, err := notes.Create(ctx, note{ID: "n1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	deleted, err := notes.Delete(ctx, "n1")
	if err != nil || !deleted {
		t.Fatalf("expected first delete to report true, got %v/%v", deleted, err)
	}
	deleted, err = notes.Delete(ctx, "n1")
	if err != nil || deleted {
		t.Fatalf("expected second delete to report false, got %v/%v", deleted, err)
	}
}

func TestDeleteManyCountsOnlyExisting(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := notes.Create(ctx, note{ID: id}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	count, err := notes.DeleteMany(ctx, []string{"a", "b", "ghost"})
	if err != nil {
		t.Fatalf("DeleteMany failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deleted, got %d", count)
	}
	count, err = notes.DeleteMany(ctx, []string{"a", "b", "ghost"})
	if err != nil {
		t.Fatalf("DeleteMany failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 deleted on rerun, got %d", count)
	}
}

func TestListPaginatesExactlyOnce(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	const total = 23
	want := make([]string, 0, total)
	for i := 0; i < total; i++ {
		id := fmt.Sprintf("n%02d", i)
		if _, err := notes.Create(ctx, note{ID: id}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		want = append(want, id)
	}

	var got []string
	var cursor *string
	pages := 0
	for {
		page, err := notes.List(ctx, cursor, 5)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(page.Items) > 5 {
			t.Fatalf("page exceeds limit: %d", len(page.Items))
		}
		for _, item := range page.Items {
			got = append(got, item.ID)
		}
		pages++
		if page.Next == nil {
			break
		}
		cursor = page.Next
		if pages > total {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(got) != total {
		t.Fatalf("expected %d items, got %d", total, len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestListUnaffectedByDeletionsAfterCursor(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := notes.Create(ctx, note{ID: fmt.Sprintf("n%02d", i)}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	first, err := notes.List(ctx, nil, 4)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(first.Items) != 4 || first.Next == nil {
		t.Fatalf("unexpected first page: %#v", first)
	}

	// Deleting a record beyond the cursor must not shift what the next page returns first.
	if _, err := notes.Delete(ctx, "n09"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	second, err := notes.List(ctx, first.Next, 4)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(second.Items) == 0 || second.Items[0].ID != "n04" {
		t.Fatalf("expected second page to start at n04, got %#v", second.Items)
	}
}

func TestListMixedKindsStayIsolated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notes := entity.NewCollection(store, entity.Config[note]{Kind: "note"})
	memos := entity.NewCollection(store, entity.Config[note]{Kind: "memo"})
	ctx := context.Background()

	if _, err := notes.Create(ctx, note{ID: "n1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := memos.Create(ctx, note{ID: "m1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := notes.Create(ctx, note{ID: "n2"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	page, err := notes.List(ctx, nil, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "n1" || page.Items[1].ID != "n2" {
		t.Fatalf("unexpected page: %#v", page.Items)
	}
	if page.Next != nil {
		t.Fatalf("expected end of index, got next=%v", *page.Next)
	}
}

func TestEnsureSeedIsIdempotent(t *testing.T) {
	seed := []note{{ID: "s1", Text: "one"}, {ID: "s2", Text: "two"}}
	notes := newNotes(t, seed...)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := notes.EnsureSeed(ctx); err != nil {
			t.Fatalf("EnsureSeed failed: %v", err)
		}
	}

	total, err := notes.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != int64(len(seed)) {
		t.Fatalf("expected exactly the seed set, got %d records", total)
	}

	page, err := notes.List(ctx, nil, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Items[0].ID != "s1" || page.Items[1].ID != "s2" {
		t.Fatalf("seed order not preserved: %#v", page.Items)
	}
}

func TestEnsureSeedSkippedWhenKindPopulated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	plain := entity.NewCollection(store, entity.Config[note]{Kind: "note"})
	seeded := entity.NewCollection(store, entity.Config[note]{Kind: "note", Seed: []note{{ID: "s1"}}})
	ctx := context.Background()

	if _, err := plain.Create(ctx, note{ID: "existing"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := seeded.EnsureSeed(ctx); err != nil {
		t.Fatalf("EnsureSeed failed: %v", err)
	}
	if exists, _ := plain.Exists(ctx, "s1"); exists {
		t.Fatal("seed must not run against a populated kind")
	}
}

func TestClearAllReturnsCount(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := notes.Create(ctx, note{ID: fmt.Sprintf("n%d", i)}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	cleared, err := notes.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if cleared != 4 {
		t.Fatalf("expected 4 cleared, got %d", cleared)
	}
	cleared, err = notes.ClearAll(ctx)
	if err != nil || cleared != 0 {
		t.Fatalf("expected empty clear to report 0, got %d/%v", cleared, err)
	}
}

func TestListEmptyKindIsLegal(t *testing.T) {
	notes := newNotes(t)
	page, err := notes.List(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("List on fresh kind failed: %v", err)
	}
	if len(page.Items) != 0 || page.Next != nil {
		t.Fatalf("expected empty page, got %#v", page)
	}
}
