package dedup

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func sampleRecords() []Record {
	return []Record{
		{ID: 1, BusinessKey: KeyPtr("U-1"), CreatedAt: day(2024, 1, 1), Fields: fieldsWithScore(1)},
		{ID: 2, BusinessKey: KeyPtr("U-1"), CreatedAt: day(2024, 1, 2), Fields: fieldsWithScore(3)},
		{ID: 3, BusinessKey: KeyPtr("U-1"), CreatedAt: day(2024, 1, 3), Fields: fieldsWithScore(2)},
		{ID: 4, BusinessKey: KeyPtr("U-2"), CreatedAt: day(2024, 1, 1), Fields: fieldsWithScore(2)},
		{ID: 5, BusinessKey: KeyPtr("U-2"), CreatedAt: day(2024, 1, 1), Fields: fieldsWithScore(2)},
		{ID: 6, BusinessKey: KeyPtr("U-3"), CreatedAt: day(2024, 1, 1), Fields: fieldsWithScore(2)},
		{ID: 7, CreatedAt: day(2024, 1, 1)},
		{ID: 8, CreatedAt: day(2024, 1, 1)},
	}
}

func TestResolver_PlanThenExecute(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(sampleRecords()...)
	r := NewResolver(store, DefaultScorer, "units", nil)

	plan, err := r.Plan(ctx)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.EntityType != "units" || plan.RecordsScanned != 8 {
		t.Fatalf("unexpected plan header: %+v", plan)
	}
	if !reflect.DeepEqual(plan.ToDelete, []int{1, 3, 5}) {
		t.Fatalf("expected to_delete [1 3 5], got %v", plan.ToDelete)
	}
	if store.Len() != 8 {
		t.Fatalf("planning must not delete, store has %d records", store.Len())
	}

	res := r.Execute(ctx, plan)
	if res.DeletedCount != 3 || len(res.FailedIDs) != 0 {
		t.Fatalf("unexpected execute result: %+v", res)
	}

	// exactly one record per originally duplicated key remains
	left, _ := store.ListAll(ctx)
	perKey := map[string]int{}
	for _, rec := range left {
		if k, ok := rec.Key(); ok {
			perKey[k]++
		}
	}
	for key := range plan.Survivors {
		if perKey[key] != 1 {
			t.Fatalf("key %s: expected 1 remaining record, got %d", key, perKey[key])
		}
		if !store.Has(plan.Survivors[key]) {
			t.Fatalf("key %s: survivor %d was deleted", key, plan.Survivors[key])
		}
	}
	if !store.Has(7) || !store.Has(8) {
		t.Fatalf("records without a business key must never be deleted")
	}
}

func TestResolver_ExecuteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(sampleRecords()...)
	r := NewResolver(store, DefaultScorer, "units", nil)

	plan, err := r.Plan(ctx)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	first := r.Execute(ctx, plan)
	if first.DeletedCount == 0 {
		t.Fatalf("expected deletions on first execute")
	}
	second := r.Execute(ctx, plan)
	if second.DeletedCount != 0 || len(second.FailedIDs) != 0 {
		t.Fatalf("expected no-op second execute, got %+v", second)
	}
	if !reflect.DeepEqual(second.MissingIDs, plan.ToDelete) {
		t.Fatalf("expected all ids reported missing, got %v", second.MissingIDs)
	}
}

func TestResolver_DeleteFailureDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(sampleRecords()...)
	store.FailDelete(3, errors.New("referenced by sales"))
	r := NewResolver(store, DefaultScorer, "units", nil)
	r.ChunkSize = 1

	plan, _ := r.Plan(ctx)
	res := r.Execute(ctx, plan)

	if res.DeletedCount != 2 {
		t.Fatalf("expected 2 deletions, got %d", res.DeletedCount)
	}
	if len(res.FailedIDs) != 1 || res.FailedIDs[0].ID != 3 || res.FailedIDs[0].Reason != "referenced by sales" {
		t.Fatalf("expected failure for id 3, got %+v", res.FailedIDs)
	}
	if !store.Has(3) || store.Has(1) || store.Has(5) {
		t.Fatalf("unexpected store state after partial failure")
	}
}

func TestResolver_ReadFailureIsFatal(t *testing.T) {
	store := NewMemoryStore()
	store.FailList(errors.New("connection refused"))
	r := NewResolver(store, DefaultScorer, "units", nil)

	_, err := r.Plan(context.Background())
	if !errors.Is(err, ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}
}

func TestResolver_WithoutStore(t *testing.T) {
	r := NewResolver(nil, DefaultScorer, "units", nil)
	if _, err := r.Plan(context.Background()); !errors.Is(err, ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}

	res := r.Execute(context.Background(), Plan{ToDelete: []int{3, 8}})
	want := []DeleteFailure{{ID: 3, Reason: "no record store"}, {ID: 8, Reason: "no record store"}}
	if res.DeletedCount != 0 || !reflect.DeepEqual(res.FailedIDs, want) {
		t.Fatalf("expected every id to fail, got %+v", res)
	}
}

func TestResolver_EmptyInputIsNotAnError(t *testing.T) {
	r := NewResolver(NewMemoryStore(), DefaultScorer, "units", nil)
	plan, err := r.Plan(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !plan.IsEmpty() || plan.GroupsFound != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
	res := r.Execute(context.Background(), plan)
	if res.DeletedCount != 0 || len(res.FailedIDs) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

type brokenStore struct {
	*MemoryStore
	err error
}

func (b brokenStore) DeleteByIDs(ctx context.Context, ids []int) (DeleteResult, error) {
	if len(ids) > 0 && ids[0] == 1 {
		return DeleteResult{Deleted: []int{1}}, b.err
	}
	return b.MemoryStore.DeleteByIDs(ctx, ids)
}

func TestResolver_ChunkErrorMarksUnresolvedIDsFailed(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore(sampleRecords()...)
	store := brokenStore{MemoryStore: mem, err: errors.New("lost connection")}
	r := NewResolver(store, DefaultScorer, "units", nil)
	r.ChunkSize = 2

	plan, _ := r.Plan(ctx)
	res := r.Execute(ctx, plan)

	// chunk [1 3] reports 1 deleted then fails; chunk [5] still runs
	if !reflect.DeepEqual(res.DeletedIDs, []int{1, 5}) {
		t.Fatalf("expected deleted [1 5], got %v", res.DeletedIDs)
	}
	if len(res.FailedIDs) != 1 || res.FailedIDs[0].ID != 3 || res.FailedIDs[0].Reason != "lost connection" {
		t.Fatalf("expected id 3 failed with chunk error, got %+v", res.FailedIDs)
	}
}

func TestResolver_CancelledContextFailsRemainingIDs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore(sampleRecords()...)
	r := NewResolver(store, DefaultScorer, "units", nil)

	plan, _ := r.Plan(ctx)
	cancel()
	res := r.Execute(ctx, plan)
	if res.DeletedCount != 0 || len(res.FailedIDs) != len(plan.ToDelete) {
		t.Fatalf("expected every id failed after cancel, got %+v", res)
	}
	if store.Len() != 8 {
		t.Fatalf("nothing should be deleted after cancel")
	}
}
