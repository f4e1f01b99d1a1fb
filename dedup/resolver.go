package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrReadFailure wraps any error returned while loading the record collection.
var ErrReadFailure = errors.New("dedup: cannot read records")

const DefaultChunkSize = 500

// DeleteFailure is one id that could not be deleted.
type DeleteFailure struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
}

// DeleteResult is what a store reports for one DeleteByIDs call.
// Ids that no longer exist belong in Missing, not in Failed.
type DeleteResult struct {
	Deleted []int
	Missing []int
	Failed  []DeleteFailure
}

// RecordStore is the data access the resolver needs.
type RecordStore interface {
	ListAll(ctx context.Context) ([]Record, error)
	DeleteByIDs(ctx context.Context, ids []int) (DeleteResult, error)
}

// ExecuteResult summarizes one Execute call.
type ExecuteResult struct {
	DeletedCount int             `json:"deleted_count"`
	DeletedIDs   []int           `json:"deleted_ids"`
	MissingIDs   []int           `json:"missing_ids"`
	FailedIDs    []DeleteFailure `json:"failed_ids"`
}

// Resolver plans and executes duplicate removal against a RecordStore. It keeps no state between calls.
type Resolver struct {
	Store      RecordStore
	Scorer     Scorer
	EntityType string
	ChunkSize  int
	Logger     *logrus.Logger
}

func NewResolver(store RecordStore, scorer Scorer, entityType string, logger *logrus.Logger) *Resolver {
	return &Resolver{
		Store:      store,
		Scorer:     scorer,
		EntityType: entityType,
		ChunkSize:  DefaultChunkSize,
		Logger:     logger,
	}
}

// Plan loads every record and builds the deletion plan. Only a read failure is returned as an error.
func (r *Resolver) Plan(ctx context.Context) (Plan, error) {
	if r.Store == nil {
		return Plan{}, fmt.Errorf("%w: no record store", ErrReadFailure)
	}
	records, err := r.Store.ListAll(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	plan := r.Scorer.BuildPlan(records)
	plan.EntityType = r.EntityType
	plan.GeneratedAt = time.Now().UTC()

	if r.Logger != nil {
		r.Logger.WithFields(logrus.Fields{
			"entity_type":     r.EntityType,
			"records_scanned": plan.RecordsScanned,
			"groups_found":    plan.GroupsFound,
			"to_delete":       len(plan.ToDelete),
		}).Debug("dedup.plan.built")
	}
	return plan, nil
}

// Execute deletes every id in plan.ToDelete. Failures are collected per id and never stop the batch,
// so re-running the same plan is safe.
func (r *Resolver) Execute(ctx context.Context, plan Plan) ExecuteResult {
	result := ExecuteResult{
		DeletedIDs: []int{},
		MissingIDs: []int{},
		FailedIDs:  []DeleteFailure{},
	}
	if len(plan.ToDelete) == 0 {
		return result
	}
	if r.Store == nil {
		for _, id := range plan.ToDelete {
			result.FailedIDs = append(result.FailedIDs, DeleteFailure{ID: id, Reason: "no record store"})
		}
		return result
	}

	chunkSize := r.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	for start := 0; start < len(plan.ToDelete); start += chunkSize {
		end := start + chunkSize
		if end > len(plan.ToDelete) {
			end = len(plan.ToDelete)
		}
		chunk := plan.ToDelete[start:end]

		if err := ctx.Err(); err != nil {
			for _, id := range chunk {
				result.FailedIDs = append(result.FailedIDs, DeleteFailure{ID: id, Reason: err.Error()})
			}
			continue
		}

		res, err := r.Store.DeleteByIDs(ctx, chunk)
		result.DeletedIDs = append(result.DeletedIDs, res.Deleted...)
		result.MissingIDs = append(result.MissingIDs, res.Missing...)
		result.FailedIDs = append(result.FailedIDs, res.Failed...)
		if err != nil {
			for _, id := range unresolved(chunk, res) {
				result.FailedIDs = append(result.FailedIDs, DeleteFailure{ID: id, Reason: err.Error()})
			}
			if r.Logger != nil {
				r.Logger.WithFields(logrus.Fields{
					"entity_type": r.EntityType,
					"chunk_start": start,
					"chunk_size":  len(chunk),
				}).Error(fmt.Sprintf("dedup.execute.chunk_failed: %v", err))
			}
		}
	}
	result.DeletedCount = len(result.DeletedIDs)

	if r.Logger != nil {
		for _, f := range result.FailedIDs {
			r.Logger.WithFields(logrus.Fields{
				"entity_type": r.EntityType,
				"id":          f.ID,
				"reason":      f.Reason,
			}).Warn("dedup.execute.delete_failed")
		}
	}
	return result
}

// unresolved lists ids of chunk the store did not account for.
func unresolved(chunk []int, res DeleteResult) []int {
	seen := make(map[int]struct{}, len(res.Deleted)+len(res.Missing)+len(res.Failed))
	for _, id := range res.Deleted {
		seen[id] = struct{}{}
	}
	for _, id := range res.Missing {
		seen[id] = struct{}{}
	}
	for _, f := range res.Failed {
		seen[f.ID] = struct{}{}
	}
	out := make([]int, 0)
	for _, id := range chunk {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
