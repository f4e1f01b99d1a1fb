package dedup

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var _ RecordStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory RecordStore used by tests and local tooling.
type MemoryStore struct {
	mu      sync.Mutex
	records map[int]Record
	// failOn maps an id to the error its deletion should return.
	failOn  map[int]error
	listErr error
}

func NewMemoryStore(records ...Record) *MemoryStore {
	s := &MemoryStore{
		records: make(map[int]Record, len(records)),
		failOn:  map[int]error{},
	}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

// FailDelete makes every future delete of id fail with err.
func (s *MemoryStore) FailDelete(id int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = errors.New("delete failed")
	}
	s.failOn[id] = err
}

// FailList makes ListAll return err.
func (s *MemoryStore) FailList(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteByIDs(ctx context.Context, ids []int) (DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res DeleteResult
	for _, id := range ids {
		if err, ok := s.failOn[id]; ok {
			res.Failed = append(res.Failed, DeleteFailure{ID: id, Reason: err.Error()})
			continue
		}
		if _, ok := s.records[id]; !ok {
			res.Missing = append(res.Missing, id)
			continue
		}
		delete(s.records, id)
		res.Deleted = append(res.Deleted, id)
	}
	return res, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Has reports whether id is still stored.
func (s *MemoryStore) Has(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}
