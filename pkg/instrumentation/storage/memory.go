package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/meridian/pkg/instrumentation"
)

// MemoryStorage implements instrumentation.Storage with an in-memory map.
type MemoryStorage struct {
	records map[string]*instrumentation.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*instrumentation.Record),
	}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *instrumentation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = record.Clone()
	return nil
}

// Query retrieves records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *instrumentation.Query) ([]*instrumentation.Record, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}

	s.mu.RLock()
	results := s.filter(query)
	s.mu.RUnlock()

	return paginate(results, query), nil
}

// QueryStream streams matching records over a channel.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *instrumentation.Query) (<-chan *instrumentation.Record, <-chan error, error) {
	if err := validateQuery(query); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	results := paginate(s.filter(query), query)
	s.mu.RUnlock()

	recordsCh := make(chan *instrumentation.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range results {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *instrumentation.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *instrumentation.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops every record.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*instrumentation.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// GetByID returns a copy of the record with the given ID, or nil.
func (s *MemoryStorage) GetByID(id string) *instrumentation.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}
	return record.Clone()
}

// filter returns sorted copies of matching records. Callers hold s.mu.
func (s *MemoryStorage) filter(query *instrumentation.Query) []*instrumentation.Record {
	var results []*instrumentation.Record
	for _, record := range s.records {
		if matchesQuery(record, query) {
			results = append(results, record.Clone())
		}
	}

	asc := query.SortOrder == "asc"
	sort.Slice(results, func(i, j int) bool {
		if asc {
			return results[i].StartTime.Before(results[j].StartTime)
		}
		return results[i].StartTime.After(results[j].StartTime)
	})
	return results
}

// paginate applies Offset and Limit.
func paginate(results []*instrumentation.Record, query *instrumentation.Query) []*instrumentation.Record {
	start := query.Offset
	if start > len(results) {
		return []*instrumentation.Record{}
	}
	results = results[start:]
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	if results == nil {
		results = []*instrumentation.Record{}
	}
	return results
}

// matchesQuery checks if a record matches the query filters.
func matchesQuery(record *instrumentation.Record, query *instrumentation.Query) bool {
	if query.StartTime != nil && record.StartTime.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.StartTime.After(*query.EndTime) {
		return false
	}
	if query.ID != "" && record.ID != query.ID {
		return false
	}
	if query.Operation != "" && record.Operation != query.Operation {
		return false
	}
	if query.EntryName != "" {
		if _, ok := record.Lookup(query.EntryName); !ok {
			return false
		}
	}
	return true
}
