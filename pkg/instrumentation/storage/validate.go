package storage

import (
	"errors"

	"mercator-hq/meridian/pkg/instrumentation"
)

// MaxQueryLimit caps Query.Limit for every backend.
const MaxQueryLimit = 10000

var (
	errNegativePagination = errors.New("limit and offset must not be negative")
	errLimitTooLarge      = errors.New("limit exceeds maximum of 10000")
	errInvalidSortOrder   = errors.New(`sort order must be "asc" or "desc"`)
	errInvertedTimeRange  = errors.New("start time is after end time")
)

// validateQuery rejects queries no backend can answer.
func validateQuery(query *instrumentation.Query) error {
	if query.Limit < 0 || query.Offset < 0 {
		return instrumentation.NewQueryError(query, errNegativePagination)
	}
	if query.Limit > MaxQueryLimit {
		return instrumentation.NewQueryError(query, errLimitTooLarge)
	}
	if query.SortOrder != "" && query.SortOrder != "asc" && query.SortOrder != "desc" {
		return instrumentation.NewQueryError(query, errInvalidSortOrder)
	}
	if query.StartTime != nil && query.EndTime != nil && query.StartTime.After(*query.EndTime) {
		return instrumentation.NewQueryError(query, errInvertedTimeRange)
	}
	return nil
}
