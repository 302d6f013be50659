// Package repository declares the persistence contracts used by the services.
// Implementations live in subpackages (postgres) and contain no business logic.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("record not found")

// DuplicateError reports a unique constraint violation on Field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Field)
}

// PageQuery holds limit/offset pagination and ordering parameters.
// SortColumn must be one of the SortColumns values.
type PageQuery struct {
	Limit      int
	Offset     int
	SortColumn string
	Descending bool
}

// Sortable document columns.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortTitle     = "title"
	SortStatus    = "status"
)

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
