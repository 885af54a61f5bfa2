package repository

import (
	"context"

	"timetabledocs/internal/model"
)

// DocumentRepository defines data access for reference PDF metadata using SQL queries only.
// No business logic here; strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns documents newest first. A zero Limit returns the full set.
	List(ctx context.Context, q ListQuery) (*PageResult[model.Document], error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// ListQuery filters and optionally pages a listing.
// Department "" matches every department. Limit 0 disables paging.
type ListQuery struct {
	Department string
	Limit      int
	Offset     int
}

// Paged reports whether the query asks for a bounded page.
func (q ListQuery) Paged() bool {
	return q.Limit > 0
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
