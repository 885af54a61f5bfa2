package repository

import (
	"context"
	"errors"
)

var (
	// ErrDuplicate reports a unique constraint violation within a department.
	ErrDuplicate = errors.New("duplicate record")
	// ErrMissingReference reports a foreign key that points at no row.
	ErrMissingReference = errors.New("referenced record does not exist")
)

// ScopedRepository is data access for timetable records that belong to one department.
// Every read and write is keyed by department as well as id, so a record of another
// department behaves exactly like a missing one: sql.ErrNoRows.
type ScopedRepository[T any] interface {
	Create(ctx context.Context, item *T) (*T, error)
	FindByID(ctx context.Context, department, id string) (*T, error)
	// List returns every record of the department in a stable order.
	List(ctx context.Context, department string) ([]T, error)
	// Update overwrites the record identified by the item's id and department.
	Update(ctx context.Context, item *T) (*T, error)
	Delete(ctx context.Context, department, id string) error
}
