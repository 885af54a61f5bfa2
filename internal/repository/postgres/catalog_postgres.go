package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"timetabledocs/internal/model"
	"timetabledocs/internal/repository"
)

// SQLSTATE codes mapped to repository errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// catalogTable describes how one record type maps onto its table.
// args returns id, department, then the writable columns in insert order.
type catalogTable[T any] struct {
	name         string
	insertCols   string
	insertValues string
	updateSet    string
	selectCols   string
	orderBy      string
	scan         func(s scanner) (*T, error)
	args         func(item *T) []any
}

// CatalogPostgres is the PostgreSQL implementation of repository.ScopedRepository.
type CatalogPostgres[T any] struct {
	db    *sql.DB
	table catalogTable[T]
}

var (
	_ repository.ScopedRepository[model.Faculty]        = (*CatalogPostgres[model.Faculty])(nil)
	_ repository.ScopedRepository[model.Room]           = (*CatalogPostgres[model.Room])(nil)
	_ repository.ScopedRepository[model.Subject]        = (*CatalogPostgres[model.Subject])(nil)
	_ repository.ScopedRepository[model.TimetableEntry] = (*CatalogPostgres[model.TimetableEntry])(nil)
)

var facultyTable = catalogTable[model.Faculty]{
	name:         "faculty",
	insertCols:   "id, department, name, email, designation",
	insertValues: "$1, $2, $3, $4, $5",
	updateSet:    "name = $3, email = $4, designation = $5",
	selectCols:   "id, department, name, email, designation",
	orderBy:      "name, id",
	scan: func(s scanner) (*model.Faculty, error) {
		var f model.Faculty
		if err := s.Scan(&f.ID, &f.Department, &f.Name, &f.Email, &f.Designation); err != nil {
			return nil, err
		}
		return &f, nil
	},
	args: func(f *model.Faculty) []any {
		return []any{f.ID, f.Department, f.Name, f.Email, f.Designation}
	},
}

var roomTable = catalogTable[model.Room]{
	name:         "rooms",
	insertCols:   "id, department, name, capacity, type",
	insertValues: "$1, $2, $3, $4, $5",
	updateSet:    "name = $3, capacity = $4, type = $5",
	selectCols:   "id, department, name, capacity, type",
	orderBy:      "name, id",
	scan: func(s scanner) (*model.Room, error) {
		var r model.Room
		if err := s.Scan(&r.ID, &r.Department, &r.Name, &r.Capacity, &r.Type); err != nil {
			return nil, err
		}
		return &r, nil
	},
	args: func(r *model.Room) []any {
		return []any{r.ID, r.Department, r.Name, r.Capacity, r.Type}
	},
}

var subjectTable = catalogTable[model.Subject]{
	name:         "subjects",
	insertCols:   "id, department, name, code, credits",
	insertValues: "$1, $2, $3, $4, $5",
	updateSet:    "name = $3, code = $4, credits = $5",
	selectCols:   "id, department, name, code, credits",
	orderBy:      "code, id",
	scan: func(s scanner) (*model.Subject, error) {
		var sub model.Subject
		if err := s.Scan(&sub.ID, &sub.Department, &sub.Name, &sub.Code, &sub.Credits); err != nil {
			return nil, err
		}
		return &sub, nil
	},
	args: func(s *model.Subject) []any {
		return []any{s.ID, s.Department, s.Name, s.Code, s.Credits}
	},
}

// Times travel as "HH:MM" text and are stored in TIME columns.
var entryTable = catalogTable[model.TimetableEntry]{
	name: "timetable_entries",
	insertCols: "id, department, day_of_week, start_time, end_time, faculty_id, subject_id, room_id, " +
		"semester, section, academic_year",
	insertValues: "$1, $2, $3, $4::time, $5::time, $6, $7, $8, $9, $10, $11",
	updateSet: "day_of_week = $3, start_time = $4::time, end_time = $5::time, faculty_id = $6, " +
		"subject_id = $7, room_id = $8, semester = $9, section = $10, academic_year = $11",
	selectCols: "id, department, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), " +
		"faculty_id, subject_id, room_id, semester, section, academic_year",
	orderBy: "day_of_week, start_time, id",
	scan: func(s scanner) (*model.TimetableEntry, error) {
		var e model.TimetableEntry
		if err := s.Scan(
			&e.ID,
			&e.Department,
			&e.DayOfWeek,
			&e.StartTime,
			&e.EndTime,
			&e.FacultyID,
			&e.SubjectID,
			&e.RoomID,
			&e.Semester,
			&e.Section,
			&e.AcademicYear,
		); err != nil {
			return nil, err
		}
		return &e, nil
	},
	args: func(e *model.TimetableEntry) []any {
		return []any{
			e.ID, e.Department, e.DayOfWeek, e.StartTime, e.EndTime,
			e.FacultyID, e.SubjectID, e.RoomID, e.Semester, e.Section, e.AcademicYear,
		}
	},
}

func NewFacultyPostgres(db *sql.DB) *CatalogPostgres[model.Faculty] {
	return &CatalogPostgres[model.Faculty]{db: db, table: facultyTable}
}

func NewRoomPostgres(db *sql.DB) *CatalogPostgres[model.Room] {
	return &CatalogPostgres[model.Room]{db: db, table: roomTable}
}

func NewSubjectPostgres(db *sql.DB) *CatalogPostgres[model.Subject] {
	return &CatalogPostgres[model.Subject]{db: db, table: subjectTable}
}

func NewTimetableEntryPostgres(db *sql.DB) *CatalogPostgres[model.TimetableEntry] {
	return &CatalogPostgres[model.TimetableEntry]{db: db, table: entryTable}
}

// Create inserts the record and returns the stored row.
func (r *CatalogPostgres[T]) Create(ctx context.Context, item *T) (*T, error) {
	q := `
		INSERT INTO ` + r.table.name + ` (` + r.table.insertCols + `)
		VALUES (` + r.table.insertValues + `)
		RETURNING ` + r.table.selectCols
	out, err := r.table.scan(r.db.QueryRowContext(ctx, q, r.table.args(item)...))
	if err != nil {
		return nil, constraintError(err)
	}
	return out, nil
}

// FindByID fetches one record of the department. A missing row surfaces as sql.ErrNoRows.
func (r *CatalogPostgres[T]) FindByID(ctx context.Context, department, id string) (*T, error) {
	q := `
		SELECT ` + r.table.selectCols + `
		FROM ` + r.table.name + `
		WHERE id = $1 AND department = $2
	`
	return r.table.scan(r.db.QueryRowContext(ctx, q, id, department))
}

func (r *CatalogPostgres[T]) List(ctx context.Context, department string) ([]T, error) {
	q := `
		SELECT ` + r.table.selectCols + `
		FROM ` + r.table.name + `
		WHERE department = $1
		ORDER BY ` + r.table.orderBy
	rows, err := r.db.QueryContext(ctx, q, department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := r.table.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update rewrites every writable column. A record outside the department surfaces as sql.ErrNoRows.
func (r *CatalogPostgres[T]) Update(ctx context.Context, item *T) (*T, error) {
	q := `
		UPDATE ` + r.table.name + `
		SET ` + r.table.updateSet + `
		WHERE id = $1 AND department = $2
		RETURNING ` + r.table.selectCols
	out, err := r.table.scan(r.db.QueryRowContext(ctx, q, r.table.args(item)...))
	if err != nil {
		return nil, constraintError(err)
	}
	return out, nil
}

// Delete removes one record of the department, returning sql.ErrNoRows when nothing matched.
// Timetable entries that reference a deleted faculty, subject or room go with it.
func (r *CatalogPostgres[T]) Delete(ctx context.Context, department, id string) error {
	q := `DELETE FROM ` + r.table.name + ` WHERE id = $1 AND department = $2`
	res, err := r.db.ExecContext(ctx, q, id, department)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s", repository.ErrMissingReference, pgErr.ConstraintName)
	}
	return err
}
