package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"timetabledocs/internal/model"
	"timetabledocs/internal/repository"
)

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrDuplicateRecord    = errors.New("a record with the same unique value already exists in this department")
	ErrDepartmentRequired = errors.New("department is required")
)

// ValidationError lists the rejected fields of a record, keyed by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CatalogService manages one kind of timetable record inside a department.
// Records of other departments are invisible: they read as ErrRecordNotFound.
type CatalogService[T any] interface {
	List(ctx context.Context, department string) ([]T, error)
	Get(ctx context.Context, department, id string) (*T, error)
	// Create assigns a new id and the department, ignoring any sent with the record.
	Create(ctx context.Context, department string, item *T) (*T, error)
	// Update replaces every writable field of the record id.
	Update(ctx context.Context, department, id string, item *T) (*T, error)
	Delete(ctx context.Context, department, id string) error
}

// CatalogRepositories are the stores behind the timetable catalog.
type CatalogRepositories struct {
	Faculty  repository.ScopedRepository[model.Faculty]
	Rooms    repository.ScopedRepository[model.Room]
	Subjects repository.ScopedRepository[model.Subject]
	Entries  repository.ScopedRepository[model.TimetableEntry]
}

// CatalogServices groups the services of every catalog record type.
type CatalogServices struct {
	Faculty  CatalogService[model.Faculty]
	Rooms    CatalogService[model.Room]
	Subjects CatalogService[model.Subject]
	Entries  CatalogService[model.TimetableEntry]
}

func NewCatalogServices(r CatalogRepositories, log *slog.Logger) *CatalogServices {
	if log == nil {
		log = slog.Default()
	}
	v := newValidator()
	entries := &entryRules{faculty: r.Faculty, subjects: r.Subjects, rooms: r.Rooms}
	return &CatalogServices{
		Faculty:  newCatalogService[model.Faculty](r.Faculty, v, log, "faculty", nil),
		Rooms:    newCatalogService[model.Room](r.Rooms, v, log, "room", nil),
		Subjects: newCatalogService[model.Subject](r.Subjects, v, log, "subject", nil),
		Entries:  newCatalogService[model.TimetableEntry](r.Entries, v, log, "timetable_entry", entries),
	}
}

// keyed is satisfied by pointers to catalog records.
type keyed[T any] interface {
	*T
	SetKey(id, department string)
}

// recordRules adds record-specific checks and read-side expansion to a catalog service.
type recordRules[T any] interface {
	check(ctx context.Context, department string, item *T) error
	expand(ctx context.Context, department string, items []T) error
}

type catalogService[T any, P keyed[T]] struct {
	repo     repository.ScopedRepository[T]
	validate *validator.Validate
	rules    recordRules[T]
	log      *slog.Logger
}

func newCatalogService[T any, P keyed[T]](repo repository.ScopedRepository[T], v *validator.Validate, log *slog.Logger, entity string, rules recordRules[T]) *catalogService[T, P] {
	return &catalogService[T, P]{
		repo:     repo,
		validate: v,
		rules:    rules,
		log:      log.With("component", "catalog_service", "entity", entity),
	}
}

func (s *catalogService[T, P]) List(ctx context.Context, department string) ([]T, error) {
	if department == "" {
		return nil, ErrDepartmentRequired
	}
	items, err := s.repo.List(ctx, department)
	if err != nil {
		return nil, err
	}
	if err := s.expand(ctx, department, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *catalogService[T, P]) Get(ctx context.Context, department, id string) (*T, error) {
	if department == "" {
		return nil, ErrDepartmentRequired
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	item, err := s.repo.FindByID(ctx, department, id)
	if err != nil {
		return nil, recordError(err)
	}
	return s.expandOne(ctx, department, item)
}

func (s *catalogService[T, P]) Create(ctx context.Context, department string, item *T) (*T, error) {
	if department == "" {
		return nil, ErrDepartmentRequired
	}
	id := uuid.New().String()
	P(item).SetKey(id, department)
	if err := s.checkRecord(ctx, department, item); err != nil {
		return nil, err
	}
	stored, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, recordError(err)
	}
	s.log.InfoContext(ctx, "catalog_record_created", "department", department, "id", id)
	return s.expandOne(ctx, department, stored)
}

func (s *catalogService[T, P]) Update(ctx context.Context, department, id string, item *T) (*T, error) {
	if department == "" {
		return nil, ErrDepartmentRequired
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	P(item).SetKey(id, department)
	if err := s.checkRecord(ctx, department, item); err != nil {
		return nil, err
	}
	stored, err := s.repo.Update(ctx, item)
	if err != nil {
		return nil, recordError(err)
	}
	s.log.InfoContext(ctx, "catalog_record_updated", "department", department, "id", id)
	return s.expandOne(ctx, department, stored)
}

func (s *catalogService[T, P]) Delete(ctx context.Context, department, id string) error {
	if department == "" {
		return ErrDepartmentRequired
	}
	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.Delete(ctx, department, id); err != nil {
		return recordError(err)
	}
	s.log.InfoContext(ctx, "catalog_record_deleted", "department", department, "id", id)
	return nil
}

func (s *catalogService[T, P]) checkRecord(ctx context.Context, department string, item *T) error {
	if err := s.validate.Struct(item); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fieldErrors(verrs)
		}
		return err
	}
	if s.rules == nil {
		return nil
	}
	return s.rules.check(ctx, department, item)
}

func (s *catalogService[T, P]) expand(ctx context.Context, department string, items []T) error {
	if s.rules == nil || len(items) == 0 {
		return nil
	}
	return s.rules.expand(ctx, department, items)
}

func (s *catalogService[T, P]) expandOne(ctx context.Context, department string, item *T) (*T, error) {
	items := []T{*item}
	if err := s.expand(ctx, department, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func recordError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrRecordNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w (%v)", ErrDuplicateRecord, err)
	case errors.Is(err, repository.ErrMissingReference):
		return &ValidationError{Fields: map[string]string{"reference": "referenced record does not exist in this department"}}
	}
	return err
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldErrors(verrs validator.ValidationErrors) *ValidationError {
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "uuid":
		return "must be a valid id"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "use the HH:MM format"
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}

// entryRules checks that a timetable entry is well ordered in time and only points at
// faculty, subjects and rooms of its own department. Reads fill in the referenced records.
type entryRules struct {
	faculty  repository.ScopedRepository[model.Faculty]
	subjects repository.ScopedRepository[model.Subject]
	rooms    repository.ScopedRepository[model.Room]
}

func (r *entryRules) check(ctx context.Context, department string, e *model.TimetableEntry) error {
	fields := map[string]string{}

	start, errStart := time.Parse("15:04", e.StartTime)
	end, errEnd := time.Parse("15:04", e.EndTime)
	if errStart == nil && errEnd == nil {
		if !start.Before(end) {
			fields["end_time"] = "must be after start_time"
		}
		e.StartTime, e.EndTime = start.Format("15:04"), end.Format("15:04")
	}

	refs := []struct {
		field string
		find  func() error
	}{
		{"faculty", func() error { _, err := r.faculty.FindByID(ctx, department, e.FacultyID); return err }},
		{"subject", func() error { _, err := r.subjects.FindByID(ctx, department, e.SubjectID); return err }},
		{"room", func() error { _, err := r.rooms.FindByID(ctx, department, e.RoomID); return err }},
	}
	for _, ref := range refs {
		err := ref.find()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			fields[ref.field] = "not found in this department"
		case err != nil:
			return fmt.Errorf("look up %s: %w", ref.field, err)
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (r *entryRules) expand(ctx context.Context, department string, entries []model.TimetableEntry) error {
	faculty := map[string]*model.Faculty{}
	subjects := map[string]*model.Subject{}
	rooms := map[string]*model.Room{}

	for i := range entries {
		e := &entries[i]
		var err error
		if e.FacultyDetails, err = lookup(ctx, r.faculty, faculty, department, e.FacultyID); err != nil {
			return fmt.Errorf("expand faculty: %w", err)
		}
		if e.SubjectDetails, err = lookup(ctx, r.subjects, subjects, department, e.SubjectID); err != nil {
			return fmt.Errorf("expand subject: %w", err)
		}
		if e.RoomDetails, err = lookup(ctx, r.rooms, rooms, department, e.RoomID); err != nil {
			return fmt.Errorf("expand room: %w", err)
		}
	}
	return nil
}

func lookup[T any](ctx context.Context, repo repository.ScopedRepository[T], seen map[string]*T, department, id string) (*T, error) {
	if v, ok := seen[id]; ok {
		return v, nil
	}
	v, err := repo.FindByID(ctx, department, id)
	if err != nil {
		return nil, err
	}
	seen[id] = v
	return v, nil
}
