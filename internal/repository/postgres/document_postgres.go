package postgres

import (
	"context"
	"database/sql"

	"timetabledocs/internal/model"
	"timetabledocs/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, department, storage_key, url, filename, file_size, content_type, note, uploaded_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(
		&d.ID,
		&d.Department,
		&d.StorageKey,
		&d.URL,
		&d.Filename,
		&d.Size,
		&d.ContentType,
		&d.Note,
		&d.UploadedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO reference_pdfs (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Department,
		doc.StorageKey,
		doc.URL,
		doc.Filename,
		doc.Size,
		doc.ContentType,
		doc.Note,
		doc.UploadedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID. A missing row surfaces as sql.ErrNoRows.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM reference_pdfs
		WHERE id = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns documents ordered by upload time, newest first.
// Unpaged queries return the full set and skip the COUNT round trip.
func (r *DocumentPostgres) List(ctx context.Context, lq repository.ListQuery) (*repository.PageResult[model.Document], error) {
	var (
		rows *sql.Rows
		err  error
	)
	if lq.Paged() {
		rows, err = r.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM reference_pdfs
		WHERE ($1 = '' OR department = $1)
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, lq.Department, lq.Limit, lq.Offset)
	} else {
		rows, err = r.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM reference_pdfs
		WHERE ($1 = '' OR department = $1)
		ORDER BY uploaded_at DESC, id DESC
	`, lq.Department)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	total := len(items)
	if lq.Paged() {
		const qCount = `SELECT COUNT(*) FROM reference_pdfs WHERE ($1 = '' OR department = $1)`
		if err := r.db.QueryRowContext(ctx, qCount, lq.Department).Scan(&total); err != nil {
			return nil, err
		}
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM reference_pdfs WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
