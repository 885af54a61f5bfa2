package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"timetabledocs/internal/model"
	"timetabledocs/internal/repository"
	"timetabledocs/internal/storage"
)

var (
	ErrIDRequired   = errors.New("id is required")
	ErrNotFound     = errors.New("document not found")
	ErrReaderNil    = errors.New("reader is nil")
	ErrFileRequired = errors.New("file is required")
	ErrNotPDF       = errors.New("only PDF files are allowed")
)

const (
	// DefaultDepartment tags uploads that arrive without a department.
	DefaultDepartment = "default"
	// KeyPrefix is the object storage folder for every reference PDF.
	KeyPrefix = storage.PublicPrefix
	// PresignExpiry bounds the lifetime of download links handed to operators.
	PresignExpiry = 15 * time.Minute
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// UploadInput carries one submitted file plus its form fields.
type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
	Note        string
	Department  string
}

// ListInput filters the listing. Limit 0 returns the full set.
type ListInput struct {
	Department string
	Limit      int
	Offset     int
}

// DocumentListResult is the service-level DTO for a listing.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
	Paged bool             `json:"-"`
}

// DocumentService defines the use cases for handling reference PDFs.
type DocumentService interface {
	// Upload stores the content in object storage, then saves metadata to the DB.
	// The stored object is removed again if the DB save fails, so listings never see a half-created document.
	Upload(ctx context.Context, in UploadInput) (*model.Document, error)

	// List returns documents newest first.
	List(ctx context.Context, in ListInput) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// DownloadURL returns a short-lived presigned link to the document bytes.
	DownloadURL(ctx context.Context, id string) (string, error)

	// Delete removes a document by ID from both storage and repository.
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	log   *slog.Logger
	now   func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, log *slog.Logger) DocumentService {
	if log == nil {
		log = slog.Default()
	}
	return &documentService{
		store: store,
		repo:  repo,
		log:   log.With("component", "document_service"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// IsPDF reports whether a filename carries the .pdf extension, ignoring case.
func IsPDF(filename string) bool {
	return strings.EqualFold(path.Ext(filename), ".pdf")
}

func departmentKey(department string) string {
	k := unsafeKeyChars.ReplaceAllString(department, "_")
	if k == "" || strings.Trim(k, "_") == "" {
		return DefaultDepartment
	}
	return k
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	if in.Filename == "" {
		return nil, ErrFileRequired
	}
	if !IsPDF(in.Filename) {
		return nil, ErrNotPDF
	}
	department := strings.TrimSpace(in.Department)
	if department == "" {
		department = DefaultDepartment
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}

	id := uuid.New().String()
	key := path.Join(KeyPrefix, departmentKey(department), id+".pdf")

	objInfo, err := s.store.Put(ctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
			"department":        department,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:          id,
		Department:  department,
		StorageKey:  objInfo.Key,
		URL:         s.store.PublicURL(objInfo.Key),
		Filename:    in.Filename,
		Size:        objInfo.Size,
		ContentType: contentType,
		Note:        in.Note,
		UploadedAt:  s.now(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.store.Delete(ctx, objInfo.Key); delErr != nil {
			s.log.ErrorContext(ctx, "upload_rollback_failed", "storage_key", objInfo.Key, "error", delErr.Error())
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		s.log.WarnContext(ctx, "upload_rolled_back", "storage_key", objInfo.Key, "error", err.Error())
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.log.InfoContext(ctx, "document_uploaded",
		"document_id", stored.ID,
		"department", stored.Department,
		"filename", stored.Filename,
		"size", stored.Size,
	)
	return stored, nil
}

func (s *documentService) List(ctx context.Context, in ListInput) (*DocumentListResult, error) {
	q := repository.ListQuery{Department: in.Department}
	if in.Limit > 0 {
		q.Limit = in.Limit
		q.Offset = max(in.Offset, 0)
	}

	res, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total, Paged: q.Paged()}, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	u, err := s.store.PresignGet(ctx, doc.StorageKey, PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return u, nil
}

// Delete removes a document from storage, then deletes its record.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	// Storage first; if this fails the row stays so the object is not orphaned without a reference.
	if err := s.store.Delete(ctx, doc.StorageKey); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "document_deleted", "document_id", id)
	return nil
}
