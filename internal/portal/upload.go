package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"timetabledocs/internal/client"
	"timetabledocs/internal/model"
)

// Advisory limits shown next to the file picker. Neither blocks a submission.
const (
	PDFContentType     = "application/pdf"
	SoftMaxUploadBytes = 10 << 20
)

// ErrNoFileSelected fails a submission before any network call.
var ErrNoFileSelected = errors.New("no file selected")

// Uploader sends one multipart submission.
type Uploader interface {
	Upload(ctx context.Context, in client.UploadRequest) (*model.UploadResult, error)
}

// File is the selected file. Content that cannot seek is buffered in memory on the first
// submission so a retry sends the same bytes.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

// rewind positions Content at its first byte for a new attempt.
func (f *File) rewind() error {
	switch r := f.Content.(type) {
	case nil:
		return nil
	case io.Seeker:
		_, err := r.Seek(0, io.SeekStart)
		return err
	default:
		b, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
		f.Content = bytes.NewReader(b)
		return nil
	}
}

// UploadForm holds the upload entry state: the selected file, the note and,
// for the user-selected department source, the chosen department.
type UploadForm struct {
	File       *File
	Note       string
	Department string

	uploader Uploader
	policy   DepartmentPolicy
}

func NewUploadForm(u Uploader, policy DepartmentPolicy) *UploadForm {
	return &UploadForm{uploader: u, policy: policy}
}

// Hints lists advisory warnings about the selected file.
func (f *UploadForm) Hints() []string {
	if f.File == nil {
		return nil
	}
	var hints []string
	isPDF := strings.EqualFold(f.File.ContentType, PDFContentType) ||
		strings.EqualFold(filepath.Ext(f.File.Name), ".pdf")
	if !isPDF {
		hints = append(hints, "Only PDF files are allowed")
	}
	if f.File.Size > SoftMaxUploadBytes {
		hints = append(hints, "File is larger than 10MB")
	}
	return hints
}

// Submit sends the form as exactly one request and returns the success message.
// The file and note are cleared only on success; on failure the form is left as it was.
func (f *UploadForm) Submit(ctx context.Context) (string, error) {
	if f.File == nil {
		return "", ErrNoFileSelected
	}
	dept, err := f.policy.Resolve(f.Department)
	if err != nil {
		return "", err
	}
	if err := f.File.rewind(); err != nil {
		return "", err
	}

	res, err := f.uploader.Upload(ctx, client.UploadRequest{
		Filename:    f.File.Name,
		ContentType: f.File.ContentType,
		Content:     f.File.Content,
		Note:        f.Note,
		Department:  dept,
	})
	if err != nil {
		return "", err
	}

	f.File = nil
	f.Note = ""
	return fmt.Sprintf("PDF uploaded successfully! URL: %s", res.URL), nil
}
