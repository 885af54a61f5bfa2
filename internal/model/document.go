package model

import "time"

// Document is a stored reference PDF plus its metadata.
// This is a pure domain model with no database-specific dependencies or tags.
// A Document only exists once its bytes are in object storage.
type Document struct {
	ID          string    `json:"id"`
	Department  string    `json:"department"`
	StorageKey  string    `json:"-"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	Note        string    `json:"note"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// DocumentView is the listing representation returned by /documents/list/.
// UploadedAt is nil when the upload time is unknown.
type DocumentView struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	URL        string     `json:"url"`
	Note       string     `json:"note"`
	UploadedAt *time.Time `json:"uploaded_at"`
}

// View converts a Document to its listing representation.
func (d Document) View() DocumentView {
	v := DocumentView{
		ID:       d.ID,
		Filename: d.Filename,
		URL:      d.URL,
		Note:     d.Note,
	}
	if !d.UploadedAt.IsZero() {
		t := d.UploadedAt
		v.UploadedAt = &t
	}
	return v
}

// UploadResult is the body returned by a successful upload.
type UploadResult struct {
	Status   string `json:"status"`
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// AdminLoginRequest carries operator credentials.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminToken is the signed, expiring session token issued on a successful login.
// Department is the scope the token grants over timetable records.
type AdminToken struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	Department string    `json:"department,omitempty"`
}
