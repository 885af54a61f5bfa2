package portal

import (
	"strings"
	"time"

	"timetabledocs/internal/model"
)

// Filter keeps documents whose filename or note contains term, ignoring case.
// An empty term returns docs unchanged. Order is preserved.
func Filter(docs []model.DocumentView, term string) []model.DocumentView {
	if term == "" {
		return docs
	}
	t := strings.ToLower(term)
	out := make([]model.DocumentView, 0, len(docs))
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Filename), t) || strings.Contains(strings.ToLower(d.Note), t) {
			out = append(out, d)
		}
	}
	return out
}

// FormatUploadedAt renders an upload time for display, or "Unknown" when absent.
func FormatUploadedAt(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return "Unknown"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2 Jan 2006, 15:04")
}
