package portal

import (
	"context"
	"errors"
	"sync"

	"timetabledocs/internal/model"
)

var (
	// ErrSuperseded is returned by Refresh when a newer refresh was issued before this one resolved.
	// The response was discarded.
	ErrSuperseded = errors.New("refresh superseded by a newer request")
	// ErrClosed is returned by Refresh once the library has been closed.
	ErrClosed = errors.New("library closed")
)

// Lister fetches the full document set.
type Lister interface {
	List(ctx context.Context, token string) ([]model.DocumentView, error)
}

// View is a consistent snapshot of the listing state.
type View struct {
	Documents []model.DocumentView
	Err       error
	Loading   bool
}

// Library is the listing view's state. Refreshes may overlap; each is tagged with a sequence
// number and only the most recently issued one may update the view.
type Library struct {
	lister Lister

	mu      sync.Mutex
	issued  uint64
	docs    []model.DocumentView
	err     error
	loading bool
	closed  bool
}

func NewLibrary(l Lister) *Library {
	return &Library{lister: l}
}

// Refresh fetches the list using the session token on ctx, if any.
// A failure keeps the previously loaded documents and records the error.
func (l *Library) Refresh(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.issued++
	seq := l.issued
	l.loading = true
	l.mu.Unlock()

	docs, err := l.lister.List(ctx, tokenFrom(ctx))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if seq != l.issued {
		return ErrSuperseded
	}
	l.loading = false
	if err != nil {
		l.err = err
		return err
	}
	l.docs = docs
	l.err = nil
	return nil
}

// Snapshot returns the current state.
func (l *Library) Snapshot() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return View{Documents: l.docs, Err: l.err, Loading: l.loading}
}

// Search filters the loaded documents by term.
func (l *Library) Search(term string) []model.DocumentView {
	return Filter(l.Snapshot().Documents, term)
}

// Find returns the loaded document with the given id.
func (l *Library) Find(id string) (model.DocumentView, bool) {
	for _, d := range l.Snapshot().Documents {
		if d.ID == id {
			return d, true
		}
	}
	return model.DocumentView{}, false
}

// Close disposes the view. Responses arriving afterwards are dropped.
func (l *Library) Close() {
	l.mu.Lock()
	l.closed = true
	l.loading = false
	l.mu.Unlock()
}
