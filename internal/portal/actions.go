package portal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"timetabledocs/internal/model"
)

// DefaultCopyFeedback is how long a copied value stays marked.
const DefaultCopyFeedback = 2 * time.Second

// Opener hands a URL to the system viewer.
type Opener interface {
	Open(url string) error
}

// Fetcher reads the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(text string) error
}

// Actions are the per-document operations of the listing view.
type Actions struct {
	opener    Opener
	fetcher   Fetcher
	clipboard Clipboard
	Copied    *CopyIndicator
}

func NewActions(o Opener, f Fetcher, c Clipboard, feedback time.Duration) *Actions {
	return &Actions{opener: o, fetcher: f, clipboard: c, Copied: NewCopyIndicator(feedback)}
}

// Open shows the document.
func (a *Actions) Open(doc model.DocumentView) error {
	return a.opener.Open(doc.URL)
}

// Download saves the document into dir under its original filename and returns the path.
// The bytes land in a temporary file first, which is renamed into place. Any failure falls
// back to opening the URL; that path reports ok=false and no error.
func (a *Actions) Download(ctx context.Context, doc model.DocumentView, dir string) (path string, ok bool) {
	path, err := a.save(ctx, doc, dir)
	if err != nil {
		_ = a.opener.Open(doc.URL)
		return "", false
	}
	return path, true
}

func (a *Actions) save(ctx context.Context, doc model.DocumentView, dir string) (string, error) {
	body, err := a.fetcher.Fetch(ctx, doc.URL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, saveName(doc.Filename))
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return dst, nil
}

func saveName(filename string) string {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || name == "" {
		return "document.pdf"
	}
	return name
}

// Copy writes text to the clipboard and marks it copied.
func (a *Actions) Copy(text string) error {
	if err := a.clipboard.WriteText(text); err != nil {
		return err
	}
	a.Copied.Mark(text)
	return nil
}

// CopyIndicator remembers the last copied value for a short while.
type CopyIndicator struct {
	delay time.Duration

	mu    sync.Mutex
	value string
	gen   uint64
	timer *time.Timer
}

func NewCopyIndicator(delay time.Duration) *CopyIndicator {
	if delay <= 0 {
		delay = DefaultCopyFeedback
	}
	return &CopyIndicator{delay: delay}
}

// Mark sets v as copied; it clears itself after the delay unless marked again.
func (c *CopyIndicator) Mark(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.value = v
	c.timer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen {
			c.value = ""
		}
	})
}

// IsCopied reports whether v is the currently marked value.
func (c *CopyIndicator) IsCopied(v string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value != "" && c.value == v
}

// Stop cancels a pending clear.
func (c *CopyIndicator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}
