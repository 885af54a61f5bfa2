// Package client talks to the document API over HTTP. Every failure it returns is either a
// *ServerError (the API answered with a non-success status or an unusable body) or a
// *TransportError (no answer at all), and both carry a message fit for display.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"timetabledocs/internal/model"
)

// DefaultBaseURL is used when no override is configured.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// Display messages for failures that carry no server-provided text.
const (
	UploadFailedMessage    = "Upload failed"
	UploadTransportMessage = "Upload failed. Make sure the backend is running."
	ListFailedMessage      = "Failed to fetch PDFs"
	ListTransportMessage   = "Failed to load PDFs"
	LoginFailedMessage     = "Login failed"
	LoginTransportMessage  = "Login failed. Make sure the backend is running."
	FetchFailedMessage     = "Download failed"
)

// maxErrorBody bounds how much of an error response is read looking for a message.
const maxErrorBody = 64 << 10

// ServerError is a request the API received and rejected.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string { return e.Message }

// TransportError is a request that never produced a response.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string { return e.Message }

func (e *TransportError) Unwrap() error { return e.Err }

// UploadRequest is one multipart submission.
type UploadRequest struct {
	Filename    string
	ContentType string
	Content     io.Reader
	Note        string
	Department  string
}

// Client is safe for concurrent use.
type Client struct {
	base string
	http *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the traced default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client rooted at baseURL (e.g. http://localhost:8000/api/v1).
// The default transport is wrapped by otelhttp; no timeout is set beyond the caller's context.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string { return c.base }

// Upload sends exactly one POST {base}/documents/upload/ with fields file, note and department.
// A success response without a url is treated as a server failure.
func (c *Client) Upload(ctx context.Context, in UploadRequest) (*model.UploadResult, error) {
	body, contentType, err := encodeUpload(in)
	if err != nil {
		return nil, &TransportError{Message: UploadTransportMessage, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/documents/upload/", body)
	if err != nil {
		return nil, &TransportError{Message: UploadTransportMessage, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	var out model.UploadResult
	if err := c.do(req, &out, UploadFailedMessage, UploadTransportMessage); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, &ServerError{Status: http.StatusOK, Message: UploadFailedMessage}
	}
	return &out, nil
}

func encodeUpload(in UploadRequest) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(in.Filename)))
	ct := in.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if in.Content != nil {
		if _, err := io.Copy(part, in.Content); err != nil {
			return nil, "", fmt.Errorf("read file: %w", err)
		}
	}
	if err := w.WriteField("note", in.Note); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("department", in.Department); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

// List fetches the full document set in backend order. token may be empty.
func (c *Client) List(ctx context.Context, token string) ([]model.DocumentView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/documents/list/", nil)
	if err != nil {
		return nil, &TransportError{Message: ListTransportMessage, Err: err}
	}
	setBearer(req, token)

	var out []model.DocumentView
	if err := c.do(req, &out, ListFailedMessage, ListTransportMessage); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.DocumentView{}
	}
	return out, nil
}

// Login exchanges operator credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (*model.AdminToken, error) {
	payload, err := json.Marshal(model.AdminLoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, &TransportError{Message: LoginTransportMessage, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/admin/login/", bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Message: LoginTransportMessage, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var out model.AdminToken
	if err := c.do(req, &out, LoginFailedMessage, LoginTransportMessage); err != nil {
		return nil, err
	}
	return &out, nil
}

// Fetch opens the raw bytes at an absolute URL such as a document's public url.
// The caller closes the returned body.
func (c *Client) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Message: FetchFailedMessage, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Message: FetchFailedMessage, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &ServerError{Status: resp.StatusCode, Message: FetchFailedMessage}
	}
	return resp.Body, nil
}

func setBearer(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// do executes req and decodes a 2xx JSON body into out (skipped when out is nil).
func (c *Client) do(req *http.Request, out any, fallback, transport string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Message: transport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{Status: resp.StatusCode, Message: errorMessage(resp.Body, fallback)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServerError{Status: resp.StatusCode, Message: fallback}
	}
	return nil
}

// errorMessage extracts the server's "error" or "detail" field, or returns fallback.
func errorMessage(r io.Reader, fallback string) string {
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return fallback
	}
	switch {
	case body.Error != "":
		return body.Error
	case body.Detail != "":
		return body.Detail
	default:
		return fallback
	}
}
