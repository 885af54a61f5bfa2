package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"timetabledocs/internal/http/middleware"
	"timetabledocs/internal/model"
	"timetabledocs/internal/service"
	serviceMocks "timetabledocs/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/list/", ListDocuments(mockSvc))

	uploaded := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("full set without paging", func(t *testing.T) {
		res := &service.DocumentListResult{
			Items: []model.Document{
				{ID: "b", Filename: "newer.pdf", URL: "https://cdn.test/b", Note: "week 2", UploadedAt: uploaded},
				{ID: "a", Filename: "older.pdf", URL: "https://cdn.test/a", UploadedAt: uploaded.Add(-time.Hour)},
			},
			Total: 2,
		}
		mockSvc.On("List", mock.Anything, service.ListInput{}).Return(res, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/list/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-Total-Count"))

		var items []model.DocumentView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
		require.Len(t, items, 2)
		assert.Equal(t, "b", items[0].ID)
		assert.Equal(t, "week 2", items[0].Note)
		assert.Equal(t, "a", items[1].ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty list is an empty array", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, service.ListInput{}).Return(&service.DocumentListResult{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/list/", nil)
		resp, _ := app.Test(req)

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
	})

	t.Run("paged sets total header", func(t *testing.T) {
		res := &service.DocumentListResult{
			Items: []model.Document{{ID: uuid.New().String(), Filename: "test.pdf"}},
			Total: 7,
			Paged: true,
		}
		in := service.ListInput{Department: "cs", Limit: 1, Offset: 3}
		mockSvc.On("List", mock.Anything, in).Return(res, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/list/?limit=1&offset=3&department=cs", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "7", resp.Header.Get("X-Total-Count"))
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/list/?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp).Code)
	})

	t.Run("invalid offset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/list/?offset=-1", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_OFFSET", decodeError(t, resp).Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, service.ListInput{}).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/list/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to load PDFs", decodeError(t, resp).Error)
		mockSvc.AssertExpectations(t)
	})
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	reg := prometheus.NewRegistry()
	metrics, err := NewUploadMetrics(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/documents/upload/", UploadDocument(mockSvc, 64, metrics))

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, "week1.pdf", []byte("%PDF-1.7"), map[string]string{"note": "Room B"})

		doc := &model.Document{ID: uuid.New().String(), Filename: "week1.pdf", URL: "https://cdn.test/timetable_pdfs/default/x.pdf"}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.Filename == "week1.pdf" && in.Note == "Room B" && in.Department == service.DefaultDepartment && in.Size == 8
		})).Return(doc, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.UploadResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, "success", result.Status)
		assert.Equal(t, doc.ID, result.ID)
		assert.Equal(t, doc.URL, result.URL)
		assert.Equal(t, "week1.pdf", result.Filename)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.uploads.WithLabelValues("success")))
		mockSvc.AssertExpectations(t)
	})

	t.Run("department is forwarded", func(t *testing.T) {
		body, ct := multipartBody(t, "cs.pdf", []byte("%PDF"), map[string]string{"department": "cs"})

		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.Department == "cs" && in.Note == ""
		})).Return(&model.Document{ID: "1", Filename: "cs.pdf"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/documents/upload/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "FILE_REQUIRED", res.Code)
		assert.Equal(t, "File is required", res.Error)
	})

	t.Run("empty file", func(t *testing.T) {
		body, ct := multipartBody(t, "empty.pdf", nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/documents/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_EMPTY", decodeError(t, resp).Code)
	})

	t.Run("too large", func(t *testing.T) {
		body, ct := multipartBody(t, "big.pdf", bytes.Repeat([]byte("a"), 65), nil)

		req := httptest.NewRequest(http.MethodPost, "/documents/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Equal(t, "FILE_TOO_LARGE", decodeError(t, resp).Code)
	})

	t.Run("not a pdf", func(t *testing.T) {
		body, ct := multipartBody(t, "notes.txt", []byte("hello"), nil)
		mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, service.ErrNotPDF).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "NOT_PDF", res.Code)
		assert.Equal(t, "Only PDF files are allowed", res.Error)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		body, ct := multipartBody(t, "week2.pdf", []byte("%PDF"), nil)
		mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("upload failed")).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "UPLOAD_FAILED", decodeError(t, resp).Code)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.uploads.WithLabelValues("failed")))
		mockSvc.AssertExpectations(t)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expectedDoc := &model.Document{ID: id, Filename: "test.pdf", Department: "cs"}
		mockSvc.On("Get", mock.Anything, id).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		assert.Equal(t, "cs", result.Department)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/invalid-uuid/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/download/", DownloadDocument(mockSvc))

	t.Run("redirects to presigned url", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DownloadURL", mock.Anything, id).Return("https://minio.test/signed?x=1", nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "https://minio.test/signed?x=1", resp.Header.Get("Location"))
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DownloadURL", mock.Anything, id).Return("", service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Delete("/documents/:id/", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id+"/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id+"/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(errors.New("delete error")).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id+"/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestAdminLogin(t *testing.T) {
	adminSvc := new(serviceMocks.MockAdminService)
	app := fiber.New()
	app.Post("/admin/login/", AdminLogin(adminSvc))

	post := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/admin/login/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		exp := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		adminSvc.On("Login", mock.Anything, "admin", "admin123").Return(&model.AdminToken{Token: "tok", ExpiresAt: exp}, nil).Once()

		resp := post(`{"username":"admin","password":"admin123"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var tok model.AdminToken
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
		assert.Equal(t, "tok", tok.Token)
		assert.True(t, exp.Equal(tok.ExpiresAt))
		adminSvc.AssertExpectations(t)
	})

	t.Run("wrong credentials get a generic message", func(t *testing.T) {
		adminSvc.On("Login", mock.Anything, "Admin", "admin123").Return(nil, service.ErrInvalidCredentials).Once()

		resp := post(`{"username":"Admin","password":"admin123"}`)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "INVALID_CREDENTIALS", res.Code)
		assert.Equal(t, "Invalid credentials. Please try again.", res.Error)
		adminSvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := post(`{`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})
	app.Use(middleware.RequestID())

	docSvc := new(serviceMocks.MockDocumentService)
	adminSvc := new(serviceMocks.MockAdminService)
	RegisterRoutes(app, Deps{Documents: docSvc, Admin: adminSvc})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "NOT_FOUND", res.Code)
		assert.Equal(t, resp.Header.Get(middleware.RequestIDHeader), res.RequestID)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Code)
	})

	t.Run("list is not shadowed by the id route", func(t *testing.T) {
		docSvc.On("List", mock.Anything, service.ListInput{}).Return(&service.DocumentListResult{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/list/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		docSvc.AssertExpectations(t)
	})

	t.Run("delete requires admin token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+uuid.NewString()+"/", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp).Code)
	})

	t.Run("delete with admin token", func(t *testing.T) {
		id := uuid.NewString()
		adminSvc.On("Verify", "good").Return(&service.AdminClaims{Role: "admin"}, nil).Once()
		docSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+id+"/", nil)
		req.Header.Set("Authorization", "Bearer good")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		adminSvc.AssertExpectations(t)
		docSvc.AssertExpectations(t)
	})

	t.Run("docs page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/docs", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	})
}

func TestRouting_ListRequiresAdmin(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, Deps{
		Documents:         new(serviceMocks.MockDocumentService),
		Admin:             new(serviceMocks.MockAdminService),
		ListRequiresAdmin: true,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/list/", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
