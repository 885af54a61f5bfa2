package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"timetabledocs/internal/http/middleware"
	"timetabledocs/internal/model"
	"timetabledocs/internal/service"
	serviceMocks "timetabledocs/internal/service/mocks"
)

type catalogFixture struct {
	app      *fiber.App
	faculty  *serviceMocks.MockCatalogService[model.Faculty]
	rooms    *serviceMocks.MockCatalogService[model.Room]
	subjects *serviceMocks.MockCatalogService[model.Subject]
	entries  *serviceMocks.MockCatalogService[model.TimetableEntry]
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	f := &catalogFixture{
		app:      fiber.New(fiber.Config{ErrorHandler: ErrorHandler()}),
		faculty:  new(serviceMocks.MockCatalogService[model.Faculty]),
		rooms:    new(serviceMocks.MockCatalogService[model.Room]),
		subjects: new(serviceMocks.MockCatalogService[model.Subject]),
		entries:  new(serviceMocks.MockCatalogService[model.TimetableEntry]),
	}
	adminSvc := new(serviceMocks.MockAdminService)
	adminSvc.On("Verify", "cse").Return(&service.AdminClaims{Role: "admin", Department: "CSE"}, nil)
	adminSvc.On("Verify", "unscoped").Return(&service.AdminClaims{Role: "admin"}, nil)
	adminSvc.On("Verify", mock.Anything).Return(nil, service.ErrInvalidToken)

	f.app.Use(middleware.RequestID())
	RegisterRoutes(f.app, Deps{
		Documents: new(serviceMocks.MockDocumentService),
		Admin:     adminSvc,
		Catalog: &service.CatalogServices{
			Faculty:  f.faculty,
			Rooms:    f.rooms,
			Subjects: f.subjects,
			Entries:  f.entries,
		},
	})
	t.Cleanup(func() {
		f.faculty.AssertExpectations(t)
		f.rooms.AssertExpectations(t)
		f.subjects.AssertExpectations(t)
		f.entries.AssertExpectations(t)
	})
	return f
}

func (f *catalogFixture) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestCatalog_Auth(t *testing.T) {
	f := newCatalogFixture(t)

	t.Run("no token", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/v1/timetable/rooms/", "", "")

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp).Code)
	})

	t.Run("session without department", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/v1/timetable/rooms/", "unscoped", "")

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "DEPARTMENT_REQUIRED", decodeError(t, resp).Code)
	})
}

func TestCatalog_ListAndGet(t *testing.T) {
	f := newCatalogFixture(t)
	id := uuid.NewString()

	t.Run("list scoped to session department", func(t *testing.T) {
		f.subjects.On("List", mock.Anything, "CSE").
			Return([]model.Subject{{ID: id, Department: "CSE", Name: "Compilers", Code: "CS401", Credits: 4}}, nil).Once()

		resp := f.do(t, http.MethodGet, "/api/v1/timetable/subjects/", "cse", "")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var items []model.Subject
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
		require.Len(t, items, 1)
		assert.Equal(t, "CS401", items[0].Code)
	})

	t.Run("get missing", func(t *testing.T) {
		f.subjects.On("Get", mock.Anything, "CSE", id).Return(nil, service.ErrRecordNotFound).Once()

		resp := f.do(t, http.MethodGet, "/api/v1/timetable/subjects/"+id+"/", "cse", "")

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
	})

	t.Run("get with malformed id", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/v1/timetable/subjects/42/", "cse", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Code)
	})

	t.Run("list failure", func(t *testing.T) {
		f.rooms.On("List", mock.Anything, "CSE").Return(nil, errors.New("conn reset")).Once()

		resp := f.do(t, http.MethodGet, "/api/v1/timetable/rooms/", "cse", "")

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "internal server error", decodeError(t, resp).Error)
	})
}

func TestCatalog_Create(t *testing.T) {
	f := newCatalogFixture(t)

	t.Run("created", func(t *testing.T) {
		f.rooms.On("Create", mock.Anything, "CSE", &model.Room{Name: "LH-101", Capacity: 60, Type: "Lecture"}).
			Return(&model.Room{ID: "r-1", Department: "CSE", Name: "LH-101", Capacity: 60, Type: "Lecture"}, nil).Once()

		resp := f.do(t, http.MethodPost, "/api/v1/timetable/rooms/", "cse", `{"name":"LH-101","capacity":60,"type":"Lecture"}`)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var got model.Room
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "CSE", got.Department)
	})

	t.Run("validation failure lists fields", func(t *testing.T) {
		f.faculty.On("Create", mock.Anything, "CSE", mock.Anything).
			Return(nil, &service.ValidationError{Fields: map[string]string{"email": "enter a valid email address"}}).Once()

		resp := f.do(t, http.MethodPost, "/api/v1/timetable/faculty/", "cse", `{"name":"Ada","email":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body validationPayload
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "VALIDATION_FAILED", body.Code)
		assert.Equal(t, map[string]string{"email": "enter a valid email address"}, body.Fields)
	})

	t.Run("duplicate within department", func(t *testing.T) {
		f.subjects.On("Create", mock.Anything, "CSE", mock.Anything).Return(nil, service.ErrDuplicateRecord).Once()

		resp := f.do(t, http.MethodPost, "/api/v1/timetable/subjects/", "cse", `{"name":"Compilers","code":"CS401","credits":4}`)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONFLICT", decodeError(t, resp).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/v1/timetable/entries/", "cse", `{`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, resp).Code)
	})
}

func TestCatalog_UpdateAndDelete(t *testing.T) {
	f := newCatalogFixture(t)
	id := uuid.NewString()
	stored := func() *model.Subject {
		return &model.Subject{ID: id, Department: "CSE", Name: "Compilers", Code: "CS401", Credits: 4}
	}

	t.Run("put replaces the record", func(t *testing.T) {
		f.subjects.On("Update", mock.Anything, "CSE", id, &model.Subject{Name: "Compilers II", Code: "CS402"}).
			Return(&model.Subject{ID: id, Department: "CSE", Name: "Compilers II", Code: "CS402"}, nil).Once()

		resp := f.do(t, http.MethodPut, "/api/v1/timetable/subjects/"+id+"/", "cse", `{"name":"Compilers II","code":"CS402"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("patch keeps omitted fields", func(t *testing.T) {
		f.subjects.On("Get", mock.Anything, "CSE", id).Return(stored(), nil).Once()
		merged := stored()
		merged.Credits = 3
		f.subjects.On("Update", mock.Anything, "CSE", id, merged).Return(merged, nil).Once()

		resp := f.do(t, http.MethodPatch, "/api/v1/timetable/subjects/"+id+"/", "cse", `{"credits":3}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got model.Subject
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "CS401", got.Code)
		assert.Equal(t, 3, got.Credits)
	})

	t.Run("patch missing record", func(t *testing.T) {
		other := uuid.NewString()
		f.subjects.On("Get", mock.Anything, "CSE", other).Return(nil, service.ErrRecordNotFound).Once()

		resp := f.do(t, http.MethodPatch, "/api/v1/timetable/subjects/"+other+"/", "cse", `{"credits":3}`)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		f.entries.On("Delete", mock.Anything, "CSE", id).Return(nil).Once()

		resp := f.do(t, http.MethodDelete, "/api/v1/timetable/entries/"+id+"/", "cse", "")

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("delete from another department", func(t *testing.T) {
		f.faculty.On("Delete", mock.Anything, "CSE", id).Return(service.ErrRecordNotFound).Once()

		resp := f.do(t, http.MethodDelete, "/api/v1/timetable/faculty/"+id+"/", "cse", "")

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
