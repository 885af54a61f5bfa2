package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"timetabledocs/internal/http/middleware"
	"timetabledocs/internal/model"
	"timetabledocs/internal/service"
)

// Pinger is the slice of *sql.DB the health check needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators injected into the route table.
type Deps struct {
	DB                Pinger
	Documents         service.DocumentService
	Admin             service.AdminService
	Catalog           *service.CatalogServices
	Metrics           *UploadMetrics
	MaxUploadBytes    int64
	ListRequiresAdmin bool
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	// Backward-compatible simple liveness probe
	app.Get("/healthz", LivenessProbe())
	app.Get("/docs", SwaggerUI())

	api := app.Group("/api/v1")
	admin := middleware.AdminAuth(d.Admin)

	api.Post("/admin/login/", AdminLogin(d.Admin))

	docs := api.Group("/documents")
	docs.Post("/upload/", UploadDocument(d.Documents, d.MaxUploadBytes, d.Metrics))
	if d.ListRequiresAdmin {
		docs.Get("/list/", admin, ListDocuments(d.Documents))
	} else {
		docs.Get("/list/", ListDocuments(d.Documents))
	}
	docs.Get("/:id/download/", admin, DownloadDocument(d.Documents))
	docs.Get("/:id/", admin, GetDocument(d.Documents))
	docs.Delete("/:id/", admin, DeleteDocument(d.Documents))

	if d.Catalog != nil {
		tt := api.Group("/timetable", admin)
		registerCatalog(tt.Group("/faculty"), d.Catalog.Faculty)
		registerCatalog(tt.Group("/rooms"), d.Catalog.Rooms)
		registerCatalog(tt.Group("/subjects"), d.Catalog.Subjects)
		registerCatalog(tt.Group("/entries"), d.Catalog.Entries)
	}
}

// HealthCheck reports healthy only when the database answers a ping.
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadDocument handles multipart uploads with fields file, note and department.
//
// @Summary Upload a reference PDF
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Param note formData string false "Free-text note"
// @Param department formData string false "Department tag" default(default)
// @Success 201 {object} model.UploadResult
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/v1/documents/upload/ [post]
func UploadDocument(svc service.DocumentService, maxBytes int64, metrics *UploadMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			metrics.observe("rejected")
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "File is required")
		}
		if fh.Size == 0 {
			metrics.observe("rejected")
			return writeError(c, fiber.StatusBadRequest, "FILE_EMPTY", "Uploaded file is empty")
		}
		if maxBytes > 0 && fh.Size > maxBytes {
			metrics.observe("rejected")
			return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the maximum upload size")
		}

		f, err := fh.Open()
		if err != nil {
			metrics.observe("rejected")
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.Upload(c.UserContext(), service.UploadInput{
			Reader:      f,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Note:        c.FormValue("note"),
			Department:  c.FormValue("department", service.DefaultDepartment),
		})
		switch {
		case errors.Is(err, service.ErrNotPDF):
			metrics.observe("rejected")
			return writeError(c, fiber.StatusBadRequest, "NOT_PDF", "Only PDF files are allowed")
		case errors.Is(err, service.ErrFileRequired):
			metrics.observe("rejected")
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "File is required")
		case err != nil:
			metrics.observe("failed")
			return writeError(c, fiber.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload file. Please try again later.")
		}

		metrics.observe("success")
		return c.Status(fiber.StatusCreated).JSON(model.UploadResult{
			Status:   "success",
			ID:       doc.ID,
			URL:      doc.URL,
			Filename: doc.Filename,
		})
	}
}

// ListDocuments returns every stored document, newest first. limit/offset are optional; when
// limit is given the response is a page and X-Total-Count carries the full count.
//
// @Summary List reference PDFs
// @Tags documents
// @Produce json
// @Param limit query int false "Page size (omit for the full set)"
// @Param offset query int false "Page offset"
// @Param department query string false "Department filter"
// @Success 200 {array} model.DocumentView
// @Failure 400 {object} errorPayload
// @Router /api/v1/documents/list/ [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := service.ListInput{Department: c.Query("department")}

		if s := c.Query("limit"); s != "" {
			limit, err := strconv.Atoi(s)
			if err != nil || limit < 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
			}
			in.Limit = limit
		}
		if s := c.Query("offset"); s != "" {
			offset, err := strconv.Atoi(s)
			if err != nil || offset < 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
			}
			in.Offset = offset
		}

		res, err := svc.List(c.UserContext(), in)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load PDFs")
		}

		out := make([]model.DocumentView, 0, len(res.Items))
		for _, d := range res.Items {
			out = append(out, d.View())
		}
		if res.Paged {
			c.Set("X-Total-Count", strconv.Itoa(res.Total))
		}
		return c.JSON(out)
	}
}

// GetDocument returns one document's full metadata.
//
// @Summary Get a reference PDF
// @Tags documents
// @Security BearerAuth
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/v1/documents/{id}/ [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return documentLookupError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument redirects to a short-lived presigned link for the stored bytes.
//
// @Summary Download a reference PDF
// @Tags documents
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 302
// @Failure 404 {object} errorPayload
// @Router /api/v1/documents/{id}/download/ [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := svc.DownloadURL(c.UserContext(), id)
		if err != nil {
			return documentLookupError(c, err)
		}
		return c.Redirect(u, fiber.StatusFound)
	}
}

// DeleteDocument removes the stored object and its metadata.
//
// @Summary Delete a reference PDF
// @Tags documents
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /api/v1/documents/{id}/ [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return documentLookupError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func documentLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrNotFound) {
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// AdminLogin exchanges the operator credentials for a signed, expiring session token.
// A mismatch never says which field was wrong.
//
// @Summary Admin login
// @Tags admin
// @Accept json
// @Produce json
// @Param credentials body model.AdminLoginRequest true "Operator credentials"
// @Success 200 {object} model.AdminToken
// @Failure 401 {object} errorPayload
// @Router /api/v1/admin/login/ [post]
func AdminLogin(svc service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req model.AdminLoginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		tok, err := svc.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				return writeError(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials. Please try again.")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(tok)
	}
}

// SwaggerUI serves a small page that renders the generated OpenAPI document from /swagger/doc.json.
func SwaggerUI() fiber.Handler {
	const html = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Timetable Documents API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/swagger/doc.json',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
	return func(c *fiber.Ctx) error {
		return c.Type("html").SendString(html)
	}
}
