package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"timetabledocs/internal/http/middleware"
	"timetabledocs/internal/service"
)

// validationPayload is the 400 body for a rejected record; Fields maps JSON field names to messages.
type validationPayload struct {
	errorPayload
	Fields map[string]string `json:"fields"`
}

// registerCatalog mounts list/create on the group root and read/replace/patch/delete on /:id/.
func registerCatalog[T any](g fiber.Router, svc service.CatalogService[T]) {
	g.Get("/", ListRecords(svc))
	g.Post("/", CreateRecord(svc))
	g.Get("/:id/", GetRecord(svc))
	g.Put("/:id/", ReplaceRecord(svc))
	g.Patch("/:id/", PatchRecord(svc))
	g.Delete("/:id/", DeleteRecord(svc))
}

// catalogDepartment is the department of the verified admin session.
func catalogDepartment(c *fiber.Ctx) (string, bool) {
	claims, ok := c.Locals(middleware.AdminClaimsLocalKey).(*service.AdminClaims)
	if !ok || claims == nil {
		return "", false
	}
	d := strings.TrimSpace(claims.Department)
	return d, d != ""
}

func departmentRequired(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusForbidden, "DEPARTMENT_REQUIRED", "this session is not assigned to a department")
}

func recordID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	_, err := uuid.Parse(id)
	return id, err == nil
}

// ListRecords returns every record of the caller's department.
func ListRecords[T any](svc service.CatalogService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dept, ok := catalogDepartment(c)
		if !ok {
			return departmentRequired(c)
		}
		items, err := svc.List(c.UserContext(), dept)
		if err != nil {
			return catalogError(c, err)
		}
		return c.JSON(items)
	}
}

func GetRecord[T any](svc service.CatalogService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dept, ok := catalogDepartment(c)
		if !ok {
			return departmentRequired(c)
		}
		id, ok := recordID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		item, err := svc.Get(c.UserContext(), dept, id)
		if err != nil {
			return catalogError(c, err)
		}
		return c.JSON(item)
	}
}

// CreateRecord stores a new record in the caller's department. id and department in the body are ignored.
func CreateRecord[T any](svc service.CatalogService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dept, ok := catalogDepartment(c)
		if !ok {
			return departmentRequired(c)
		}
		item := new(T)
		if err := c.BodyParser(item); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		stored, err := svc.Create(c.UserContext(), dept, item)
		if err != nil {
			return catalogError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(stored)
	}
}

// ReplaceRecord overwrites every writable field; omitted fields become zero values.
func ReplaceRecord[T any](svc service.CatalogService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dept, ok := catalogDepartment(c)
		if !ok {
			return departmentRequired(c)
		}
		id, ok := recordID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		item := new(T)
		if err := c.BodyParser(item); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		stored, err := svc.Update(c.UserContext(), dept, id, item)
		if err != nil {
			return catalogError(c, err)
		}
		return c.JSON(stored)
	}
}

// PatchRecord merges the body into the stored record; omitted fields keep their values.
func PatchRecord[T any](svc service.CatalogService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dept, ok := catalogDepartment(c)
		if !ok {
			return departmentRequired(c)
		}
		id, ok := recordID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		item, err := svc.Get(c.UserContext(), dept, id)
		if err != nil {
			return catalogError(c, err)
		}
		if err := c.BodyParser(item); err != nil {
			return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		}
		stored, err := svc.Update(c.UserContext(), dept, id, item)
		if err != nil {
			return catalogError(c, err)
		}
		return c.JSON(stored)
	}
}

func DeleteRecord[T any](svc service.CatalogService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dept, ok := catalogDepartment(c)
		if !ok {
			return departmentRequired(c)
		}
		id, ok := recordID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), dept, id); err != nil {
			return catalogError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func catalogError(c *fiber.Ctx, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(validationPayload{
			errorPayload: errorPayload{RequestID: requestID(c), Code: "VALIDATION_FAILED", Error: "invalid input"},
			Fields:       verr.Fields,
		})
	case errors.Is(err, service.ErrRecordNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "record not found")
	case errors.Is(err, service.ErrDuplicateRecord):
		return writeError(c, fiber.StatusConflict, "CONFLICT", "a record with the same unique value already exists in this department")
	case errors.Is(err, service.ErrDepartmentRequired):
		return departmentRequired(c)
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
