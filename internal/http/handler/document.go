package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

// pathID returns the named path parameter when it is a UUID.
func pathID(c *fiber.Ctx, name string) (string, bool) {
	id := c.Params(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
}

// queryInt parses an optional integer query parameter.
func queryInt(c *fiber.Ctx, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &service.ValidationError{Field: name, Message: "must be an integer"}
	}
	return n, nil
}

// CreateDocument godoc
// @Summary Create a document
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateDocumentRequest true "document"
// @Success 201 {object} model.Document
// @Failure 400 {object} errorPayload
// @Router /documents [post]
func CreateDocument(svc service.DocumentService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req service.CreateDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		}
		caller, _ := middleware.CurrentIdentity(c)
		doc, err := svc.Create(c.UserContext(), caller, req)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ListDocuments godoc
// @Summary List the caller's documents
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param page query int false "0-based page"
// @Param size query int false "page size (max 100)"
// @Param sortBy query string false "createdAt, updatedAt, title or status"
// @Param direction query string false "ASC or DESC"
// @Param title query string false "title contains (case-insensitive)"
// @Param status query string false "DRAFT, PUBLISHED or ARCHIVED"
// @Success 200 {object} service.DocumentListResult
// @Failure 400 {object} errorPayload
// @Router /documents [get]
func ListDocuments(svc service.DocumentService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := queryInt(c, "page")
		if err != nil {
			return writeServiceError(c, log, err)
		}
		size, err := queryInt(c, "size")
		if err != nil {
			return writeServiceError(c, log, err)
		}

		caller, _ := middleware.CurrentIdentity(c)
		res, err := svc.List(c.UserContext(), caller,
			service.ListFilter{Title: c.Query("title"), Status: c.Query("status")},
			service.PageRequest{
				Page:      page,
				Size:      size,
				Sort:      c.Query("sortBy"),
				Direction: c.Query("direction"),
			})
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(res)
	}
}

// GetDocument godoc
// @Summary Get a document
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "document id"
// @Success 200 {object} model.Document
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [get]
func GetDocument(svc service.DocumentService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return invalidID(c)
		}
		caller, _ := middleware.CurrentIdentity(c)
		doc, err := svc.Get(c.UserContext(), caller, id)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(doc)
	}
}

// UpdateDocument godoc
// @Summary Replace a document's title, description and tags
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "document id"
// @Param body body service.UpdateDocumentRequest true "document"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [put]
func UpdateDocument(svc service.DocumentService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return invalidID(c)
		}
		var req service.UpdateDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		}
		caller, _ := middleware.CurrentIdentity(c)
		doc, err := svc.Update(c.UserContext(), caller, id, req)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(doc)
	}
}

// ChangeDocumentStatus godoc
// @Summary Move a document to another lifecycle status
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "document id"
// @Param status query string true "DRAFT, PUBLISHED or ARCHIVED"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/status [put]
func ChangeDocumentStatus(svc service.DocumentService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return invalidID(c)
		}
		status, err := model.ParseStatus(c.Query("status"))
		if err != nil {
			return writeServiceError(c, log, &service.ValidationError{
				Field:   "status",
				Message: "must be one of DRAFT, PUBLISHED, ARCHIVED",
			})
		}
		caller, _ := middleware.CurrentIdentity(c)
		doc, err := svc.ChangeStatus(c.UserContext(), caller, id, status)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument godoc
// @Summary Delete a document with all its file versions
// @Tags documents
// @Security BearerAuth
// @Param id path string true "document id"
// @Success 204
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [delete]
func DeleteDocument(svc service.DocumentService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return invalidID(c)
		}
		caller, _ := middleware.CurrentIdentity(c)
		if err := svc.Delete(c.UserContext(), caller, id); err != nil {
			return writeServiceError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
