package handler

import (
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

const octetStream = "application/octet-stream"

// UploadFileVersion godoc
// @Summary Upload a new file version
// @Tags versions
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "document id"
// @Param file formData file true "file content"
// @Success 201 {object} model.FileVersion
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/versions/upload [post]
func UploadFileVersion(svc service.FileVersionService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return invalidID(c)
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeServiceError(c, log, &service.InvalidFileError{Reason: service.ReasonEmpty})
		}
		f, err := fh.Open()
		if err != nil {
			return writeServiceError(c, log, &service.InvalidFileError{Reason: service.ReasonIO, Err: err})
		}
		defer f.Close()

		ct := fh.Header.Get(fiber.HeaderContentType)
		if ct == "" || strings.HasPrefix(strings.ToLower(ct), octetStream) {
			detected, err := mimetype.DetectReader(f)
			if err != nil {
				return writeServiceError(c, log, &service.InvalidFileError{Reason: service.ReasonIO, Err: err})
			}
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return writeServiceError(c, log, &service.InvalidFileError{Reason: service.ReasonIO, Err: err})
			}
			ct = detected.String()
		}

		caller, _ := middleware.CurrentIdentity(c)
		v, err := svc.Upload(c.UserContext(), caller, id, service.UploadInput{
			Content:     f,
			FileName:    fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
		})
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}

// VersionHistory godoc
// @Summary List a document's file versions, newest first
// @Tags versions
// @Produce json
// @Security BearerAuth
// @Param id path string true "document id"
// @Success 200 {array} model.FileVersion
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/versions [get]
func VersionHistory(svc service.FileVersionService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return invalidID(c)
		}
		caller, _ := middleware.CurrentIdentity(c)
		versions, err := svc.History(c.UserContext(), caller, id)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(versions)
	}
}

// LatestVersion godoc
// @Summary Get a document's most recent file version
// @Tags versions
// @Produce json
// @Security BearerAuth
// @Param id path string true "document id"
// @Success 200 {object} model.FileVersion
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/versions/latest [get]
func LatestVersion(svc service.FileVersionService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return invalidID(c)
		}
		caller, _ := middleware.CurrentIdentity(c)
		v, err := svc.Latest(c.UserContext(), caller, id)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(v)
	}
}

// DownloadVersion godoc
// @Summary Download the content of a file version
// @Tags versions
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "version id"
// @Success 200 {file} file
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/versions/{id}/download [get]
func DownloadVersion(svc service.FileVersionService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return invalidID(c)
		}
		caller, _ := middleware.CurrentIdentity(c)
		rc, v, err := svc.Download(c.UserContext(), caller, id)
		if err != nil {
			return writeServiceError(c, log, err)
		}

		c.Set(fiber.HeaderContentType, v.ContentType)
		c.Set(fiber.HeaderContentDisposition, contentDisposition(v.FileName))
		// the stream is closed by fasthttp once the body is written
		return c.SendStream(rc, int(v.FileSize))
	}
}

// DeleteVersion godoc
// @Summary Delete a single file version
// @Tags versions
// @Security BearerAuth
// @Param id path string true "version id"
// @Success 204
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /documents/versions/{id} [delete]
func DeleteVersion(svc service.FileVersionService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c, "id")
		if !ok {
			return invalidID(c)
		}
		caller, _ := middleware.CurrentIdentity(c)
		if err := svc.DeleteVersion(c.UserContext(), caller, id); err != nil {
			return writeServiceError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

var dispositionEscaper = strings.NewReplacer(`"`, "_", `\`, "_", "\r", "", "\n", "")

func contentDisposition(name string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, dispositionEscaper.Replace(name))
}
