package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"docvault/internal/service"
)

// Register godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body service.RegisterRequest true "account"
// @Success 201 {object} service.AuthResponse
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /auth/register [post]
func Register(svc service.AuthService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req service.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		}
		res, err := svc.Register(c.UserContext(), req)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// Login godoc
// @Summary Exchange credentials for a token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body service.LoginRequest true "credentials"
// @Success 200 {object} service.AuthResponse
// @Failure 401 {object} errorPayload
// @Router /auth/login [post]
func Login(svc service.AuthService, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req service.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		}
		res, err := svc.Login(c.UserContext(), req)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(res)
	}
}
