package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency the readiness check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthCheck describes one probed dependency. Optional dependencies only degrade the
// overall status; a required one that fails turns the response into a 503.
type HealthCheck struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health godoc
// @Summary Readiness probe
// @Tags ops
// @Produce json
// @Success 200 {object} healthResponse
// @Failure 503 {object} errorPayload
// @Router /health [get]
func Health(checks ...HealthCheck) fiber.Handler {
	sorted := append([]HealthCheck(nil), checks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		res := healthResponse{Status: "healthy", Checks: make(map[string]string, len(sorted))}
		var failed string
		for _, hc := range sorted {
			if err := hc.Pinger.Ping(ctx); err != nil {
				res.Checks[hc.Name] = "down"
				if hc.Optional {
					res.Status = "degraded"
				} else if failed == "" {
					failed = hc.Name
				}
				continue
			}
			res.Checks[hc.Name] = "up"
		}

		if failed != "" {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", failed+" unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(res)
	}
}

// LivenessProbe answers 200 while the process serves requests.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// AuthHealth godoc
// @Summary Auth service liveness
// @Tags auth
// @Produce plain
// @Success 200 {string} string
// @Router /auth/health [get]
func AuthHealth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendString("Auth service is running")
	}
}
