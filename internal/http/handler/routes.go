package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"docvault/docs"
	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Auth      service.AuthService
	Documents service.DocumentService
	Versions  service.FileVersionService
	Health    []HealthCheck
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Log      zerolog.Logger
}

// RegisterRoutes attaches all HTTP routes to app. The authentication gate must already
// be installed; document routes additionally require an identity.
func RegisterRoutes(app *fiber.App, d Dependencies) {
	log := d.Log

	app.Get("/health", Health(d.Health...))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		docs.SwaggerInfo.Host = c.Get(fiber.HeaderHost)
		docs.SwaggerInfo.Schemes = []string{scheme}
		return swagger.HandlerDefault(c)
	})

	authGroup := app.Group("/auth")
	authGroup.Post("/register", Register(d.Auth, log))
	authGroup.Post("/login", Login(d.Auth, log))
	authGroup.Get("/health", AuthHealth())

	documents := app.Group("/documents", middleware.RequireIdentity())
	documents.Post("/", CreateDocument(d.Documents, log))
	documents.Get("/", ListDocuments(d.Documents, log))

	documents.Get("/versions/:id/download", DownloadVersion(d.Versions, log))
	documents.Delete("/versions/:id", DeleteVersion(d.Versions, log))

	documents.Get("/:id", GetDocument(d.Documents, log))
	documents.Put("/:id", UpdateDocument(d.Documents, log))
	documents.Delete("/:id", DeleteDocument(d.Documents, log))
	documents.Put("/:id/status", ChangeDocumentStatus(d.Documents, log))
	documents.Post("/:id/versions/upload", UploadFileVersion(d.Versions, log))
	documents.Get("/:id/versions", VersionHistory(d.Versions, log))
	documents.Get("/:id/versions/latest", LatestVersion(d.Versions, log))
}
