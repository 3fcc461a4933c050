package handler

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/http/middleware"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/service"
)

// The spec is embedded so /openapi.yaml works regardless of the working
// directory the binary was launched from.
//
//go:embed openapi.yaml
var openAPISpec []byte

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal and free of business logic.
func RegisterRoutes(app *fiber.App, apiKey string, svc service.DeclarationService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.Send(openAPISpec)
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health checks are always exempt from the access gate.
	app.Get("/ping", Ping())
	app.Get("/healthz", LivenessProbe())

	app.Post("/generate", middleware.APIKey(apiKey), GenerateDeclaration(svc))

	// Downloads are capability-based: possession of the unguessable token
	// is the only credential.
	app.Get("/download/:kind/:token", DownloadArtifact(svc))
}

// Ping is the unauthenticated health check.
func Ping() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "message": "backend LMNP up"})
	}
}

// LivenessProbe is a bare liveness endpoint for orchestrators.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// GenerateDeclaration accepts a generation request and responds with the
// two download URLs.
func GenerateDeclaration(svc service.DeclarationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req model.GenerationRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		}

		res, err := svc.Generate(c.UserContext(), req)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrDeclarationIDRequired),
				errors.Is(err, service.ErrDataRequired),
				errors.Is(err, service.ErrInvalidDeclarationID):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			default:
				return writeError(c, fiber.StatusInternalServerError, "GENERATION_FAILED", "internal server error")
			}
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"ok":       true,
			"pdfUrl":   res.PDFURL,
			"excelUrl": res.ExcelURL,
		})
	}
}

// DownloadArtifact streams a generated artifact back to the holder of a
// valid, unexpired token of the matching kind.
func DownloadArtifact(svc service.DeclarationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := model.ParseArtifactKind(c.Params("kind"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", "kind must be pdf or excel")
		}

		dl, err := svc.Download(c.UserContext(), kind, c.Params("token"))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTokenNotFound):
				return writeError(c, fiber.StatusNotFound, "TOKEN_NOT_FOUND", "unknown download token")
			case errors.Is(err, service.ErrTokenExpired):
				return writeError(c, fiber.StatusGone, "TOKEN_EXPIRED", "download token expired")
			case errors.Is(err, service.ErrKindMismatch):
				return writeError(c, fiber.StatusBadRequest, "KIND_MISMATCH", "token does not match requested kind")
			default:
				return writeError(c, fiber.StatusInternalServerError, "STREAMING_FAILURE", "artifact unavailable")
			}
		}

		c.Set(fiber.HeaderContentType, dl.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", dl.Filename))
		return c.SendStream(dl.Content, int(dl.Size))
	}
}
