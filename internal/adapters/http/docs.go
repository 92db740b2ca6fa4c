package http

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
)

// OpenAPIPath is where the API description is read from, relative to the working directory.
var OpenAPIPath = "api/openapi.yaml"

// apiDoc is the OpenAPI document, read and validated on first use.
type apiDoc struct {
	path string

	once  sync.Once
	raw   []byte
	json  []byte
	title string
	err   error
}

func (d *apiDoc) load() error {
	d.once.Do(func() {
		raw, err := os.ReadFile(d.path)
		if err != nil {
			d.err = err
			return
		}
		doc, err := openapi3.NewLoader().LoadFromData(raw)
		if err != nil {
			d.err = fmt.Errorf("parse %s: %w", d.path, err)
			return
		}
		asJSON, err := json.Marshal(doc)
		if err != nil {
			d.err = fmt.Errorf("encode %s: %w", d.path, err)
			return
		}
		d.raw, d.json = raw, asJSON
		d.title = "API"
		if doc.Info != nil && doc.Info.Title != "" {
			d.title = doc.Info.Title
		}
	})
	return d.err
}

// swaggerPage renders Swagger UI for the document at docURL.
func swaggerPage(title, docURL string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>` + html.EscapeString(title) + `</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>SwaggerUIBundle({url: '` + docURL + `', dom_id: '#swagger-ui', deepLinking: true});</script>
</body>
</html>`
}

// SetupDocs registers Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml and /docs/openapi.json. A missing or invalid document
// answers 404 on every docs route.
func SetupDocs(app *fiber.App) {
	doc := &apiDoc{path: OpenAPIPath}

	unavailable := func(c *fiber.Ctx, err error) error {
		LoggerFromCtx(c.UserContext()).Warn("api docs unavailable", "path", doc.path, "error", err)
		return errNotFound(c, "API documentation not available")
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		if err := doc.load(); err != nil {
			return unavailable(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(swaggerPage(doc.title, "/docs/openapi.json"))
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if err := doc.load(); err != nil {
			return unavailable(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(doc.raw)
	})

	app.Get("/docs/openapi.json", func(c *fiber.Ctx) error {
		if err := doc.load(); err != nil {
			return unavailable(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(doc.json)
	})
}
