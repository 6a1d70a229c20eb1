package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the diary service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>couple-diary — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "couple-diary", "version": "v0.1.0" },
  "paths": {
    "/generate": {
      "post": {
        "summary": "Render uploaded images into a diary page and store it under a fresh slug",
        "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","properties":{"partner1":{"type":"string"},"partner2":{"type":"string"},"images":{"type":"array","items":{"type":"string","format":"binary"}}}}}}},
        "responses": {
          "201": { "description": "diary stored", "content": { "application/json": { "schema": {"type":"object","properties":{"success":{"type":"boolean"},"slug":{"type":"string"},"url":{"type":"string"}}}}}},
          "400": { "description": "invalid upload" },
          "429": { "description": "rate limited" },
          "500": { "description": "failed to generate diary" }
        }
      }
    },
    "/diaries/{slug}": {
      "get": {
        "summary": "Serve a stored diary page",
        "parameters": [ { "name": "slug", "in": "path", "required": true, "schema": {"type":"string"} } ],
        "responses": { "200": { "description": "diary HTML" }, "404": { "description": "diary not found" } }
      }
    },
    "/": { "get": { "summary": "Upload page", "responses": { "200": { "description": "HTML form" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
