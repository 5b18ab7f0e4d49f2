package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the club API.
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
    <title>clubsite API</title>
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
  "info": { "title": "clubsite", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Fail": { "type": "object", "properties": { "status": { "type": "string", "example": "fail" }, "error": { "type": "string" } } }
    }
  },
  "paths": {
    "/api/auth/google": {
      "post": {
        "summary": "Sign in with a Google ID token",
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "token": { "type": "string" } } } } } },
        "responses": { "200": { "description": "{status, user, token}" }, "400": { "description": "invalid credential, domain or blocked" } }
      }
    },
    "/api/auth/login": {
      "post": {
        "summary": "Password sign-in",
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "email": { "type": "string" }, "password": { "type": "string" } } } } } },
        "responses": { "200": { "description": "{status, user, token}" }, "401": { "description": "invalid credentials" }, "403": { "description": "blocked" } }
      }
    },
    "/api/auth/logout": {
      "post": { "summary": "Revoke the presented session token", "security": [{ "bearer": [] }], "responses": { "200": { "description": "logged out" } } }
    },
    "/api/user": {
      "post": {
        "summary": "Register",
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "email": { "type": "string" }, "name": { "type": "string" }, "password": { "type": "string" }, "level": { "type": "string" } } } } } },
        "responses": { "200": { "description": "registered" }, "400": { "description": "domain, duplicate or blocked" } }
      }
    },
    "/api/user/me": { "get": { "summary": "Current user", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{status, user}" }, "401": { "description": "missing or invalid token" }, "403": { "description": "blocked" } } } },
    "/api/user/all": { "get": { "summary": "List users", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{status, users}" }, "403": { "description": "not admin" } } } },
    "/api/user/level": {
      "put": {
        "summary": "Change a user's level",
        "security": [{ "bearer": [] }],
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "targetUserId": { "type": "string" }, "targetEmail": { "type": "string" }, "level": { "type": "string", "enum": ["admin", "customer"] } } } } } },
        "responses": { "200": { "description": "{status, message, user}" }, "400": { "description": "self change or unchanged" }, "404": { "description": "user not found" } }
      }
    },
    "/api/user/block": { "post": { "summary": "Block an email", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{status, data}" } } } },
    "/api/user/unblock": { "post": { "summary": "Unblock an email", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{status, message}" } } } },
    "/api/user/blocked": { "get": { "summary": "List blocked emails", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{status, data}" } } } },
    "/api/admin/data/projects": {
      "get": { "summary": "List projects", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{status, data}" } } },
      "put": { "summary": "Replace all projects", "security": [{ "bearer": [] }], "responses": { "200": { "description": "replaced" } } },
      "post": { "summary": "Create a project", "security": [{ "bearer": [] }], "responses": { "200": { "description": "created" }, "409": { "description": "duplicate id" } } }
    },
    "/api/admin/data/projects/{id}": {
      "put": { "summary": "Patch a project", "security": [{ "bearer": [] }], "responses": { "200": { "description": "updated" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a project", "security": [{ "bearer": [] }], "responses": { "200": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/api/admin/data/study": {
      "get": { "summary": "Get the study page", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{status, data}" } } },
      "put": { "summary": "Merge into the study page", "security": [{ "bearer": [] }], "responses": { "200": { "description": "updated" } } }
    },
    "/api/admin/data/regular-study": {
      "get": { "summary": "List regular studies", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{status, data}" } } },
      "put": { "summary": "Replace all regular studies", "security": [{ "bearer": [] }], "responses": { "200": { "description": "replaced" } } },
      "post": { "summary": "Create a regular study", "security": [{ "bearer": [] }], "responses": { "200": { "description": "created" } } }
    },
    "/api/admin/data/regular-study/{id}": {
      "put": { "summary": "Patch a regular study", "security": [{ "bearer": [] }], "responses": { "200": { "description": "updated" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a regular study", "security": [{ "bearer": [] }], "responses": { "200": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/api/admin/data/images": { "post": { "summary": "Upload a content image (multipart field file)", "security": [{ "bearer": [] }], "responses": { "200": { "description": "{status, data: {key, path}}" } } } },
    "/api/public/projects": { "get": { "summary": "Public project list", "responses": { "200": { "description": "{status, data}" } } } },
    "/api/public/study": { "get": { "summary": "Public study page", "responses": { "200": { "description": "{status, data}" } } } },
    "/api/public/regular-study": { "get": { "summary": "Public regular study list", "responses": { "200": { "description": "{status, data}" } } } },
    "/api/public/images/{key}": { "get": { "summary": "Redirect to a presigned image URL", "responses": { "307": { "description": "redirect" }, "404": { "description": "not found" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
