// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o internal/docs --parseInternal
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health": {"get": {"tags": ["System"], "summary": "Health check", "produces": ["application/json"],
            "responses": {"200": {"description": "OK"}, "503": {"description": "A dependency is unhealthy"}}}},
        "/api/missions/regular": {"get": {"tags": ["Missions"], "summary": "List open scheduled missions", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}},
        "/api/missions/event": {"get": {"tags": ["Missions"], "summary": "List open event missions", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}},
        "/api/missions/{missionId}": {"get": {"tags": ["Missions"], "summary": "Get mission detail", "security": [{"BearerAuth": []}],
            "parameters": [{"name": "missionId", "in": "path", "required": true, "type": "integer"}],
            "responses": {"200": {"description": "OK"}, "404": {"description": "Mission not found"}}}},
        "/api/missions/{missionId}/submit": {"post": {"tags": ["Missions"], "summary": "Submit proof for a mission", "security": [{"BearerAuth": []}],
            "consumes": ["multipart/form-data"],
            "parameters": [{"name": "missionId", "in": "path", "required": true, "type": "integer"},
                {"name": "file", "in": "formData", "required": false, "type": "file"}],
            "responses": {"201": {"description": "Created"}, "409": {"description": "Already submitted or mission closed"},
                "429": {"description": "Rate limited"}, "503": {"description": "Storage unavailable, retry"}}}},
        "/api/missions/pending": {"get": {"tags": ["Missions"], "summary": "List the caller's pending submissions", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}},
        "/api/missions/history": {"get": {"tags": ["Missions"], "summary": "List the caller's reviewed submissions", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}},
        "/api/missions/history/{participationId}": {"get": {"tags": ["Missions"], "summary": "Get one of the caller's submissions", "security": [{"BearerAuth": []}],
            "parameters": [{"name": "participationId", "in": "path", "required": true, "type": "integer"}],
            "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/api/admin/missions/regular": {"post": {"tags": ["Admin"], "summary": "Create a scheduled mission template", "security": [{"BearerAuth": []}],
            "consumes": ["application/json"],
            "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTemplateRequest"}}],
            "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error or unknown category"}}}},
        "/api/admin/missions/event": {"post": {"tags": ["Admin"], "summary": "Create a dated event mission", "security": [{"BearerAuth": []}],
            "consumes": ["application/json", "multipart/form-data"],
            "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEventMissionRequest"}}],
            "responses": {"201": {"description": "Created"}, "409": {"description": "start_date after deadline"}}}},
        "/api/admin/missions/deadline": {"get": {"tags": ["Admin"], "summary": "List open missions by deadline", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}},
        "/api/admin/missions/termination": {"get": {"tags": ["Admin"], "summary": "List closed missions with every submission reviewed", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}},
        "/api/admin/missions/pending": {"get": {"tags": ["Admin"], "summary": "List missions with submissions awaiting review", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}},
        "/api/admin/missions/category": {"get": {"tags": ["Admin"], "summary": "List mission categories with their icons", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}},
        "/api/admin/missions/request/{missionId}": {"get": {"tags": ["Admin"], "summary": "List pending submissions of a mission", "security": [{"BearerAuth": []}],
            "parameters": [{"name": "missionId", "in": "path", "required": true, "type": "integer"}],
            "responses": {"200": {"description": "OK"}, "404": {"description": "Mission not found"}}}},
        "/api/admin/missions/request/approve/{participationId}": {"patch": {"tags": ["Admin"], "summary": "Approve a pending submission and credit its points", "security": [{"BearerAuth": []}],
            "parameters": [{"name": "participationId", "in": "path", "required": true, "type": "integer"}],
            "responses": {"200": {"description": "OK"}, "409": {"description": "Submission already reviewed"}}}},
        "/api/admin/missions/request/reject/{participationId}": {"patch": {"tags": ["Admin"], "summary": "Reject a pending submission", "security": [{"BearerAuth": []}],
            "parameters": [{"name": "participationId", "in": "path", "required": true, "type": "integer"}],
            "responses": {"200": {"description": "OK"}, "409": {"description": "Submission already reviewed"}}}},
        "/api/admin/jobs/{job}": {"get": {"tags": ["Jobs"], "summary": "Get the last report of a lifecycle job", "security": [{"BearerAuth": []}],
            "parameters": [{"name": "job", "in": "path", "required": true, "type": "string", "enum": ["materialize", "close", "open"]}],
            "responses": {"200": {"description": "OK"}, "404": {"description": "Job has not run"}}}},
        "/api/admin/jobs/{job}/run": {"post": {"tags": ["Jobs"], "summary": "Run a lifecycle job now", "security": [{"BearerAuth": []}],
            "parameters": [{"name": "job", "in": "path", "required": true, "type": "string", "enum": ["materialize", "close", "open"]}],
            "responses": {"200": {"description": "OK"}}}}
    },
    "definitions": {
        "CreateTemplateRequest": {"type": "object", "required": ["title", "point_value", "category"],
            "properties": {"title": {"type": "string"}, "content": {"type": "string"}, "point_value": {"type": "integer"},
                "category": {"type": "string", "enum": ["PUBLIC_TRANSPORTATION", "TUMBLER", "RECYCLING", "ETC"]}}},
        "CreateEventMissionRequest": {"type": "object", "required": ["title", "point_value", "category", "start_date", "deadline"],
            "properties": {"title": {"type": "string"}, "content": {"type": "string"}, "point_value": {"type": "integer"},
                "category": {"type": "string", "enum": ["PUBLIC_TRANSPORTATION", "TUMBLER", "RECYCLING", "ETC"]},
                "start_date": {"type": "string", "format": "date"}, "deadline": {"type": "string", "format": "date"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "EcoMission API",
	Description:      "Campus eco-mission engine: missions, submissions and approvals.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
