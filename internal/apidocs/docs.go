// Package apidocs registers the OpenAPI document with swag. Regenerate with
// `swag init -g cmd/privgate/docs.go -o internal/apidocs --outputTypes go`.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health": {"get": {"tags": ["system"], "summary": "Liveness and dependency report", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}}}},
        "/query": {"post": {"security": [{"BearerAuth": []}], "tags": ["reasoning"], "summary": "Sanitize free text into a reasoning request",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.QueryRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ReasoningRequest"}},
                "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/reason": {"post": {"security": [{"BearerAuth": []}], "tags": ["reasoning"], "summary": "Reason on the configured path",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ReasoningRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ReasoningResponse"}},
                "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ReasoningResponse"}}}}},
        "/reason_local": {"post": {"security": [{"BearerAuth": []}], "tags": ["reasoning"], "summary": "Reason with the active, verified local model",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ReasoningRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ReasoningResponse"}},
                "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/verify": {"post": {"security": [{"BearerAuth": []}], "tags": ["reasoning"], "summary": "Check a reasoning response for well-formedness",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ReasoningResponse"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.VerifyResponse"}}}}},
        "/models": {"get": {"security": [{"BearerAuth": []}], "tags": ["models"], "summary": "List models from the trust registry", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}},
                "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/models/active": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["models"], "summary": "Show the active local model", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActiveModelResponse"}}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["models"], "summary": "Select the active local model",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ActiveModelRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActiveModelResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/models/verify": {"post": {"security": [{"BearerAuth": []}], "tags": ["models"], "summary": "Verify or repair a model artifact",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "body", "schema": {"$ref": "#/definitions/types.VerifyModelRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.VerificationResponse"}},
                "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.VerificationResponse"}}}}},
        "/store": {"post": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "Append a record to the audit ledger",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.StoreRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StoreResponse"}}}}},
        "/audit/verify": {"get": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "Verify the audit ledger hash chain", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AuditVerifyResponse"}}}}}
    },
    "definitions": {
        "types.QueryRequest": {"type": "object", "properties": {
            "text": {"type": "string", "example": "Explain liability under Art. 1218"},
            "files": {"type": "array", "items": {"type": "string"}}}},
        "types.ReasoningRequest": {"type": "object", "properties": {
            "prompt": {"type": "string", "example": "Summarize contract X"},
            "context": {"type": "array", "items": {"type": "string"}}}},
        "types.ReasoningResponse": {"type": "object", "properties": {
            "summary": {"type": "string"},
            "citations": {"type": "array", "items": {"type": "string"}},
            "error_kind": {"type": "string", "example": "upstream_timeout"}}},
        "types.VerifyResponse": {"type": "object", "properties": {
            "valid": {"type": "boolean"}, "reason": {"type": "string", "example": "Response appears valid"}}},
        "types.ErrorResponse": {"type": "object", "properties": {
            "error": {"type": "string"}, "kind": {"type": "string", "example": "validation_error"},
            "field": {"type": "string"}, "code": {"type": "integer", "example": 400}}},
        "types.CheckResult": {"type": "object", "properties": {
            "status": {"type": "string"}, "message": {"type": "string"}, "response_time_ms": {"type": "integer"}}},
        "types.HealthResponse": {"type": "object", "properties": {
            "status": {"type": "string", "example": "healthy"}, "timestamp": {"type": "string"},
            "version": {"type": "string"}, "uptime_seconds": {"type": "integer"}, "mode": {"type": "string", "example": "local"},
            "checks": {"type": "object", "additionalProperties": {"$ref": "#/definitions/types.CheckResult"}}}},
        "types.Model": {"type": "object", "properties": {
            "id": {"type": "string"}, "name": {"type": "string"}, "filename": {"type": "string"}, "sha256": {"type": "string"},
            "trusted": {"type": "boolean"}, "present": {"type": "boolean"}, "active": {"type": "boolean"}}},
        "types.ModelsResponse": {"type": "object", "properties": {
            "registry_cid": {"type": "string"}, "models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}}},
        "types.ActiveModelRequest": {"type": "object", "properties": {"model": {"type": "string", "example": "phi-3-mini"}}},
        "types.ActiveModelResponse": {"type": "object", "properties": {
            "set": {"type": "boolean"}, "model": {"type": "string"}, "verified": {"type": "boolean"}}},
        "types.VerifyModelRequest": {"type": "object", "properties": {"model": {"type": "string"}}},
        "types.VerificationResponse": {"type": "object", "properties": {
            "outcome": {"type": "string", "example": "verified"}, "model": {"type": "string"}, "digest": {"type": "string"},
            "old_digest": {"type": "string"}, "reason": {"type": "string"}}},
        "types.StoreRequest": {"type": "object", "properties": {
            "action": {"type": "string", "example": "store"}, "payload": {"type": "object"}}},
        "types.StoreResponse": {"type": "object", "properties": {
            "status": {"type": "string", "example": "stored"}, "id": {"type": "string"}, "chain_hash": {"type": "string"}}},
        "types.AuditVerifyResponse": {"type": "object", "properties": {
            "valid": {"type": "boolean"}, "records": {"type": "integer"}, "reason": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "privgate API",
	Description:      "Local privacy gateway: sanitized reasoning, trusted local models, tamper-evident audit.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
