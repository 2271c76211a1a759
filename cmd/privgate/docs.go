package main

// General API documentation for swaggo. Regenerate internal/apidocs with
// `swag init -g cmd/privgate/docs.go -o internal/apidocs --outputTypes go`.
//
// @title           privgate API
// @version         1.0
// @description     Local privacy gateway: sanitized reasoning, trusted local models, tamper-evident audit.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
//
// @schemes http
