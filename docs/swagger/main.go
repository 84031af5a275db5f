//go:build swagger
// +build swagger

// ⚠️ DOCUMENTATION GENERATION ONLY - NOT RUNTIME CODE
// This file is used solely for OpenAPI spec generation

// Package docs provides OpenAPI/Swagger documentation for the Context Engine API
package docs

// @title Context Engine API
// @version 1.0
// @description Case-scoped context assembly for legal documents: five-dimensional WHO/WHAT/WHERE/WHEN/WHY context records composed from a knowledge graph and the case store, served through a multi-tier cache.

// @contact.name API Support Team
// @contact.email support@contextengine.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8015
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token

// @schemes http https
