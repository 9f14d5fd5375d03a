// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assist

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the assistant endpoints on rg.
//
// Description:
//
//	rg is typically the /v1 group. CORS is permissive because the chat
//	widget is embedded on storefront pages served from other origins.
//
// Endpoints:
//
//	POST /v1/chat - Answer one message
//	GET  /v1/tickets/:id - Look up an escalation ticket
//	POST /v1/admin/reload - Reload knowledge sources
//	GET  /v1/health - Liveness
//	GET  /v1/ready - Readiness with record counts
//
// Example:
//
//	handlers := assist.NewHandlers(engine, registry, store)
//	v1 := router.Group("/v1")
//	assist.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.Use(CORSMiddleware())

	rg.POST("/chat", handlers.HandleChat)
	rg.GET("/tickets/:id", handlers.HandleTicket)

	admin := rg.Group("/admin")
	{
		admin.POST("/reload", handlers.HandleReload)
	}

	rg.GET("/health", handlers.HandleHealth)
	rg.GET("/ready", handlers.HandleReady)

	// Preflight for any path; CORSMiddleware answers it.
	rg.OPTIONS("/*path", func(*gin.Context) {})
}

// CORSMiddleware allows any origin, method and header, and answers
// preflight requests directly.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
