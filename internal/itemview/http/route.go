package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, middleware ...gin.HandlerFunc) {
	group := g.Group("/items")

	// === Authenticated Routes ===
	group.Use(middleware...)
	{
		group.GET("/:id", h.Get)
		group.POST("/:id/comment", h.PostComment)
	}
}
