package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes registers Auth routes
func RegisterRoutes(rg *gin.RouterGroup, handler *Handler) {
	authGroup := rg.Group("/auth")
	{
		authGroup.GET("/ping", handler.Ping)
		authGroup.POST("/token", handler.IssueToken)
		authGroup.GET("/me", Middleware(handler.tokens), handler.Me)
	}
}
