package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	tokens   *TokenManager
	devToken bool
}

// NewHandler creates the auth handler. devTokens enables the token endpoint,
// which must stay off outside local development.
func NewHandler(tokens *TokenManager, devTokens bool) *Handler {
	return &Handler{tokens: tokens, devToken: devTokens}
}

// Ping endpoint
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "auth service alive!"})
}

// Me returns the authenticated actor
func (h *Handler) Me(c *gin.Context) {
	actor, ok := ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": actor})
}

type tokenRequest struct {
	Subject string `json:"subject" binding:"required"`
	Role    Role   `json:"role" binding:"required"`
}

// IssueToken mints a token for local development
func (h *Handler) IssueToken(c *gin.Context) {
	if !h.devToken {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := h.tokens.Issue(req.Subject, req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
