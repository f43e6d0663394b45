package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(tokens *TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	admin := r.Group("/admin", Middleware(tokens), RequireRole(RoleAdmin))
	admin.GET("/ping", func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"actor": actor.Label()})
	})
	return r
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("secret", "listing-portal", time.Hour)
	raw, err := tokens.Issue("u-1", RoleSeller)
	require.NoError(t, err)

	actor, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: "u-1", Role: RoleSeller}, actor)

	_, err = NewTokenManager("other", "listing-portal", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	_, err := NewTokenManager("secret", "listing-portal", time.Hour).Issue("u-1", "root")
	assert.Error(t, err)
}

func TestMiddlewareEnforcesAdminRole(t *testing.T) {
	tokens := NewTokenManager("secret", "listing-portal", time.Hour)
	r := newTestRouter(tokens)

	cases := []struct {
		name   string
		role   Role
		header string
		want   int
	}{
		{name: "missing token", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "seller", role: RoleSeller, want: http.StatusForbidden},
		{name: "admin", role: RoleAdmin, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			header := tc.header
			if tc.role != "" {
				raw, err := tokens.Issue("u-1", tc.role)
				require.NoError(t, err)
				header = "Bearer " + raw
			}
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestActorLabel(t *testing.T) {
	assert.Equal(t, "admin:a-9", Actor{ID: "a-9", Role: RoleAdmin}.Label())
	assert.Equal(t, "system", Actor{Role: RoleSystem}.Label())
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	tokens := NewTokenManager("secret", "listing-portal", time.Hour)
	raw, err := tokens.Issue("admin-1", RoleAdmin)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping?access_token="+raw, nil)
	newTestRouter(tokens).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin:admin-1")
}
