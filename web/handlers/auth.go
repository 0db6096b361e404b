package handlers

import (
	"net/http"

	"aigent-client/api"
	"aigent-client/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler serves the login flow and guards protected pages.
type AuthHandler struct {
	api    *api.Client
	store  session.Store
	logger *zap.Logger
}

func NewAuthHandler(apiClient *api.Client, store session.Store, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{api: apiClient, store: store, logger: logger}
}

// RequireLogin redirects unauthenticated page requests to the login page.
// An absent access token means every protected call is unauthenticated.
func (h *AuthHandler) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.store.Get().Authenticated() {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Root sends the user to the chat or the login page.
func (h *AuthHandler) Root(c *gin.Context) {
	if h.store.Get().Authenticated() {
		c.Redirect(http.StatusFound, "/chat")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Theme": h.store.Get().Theme,
	})
}

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil || req.Username == "" || req.Password == "" {
		c.HTML(http.StatusBadRequest, "login.html", gin.H{"Error": "Username and password are required."})
		return
	}

	if err := h.api.Login(c.Request.Context(), req.Username, req.Password); err != nil {
		h.logger.Warn("Login failed", zap.String("username", req.Username), zap.Error(err))
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{"Error": "Login failed. Check your credentials and try again."})
		return
	}
	c.Redirect(http.StatusFound, "/chat")
}

// Logout clears the stored tokens. Server-side token revocation is out of
// scope; the refresh token simply ages out.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.store.Clear(); err != nil {
		h.logger.Warn("Failed to clear session on logout", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/login")
}
