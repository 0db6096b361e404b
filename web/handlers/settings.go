package handlers

import (
	"net/http"

	"aigent-client/api"
	"aigent-client/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsHandler covers the profile page: timezone, theme, password
// change and the calendar listing.
type SettingsHandler struct {
	api    *api.Client
	store  session.Store
	logger *zap.Logger
}

func NewSettingsHandler(apiClient *api.Client, store session.Store, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{api: apiClient, store: store, logger: logger}
}

func (h *SettingsHandler) SettingsPage(c *gin.Context) {
	data := gin.H{"Theme": h.store.Get().Theme}
	user, err := h.api.Me(c.Request.Context())
	if err != nil {
		data["Error"] = errorText(err)
	} else {
		data["User"] = user
	}
	c.HTML(http.StatusOK, "settings.html", data)
}

type timezoneRequest struct {
	Timezone string `form:"timezone" json:"timezone"`
}

func (h *SettingsHandler) UpdateTimezone(c *gin.Context) {
	var req timezoneRequest
	if err := c.ShouldBind(&req); err != nil || req.Timezone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Timezone is required"})
		return
	}
	user, err := h.api.UpdateTimezone(c.Request.Context(), req.Timezone)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errorText(err)})
		return
	}
	c.JSON(http.StatusOK, user)
}

type themeRequest struct {
	Theme string `form:"theme" json:"theme"`
}

// UpdateTheme persists the theme preference client-side; it never touches
// the server.
func (h *SettingsHandler) UpdateTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBind(&req); err != nil || (req.Theme != "dark" && req.Theme != "light") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Theme must be dark or light"})
		return
	}
	if err := h.store.SetTheme(req.Theme); err != nil {
		h.logger.Warn("Failed to persist theme", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}

type passwordRequest struct {
	OldPassword  string `form:"old_password" json:"old_password"`
	NewPassword1 string `form:"new_password1" json:"new_password1"`
	NewPassword2 string `form:"new_password2" json:"new_password2"`
}

func (h *SettingsHandler) ChangePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBind(&req); err != nil || req.OldPassword == "" || req.NewPassword1 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All password fields are required"})
		return
	}
	if req.NewPassword1 != req.NewPassword2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The two password fields didn't match."})
		return
	}
	if err := h.api.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword1, req.NewPassword2); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errorText(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Password updated successfully"})
}

// CalendarPage lists upcoming events.
func (h *SettingsHandler) CalendarPage(c *gin.Context) {
	data := gin.H{"Theme": h.store.Get().Theme}
	events, err := h.api.CalendarEvents(c.Request.Context())
	if err != nil {
		data["Error"] = errorText(err)
	} else {
		data["Events"] = events
	}
	c.HTML(http.StatusOK, "calendar.html", data)
}
