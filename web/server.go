package web

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"aigent-client/api"
	"aigent-client/chat"
	"aigent-client/config"
	"aigent-client/session"
	"aigent-client/web/format"
	"aigent-client/web/handlers"
	"aigent-client/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

type Server struct {
	router *gin.Engine
	chat   *handlers.ChatHandler
	logger *zap.Logger
	config *config.Config
}

func NewServer(apiClient *api.Client, engine *chat.Engine, store session.Store, logger *zap.Logger, cfg *config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Set("logger", logger)
		c.Next()
	})

	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	widgets, err := services.NewWidgetService(cfg.WidgetCacheSize, logger)
	if err != nil {
		return nil, err
	}
	stream := services.NewStreamService(logger)
	renderer := format.NewRenderer(widgets, logger)

	chatHandler := handlers.NewChatHandler(apiClient, engine, renderer, stream, store, logger)
	authHandler := handlers.NewAuthHandler(apiClient, store, logger)
	settingsHandler := handlers.NewSettingsHandler(apiClient, store, logger)
	widgetHandler := handlers.NewWidgetHandler(widgets, logger)

	server := &Server{
		router: router,
		chat:   chatHandler,
		logger: logger,
		config: cfg,
	}

	// A failed refresh forces the next page load back to login; the
	// middleware below picks it up once the store is cleared.
	apiClient.OnSessionExpired(func() {
		logger.Info("Session expired, next page load redirects to login")
	})

	server.setupRoutes(authHandler, chatHandler, settingsHandler, widgetHandler)
	return server, nil
}

func (s *Server) setupRoutes(auth *handlers.AuthHandler, chat *handlers.ChatHandler, settings *handlers.SettingsHandler, widget *handlers.WidgetHandler) {
	staticRoot, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: static assets missing from embed: " + err.Error())
	}
	s.router.StaticFS("/static", http.FS(staticRoot))

	s.router.GET("/", auth.Root)
	s.router.GET("/login", auth.LoginPage)
	s.router.POST("/login", auth.Login)
	s.router.POST("/logout", auth.Logout)

	protected := s.router.Group("/", auth.RequireLogin())
	{
		protected.GET("/chat", chat.ChatPage)
		protected.POST("/chat/send", chat.Send)
		protected.GET("/chat/stream", chat.Stream)
		protected.POST("/chat/cancel", chat.CancelAll)
		protected.DELETE("/chat/history", chat.ClearHistory)

		protected.GET("/aigents", chat.ListAigents)
		protected.POST("/aigents/switch", chat.SwitchAigent)

		protected.GET("/settings", settings.SettingsPage)
		protected.POST("/settings/timezone", settings.UpdateTimezone)
		protected.POST("/settings/theme", settings.UpdateTheme)
		protected.POST("/settings/password", settings.ChangePassword)
		protected.GET("/calendar", settings.CalendarPage)

		protected.GET("/widgets/:id/content", widget.Content)
		protected.GET("/widgets/:id/source", widget.Source)
		protected.POST("/widgets/:id/minimize", widget.Minimize)
		protected.POST("/widgets/:id/restore", widget.Restore)
		protected.POST("/widgets/:id/refresh", widget.Refresh)
	}
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web client", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()

	s.logger.Info("Shutting down web client")
	return srv.Shutdown(context.Background())
}
