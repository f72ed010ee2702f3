package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/pders01/feeds/internal/auth"
	"github.com/pders01/feeds/internal/config"
	"github.com/pders01/feeds/internal/debuglog"
	"github.com/pders01/feeds/internal/feed"
	"github.com/pders01/feeds/internal/search"
	"github.com/pders01/feeds/internal/storage"
	"github.com/pders01/feeds/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Config        *config.Config
	Aggregator    *feed.Aggregator
	Users         *storage.UserRepository
	Feeds         *storage.FeedRepository
	Sessions      *auth.SessionManager
	Authenticator *auth.Authenticator
	// Search is nil when search is disabled
	Search *search.Index
}

type Server struct {
	cfg        *config.Config
	aggregator *feed.Aggregator
	users      *storage.UserRepository
	feeds      *storage.FeedRepository
	sessions   *auth.SessionManager
	authn      *auth.Authenticator
	search     *search.Index
	cookies    auth.Cookies

	engine *gin.Engine
}

var registerValidatorOnce sync.Once

func NewServer(d Deps) *Server {
	registerValidatorOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.UseJSONFieldNames(v)
			if err := validation.RegisterMaxBytes(v); err != nil {
				debuglog.Errorf("registering maxbytes validator: %v", err)
			}
		}
	})

	s := &Server{
		cfg:        d.Config,
		aggregator: d.Aggregator,
		users:      d.Users,
		feeds:      d.Feeds,
		sessions:   d.Sessions,
		authn:      d.Authenticator,
		search:     d.Search,
		cookies: auth.Cookies{
			Name:   d.Config.Auth.CookieName,
			MaxAge: d.Config.Auth.MaxAge,
			Secure: d.Config.Server.Production,
		},
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	if s.cfg.Server.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	g := gin.New()
	g.Use(requestLogger(), recovery())

	g.NoRoute(func(c *gin.Context) {
		JSONError(c, http.StatusNotFound, ErrorCodeNotFound, "Not found")
	})

	timeout := s.cfg.Server.HandlerTimeout
	gate := auth.RequireSession(s.sessions, s.cookies)

	g.GET("/healthz", healthHandler)

	authGroup := g.Group("/auth")
	{
		authGroup.POST("/signup", s.signup)
		authGroup.POST("/session", withTimeout(timeout, s.signIn))
		authGroup.GET("/session", gate, s.currentSession)
		authGroup.DELETE("/session", s.signOut)
	}

	news := g.Group("/news")
	{
		news.GET("/public", withTimeout(timeout, s.publicNews))
		news.GET("/categories", withTimeout(timeout, s.categories))
		news.GET("/search", withTimeout(timeout, s.searchNews))

		private := news.Group("/private", gate)
		private.GET("", s.listPrivateFeeds)
		private.POST("", withTimeout(timeout, s.addPrivateFeed))
		private.DELETE("", s.removePrivateFeed)
	}

	g.GET("/rss", gate, withTimeout(timeout, s.previewFeed))

	user := g.Group("/user", gate)
	{
		user.GET("", s.getUser)
		user.PUT("", s.updateUser)
		user.PUT("/password", s.changePassword)
	}

	return g
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// Run serves on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		debuglog.Infof("listening on %s", ln.Addr())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	debuglog.Infof("server stopped")
	return nil
}
