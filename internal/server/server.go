package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/serial9/internal/auth"
	"github.com/danmuck/serial9/internal/observability"
	"github.com/danmuck/serial9/internal/protocol/serial9"
	"github.com/danmuck/serial9/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Backend is the runtime the admin API drives.
type Backend interface {
	Status() service.Status
	Send(mode int, p []byte) error
	SetBaud(rate serial9.Rate) error
	Poll() ([]uint16, error)
	Resync() error
	Subscribe(buffer int) *service.Subscription
}

// Options configures the admin server. A nil Auth leaves the write
// routes open.
type Options struct {
	Node        string
	CorsOrigins []string
	Auth        auth.Validator
	Logger      zerolog.Logger
}

// Admin is the HTTP control surface of one bridge runtime.
type Admin struct {
	node      string
	backend   Backend
	auth      auth.Validator
	router    *gin.Engine
	logger    zerolog.Logger
	upgrader  websocket.Upgrader
	startedAt time.Time
}

func New(backend Backend, opts Options) *Admin {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.RequestLogger(opts.Logger))
	router.Use(observability.RequestMetricsMiddleware(opts.Node))
	if len(opts.CorsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: opts.CorsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}

	a := &Admin{
		node:      opts.Node,
		backend:   backend,
		auth:      opts.Auth,
		router:    router,
		logger:    opts.Logger,
		startedAt: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.CorsOrigins),
		},
	}
	a.registerRoutes()
	return a
}

func (a *Admin) Handler() http.Handler {
	return a.router
}

// Run serves on addr until ctx is done.
func (a *Admin) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", addr).Msg("server.Admin listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
