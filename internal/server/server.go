// Package server assembles the HTTP engine and runs it alongside the
// external ledger mirror until a signal arrives.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ecorewards/internal/chain"
	"ecorewards/internal/config"
	"ecorewards/internal/handlers"
	"ecorewards/internal/middleware"
)

type Handlers struct {
	Auth     *handlers.Auth
	User     *handlers.User
	Products *handlers.Products
	Orders   *handlers.Orders
	Chat     *handlers.Chat
	Admin    *handlers.Admin
	Health   *handlers.Health
}

// Guards are the two authentication middlewares: user sessions and admin
// tokens.
type Guards struct {
	Session gin.HandlerFunc
	Admin   gin.HandlerFunc
}

type App struct {
	Config  *config.Config
	Engine  *gin.Engine
	Mirror  *chain.Mirror
	Log     *zap.Logger
	Cleanup func()
}

func NewGuards(cfg *config.Config, resolver middleware.SessionResolver, log *zap.Logger) Guards {
	return Guards{
		Session: middleware.SessionAuth(resolver, log),
		Admin:   middleware.AdminAuth(cfg.JWTSecret),
	}
}

func NewEngine(cfg *config.Config, h *Handlers, guards Guards, log *zap.Logger) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.GinZap(log), middleware.Recovery(log), middleware.Prometheus())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if h.Health != nil {
		h.Health.RegisterRoutes(r)
	}

	api := r.Group("/api")
	h.Auth.RegisterRoutes(api, guards.Session)
	h.User.RegisterRoutes(api, guards.Session)
	h.Products.RegisterRoutes(api)
	h.Orders.RegisterRoutes(api, guards.Session)
	h.Chat.RegisterRoutes(api)
	h.Admin.RegisterRoutes(r, guards.Admin)
	return r
}

// Run serves HTTP and works the mirror queue. SIGINT, SIGTERM or a failure
// of either stops both.
func Run(ctx context.Context, app *App) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
	defer signal.Stop(signals)

	eg, groupCtx := errgroup.WithContext(ctx)
	serv := &http.Server{
		Addr:              ":" + app.Config.Port,
		Handler:           app.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	app.Log.Info("server starting", zap.String("port", app.Config.Port))

	eg.Go(func() error {
		err := serv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	mirrorCtx, stopMirror := context.WithCancel(groupCtx)
	defer stopMirror()
	eg.Go(func() error {
		return app.Mirror.Run(mirrorCtx)
	})

	eg.Go(func() error {
		defer func() {
			app.Log.Info("server stopping")
			stopMirror()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := serv.Shutdown(shutdownCtx); err != nil {
				app.Log.Warn("server shutdown", zap.Error(err))
			}
		}()

		select {
		case <-groupCtx.Done():
			return groupCtx.Err()
		case <-signals:
			return nil
		}
	})

	err := eg.Wait()
	if app.Cleanup != nil {
		app.Cleanup()
	}
	app.Log.Info("server stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
