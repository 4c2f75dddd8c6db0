package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/panelpro/internal/catalog"
	"github.com/Simplici0/panelpro/internal/config"
	"github.com/Simplici0/panelpro/internal/db"
	"github.com/Simplici0/panelpro/internal/logging"
	"github.com/Simplici0/panelpro/internal/migrations"
	"github.com/Simplici0/panelpro/internal/orders"
	"github.com/Simplici0/panelpro/internal/quote"
	"github.com/Simplici0/panelpro/internal/rates"
	"github.com/Simplici0/panelpro/internal/seed"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	auth    *authService
	db      *db.DB
	log     *zap.Logger
	catalog *catalog.Store
	rates   *rates.Store
	quotes  *quote.Service
	orders  *orders.Service
}

func newServer(database *db.DB, logger *zap.Logger, cfg config.Config) *server {
	cat := catalog.NewStore(database)
	rateStore := rates.NewStore(database)
	quotes := quote.NewService(cat, rateStore)

	return &server{
		auth:    newAuthService(database, cfg.SessionSecret, cfg.Production()),
		db:      database,
		log:     logger,
		catalog: cat,
		rates:   rateStore,
		quotes:  quotes,
		orders:  orders.NewService(orders.NewStore(database), quotes, cfg.TaxPercent),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	database, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	ctx := context.Background()
	if cfg.RunMigrations {
		if err := migrations.Up(ctx, database); err != nil {
			logger.Fatal("failed to run database migrations", zap.Error(err))
		}
	}

	stats, err := seed.Run(ctx, database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		logger.Fatal("failed to seed database", zap.Error(err))
	}
	logger.Info("seed complete", zap.Int("inserts", stats.Inserts))

	srv := newServer(database, logger, cfg)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("driver", database.Driver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Get("/panels", s.handleListPanels)
		r.Get("/panels/suppliers", s.handlePanelSuppliers)
		r.Get("/panels/thicknesses", s.handlePanelThicknesses)
		r.Get("/panels/{id}", s.handleGetPanel)
		r.Get("/edges", s.handleListEdges)
		r.Get("/edges/materials", s.handleEdgeMaterials)
		r.Get("/edges/{id}", s.handleGetEdge)

		r.Get("/rates", s.handleListRates)
		r.Get("/rates/categories", s.handleRateCategories)
		r.Get("/rates/{key}", s.handleGetRate)

		r.Post("/quote", s.handleQuote)
		r.Post("/parts/validate", s.handleValidatePart)
		r.Post("/parts/duplicate", s.handleDuplicatePart)

		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Post("/orders/{id}/cancel", s.handleCancelOrder)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.auth.requireAdmin)

			r.Post("/panels", s.handleCreatePanel)
			r.Put("/panels/{id}", s.handleUpdatePanel)
			r.Delete("/panels/{id}", s.handleDeactivatePanel)
			r.Post("/panels/{id}/edges", s.handleLinkEdge)
			r.Post("/edges", s.handleCreateEdge)
			r.Put("/edges/{id}", s.handleUpdateEdge)
			r.Delete("/edges/{id}", s.handleDeactivateEdge)

			r.Post("/rates", s.handleCreateRate)
			r.Put("/rates", s.handleBulkUpdateRates)
			r.Put("/rates/{key}", s.handleUpdateRate)
			r.Get("/rates/history", s.handleRateHistory)

			r.Get("/orders", s.handleListOrders)
			r.Get("/orders/stats", s.handleOrderStats)
			r.Put("/orders/{id}/status", s.handleUpdateOrderStatus)
			r.Post("/orders/{id}/reprice", s.handleRepriceOrder)
		})
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("ip", r.RemoteAddr),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}

		switch {
		case status >= 500:
			s.log.Error("server error", fields...)
		case status >= 400:
			s.log.Warn("client error", fields...)
		default:
			s.log.Info("request", fields...)
		}
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.log.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	valid, err := s.auth.validateCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !valid {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
		return
	}

	s.auth.setSessionCookie(w, strings.ToLower(strings.TrimSpace(req.Email)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
