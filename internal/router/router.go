package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sellos-taller/dashboard/internal/config"
	"github.com/sellos-taller/dashboard/internal/dashboard"
	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/handler"
	mw "github.com/sellos-taller/dashboard/internal/middleware"
	"github.com/sellos-taller/dashboard/internal/query"
	"github.com/sellos-taller/dashboard/internal/service"
	"github.com/sellos-taller/dashboard/internal/storage"
	"github.com/sellos-taller/dashboard/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Services are built here and attached to the hub so that every mutation,
// REST or WebSocket, reaches the live dashboards.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, objects storage.FactoryResult, hub *ws.Hub, logger *zap.Logger) (chi.Router, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load DASHBOARD_TZ %q: %w", cfg.TimeZone, err)
	}

	newPedidoStore := func(db database.DBTX) service.PedidoStore {
		return database.New(db)
	}
	pedidoService, err := service.NewPedidoService(pool, queries, newPedidoStore, loc, cfg.SaveMode, logger.Named("pedidos"))
	if err != nil {
		return nil, err
	}
	pedidoService.SetNotifier(hub)

	fileService := service.NewFileService(queries, objects.Storage, service.FileConfig{
		Bucket:   cfg.Storage.Bucket,
		TTL:      cfg.Storage.SignedURLTTL,
		MaxBytes: cfg.Storage.UploadMaxBytes,
	}, logger.Named("files"))
	fileService.SetNotifier(hub)

	newSession := func(view query.View, publish dashboard.Publisher) (ws.Session, error) {
		s, err := dashboard.NewSession(dashboard.Config{
			View:        view,
			SearchDelay: cfg.SearchDebounce,
			FilterDelay: cfg.FilterDebounce,
		}, pedidoService, fileService, publish, logger.Named("dashboard"))
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","storage":%q,"save_mode":%q}`, objects.Driver, pedidoService.SaveMode())
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, logger.Named("auth"))
	authHandler.RegisterRoutes(r)

	// Signed downloads for the local driver carry their own token
	if objects.Local != nil {
		r.Get("/files/*", handler.ServeSignedFile(objects.Local, logger.Named("files")))
	}

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/dashboard", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, newSession, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		pedidoHandler := handler.NewPedidoHandler(pedidoService, logger.Named("pedidos"))
		fileHandler := handler.NewFileHandler(fileService, cfg.Storage.UploadMaxBytes, logger.Named("files"))
		r.Route("/pedidos", func(r chi.Router) {
			pedidoHandler.RegisterRoutes(r)
			r.Route("/{id}/files", fileHandler.RegisterRoutes)
		})
	})

	logger.Info("router initialized", zap.String("storage", objects.Driver), zap.String("tz", loc.String()))
	return r, nil
}
