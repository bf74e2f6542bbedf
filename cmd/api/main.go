//	@title			Sofra Media API
//	@version		1.0
//	@description	Image ingestion and storage service for the Sofra food-delivery platform.
//
//	@host		localhost:8080
//	@BasePath	/

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/sofra/media/internal/category"
	"github.com/sofra/media/internal/config"
	"github.com/sofra/media/internal/media"
	appMiddleware "github.com/sofra/media/internal/middleware"
	"github.com/sofra/media/internal/storage"

	_ "github.com/sofra/media/docs/swagger"
)

func main() {
	cfg := config.Load()

	var store storage.Storage
	var local *storage.LocalStorage

	switch cfg.StorageDriver {
	case config.DriverLocal:
		l, err := storage.NewLocalStorage(cfg.LocalStorageDir, cfg.LocalPublicBase)
		if err != nil {
			log.Fatalf("local storage init failed: %v", err)
		}
		store, local = l, l
		log.Printf("storage: local driver, root=%s", cfg.LocalStorageDir)
	case config.DriverMinio:
		if !cfg.HasCredentials() {
			// The service still starts: image endpoints answer 503 until
			// credentials are provided.
			log.Println("storage: no credentials configured, image endpoints disabled")
			break
		}
		s, err := storage.NewMinioStorage(
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StoragePublicBase,
			cfg.StorageUseSSL,
		)
		if err != nil {
			log.Fatalf("object storage init failed: %v", err)
		}
		store = s
		log.Printf("storage: minio driver, endpoint=%s", cfg.StorageEndpoint)
	default:
		log.Fatalf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	// Wire dependencies: service → handler
	mediaSvc := media.NewService(store, cfg.Buckets)
	mediaHandler := media.NewHandler(mediaSvc)

	if store != nil {
		provisionBuckets(mediaSvc, store)
	}

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Image API
	r.Route("/api", func(r chi.Router) {
		r.Use(appMiddleware.NoCache)
		r.Route("/images", func(r chi.Router) {
			r.Post("/upload", mediaHandler.Upload)
			r.Post("/upload-multiple", mediaHandler.UploadMultiple)
			r.Delete("/delete", mediaHandler.Delete)
			r.Get("/info/{category}/{filename}", mediaHandler.Info)
		})
	})

	// The local driver serves stored objects itself.
	if local != nil {
		base := strings.TrimRight(cfg.LocalPublicBase, "/")
		fileServer := http.StripPrefix(base, http.FileServer(http.Dir(local.Root())))
		r.Get(base+"/*", fileServer.ServeHTTP)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}

// provisionBuckets ensures every category bucket exists at startup.
// Best-effort: a storage backend that is down must not prevent the server
// from starting, uploads retry the check on demand.
func provisionBuckets(svc *media.Service, store storage.Storage) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, c := range category.All() {
		if err := store.EnsureBucket(ctx, svc.Bucket(c)); err != nil {
			log.Printf("storage: ensure bucket for %s failed: %v", c, err)
		}
	}
}
