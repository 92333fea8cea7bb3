package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetset"
	"github.com/kailas-cloud/facetset/internal/config"
	logpkg "github.com/kailas-cloud/facetset/internal/logger"
	"github.com/kailas-cloud/facetset/internal/metrics"
	"github.com/kailas-cloud/facetset/internal/version"
	"github.com/kailas-cloud/facetset/memory"
	"github.com/kailas-cloud/facetset/redisds"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting facetd server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	metrics.RegisterEvaluationMetrics()

	ctx := context.Background()
	collection, cleanup, err := loadCollection(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to load collection", zap.Error(err))
	}
	defer cleanup()

	metrics.DatasetRecords.WithLabelValues(cfg.Storage.Collection).Set(float64(collection.Len()))
	logger.Info("Collection loaded",
		zap.String("collection", cfg.Storage.Collection),
		zap.Int("records", collection.Len()),
	)

	schema, err := bookSchema()
	if err != nil {
		logger.Fatal("Failed to build schema", zap.Error(err))
	}
	fs, err := facetset.New(schema, bookSpecs(),
		facetset.TitleFields("binding", "genre", "authors", "price", "date_published"))
	if err != nil {
		logger.Fatal("Failed to build filter set", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())

	h := &handler{fs: fs, collection: collection, name: cfg.Storage.Collection}
	r.Get("/books", h.serveFacets)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// loadCollection builds the serving collection per the configured driver:
// the memory driver always serves the seed fixture, the redis driver
// hydrates the stored collection, seeding it first when storage.seed is set.
func loadCollection(ctx context.Context, cfg config.Config, logger *zap.Logger) (*memory.Collection, func(), error) {
	noop := func() {}
	switch cfg.Database.Driver {
	case "memory":
		collection, err := seedCollection()
		return collection, noop, err

	case "redis":
		store, err := redisds.NewStore(redisds.Config{
			Addrs:     cfg.Database.Addrs,
			Password:  cfg.Database.Password,
			KeyPrefix: cfg.Storage.KeyPrefix,
		})
		if err != nil {
			return nil, noop, err
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, noop, err
		}
		if cfg.Storage.Seed {
			if err := seedStore(ctx, store, cfg.Storage.Collection); err != nil {
				store.Close()
				return nil, noop, err
			}
			logger.Info("Seeded collection", zap.String("collection", cfg.Storage.Collection))
		}
		collection, err := store.Load(ctx, cfg.Storage.Collection)
		if err != nil {
			store.Close()
			return nil, noop, err
		}
		return collection, store.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func seedStore(ctx context.Context, store *redisds.Store, col string) error {
	seed, err := memory.FromStructs(seedBooks())
	if err != nil {
		return err
	}
	if err := store.PutAll(ctx, col, seed.Records()); err != nil {
		return err
	}
	if err := store.PutLabels(ctx, col, "genre", genreLabels); err != nil {
		return err
	}
	return store.PutLabels(ctx, col, "authors", authorLabels)
}

type handler struct {
	fs         *facetset.FilterSet
	collection *memory.Collection
	name       string
}

type choiceDTO struct {
	Label  string `json:"label"`
	Link   string `json:"link"`
	Count  *int   `json:"count,omitempty"`
	Params string `json:"params,omitempty"`
}

type facetDTO struct {
	Field   string      `json:"field"`
	Label   string      `json:"label"`
	Choices []choiceDTO `json:"choices"`
}

type facetsResponse struct {
	Title  string     `json:"title"`
	Count  int        `json:"count"`
	Facets []facetDTO `json:"facets"`
}

func (h *handler) serveFacets(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := facetset.ParseQuery(r.URL.RawQuery)

	res, err := h.fs.Evaluate(r.Context(), h.collection.Dataset(), params)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.EvaluationsTotal.WithLabelValues(h.name, status).Inc()
	metrics.EvaluationDuration.WithLabelValues(h.name).Observe(time.Since(start).Seconds())
	if err != nil {
		logpkg.FromContext(r.Context()).Error("evaluate failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "evaluation failed"})
		return
	}

	count, err := res.QS().Count(r.Context())
	if err != nil {
		logpkg.FromContext(r.Context()).Error("count failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	resp := facetsResponse{Title: res.Title(), Count: count}
	for _, facet := range res.Facets() {
		dto := facetDTO{Field: facet.Field, Label: facet.Label, Choices: []choiceDTO{}}
		for _, c := range facet.Choices {
			cd := choiceDTO{Label: c.Label, Link: string(c.Link)}
			if c.HasCount {
				n := c.Count
				cd.Count = &n
			}
			if c.Link != facetset.LinkDisplay {
				cd.Params = c.Params.Encode()
			}
			dto.Choices = append(dto.Choices, cd)
		}
		resp.Facets = append(resp.Facets, dto)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
