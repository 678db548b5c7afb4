package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lychee-technology/labdb"
	"github.com/lychee-technology/labdb/factory"
	"github.com/lychee-technology/labdb/internal"
	"github.com/lychee-technology/labdb/internal/archive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server serves the country-set editor and its JSON API.
type Server struct {
	users     labdb.UserStore
	sessions  labdb.SessionStore
	countries labdb.CountryStore
	auth      labdb.AuthConfig
	key       []byte
	static    string
	mux       *http.ServeMux
}

// NewServer creates a new Server instance
func NewServer(store *labdb.Store, cfg *labdb.Config) *Server {
	return &Server{
		users:     store.Users,
		sessions:  store.Sessions,
		countries: store.Countries,
		auth:      cfg.Auth,
		key:       labdb.DeriveKey(cfg.Auth.SecretKey),
		static:    cfg.Server.StaticPrefix,
		mux:       http.NewServeMux(),
	}
}

// RegisterRoutes registers the page, auth and API routes.
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("GET /auth/login", s.handleLoginForm)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("/auth/logout", s.handleLogout)

	s.mux.Handle("GET /countryset/", s.needLogin(http.HandlerFunc(s.handleCountrySetPage)))

	s.mux.Handle("GET /api/v1/countries", s.needLogin(http.HandlerFunc(s.handleListCountries)))
	s.mux.Handle("GET /api/v1/countrysets", s.needLogin(http.HandlerFunc(s.handleListCountrySets)))
	s.mux.Handle("POST /api/v1/countrysets", s.needLogin(http.HandlerFunc(s.handleCreateCountrySet)))
	s.mux.Handle("GET /api/v1/countrysets/{id}", s.needLogin(http.HandlerFunc(s.handleGetCountrySet)))
	s.mux.Handle("DELETE /api/v1/countrysets/{id}", s.needLogin(http.HandlerFunc(s.handleDeleteCountrySet)))
	s.mux.Handle("PUT /api/v1/countrysets/{id}/countries", s.needLogin(http.HandlerFunc(s.handleReplaceMembers)))
	s.mux.Handle("POST /api/v1/countrysets/{id}/countries", s.needLogin(http.HandlerFunc(s.handleAddMember)))
	s.mux.Handle("DELETE /api/v1/countrysets/{id}/countries/{isocode}", s.needLogin(http.HandlerFunc(s.handleRemoveMember)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// reapSessions deletes expired sessions every interval until ctx is done.
func reapSessions(ctx context.Context, sessions labdb.SessionStore, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := sessions.DeleteExpiredSessions(ctx)
			if err != nil {
				zap.S().Warnw("session reaper failed", "error", err)
				continue
			}
			if n > 0 {
				zap.S().Infow("expired sessions removed", "count", n)
			}
		}
	}
}

// newResultArchiver builds the periodic archiver, or nil when archiving is
// off. Its breaker lives as long as the server, so repeated upload failures
// suspend later runs.
func newResultArchiver(ctx context.Context, cfg labdb.ArchiveConfig, results archive.ResultSource) (*archive.Archiver, error) {
	if cfg.Interval <= 0 {
		return nil, nil
	}
	uploader, err := archive.NewS3Uploader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	breaker := archive.NewCircuitBreaker(3, 4*cfg.Interval, 4*cfg.Interval)
	return archive.NewArchiver(cfg, results, archive.NewParquetWriter(), uploader, breaker), nil
}

func main() {
	configPath := flag.String("config", os.Getenv("LABDB_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := labdb.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}

	logger, err := labdb.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := internal.NewPool(ctx, cfg.Database)
	if err != nil {
		sugar.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()

	store, err := factory.NewStore(ctx, cfg, pool)
	if err != nil {
		sugar.Fatalf("failed to initialize store: %v", err)
	}

	archiver, err := newResultArchiver(ctx, cfg.Archive, store.Tests)
	if err != nil {
		sugar.Fatalf("failed to initialize archiver: %v", err)
	}

	server := NewServer(store, cfg)
	server.RegisterRoutes()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("starting server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return reapSessions(gctx, store.Sessions, cfg.Auth.ReaperInterval)
	})
	if archiver != nil {
		g.Go(func() error {
			return archiver.Run(gctx, cfg.Archive.Interval)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}
