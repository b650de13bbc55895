package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/valyala/fasthttp"

	"github.com/curaious/oneflow/internal/api/authenticator"
	"github.com/curaious/oneflow/internal/config"
	"github.com/curaious/oneflow/internal/db"
	"github.com/curaious/oneflow/internal/migrations"
	"github.com/curaious/oneflow/internal/services"
)

const sessionPruneInterval = time.Hour

// expiredSessionPruner is implemented by session stores that do not expire rows on their own.
type expiredSessionPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Server is an HTTP Server with access to the OneFlow services
type Server struct {
	srv      *fasthttp.Server
	addr     string
	services *services.Services
	auth     *authenticator.Authenticator
}

// New connects to the database, runs pending migrations and wires the services.
func New() *Server {
	conf := config.ReadConfig()
	conn := db.NewConn(conf)

	if err := runMigrations(conn); err != nil {
		panic(err)
	}

	return NewWithServices(conf.HTTP_ADDR, services.NewServices(conf, conn))
}

// runMigrations applies every pending migration.
func runMigrations(conn *sqlx.DB) error {
	m, err := migrations.NewMigrator(conn)
	if err != nil {
		return fmt.Errorf("unable to create migrator: %w", err)
	}

	if err := m.Up(0); err != nil {
		return fmt.Errorf("unable to run migrations: %w", err)
	}

	return nil
}

// NewWithServices builds the server around already constructed services.
func NewWithServices(addr string, svc *services.Services) *Server {
	s := &Server{
		srv:      &fasthttp.Server{Name: "oneflow"},
		addr:     addr,
		services: svc,
		auth:     authenticator.New(svc.Tokens, svc.Session, svc.User),
	}

	s.srv.Handler = s.initNewRoutes()

	return s
}

// Start the rest server
func (s *Server) Start() {
	slog.Info("Starting REST server...", slog.String("addr", s.addr))
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			slog.Error("Server shutdown", slog.Any("error", err))
		}
	}()
	slog.Info("REST server started!")

	bg, stop := context.WithCancel(context.Background())
	defer stop()
	if pruner, ok := s.services.Session.(expiredSessionPruner); ok {
		go pruneSessions(bg, pruner, sessionPruneInterval)
	}

	// Listen for OS interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block till we receive an interrupt
	<-c
	slog.Info("Received interrupt...")

	// Create a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s.shutdown(ctx)
}

// Shutdown shuts down the rest server
func (s *Server) shutdown(ctx context.Context) {
	slog.Info("Gracefully shutting down REST server...")
	if err := s.srv.ShutdownWithContext(ctx); err != nil {
		slog.Error("Failed to shutdown the server", slog.Any("error", err))
	}
	slog.Info("REST server shutdown!")
}

func pruneSessions(ctx context.Context, pruner expiredSessionPruner, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := pruner.DeleteExpired(ctx)
			if err != nil {
				slog.Error("Unable to prune expired sessions", slog.Any("error", err))
				continue
			}
			if n > 0 {
				slog.Info("Pruned expired sessions", slog.Int64("count", n))
			}
		}
	}
}
