package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/seatpass/internal/db"
	"github.com/nkiryanov/seatpass/internal/handlers"
	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/metrics"
	"github.com/nkiryanov/seatpass/internal/repository/postgres"
	"github.com/nkiryanov/seatpass/internal/service/auth"
	"github.com/nkiryanov/seatpass/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/seatpass/internal/service/housekeeping"
	"github.com/nkiryanov/seatpass/internal/service/mail"
	"github.com/nkiryanov/seatpass/internal/service/passwordreset"
	"github.com/nkiryanov/seatpass/internal/service/seat"
	"github.com/nkiryanov/seatpass/internal/service/subscription"
	"github.com/nkiryanov/seatpass/internal/service/throttle"
)

const (
	shutdownTimeout  = 5 * time.Second
	redisPingTimeout = 5 * time.Second
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger  logger.Logger
	sweeper *housekeeping.Sweeper

	// Called in reverse order on Close
	closers []func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{ListenAddr: c.ListenAddr, logger: l}
	ready := false
	defer func() {
		if !ready {
			app.Close()
		}
	}()

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	app.closers = append(app.closers, pool.Close)

	storage := postgres.NewStorage(pool)

	tokens, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{
		AllowAdminSignup: c.AllowAdminSignup,
		Cookies:          auth.CookieConfig{Production: c.Environment == logger.EnvProduction},
	}, tokens, storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	mailer, err := newMailer(c, l)
	if err != nil {
		return nil, err
	}

	resetCfg := passwordreset.Config{FrontendURL: c.FrontendURL}
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
		app.closers = append(app.closers, func() { _ = client.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed. Err: %w", err)
		}

		resetCfg.Throttle = throttle.NewRedis(client, "", c.ResetCooldown)
	} else {
		l.Warn("Redis not configured, password reset requests are not throttled")
	}

	resetService, err := passwordreset.NewService(resetCfg, storage, mailer, l)
	if err != nil {
		return nil, fmt.Errorf("error while creating password reset service. Err: %w", err)
	}

	if c.SweepInterval > 0 {
		app.sweeper = housekeeping.New(c.SweepInterval, l, housekeeping.StorageTasks(storage)...)
	}

	app.Handler = handlers.NewRouter(handlers.Services{
		Auth:         authService,
		Reset:        resetService,
		Subscription: subscription.NewService(storage, subscription.DefaultPolicy(), l, nil),
		Seat:         seat.NewService(storage),
		Metrics:      metrics.New(),
		DB:           pool,
	}, l)

	ready = true
	return app, nil
}

func newMailer(c *Config, l logger.Logger) (passwordreset.Mailer, error) {
	if c.SMTPHost == "" {
		l.Warn("SMTP not configured, reset links will be logged only")
		return mail.LogMailer{Logger: l}, nil
	}

	m, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPass,
		From:     c.EmailFrom,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating mailer. Err: %w", err)
	}
	return m, nil
}

// Close releases connections opened by NewServerApp
func (s *ServerApp) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	sweeperStopped := make(chan struct{})
	if s.sweeper != nil {
		sweeperStopped = s.sweeper.Run(srvCtx)
	} else {
		close(sweeperStopped)
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-sweeperStopped

	return err
}
