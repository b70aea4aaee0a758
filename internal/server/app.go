// Package server wires the vault API: it opens PostgreSQL, Redis and the
// object store, runs migrations, builds the services and serves HTTP until
// a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/docuvault/internal/logging"
	"github.com/dmitrijs2005/docuvault/internal/server/config"
	"github.com/dmitrijs2005/docuvault/internal/server/httpapi"
	"github.com/dmitrijs2005/docuvault/internal/server/notify"
	"github.com/dmitrijs2005/docuvault/internal/server/objectstore"
	"github.com/dmitrijs2005/docuvault/internal/server/ratelimit"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/onetime"
	"github.com/dmitrijs2005/docuvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docuvault/internal/server/services"
)

const (
	loginAttempts = 10
	loginWindow   = 15 * time.Minute
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	ropts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(ropts)

	store, err := objectstore.NewS3Store(ctx, objectstore.Options{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Endpoint:     c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
		UsePathStyle: c.S3UsePathStyle,
	})
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	relay := notify.NewRelayClient(c.MailRelayURL, &http.Client{Timeout: c.NotifyTimeout})
	notifier := notify.NewNotifier(relay, c.NotifyTimeout, logger)

	us := services.NewUserService(db, rm, c, onetime.NewRedisStore(rdb),
		ratelimit.NewLimiter(rdb, loginAttempts, loginWindow), notifier, logger)
	ds := services.NewDocumentService(db, rm, store, c, logger)
	ss := services.NewShareService(db, rm, ds, store, notifier, c, logger)

	srv := httpapi.NewServer(httpapi.Options{
		Address:        c.EndpointAddrHTTP,
		SecretKey:      c.SecretKey,
		MaxUploadBytes: c.MaxUploadBytes,
		AllowOrigins:   []string{c.PublicBaseURL},
	}, logger, us, ds, ss)

	return &App{config: c, logger: logger, db: db, redis: rdb, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or the server fails, then releases the
// database and Redis handles.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.redis.Close(); err != nil {
		app.logger.Warn(ctx, "redis close", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
