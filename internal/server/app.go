// Package server wires the chat server together: storage, encryption,
// services, the session registry and every listener, and runs them until a
// shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/cryptox"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/admin"
	"github.com/dmitrijs2005/gophchat/internal/server/blobs"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/httpserver"
	"github.com/dmitrijs2005/gophchat/internal/server/metrics"
	"github.com/dmitrijs2005/gophchat/internal/server/registry"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/dmitrijs2005/gophchat/internal/server/session"
	"github.com/dmitrijs2005/gophchat/internal/server/store"
	"github.com/dmitrijs2005/gophchat/internal/server/store/memory"
	"github.com/dmitrijs2005/gophchat/internal/server/store/mongostore"
	"github.com/dmitrijs2005/gophchat/internal/server/store/sqlstore"
	"github.com/dmitrijs2005/gophchat/internal/server/tcp"
	"github.com/dmitrijs2005/gophchat/internal/server/ws"

	gs "github.com/dmitrijs2005/gophchat/internal/server/grpc"
)

const storeCloseTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    store.Store
	registry *registry.Registry
	metrics  *metrics.Metrics
	sessions *session.Handler
	health   *gs.HealthServer
	ready    atomic.Bool
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	st, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	app, err := newApp(ctx, c, st, logger)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, st store.Store, logger logging.Logger) (*App, error) {
	cipher, err := cryptox.NewAESGCMFromPassphrase(c.MessageKey, c.MessageKeySalt)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	hasher, err := cryptox.NewBcrypt(c.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	blobStore, err := openBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("file storage init error: %w", err)
	}

	reg := registry.New()
	m := metrics.New()
	us := services.NewUserService(st, hasher, c)
	cs := services.NewChatService(st, cipher, blobStore, logger)

	return &App{
		config:   c,
		logger:   logger,
		store:    st,
		registry: reg,
		metrics:  m,
		sessions: session.NewHandler(us, cs, reg, m, c, logger),
		health:   gs.NewHealthServer(c.HealthAddr, logger),
	}, nil
}

func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.StoreDriver {
	case store.DriverMemory:
		return memory.New(), nil
	case store.DriverSQLite:
		return sqlstore.Open(ctx, sqlstore.DialectSQLite, c.DatabaseDSN)
	case store.DriverPostgres:
		return sqlstore.Open(ctx, sqlstore.DialectPostgres, c.DatabaseDSN)
	case store.DriverMongo:
		return mongostore.Open(ctx, c.MongoURI, c.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
}

// openBlobStore returns nil when file payloads are kept inline.
func openBlobStore(ctx context.Context, c *config.Config) (blobs.Store, error) {
	switch c.FileStorage {
	case config.FileStorageInline, "":
		return nil, nil
	case config.FileStorageS3:
		s3, err := blobs.NewS3(ctx, blobs.S3Config{
			Region:       c.S3Region,
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
		if err != nil {
			return nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s3, nil
	default:
		return nil, fmt.Errorf("unknown file storage %q", c.FileStorage)
	}
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

func (app *App) status() admin.Status {
	return admin.Status{Ready: app.ready.Load(), Sessions: app.registry.Count()}
}

// startChatServer listens on the chat address and serves sessions until ctx
// is cancelled. Readiness is reported while the listener is up.
func (app *App) startChatServer(ctx context.Context, cancelFunc context.CancelFunc) {
	listen, err := net.Listen("tcp", app.config.ServerAddr)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	app.ready.Store(true)
	app.health.SetServing(true)
	defer func() {
		app.ready.Store(false)
		app.health.SetServing(false)
	}()

	s := tcp.NewServer(app.config.ServerAddr, app.sessions.Serve, app.logger)
	if err := s.Serve(ctx, listen); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startAdminServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := admin.NewRouter(app.metrics.Handler(), app.status)
	s := httpserver.New("admin_http", app.config.MetricsAddr, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startWSGateway(ctx context.Context, cancelFunc context.CancelFunc) {
	gw := ws.NewGateway(app.sessions.Serve, app.config.MaxLineBytes, app.logger)
	s := httpserver.New("ws_gateway", app.config.WSAddr, gw.Router(), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHealthServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run starts every configured listener and blocks until ctx is cancelled, a
// shutdown signal arrives or a listener fails. The store is closed last.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreDriver, "file_storage", app.config.FileStorage)

	app.initSignalHandler(cancelFunc)

	starters := []func(context.Context, context.CancelFunc){app.startChatServer}
	if app.config.MetricsAddr != "" {
		starters = append(starters, app.startAdminServer)
	}
	if app.config.HealthAddr != "" {
		starters = append(starters, app.startHealthServer)
	}
	if app.config.WSAddr != "" {
		starters = append(starters, app.startWSGateway)
	}

	var wg sync.WaitGroup
	for _, start := range starters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start(ctx, cancelFunc)
		}()
	}
	wg.Wait()

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeCloseTimeout)
	defer cancel()
	if err := app.store.Close(closeCtx); err != nil {
		app.logger.Error(ctx, "store close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
