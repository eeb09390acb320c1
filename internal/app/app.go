// Package app wires configuration, the record engine and the service
// front ends together and manages their lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"google.golang.org/grpc"

	grpcapi "github.com/dictdb/dictdb/internal/api/grpc"
	httpapi "github.com/dictdb/dictdb/internal/api/http"
	"github.com/dictdb/dictdb/internal/config"
	"github.com/dictdb/dictdb/internal/engine"
	"github.com/dictdb/dictdb/internal/export"
	"github.com/dictdb/dictdb/internal/ingest"
	"github.com/dictdb/dictdb/internal/server"
	"github.com/dictdb/dictdb/internal/storage"
	"github.com/dictdb/dictdb/internal/store"
)

// App manages the dictdb service lifecycle.
type App struct {
	cfg *config.Config

	// Shared resources
	engine   *engine.Engine
	storage  storage.ObjectStorage
	exporter *export.Exporter
	shutdown *server.ShutdownManager

	// Service components
	httpServer *http.Server
	grpcServer *grpc.Server
	consumer   *ingest.Consumer

	// Lifecycle
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a new App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return &App{
		cfg:      cfg,
		shutdown: server.NewShutdownManager(server.DefaultShutdownConfig()),
	}, nil
}

// EngineConfig maps the database section to engine defaults.
func EngineConfig(db config.DatabaseConfig) engine.Config {
	return engine.Config{
		InsertTime:     db.InsertTime,
		UpdateTime:     db.UpdateTime,
		Export:         db.Export,
		AutoCommit:     db.AutoCommit,
		AutoAlter:      db.AutoAlter,
		AutoUpdateTime: db.AutoUpdateTime,
	}
}

// StoreOptions maps the database section to store options.
func StoreOptions(db config.DatabaseConfig) store.Options {
	opts := store.DefaultOptions()
	if db.BusyTimeout > 0 {
		opts.BusyTimeout = db.BusyTimeout
	}
	if db.JournalMode != "" {
		opts.JournalMode = db.JournalMode
	}
	return opts
}

// Start opens the engine and starts every service the mode selects.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.shutdown.OnShutdownStart(cancel)

	if err := a.initSharedResources(ctx); err != nil {
		a.cleanup()
		return fmt.Errorf("failed to initialize shared resources: %w", err)
	}

	if a.cfg.ShouldRunStream() {
		if err := a.startStream(ctx); err != nil {
			a.cleanup()
			return fmt.Errorf("failed to start stream consumer: %w", err)
		}
	}

	if a.cfg.ShouldRunAPI() {
		if err := a.startAPI(); err != nil {
			a.cleanup()
			return fmt.Errorf("failed to start API: %w", err)
		}
	}

	log.Printf("dictdb started in %s mode", a.cfg.Mode)
	return nil
}

// initSharedResources opens the engine, object storage and exporter.
func (a *App) initSharedResources(ctx context.Context) error {
	var err error
	a.engine, err = engine.Open(ctx, a.cfg.Database.Path, StoreOptions(a.cfg.Database), EngineConfig(a.cfg.Database))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	// Registered first so it is closed last, after every writer stopped.
	a.shutdown.RegisterCloser(a.engine)
	log.Printf("Engine opened: %s (%d tables)", a.cfg.Database.Path, len(a.engine.Tables()))

	s3Cfg := storage.DefaultS3Config()
	if a.cfg.Storage.S3.Region != "" {
		s3Cfg.Region = a.cfg.Storage.S3.Region
	}
	s3Cfg.Endpoint = a.cfg.Storage.S3.Endpoint
	a.storage, err = storage.New(ctx, storage.Options{
		Type:   a.cfg.Storage.Type,
		Path:   a.cfg.Storage.Path,
		Bucket: a.cfg.Storage.S3.Bucket,
		S3:     s3Cfg,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Printf("Storage initialized: type=%s", a.cfg.Storage.Type)

	a.exporter = export.New(a.engine, a.storage, export.Config{
		Prefix:   a.cfg.Export.Prefix,
		Compress: a.cfg.Export.Compress,
		WorkDir:  a.cfg.Export.WorkDir,
	})
	return nil
}

// startStream starts the Kafka consumer in a background worker.
func (a *App) startStream(ctx context.Context) error {
	mode, err := engine.ParseMode(a.cfg.Stream.Mode)
	if err != nil {
		return err
	}
	icfg := ingest.Config{
		Brokers:       a.cfg.Stream.Brokers,
		Topic:         a.cfg.Stream.Topic,
		GroupID:       a.cfg.Stream.GroupID,
		Table:         a.cfg.Stream.Table,
		Mode:          mode,
		RatePerSecond: a.cfg.Stream.RatePerSecond,
		Burst:         a.cfg.Stream.Burst,
		IgnoreCodes:   a.cfg.Stream.IgnoreCodes,
	}
	reader, err := ingest.NewKafkaReader(icfg)
	if err != nil {
		return err
	}
	a.consumer, err = ingest.NewConsumer(reader, a.engine, icfg)
	if err != nil {
		reader.Close()
		return err
	}
	a.shutdown.RegisterCloser(a.consumer)
	a.shutdown.Go("stream consumer", func() error {
		return a.consumer.Run(ctx)
	})
	return nil
}

// startAPI starts the HTTP server and, when enabled, the gRPC server.
func (a *App) startAPI() error {
	a.httpServer = &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}
	a.shutdown.ServeHTTP(a.httpServer)

	if a.cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", a.cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC address: %w", err)
		}
		a.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(grpcapi.RequestIDInterceptor))
		grpcapi.RegisterRecordsServer(a.grpcServer, grpcapi.NewRecordsService(a.engine))
		a.shutdown.ServeGRPC(a.grpcServer, lis)
	}
	return nil
}

// Handler returns the HTTP handler of the record API.
func (a *App) Handler() http.Handler {
	opts := []httpapi.HandlerOption{
		httpapi.WithExporter(a.exporter),
		httpapi.WithServiceName(fmt.Sprintf("dictdb-%s", a.cfg.Mode)),
	}
	if a.consumer != nil {
		opts = append(opts, httpapi.WithIngestStats(a.consumer))
	}

	mux := http.NewServeMux()
	middleware := httpapi.ChainMiddleware(
		server.ShutdownMiddleware(a.shutdown),
		httpapi.RecoveryMiddleware,
		httpapi.RequestIDMiddleware,
		httpapi.CorrelationIDMiddleware,
		httpapi.MaxBodyMiddleware(a.cfg.HTTP.MaxBodyBytes),
		httpapi.ContentTypeMiddleware,
	)
	httpapi.NewHandler(a.engine, opts...).Register(mux, middleware)
	return mux
}

// Engine returns the record engine. It is nil before Start.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Stop gracefully stops all services and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	log.Printf("Initiating graceful shutdown...")
	err := a.shutdown.Shutdown(ctx, "stop requested")
	log.Printf("dictdb stopped")
	return err
}

// WaitForShutdown blocks until a shutdown signal is received or ctx ends.
// It reports the error of any background worker that failed.
func (a *App) WaitForShutdown(ctx context.Context) error {
	if err := a.shutdown.ListenForSignals(ctx); err != nil {
		return err
	}
	return a.shutdown.Err()
}

// cleanup releases what a failed Start already opened.
func (a *App) cleanup() {
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.shutdown.Shutdown(context.Background(), "start failed"); err != nil {
		log.Printf("[WARN] app: cleanup: %v", err)
	}
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}
