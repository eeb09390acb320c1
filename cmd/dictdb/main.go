// Package main implements the dictdb server binary.
// It serves the record API over HTTP and gRPC, consumes records from Kafka,
// or both, depending on the --mode flag.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dictdb/dictdb/internal/app"
	"github.com/dictdb/dictdb/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dataDir     string
		mode        string
		dbPath      string
		httpAddr    string
		grpcAddr    string
		brokers     string
		topic       string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&mode, "mode", "", "Service mode: all, api, stream")
	flag.StringVar(&dbPath, "db", "", "SQLite database file")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP address of the record API")
	flag.StringVar(&grpcAddr, "grpc-addr", "", "gRPC server address")
	flag.StringVar(&brokers, "brokers", "", "Comma-separated Kafka brokers; enables the stream consumer")
	flag.StringVar(&topic, "topic", "", "Kafka topic to consume")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "dictdb - schema-inferring record store over SQLite\n\n")
		fmt.Fprintf(os.Stderr, "Usage: dictdb [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  dictdb --data-dir /data/dictdb\n")
		fmt.Fprintf(os.Stderr, "  dictdb --mode stream --brokers kafka:9092 --topic records\n")
		fmt.Fprintf(os.Stderr, "  dictdb --config /etc/dictdb/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DICTDB_MODE             Service mode (all, api, stream)\n")
		fmt.Fprintf(os.Stderr, "  DICTDB_DATA_DIR         Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  DICTDB_DATABASE_*       Database path and table defaults\n")
		fmt.Fprintf(os.Stderr, "  DICTDB_HTTP_ADDR        HTTP address\n")
		fmt.Fprintf(os.Stderr, "  DICTDB_GRPC_ADDR        gRPC server address\n")
		fmt.Fprintf(os.Stderr, "  DICTDB_STORAGE_TYPE     Export storage type (local, s3)\n")
		fmt.Fprintf(os.Stderr, "  DICTDB_STREAM_*         Kafka consumer settings\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("dictdb version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile, overrides{
		dataDir:  dataDir,
		mode:     mode,
		dbPath:   dbPath,
		httpAddr: httpAddr,
		grpcAddr: grpcAddr,
		brokers:  brokers,
		topic:    topic,
	})
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	printBanner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	if err := application.WaitForShutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}

// overrides are the command line values that take precedence over the
// configuration file and environment.
type overrides struct {
	dataDir  string
	mode     string
	dbPath   string
	httpAddr string
	grpcAddr string
	brokers  string
	topic    string
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile string, o overrides) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.mode != "" {
		cfg.Mode = config.Mode(o.mode)
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.httpAddr != "" {
		cfg.HTTP.Addr = o.httpAddr
	}
	if o.grpcAddr != "" {
		cfg.GRPC.Addr = o.grpcAddr
	}
	if o.brokers != "" {
		cfg.Stream.Brokers = strings.Split(o.brokers, ",")
		cfg.Stream.Enabled = true
	}
	if o.topic != "" {
		cfg.Stream.Topic = o.topic
	}

	return cfg, nil
}

// printBanner prints the startup banner with configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("dictdb %s (commit: %s)", version, commit)
	log.Printf("Configuration:")
	log.Printf("  Mode:     %s", cfg.Mode)
	log.Printf("  Database: %s", cfg.Database.Path)
	log.Printf("  Storage:  %s", cfg.Storage.Type)

	if cfg.ShouldRunAPI() {
		log.Printf("Record API:")
		log.Printf("  HTTP: %s", cfg.HTTP.Addr)
		if cfg.GRPC.Enabled {
			log.Printf("  gRPC: %s", cfg.GRPC.Addr)
		}
	}

	if cfg.ShouldRunStream() {
		log.Printf("Stream Consumer:")
		log.Printf("  Brokers: %s", strings.Join(cfg.Stream.Brokers, ","))
		log.Printf("  Topic:   %s", cfg.Stream.Topic)
		log.Printf("  Mode:    %s", cfg.Stream.Mode)
	}
}
