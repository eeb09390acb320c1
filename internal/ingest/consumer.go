// Package ingest applies records arriving on a Kafka topic to the engine.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log"
	"slices"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"github.com/dictdb/dictdb/internal/engine"
	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/pkg/types"
)

// Message headers that override the consumer defaults for one message.
const (
	HeaderTable = "table"
	HeaderMode  = "mode"
)

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer applies a sequence of records.
type Writer interface {
	Write(ctx context.Context, mode engine.Mode, recs iter.Seq[types.Record], opts ...engine.Option) (engine.Result, error)
}

// Config holds consumer configuration.
type Config struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration

	// Table pins every record to one table; empty resolves per record
	Table string

	// Mode is the default write mode
	Mode engine.Mode

	// RatePerSecond bounds messages applied per second; zero means unlimited
	RatePerSecond float64
	Burst         int

	// IgnoreCodes are error codes that skip a record instead of stopping
	IgnoreCodes []string
}

// Stats counts consumer activity.
type Stats struct {
	Messages  int64 `json:"messages"`
	Records   int64 `json:"records"`
	Ignored   int64 `json:"ignored"`
	Malformed int64 `json:"malformed"`
}

// Consumer reads JSON messages and writes their records.
type Consumer struct {
	reader  Reader
	writer  Writer
	config  Config
	limiter *rate.Limiter
	ignore  []error

	messages  atomic.Int64
	records   atomic.Int64
	ignored   atomic.Int64
	malformed atomic.Int64
}

// NewKafkaReader creates a consumer group reader for cfg.
func NewKafkaReader(cfg Config) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "dictdb"
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: kafka.FirstOffset,
	}), nil
}

// NewConsumer creates a consumer. Unknown ignore codes are an error.
func NewConsumer(r Reader, w Writer, cfg Config) (*Consumer, error) {
	if cfg.Mode == "" {
		cfg.Mode = engine.ModeUpsert
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := max(cfg.Burst, 1)

	ignore, err := IgnorableErrors(cfg.IgnoreCodes)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		reader:  r,
		writer:  w,
		config:  cfg,
		limiter: rate.NewLimiter(limit, burst),
		ignore:  ignore,
	}, nil
}

// Run consumes until ctx is cancelled or a record fails with an error that
// is not ignorable. Offsets are committed after each message is applied, so
// a failed message is delivered again after a restart.
func (c *Consumer) Run(ctx context.Context) error {
	log.Printf("ingest: consuming topic %q (mode %s)", c.config.Topic, c.config.Mode)
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.stopped(ctx, err)
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return c.stopped(ctx, err)
		}

		if err := c.Handle(ctx, msg); err != nil {
			log.Printf("[ERROR] ingest: partition %d offset %d: %v", msg.Partition, msg.Offset, err)
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return c.stopped(ctx, fmt.Errorf("commit offset %d: %w", msg.Offset, err))
		}
	}
}

// Handle applies one message. A message that is not a JSON object or array
// of objects is counted and skipped.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	c.messages.Add(1)

	mode := c.config.Mode
	table := c.config.Table
	for _, h := range msg.Headers {
		switch h.Key {
		case HeaderTable:
			table = string(h.Value)
		case HeaderMode:
			m, err := engine.ParseMode(string(h.Value))
			if err != nil {
				c.malformed.Add(1)
				log.Printf("[WARN] ingest: offset %d: %v", msg.Offset, err)
				return nil
			}
			mode = m
		}
	}

	recs, err := DecodeRecords(msg.Value)
	if err != nil {
		c.malformed.Add(1)
		log.Printf("[WARN] ingest: skipping malformed message at offset %d: %v", msg.Offset, err)
		return nil
	}
	if len(recs) == 0 {
		return nil
	}

	opts := []engine.Option{engine.WithIgnore(c.ignore...)}
	if table != "" {
		opts = append(opts, engine.WithTable(table))
	}
	res, err := c.writer.Write(ctx, mode, slices.Values(recs), opts...)
	c.records.Add(int64(res.Records))
	c.ignored.Add(int64(res.Ignored))
	return err
}

// Stats returns the consumer counters.
func (c *Consumer) Stats() Stats {
	return Stats{
		Messages:  c.messages.Load(),
		Records:   c.records.Load(),
		Ignored:   c.ignored.Load(),
		Malformed: c.malformed.Load(),
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		log.Printf("ingest: stopped after %d messages", c.messages.Load())
		return nil
	}
	return err
}

// IgnorableErrors resolves error codes to the sentinels engine.WithIgnore
// matches against.
func IgnorableErrors(codes []string) ([]error, error) {
	var errs []error
	for _, code := range codes {
		sentinel, ok := dberrors.FromCode(code)
		if !ok {
			return nil, fmt.Errorf("unknown error code %q in ignore list", code)
		}
		errs = append(errs, sentinel)
	}
	return errs, nil
}

// DecodeRecords decodes a JSON object, or an array of JSON objects, into
// records with key order preserved.
func DecodeRecords(data []byte) ([]types.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty message")
	}
	if data[0] == '[' {
		var recs []types.Record
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, err
		}
		return recs, nil
	}
	var rec types.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return []types.Record{rec}, nil
}
