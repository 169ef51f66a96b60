package cli

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/Paxxs/moledao-spider/internal/config"
	"github.com/Paxxs/moledao-spider/internal/events"
	"github.com/Paxxs/moledao-spider/internal/runstore"
	"github.com/Paxxs/moledao-spider/internal/store"
	"github.com/Paxxs/moledao-spider/internal/telemetry"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	serviceName    = "moledao-spider"
	serviceVersion = "dev"
	logFileName    = "moledao-spider.log"
)

// newLogger builds the process logger. When toFile is set, output goes to
// <state dir>/moledao-spider.log so a full-screen view keeps the terminal.
func newLogger(cfg *config.Config, verbose, toFile bool) (*zap.Logger, error) {
	var zc zap.Config
	if verbose || cfg.LogDev {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = zapcore.InfoLevel
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if toFile {
		if err := runstore.Mkdir(cfg.StateDir); err != nil {
			return nil, err
		}
		path := filepath.Join(cfg.StateDir, logFileName)
		zc.OutputPaths = []string{path}
		zc.ErrorOutputPaths = []string{path}
	}
	return zc.Build()
}

// transports are the optional outbound integrations configured through the
// environment. Each one that cannot be reached is logged and skipped.
type transports struct {
	sinks    events.Multi
	archiver *store.Postgres
	closers  []func(context.Context)
}

func openTransports(ctx context.Context, cfg *config.Config, logger *zap.Logger) *transports {
	t := &transports{}

	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		shutdown, err := telemetry.InitTracer(ctx, serviceName, serviceVersion, endpoint)
		if err != nil {
			logger.Warn("tracing disabled", zap.String("endpoint", endpoint), zap.Error(err))
		} else {
			t.closers = append(t.closers, func(ctx context.Context) {
				if err := shutdown(ctx); err != nil {
					logger.Warn("tracer shutdown failed", zap.Error(err))
				}
			})
		}
	}

	if cfg.NATSURL != "" {
		sink, err := events.NewNATSSink(logger, events.NATSOptions{
			URL:           cfg.NATSURL,
			SubjectPrefix: cfg.NATSPrefix,
			ConnTimeout:   cfg.NATSConnTimeout,
		})
		if err != nil {
			logger.Warn("nats sink disabled", zap.Error(err))
		} else {
			t.sinks = append(t.sinks, sink)
			t.closers = append(t.closers, func(context.Context) { sink.Close() })
		}
	}

	if cfg.RedisURL != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis sink disabled", zap.Error(err))
		} else {
			sink := events.NewRedisSink(rdb, cfg.RedisPrefix, logger)
			t.sinks = append(t.sinks, sink)
			t.closers = append(t.closers, func(context.Context) {
				if err := sink.Close(); err != nil {
					logger.Warn("redis close failed", zap.Error(err))
				}
			})
		}
	}

	if cfg.DatabaseURL != "" {
		pg, err := store.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Warn("postgres archive disabled", zap.Error(err))
		} else {
			t.archiver = pg
			t.closers = append(t.closers, func(context.Context) { pg.Close() })
		}
	}
	return t
}

func (t *transports) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(t.closers) - 1; i >= 0; i-- {
		t.closers[i](ctx)
	}
}
