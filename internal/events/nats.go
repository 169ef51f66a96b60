package events

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/Paxxs/moledao-spider/internal/errors"
	"github.com/Paxxs/moledao-spider/internal/telemetry"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("moledao-spider/events")

const DefaultNATSSubjectPrefix = "moledao.scrape"

type NATSOptions struct {
	URL           string
	SubjectPrefix string
	ConnTimeout   time.Duration
}

// NATSSink publishes every event as JSON on <prefix>.<kind>.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

func NewNATSSink(logger *zap.Logger, opts NATSOptions) (*NATSSink, error) {
	timeout := opts.ConnTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	conn, err := nats.Connect(opts.URL,
		nats.Name("moledao-spider"),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, apperrors.Unavailable("connecting to NATS", err)
	}
	return newNATSSink(conn, opts.SubjectPrefix, logger), nil
}

func newNATSSink(conn *nats.Conn, prefix string, logger *zap.Logger) *NATSSink {
	if prefix == "" {
		prefix = DefaultNATSSubjectPrefix
	}
	return &NATSSink{conn: conn, prefix: prefix, logger: logger}
}

func (s *NATSSink) Subject(kind Kind) string {
	return s.prefix + "." + string(kind)
}

func (s *NATSSink) Emit(ctx context.Context, ev Event) {
	_, span := tracer.Start(ctx, "NATSSink.Emit")
	defer span.End()

	data, err := json.Marshal(ev)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to marshal event", zap.String("kind", string(ev.Kind)), zap.Error(err))
		return
	}
	subject := s.Subject(ev.Kind)
	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(data)),
	)
	if err := s.conn.Publish(subject, data); err != nil {
		span.RecordError(err)
		s.logger.Warn("failed to publish event",
			zap.String("subject", subject),
			zap.Error(err))
	}
}

// Close flushes buffered publishes before closing the connection.
func (s *NATSSink) Close() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Drain(); err != nil {
		s.logger.Warn("NATS drain failed", zap.Error(err))
		s.conn.Close()
	}
}
