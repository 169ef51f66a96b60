// Package scraper drives one scrape run: load the HAR snapshot, normalize each
// job, stream progress to a sink, then export the documents.
package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Paxxs/moledao-spider/internal/events"
	"github.com/Paxxs/moledao-spider/internal/model"
	"github.com/Paxxs/moledao-spider/internal/normalize"
	"github.com/Paxxs/moledao-spider/internal/settings"
	"github.com/Paxxs/moledao-spider/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize = 3
	DefaultDelay     = 1100 * time.Millisecond

	msgAlreadyRunning = "Scrape already running."
	msgNoJobs         = "No jobs found in HAR snapshot."
	msgCancelled      = "Cancellation requested…"
	msgFailedPrefix   = "Scrape failed: "
)

var tracer = telemetry.GetTracer("moledao-spider/scraper")

type Source interface {
	LoadList(ctx context.Context) ([]model.ListRecord, error)
	LoadDetails(ctx context.Context) (map[string]model.DetailRecord, error)
}

type Exporter interface {
	Export(ctx context.Context, records []model.NormalizedRecord, s settings.RunSettings) (model.RunSummary, error)
}

// Archiver keeps a copy of exported records somewhere durable. Failures are
// logged and never change the run outcome.
type Archiver interface {
	SaveRecords(ctx context.Context, records []model.NormalizedRecord) error
}

type Options struct {
	BatchSize int
	// Delay is the pause after every ticker batch, including the last one.
	Delay    time.Duration
	Now      func() time.Time
	Archiver Archiver
}

func DefaultOptions() Options {
	return Options{
		BatchSize: DefaultBatchSize,
		Delay:     DefaultDelay,
		Now:       time.Now,
	}
}

type Service struct {
	source   Source
	exporter Exporter
	sink     events.Sink
	logger   *zap.Logger
	opts     Options

	mu        sync.Mutex
	status    model.RunStatus
	running   bool
	cancelled bool
	cancelCh  chan struct{}
	last      *model.RunSummary
}

func New(source Source, exporter Exporter, sink events.Sink, logger *zap.Logger, opts Options) *Service {
	if sink == nil {
		sink = events.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		source:   source,
		exporter: exporter,
		sink:     sink,
		logger:   logger,
		opts:     opts,
		status:   model.StatusIdle,
	}
}

func (s *Service) Status() model.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Service) LastSummary() (model.RunSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return model.RunSummary{}, false
	}
	return *s.last, true
}

// Cancel asks the current run to stop at its next checkpoint. It does nothing
// when no run is active.
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancelled {
		return
	}
	s.cancelled = true
	close(s.cancelCh)
}

// Start runs one scrape to completion and blocks until it ends. A second call
// while a run is active logs and returns nil; that notice is the one event
// emitted from the caller's goroutine rather than the run's, so sinks must be
// safe for concurrent Emit. Cancellation, by Cancel or by ctx, ends the run in
// the idle state without exporting. A Cancel that lands after the last
// checkpoint still logs the cancellation notice once the run returns.
func (s *Service) Start(ctx context.Context, rs settings.RunSettings) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log(ctx, model.LevelInfo, msgAlreadyRunning)
		return nil
	}
	s.running = true
	s.cancelled = false
	cancelCh := make(chan struct{})
	s.cancelCh = cancelCh
	s.mu.Unlock()

	cancelLogged := false
	defer func() {
		s.mu.Lock()
		late := s.cancelled && !cancelLogged
		s.running = false
		s.cancelled = false
		s.mu.Unlock()
		// Cancel arrived after the last checkpoint; the run kept its outcome.
		if late {
			s.log(ctx, model.LevelInfo, msgCancelled)
		}
	}()

	ctx, span := tracer.Start(ctx, "scraper.Run")
	defer span.End()

	s.setStatus(ctx, model.StatusRunning)

	err := s.run(ctx, rs, cancelCh)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errCancelled) || (ctx.Err() != nil && errors.Is(err, ctx.Err())):
		span.SetAttributes(telemetry.String("scrape.outcome", "cancelled"))
		cancelLogged = true
		s.log(ctx, model.LevelInfo, msgCancelled)
		s.setStatus(ctx, model.StatusIdle)
		return nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("scrape failed", zap.Error(err))
		s.log(ctx, model.LevelError, msgFailedPrefix+err.Error())
		s.setStatus(ctx, model.StatusError)
		return err
	}
}

var errCancelled = errors.New("scrape cancelled")

func (s *Service) run(ctx context.Context, rs settings.RunSettings, cancelCh <-chan struct{}) error {
	list, err := s.source.LoadList(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		s.log(ctx, model.LevelInfo, msgNoJobs)
		s.setStatus(ctx, model.StatusCompleted)
		return nil
	}
	details, err := s.source.LoadDetails(ctx)
	if err != nil {
		return err
	}

	total := len(list)
	records := make([]model.NormalizedRecord, 0, total)
	buffer := make([]model.TickerItem, 0, s.opts.BatchSize)
	for i, item := range list {
		if stopRequested(ctx, cancelCh) {
			return errCancelled
		}
		var detail *model.DetailRecord
		if d, ok := details[string(item.ID)]; ok {
			detail = &d
		}
		rec := normalize.Normalize(item, detail, s.opts.Now())
		records = append(records, rec)

		s.log(ctx, model.LevelInfo, rec.LogStub())
		s.sink.Emit(ctx, events.ProgressEvent(i+1, total))

		buffer = append(buffer, rec.Ticker())
		if len(buffer) >= s.opts.BatchSize || i == total-1 {
			s.sink.Emit(ctx, events.BatchEvent(buffer))
			buffer = buffer[:0]
			s.pause(ctx, cancelCh)
		}
	}
	if stopRequested(ctx, cancelCh) {
		return errCancelled
	}

	summary, err := s.exporter.Export(ctx, records, rs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.last = &summary
	s.mu.Unlock()
	s.sink.Emit(ctx, events.SummaryEvent(summary))
	s.setStatus(ctx, model.StatusCompleted)

	s.archive(ctx, records)
	return nil
}

func (s *Service) archive(ctx context.Context, records []model.NormalizedRecord) {
	if s.opts.Archiver == nil {
		return
	}
	if err := s.opts.Archiver.SaveRecords(ctx, records); err != nil {
		s.logger.Warn("archive records failed", zap.Int("records", len(records)), zap.Error(err))
		return
	}
	s.logger.Debug("archived records", zap.Int("records", len(records)))
}

// pause waits out the ticker delay, returning early on cancellation.
func (s *Service) pause(ctx context.Context, cancelCh <-chan struct{}) {
	if s.opts.Delay <= 0 {
		return
	}
	timer := time.NewTimer(s.opts.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-cancelCh:
	}
}

func stopRequested(ctx context.Context, cancelCh <-chan struct{}) bool {
	select {
	case <-cancelCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (s *Service) setStatus(ctx context.Context, to model.RunStatus) {
	s.mu.Lock()
	err := model.TransitionStatus(&s.status, to)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("status transition rejected", zap.Error(err))
		return
	}
	s.sink.Emit(ctx, events.StatusEvent(to))
}

func (s *Service) log(ctx context.Context, level, message string) {
	s.sink.Emit(ctx, events.LogEvent(model.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: s.opts.Now().UnixMilli(),
		Level:     level,
		Message:   message,
	}))
}
