package cli

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Paxxs/moledao-spider/internal/config"
	"github.com/Paxxs/moledao-spider/internal/events"
	"github.com/Paxxs/moledao-spider/internal/runstore"
	"github.com/Paxxs/moledao-spider/internal/scraper"
	"github.com/Paxxs/moledao-spider/internal/settings"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type scheduleParams struct {
	CronSpec string
	Snapshot snapshotOptions
	Verbose  bool
	RunNow   bool
}

// scheduler fires one scrape per cron tick. Ticks that land while a run is
// still going hit the service's already-running guard.
type scheduler struct {
	cron   *cron.Cron
	spec   string
	runNow bool
	svc    *scraper.Service
	cfg    *config.Config
	logger *zap.Logger
	ctx    context.Context
	stop   context.CancelFunc
}

func newScheduler(params scheduleParams, cfg *config.Config, logger *zap.Logger, svc *scraper.Service) *scheduler {
	ctx, stop := context.WithCancel(context.Background())
	return &scheduler{
		cron:   cron.New(cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(logger)))),
		spec:   params.CronSpec,
		runNow: params.RunNow,
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		stop:   stop,
	}
}

func (s *scheduler) Start(context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec))
	if s.runNow {
		go s.tick()
	}
	return nil
}

func (s *scheduler) Stop(ctx context.Context) error {
	s.svc.Cancel()
	s.stop()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *scheduler) tick() {
	rs, err := settings.Load(s.cfg.SettingsPath)
	if err != nil {
		s.logger.Error("load settings", zap.String("path", s.cfg.SettingsPath), zap.Error(err))
		return
	}
	if err := s.svc.Start(s.ctx, rs); err != nil {
		s.logger.Error("scheduled run failed", zap.Error(err))
		return
	}
	if summary, ok := s.svc.LastSummary(); ok {
		if err := runstore.SaveSummary(s.cfg.StateDir, summary); err != nil {
			s.logger.Warn("failed to persist last summary", zap.Error(err))
		}
	}
}

func runSchedule(args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	spec := fs.String("cron", "", "cron spec (default: $MOLEDAO_SCHEDULE or @every 6h)")
	harDir := fs.String("har-dir", "", "HAR snapshot directory (default: $MOLEDAO_HAR_DIR or ./har)")
	runNow := fs.Bool("now", false, "run once immediately at startup")
	verbose := fs.Bool("verbose", false, "development logging")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*harDir) != "" {
		cfg.HARDir = strings.TrimSpace(*harDir)
	}
	cronSpec := strings.TrimSpace(*spec)
	if cronSpec == "" {
		cronSpec = cfg.Schedule
	}
	if _, err := cron.ParseStandard(cronSpec); err != nil {
		return errors.New("invalid --cron spec: " + err.Error())
	}
	params := scheduleParams{
		CronSpec: cronSpec,
		Snapshot: snapshotOptions{HARDir: cfg.HARDir},
		Verbose:  *verbose,
		RunNow:   *runNow,
	}

	app := fx.New(
		fx.NopLogger,
		fx.Supply(params, cfg),
		fx.Provide(
			newScheduleLogger,
			newScheduleTransports,
			newScheduleService,
			newScheduler,
		),
		fx.Invoke(func(lc fx.Lifecycle, s *scheduler) {
			lc.Append(fx.Hook{OnStart: s.Start, OnStop: s.Stop})
		}),
	)

	startCtx := context.Background()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	signal.Stop(c)

	return app.Stop(context.Background())
}

func newScheduleLogger(params scheduleParams, cfg *config.Config, lc fx.Lifecycle) (*zap.Logger, error) {
	logger, err := newLogger(cfg, params.Verbose, false)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		_ = logger.Sync()
		return nil
	}})
	return logger, nil
}

func newScheduleTransports(cfg *config.Config, logger *zap.Logger, lc fx.Lifecycle) *transports {
	t := openTransports(context.Background(), cfg, logger)
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		t.Close()
		return nil
	}})
	return t
}

func newScheduleService(params scheduleParams, cfg *config.Config, logger *zap.Logger, t *transports) *scraper.Service {
	sinks := events.Multi{events.NewLogSink(logger)}
	sinks = append(sinks, t.sinks...)
	return newScrapeService(cfg, logger, params.Snapshot, sinks, t, false)
}
