package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Paxxs/moledao-spider/internal/config"
	"github.com/Paxxs/moledao-spider/internal/events"
	"github.com/Paxxs/moledao-spider/internal/export"
	"github.com/Paxxs/moledao-spider/internal/har"
	"github.com/Paxxs/moledao-spider/internal/model"
	"github.com/Paxxs/moledao-spider/internal/runstore"
	"github.com/Paxxs/moledao-spider/internal/scraper"
	"github.com/Paxxs/moledao-spider/internal/settings"

	"go.uber.org/zap"
)

type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("value must not be empty")
	}
	*s = append(*s, v)
	return nil
}

// snapshotOptions picks the HAR files a run reads.
type snapshotOptions struct {
	HARDir     string
	ListHAR    string
	DetailHARs []string
}

func (o snapshotOptions) source(logger *zap.Logger) har.Snapshot {
	def := har.DefaultSnapshot(o.HARDir, logger)
	if o.ListHAR == "" && len(o.DetailHARs) == 0 {
		return def
	}
	list := def.ListPath
	if o.ListHAR != "" {
		list = o.ListHAR
	}
	details := def.DetailPaths
	if len(o.DetailHARs) > 0 {
		details = o.DetailHARs
	}
	return har.NewSnapshot(list, details, logger)
}

func newScrapeService(cfg *config.Config, logger *zap.Logger, snap snapshotOptions, sink events.Sink, t *transports, noDelay bool) *scraper.Service {
	opts := scraper.DefaultOptions()
	opts.Delay = cfg.TickerDelay
	if noDelay {
		opts.Delay = 0
	}
	if t != nil && t.archiver != nil {
		opts.Archiver = t.archiver
	}
	return scraper.New(snap.source(logger), export.New(logger), sink, logger, opts)
}

func runScrape(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	harDir := fs.String("har-dir", "", "HAR snapshot directory (default: $MOLEDAO_HAR_DIR or ./har)")
	listHAR := fs.String("list-har", "", "career list HAR file (default: <har-dir>/"+har.DefaultListFile+")")
	var detailHARs stringList
	fs.Var(&detailHARs, "detail-har", "career details HAR file; repeat for more chunks")
	outputDir := fs.String("output-dir", "", "directory for jobs-NNN.docx (empty keeps settings)")
	jobsPerDoc := fs.Int("jobs-per-doc", 0, "records per document, 1-20 (0 keeps settings)")
	appendMode := fs.Bool("append", false, "continue numbering after existing jobs-NNN.docx")
	overwrite := fs.Bool("overwrite", false, "number files from jobs-001.docx")
	settingsPath := fs.String("settings", "", "settings file (default: $MOLEDAO_SETTINGS_PATH)")
	verbose := fs.Bool("verbose", false, "development logging")
	jsonOut := fs.Bool("json", false, "stream run events as JSON lines")
	tui := fs.Bool("tui", false, "live terminal view")
	noDelay := fs.Bool("no-delay", false, "skip the pause between ticker batches")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *appendMode && *overwrite {
		return errors.New("--append and --overwrite are mutually exclusive")
	}
	if *jobsPerDoc != 0 && (*jobsPerDoc < settings.MinJobsPerDoc || *jobsPerDoc > settings.MaxJobsPerDoc) {
		return fmt.Errorf("--jobs-per-doc must be between %d and %d", settings.MinJobsPerDoc, settings.MaxJobsPerDoc)
	}
	if *tui && *jsonOut {
		return errors.New("--tui and --json are mutually exclusive")
	}
	if *tui && !stdinIsTTY() {
		return errors.New("--tui requires an interactive terminal (TTY)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*harDir) != "" {
		cfg.HARDir = strings.TrimSpace(*harDir)
	}
	if strings.TrimSpace(*settingsPath) != "" {
		cfg.SettingsPath = strings.TrimSpace(*settingsPath)
	}

	rs, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*outputDir) != "" {
		rs.OutputDirectory = strings.TrimSpace(*outputDir)
	}
	if *jobsPerDoc != 0 {
		rs.JobsPerDoc = *jobsPerDoc
	}
	if *appendMode {
		rs.Append = true
	}
	if *overwrite {
		rs.Append = false
	}

	logger, err := newLogger(cfg, *verbose, *tui)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	t := openTransports(ctx, cfg, logger)
	defer t.Close()

	snap := snapshotOptions{HARDir: cfg.HARDir, ListHAR: strings.TrimSpace(*listHAR), DetailHARs: detailHARs}

	if *tui {
		return runWithTUI(ctx, cfg, logger, snap, t, rs, *noDelay)
	}

	sinks := events.Multi{}
	if *jsonOut {
		sinks = append(sinks, events.NewJSONLines(os.Stdout, logger))
	} else {
		sinks = append(sinks, consoleSink{w: os.Stdout})
	}
	if *verbose {
		sinks = append(sinks, events.NewLogSink(logger))
	}
	sinks = append(sinks, t.sinks...)

	svc := newScrapeService(cfg, logger, snap, sinks, t, *noDelay)
	stop := cancelOnSignal(svc)
	runErr := svc.Start(ctx, rs)
	stop()

	summary, ok := svc.LastSummary()
	if ok {
		if err := runstore.SaveSummary(cfg.StateDir, summary); err != nil {
			logger.Warn("failed to persist last summary", zap.Error(err))
		}
		if !*jsonOut {
			printSummary(os.Stdout, summary)
		}
	}
	return runErr
}

// cancelOnSignal turns SIGINT/SIGTERM into svc.Cancel until the returned func
// is called.
func cancelOnSignal(svc *scraper.Service) func() {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		for {
			select {
			case <-sigCh:
				svc.Cancel()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// consoleSink prints log lines and status changes as plain text.
type consoleSink struct {
	w io.Writer
}

func (c consoleSink) Emit(_ context.Context, ev events.Event) {
	switch ev.Kind {
	case events.KindLog:
		if ev.Log == nil {
			return
		}
		if ev.Log.Level == model.LevelError {
			fmt.Fprintf(c.w, "error: %s\n", ev.Log.Message)
			return
		}
		fmt.Fprintln(c.w, ev.Log.Message)
	case events.KindStatus:
		fmt.Fprintf(c.w, "status: %s\n", ev.Status)
	}
}

func printSummary(w io.Writer, summary model.RunSummary) {
	fmt.Fprintf(w, "output: %s\n", summary.OutputDirectory)
	if len(summary.Files) == 0 {
		fmt.Fprintln(w, "files: (none)")
		return
	}
	fmt.Fprintln(w, "files:")
	for i, f := range summary.Files {
		fmt.Fprintf(w, "  %d. %s\n", i+1, f)
	}
}
