package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/Paxxs/moledao-spider/internal/errors"
	"github.com/Paxxs/moledao-spider/internal/events"
	"github.com/Paxxs/moledao-spider/internal/export"
	"github.com/Paxxs/moledao-spider/internal/model"
	"github.com/Paxxs/moledao-spider/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	list    []model.ListRecord
	details map[string]model.DetailRecord
	listErr error
}

func (f fakeSource) LoadList(context.Context) ([]model.ListRecord, error) {
	return f.list, f.listErr
}

func (f fakeSource) LoadDetails(context.Context) (map[string]model.DetailRecord, error) {
	return f.details, nil
}

type fakeExporter struct {
	mu      sync.Mutex
	calls   int
	records []model.NormalizedRecord
	err     error
}

func (f *fakeExporter) Export(_ context.Context, records []model.NormalizedRecord, s settings.RunSettings) (model.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.records = append([]model.NormalizedRecord(nil), records...)
	if f.err != nil {
		return model.RunSummary{}, f.err
	}
	return model.RunSummary{OutputDirectory: s.OutputDirectory, Files: []string{"jobs-001.docx"}}, nil
}

type fakeArchiver struct {
	saved []model.NormalizedRecord
	err   error
}

func (f *fakeArchiver) SaveRecords(_ context.Context, records []model.NormalizedRecord) error {
	f.saved = append(f.saved, records...)
	return f.err
}

func ptr[T any](v T) *T { return &v }

func listRecords(n int) []model.ListRecord {
	out := make([]model.ListRecord, n)
	for i := range out {
		out[i] = model.ListRecord{
			ID:         model.RecordID(fmt.Sprintf("%d", i+1)),
			Name:       ptr(fmt.Sprintf("Role %d", i+1)),
			Belonging:  &model.Belonging{Name: ptr(fmt.Sprintf("Company %d", i+1))},
			Career:     model.Career{Preferences: ptr(1), Type: ptr(1)},
			UpdateDate: ptr("2025-02-27T12:00:00Z"),
		}
	}
	return out
}

func testOptions() Options {
	return Options{BatchSize: 3, Delay: 0, Now: func() time.Time { return fixedNow }}
}

func TestStartEndToEnd(t *testing.T) {
	details := map[string]model.DetailRecord{}
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("%d", i)
		details[id] = model.DetailRecord{
			ID:      model.RecordID(id),
			Content: &model.Content{Content: ptr("<p>Detail " + id + "</p>")},
			Tags:    []model.Tag{{Name: "Go"}},
		}
	}
	rec := events.NewRecorder()
	dir := t.TempDir()
	svc := New(fakeSource{list: listRecords(7), details: details}, export.New(nil), rec, nil, testOptions())

	s := settings.Defaults()
	s.OutputDirectory = dir
	s.JobsPerDoc = 3
	require.NoError(t, svc.Start(context.Background(), s))

	assert.Equal(t, []model.RunStatus{model.StatusRunning, model.StatusCompleted}, rec.Statuses())
	assert.Equal(t, model.StatusCompleted, svc.Status())

	progress := rec.Progress()
	require.Len(t, progress, 7)
	for i, p := range progress {
		assert.Equal(t, model.Progress{Processed: i + 1, Total: 7}, p)
	}

	var sizes []int
	var ids []string
	for _, b := range rec.Batches() {
		sizes = append(sizes, len(b))
		for _, item := range b {
			ids = append(ids, item.ID)
		}
	}
	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7"}, ids)

	msgs := rec.Messages()
	require.Len(t, msgs, 7)
	assert.True(t, strings.HasPrefix(msgs[0], "[Company 1][Role 1]-["), msgs[0])

	summaries := rec.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, dir, summaries[0].OutputDirectory)
	assert.Equal(t, []string{"jobs-001.docx", "jobs-002.docx", "jobs-003.docx"}, summaries[0].Files)

	last, ok := svc.LastSummary()
	require.True(t, ok)
	assert.Equal(t, summaries[0], last)
}

func TestStartEventOrder(t *testing.T) {
	rec := events.NewRecorder()
	svc := New(fakeSource{list: listRecords(2)}, &fakeExporter{}, rec, nil, testOptions())
	require.NoError(t, svc.Start(context.Background(), settings.Defaults()))

	var kinds []events.Kind
	for _, ev := range rec.Events() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []events.Kind{
		events.KindStatus,
		events.KindLog, events.KindProgress,
		events.KindLog, events.KindProgress, events.KindJobBatch,
		events.KindSummary,
		events.KindStatus,
	}, kinds)
}

func TestStartDetailOverridesListFields(t *testing.T) {
	list := listRecords(2)
	details := map[string]model.DetailRecord{
		"2": {ID: "2", Name: ptr("Staff Engineer")},
	}
	exp := &fakeExporter{}
	svc := New(fakeSource{list: list, details: details}, exp, events.NewRecorder(), nil, testOptions())
	require.NoError(t, svc.Start(context.Background(), settings.Defaults()))

	require.Len(t, exp.records, 2)
	assert.Equal(t, "Role 1", exp.records[0].Role)
	assert.Equal(t, "Staff Engineer", exp.records[1].Role)
	assert.Equal(t, "Company 2", exp.records[1].Company)
}

func TestCancelStopsBeforeExport(t *testing.T) {
	rec := events.NewRecorder()
	exp := &fakeExporter{}
	var svc *Service
	hook := events.SinkFunc(func(_ context.Context, ev events.Event) {
		if ev.Kind == events.KindProgress && ev.Progress.Processed == 2 {
			svc.Cancel()
		}
	})
	svc = New(fakeSource{list: listRecords(5)}, exp, events.Multi{rec, hook}, nil, testOptions())

	require.NoError(t, svc.Start(context.Background(), settings.Defaults()))

	assert.Len(t, rec.Progress(), 2)
	assert.Equal(t, []model.RunStatus{model.StatusRunning, model.StatusIdle}, rec.Statuses())
	assert.Equal(t, 0, exp.calls)
	assert.Empty(t, rec.Summaries())

	msgs := rec.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Cancellation requested…", msgs[len(msgs)-1])

	_, ok := svc.LastSummary()
	assert.False(t, ok)
	assert.Equal(t, model.StatusIdle, svc.Status())
}

type cancellingExporter struct {
	svc *Service
}

func (c *cancellingExporter) Export(_ context.Context, _ []model.NormalizedRecord, s settings.RunSettings) (model.RunSummary, error) {
	c.svc.Cancel()
	return model.RunSummary{OutputDirectory: s.OutputDirectory, Files: []string{"jobs-001.docx"}}, nil
}

func TestCancelDuringExportStillLogsNotice(t *testing.T) {
	rec := events.NewRecorder()
	exp := &cancellingExporter{}
	svc := New(fakeSource{list: listRecords(2)}, exp, rec, nil, testOptions())
	exp.svc = svc

	require.NoError(t, svc.Start(context.Background(), settings.Defaults()))

	assert.Equal(t, []model.RunStatus{model.StatusRunning, model.StatusCompleted}, rec.Statuses())
	require.Len(t, rec.Summaries(), 1)

	msgs := rec.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Cancellation requested…", msgs[len(msgs)-1])
	assert.Equal(t, 1, strings.Count(strings.Join(msgs, "\n"), "Cancellation requested…"))
}

type cancellingSource struct {
	svc *Service
}

func (c *cancellingSource) LoadList(context.Context) ([]model.ListRecord, error) {
	c.svc.Cancel()
	return nil, nil
}

func (c *cancellingSource) LoadDetails(context.Context) (map[string]model.DetailRecord, error) {
	return nil, nil
}

func TestCancelDuringEmptyListStillLogsNotice(t *testing.T) {
	rec := events.NewRecorder()
	src := &cancellingSource{}
	svc := New(src, &fakeExporter{}, rec, nil, testOptions())
	src.svc = svc

	require.NoError(t, svc.Start(context.Background(), settings.Defaults()))

	assert.Equal(t, []model.RunStatus{model.StatusRunning, model.StatusCompleted}, rec.Statuses())
	assert.Equal(t, []string{"No jobs found in HAR snapshot.", "Cancellation requested…"}, rec.Messages())
}

func TestCancelWhenIdleIsNoop(t *testing.T) {
	rec := events.NewRecorder()
	svc := New(fakeSource{}, &fakeExporter{}, rec, nil, testOptions())
	svc.Cancel()
	assert.Empty(t, rec.Events())
	assert.Equal(t, model.StatusIdle, svc.Status())
}

func TestContextCancellationEndsIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := events.NewRecorder()
	exp := &fakeExporter{}
	svc := New(fakeSource{list: listRecords(3)}, exp, rec, nil, testOptions())
	require.NoError(t, svc.Start(ctx, settings.Defaults()))

	assert.Equal(t, []model.RunStatus{model.StatusRunning, model.StatusIdle}, rec.Statuses())
	assert.Empty(t, rec.Progress())
	assert.Equal(t, 0, exp.calls)
}

func TestStartEmptyList(t *testing.T) {
	rec := events.NewRecorder()
	exp := &fakeExporter{}
	svc := New(fakeSource{}, exp, rec, nil, testOptions())
	require.NoError(t, svc.Start(context.Background(), settings.Defaults()))

	assert.Equal(t, []model.RunStatus{model.StatusRunning, model.StatusCompleted}, rec.Statuses())
	assert.Equal(t, []string{"No jobs found in HAR snapshot."}, rec.Messages())
	assert.Equal(t, 0, exp.calls)
	assert.Empty(t, rec.Summaries())
}

func TestStartExportFailure(t *testing.T) {
	rec := events.NewRecorder()
	exp := &fakeExporter{err: apperrors.ExportIO("write jobs-001.docx", errors.New("disk full"))}
	svc := New(fakeSource{list: listRecords(1)}, exp, rec, nil, testOptions())

	err := svc.Start(context.Background(), settings.Defaults())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTypeExportIO))

	assert.Equal(t, []model.RunStatus{model.StatusRunning, model.StatusError}, rec.Statuses())
	msgs := rec.Messages()
	assert.Equal(t, "Scrape failed: "+err.Error(), msgs[len(msgs)-1])
	assert.Equal(t, model.StatusError, svc.Status())

	exp.err = nil
	require.NoError(t, svc.Start(context.Background(), settings.Defaults()))
	assert.Equal(t, model.StatusCompleted, svc.Status())
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	src := blockingSource{fakeSource: fakeSource{list: listRecords(1)}, entered: entered, release: release}
	rec := events.NewRecorder()
	exp := &fakeExporter{}
	svc := New(src, exp, rec, nil, testOptions())

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background(), settings.Defaults()) }()
	<-entered

	require.NoError(t, svc.Start(context.Background(), settings.Defaults()))
	assert.Contains(t, rec.Messages(), "Scrape already running.")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, exp.calls)
	assert.Equal(t, []model.RunStatus{model.StatusRunning, model.StatusCompleted}, rec.Statuses())
}

type blockingSource struct {
	fakeSource
	entered chan struct{}
	release chan struct{}
}

func (b blockingSource) LoadList(ctx context.Context) ([]model.ListRecord, error) {
	close(b.entered)
	<-b.release
	return b.fakeSource.LoadList(ctx)
}

func TestArchiverFailureIsNotFatal(t *testing.T) {
	arch := &fakeArchiver{err: errors.New("db down")}
	opts := testOptions()
	opts.Archiver = arch
	rec := events.NewRecorder()
	svc := New(fakeSource{list: listRecords(2)}, &fakeExporter{}, rec, nil, opts)

	require.NoError(t, svc.Start(context.Background(), settings.Defaults()))
	assert.Len(t, arch.saved, 2)
	assert.Equal(t, model.StatusCompleted, svc.Status())
}

func TestPauseWakesOnCancel(t *testing.T) {
	rec := events.NewRecorder()
	var svc *Service
	hook := events.SinkFunc(func(_ context.Context, ev events.Event) {
		if ev.Kind == events.KindJobBatch {
			svc.Cancel()
		}
	})
	opts := testOptions()
	opts.Delay = time.Hour
	svc = New(fakeSource{list: listRecords(4)}, &fakeExporter{}, events.Multi{rec, hook}, nil, opts)

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background(), settings.Defaults()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel during pause")
	}
	assert.Len(t, rec.Progress(), 3)
	assert.Equal(t, model.StatusIdle, svc.Status())
}
