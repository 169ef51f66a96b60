// Package export renders normalized job records into numbered .docx files.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Paxxs/moledao-spider/internal/docx"
	apperrors "github.com/Paxxs/moledao-spider/internal/errors"
	"github.com/Paxxs/moledao-spider/internal/model"
	"github.com/Paxxs/moledao-spider/internal/runstore"
	"github.com/Paxxs/moledao-spider/internal/settings"
	"github.com/Paxxs/moledao-spider/internal/telemetry"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultChunkSize = 10
	defaultDirName   = "YuanJunjie-AiGrabber"
	emptyValue       = "-"
)

var (
	tracer       = telemetry.GetTracer("moledao-spider/export")
	jobsFileName = regexp.MustCompile(`^jobs-(\d{3,})\.docx$`)
)

type Exporter struct {
	logger  *zap.Logger
	homeDir func() (string, error)
}

func New(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{logger: logger, homeDir: os.UserHomeDir}
}

// Export writes records in order, JobsPerDoc per file. Files written before a
// failure are left on disk.
func (e *Exporter) Export(ctx context.Context, records []model.NormalizedRecord, s settings.RunSettings) (model.RunSummary, error) {
	ctx, span := tracer.Start(ctx, "export.Export")
	defer span.End()

	outputDir, err := e.resolveOutputDir(s.OutputDirectory)
	if err != nil {
		return model.RunSummary{}, e.fail(span, err)
	}
	span.SetAttributes(
		telemetry.String("export.output_directory", outputDir),
		telemetry.Int("export.records", len(records)),
	)

	if err := runstore.Mkdir(outputDir); err != nil {
		return model.RunSummary{}, e.fail(span, apperrors.ExportIO("create output directory", err))
	}
	lock, err := runstore.AcquireExportLock(outputDir)
	if err != nil {
		return model.RunSummary{}, e.fail(span, apperrors.ExportIO("lock output directory", err))
	}
	defer func() {
		_ = lock.Release()
	}()

	start := 1
	if s.Append {
		next, err := nextIndex(outputDir)
		if err != nil {
			return model.RunSummary{}, e.fail(span, apperrors.ExportIO("scan output directory", err))
		}
		start = next
	}

	fields := s.VisibleFields()
	summary := model.RunSummary{OutputDirectory: outputDir, Files: []string{}}
	for i, chunk := range Chunk(records, s.JobsPerDoc) {
		if err := ctx.Err(); err != nil {
			return summary, e.fail(span, err)
		}
		data, err := Render(chunk, fields).Bytes()
		if err != nil {
			return summary, e.fail(span, apperrors.ExportIO("render document", err))
		}
		name := FileName(start + i)
		path := filepath.Join(outputDir, name)
		if err := runstore.WriteBytes(path, data); err != nil {
			return summary, e.fail(span, apperrors.ExportIO("write "+name, err))
		}
		summary.Files = append(summary.Files, name)
		e.logger.Debug("wrote export file",
			zap.String("path", path),
			zap.Int("records", len(chunk)),
		)
	}

	span.SetAttributes(telemetry.Int("export.files", len(summary.Files)))
	e.logger.Info("export finished",
		zap.String("output_directory", outputDir),
		zap.Int("files", len(summary.Files)),
	)
	return summary, nil
}

func (e *Exporter) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Error("export failed", zap.Error(err))
	return err
}

func (e *Exporter) resolveOutputDir(raw string) (string, error) {
	dir := strings.TrimSpace(raw)
	if dir == "" {
		home, err := e.homeDir()
		if err != nil {
			return "", apperrors.ExportIO("resolve home directory", err)
		}
		dir = filepath.Join(home, "Documents", defaultDirName)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", apperrors.ExportIO("resolve output directory", err)
	}
	return abs, nil
}

// Chunk splits records into contiguous groups of size, keeping order.
// A size <= 0 means 10.
func Chunk(records []model.NormalizedRecord, size int) [][]model.NormalizedRecord {
	if size <= 0 {
		size = defaultChunkSize
	}
	out := make([][]model.NormalizedRecord, 0, (len(records)+size-1)/size)
	for i := 0; i < len(records); i += size {
		end := min(i+size, len(records))
		out = append(out, records[i:end])
	}
	return out
}

func FileName(index int) string {
	return fmt.Sprintf("jobs-%03d.docx", index)
}

func nextIndex(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := jobsFileName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return highest + 1, nil
}

// Render lays out one document for a chunk of records.
func Render(records []model.NormalizedRecord, fields []settings.FieldKey) *docx.Document {
	doc := docx.New()
	for i, rec := range records {
		doc.AddHeading(rec.Company, 1)
		doc.AddHeading(rec.Role+" ("+rec.TypeText+")", 2)
		for _, key := range fields {
			if line, ok := fieldLine(rec, key); ok {
				doc.AddText(line)
			}
		}
		doc.AddParagraph(docx.Run{Text: "content:", Bold: true})
		for _, para := range rec.ContentParagraphs {
			doc.AddText(para)
		}
		doc.AddText(rec.RelativeTime)
		doc.AddText("time: " + rec.UpdateDate)
		if i < len(records)-1 {
			doc.AddText("")
		}
	}
	return doc
}

func fieldLine(rec model.NormalizedRecord, key settings.FieldKey) (string, bool) {
	switch key {
	case settings.FieldLocation:
		return "Location: " + orDash(rec.Location), true
	case settings.FieldType:
		return "Type: " + rec.TypeText, true
	case settings.FieldPreferences:
		return "Preferences: " + rec.PreferenceText, true
	case settings.FieldExperience:
		return "Exp: " + rec.ExperienceText, true
	case settings.FieldTag:
		return "Tag: " + orDash(rec.TagText), true
	}
	return "", false
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyValue
	}
	return s
}
