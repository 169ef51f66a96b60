package har

import (
	"context"
	"path/filepath"

	"github.com/Paxxs/moledao-spider/internal/model"

	"go.uber.org/zap"
)

const (
	DefaultDir         = "har"
	DefaultListFile    = "moledao.io_api_career_list.har"
	DefaultDetailFile1 = "moledao.io_api_career_details1.har"
	DefaultDetailFile2 = "moledao.io_api_career_details2.har"
)

// Snapshot is one captured list file plus its ordered detail chunks.
type Snapshot struct {
	ListPath    string
	DetailPaths []string

	decoder *Decoder
}

func NewSnapshot(listPath string, detailPaths []string, logger *zap.Logger) Snapshot {
	return Snapshot{
		ListPath:    listPath,
		DetailPaths: append([]string(nil), detailPaths...),
		decoder:     NewDecoder(logger),
	}
}

// DefaultSnapshot uses the fixed file names under dir.
func DefaultSnapshot(dir string, logger *zap.Logger) Snapshot {
	if dir == "" {
		dir = DefaultDir
	}
	return NewSnapshot(
		filepath.Join(dir, DefaultListFile),
		[]string{
			filepath.Join(dir, DefaultDetailFile1),
			filepath.Join(dir, DefaultDetailFile2),
		},
		logger,
	)
}

func (s Snapshot) LoadList(ctx context.Context) ([]model.ListRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.dec().LoadListEntries(s.ListPath), nil
}

func (s Snapshot) LoadDetails(ctx context.Context) (map[string]model.DetailRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.dec().LoadDetailEntries(s.DetailPaths...), nil
}

func (s Snapshot) dec() *Decoder {
	if s.decoder == nil {
		return NewDecoder(nil)
	}
	return s.decoder
}
