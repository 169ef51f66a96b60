package har

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"strings"

	apperrors "github.com/Paxxs/moledao-spider/internal/errors"
	"github.com/Paxxs/moledao-spider/internal/model"

	"go.uber.org/zap"
)

const (
	ListURLMarker   = "/career/list"
	DetailURLMarker = "/career/details"
)

type archive struct {
	Log struct {
		Entries []entry `json:"entries"`
	} `json:"log"`
}

type entry struct {
	Request struct {
		URL string `json:"url"`
	} `json:"request"`
	Response struct {
		Content struct {
			Text     string `json:"text"`
			Encoding string `json:"encoding"`
		} `json:"content"`
	} `json:"response"`
}

type listEnvelope struct {
	Data *struct {
		List []json.RawMessage `json:"list"`
	} `json:"data"`
}

type detailEnvelope struct {
	Data *model.DetailRecord `json:"data"`
}

// Decoder reads career records out of HAR snapshots. Malformed input is logged
// and degrades to empty results, it never fails the caller.
type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// LoadListEntries returns data.list of the first /career/list entry in path.
func (d *Decoder) LoadListEntries(path string) []model.ListRecord {
	har, err := readArchive(path)
	if err != nil {
		d.warn(err)
		return []model.ListRecord{}
	}

	for _, e := range har.Log.Entries {
		if !strings.Contains(e.Request.URL, ListURLMarker) {
			continue
		}
		payload, err := decodeBody(e)
		if err != nil {
			d.warn(apperrors.MalformedInput("decode list body in "+path, err))
			return []model.ListRecord{}
		}
		var env listEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			d.warn(apperrors.MalformedInput("parse list envelope in "+path, err))
			return []model.ListRecord{}
		}
		if env.Data == nil {
			d.warn(apperrors.MalformedInput("list envelope without data in "+path, nil))
			return []model.ListRecord{}
		}

		out := make([]model.ListRecord, 0, len(env.Data.List))
		for i, raw := range env.Data.List {
			var rec model.ListRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				d.logger.Warn("skipping malformed list record",
					zap.String("path", path),
					zap.Int("index", i),
					zap.Error(err))
				continue
			}
			out = append(out, rec)
		}
		return out
	}

	d.logger.Warn("no career list entry in HAR", zap.String("path", path))
	return []model.ListRecord{}
}

// LoadDetailEntries walks every /career/details entry of paths in order.
// A later record with the same id replaces the earlier one.
func (d *Decoder) LoadDetailEntries(paths ...string) map[string]model.DetailRecord {
	out := make(map[string]model.DetailRecord)
	for _, path := range paths {
		har, err := readArchive(path)
		if err != nil {
			d.warn(err)
			continue
		}
		for _, e := range har.Log.Entries {
			if !strings.Contains(e.Request.URL, DetailURLMarker) {
				continue
			}
			payload, err := decodeBody(e)
			if err != nil {
				d.warn(apperrors.MalformedInput("decode detail body "+e.Request.URL, err))
				continue
			}
			var env detailEnvelope
			if err := json.Unmarshal(payload, &env); err != nil {
				d.warn(apperrors.MalformedInput("parse detail envelope "+e.Request.URL, err))
				continue
			}
			if env.Data == nil || env.Data.ID == "" {
				continue
			}
			out[string(env.Data.ID)] = *env.Data
		}
	}
	return out
}

func (d *Decoder) warn(err error) {
	d.logger.Warn("malformed HAR input", zap.Error(err))
}

func readArchive(path string) (archive, error) {
	var har archive
	data, err := os.ReadFile(path)
	if err != nil {
		return har, apperrors.MalformedInput("read HAR "+path, err)
	}
	if err := json.Unmarshal(data, &har); err != nil {
		return har, apperrors.MalformedInput("parse HAR "+path, err)
	}
	return har, nil
}

func decodeBody(e entry) ([]byte, error) {
	text := e.Response.Content.Text
	if text == "" {
		return nil, apperrors.MalformedInput("empty response body", nil)
	}
	if !strings.EqualFold(e.Response.Content.Encoding, "base64") {
		return []byte(text), nil
	}
	text = strings.TrimSpace(text)
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(text, "="))
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
