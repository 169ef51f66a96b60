package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"

	apperrors "github.com/Paxxs/moledao-spider/internal/errors"
	"github.com/Paxxs/moledao-spider/internal/runstore"
)

type FieldKey string

const (
	FieldLocation    FieldKey = "location"
	FieldType        FieldKey = "type"
	FieldPreferences FieldKey = "preferences"
	FieldExperience  FieldKey = "experience"
	FieldTag         FieldKey = "tag"
)

const (
	DefaultJobsPerDoc = 10
	MinJobsPerDoc     = 1
	MaxJobsPerDoc     = 20
)

// DefaultFieldOrder is also the canonical order used to complete partial orders.
var DefaultFieldOrder = []FieldKey{FieldLocation, FieldPreferences, FieldType, FieldExperience, FieldTag}

type RunSettings struct {
	OutputDirectory string     `yaml:"output_directory,omitempty" json:"output_directory,omitempty"`
	JobsPerDoc      int        `yaml:"jobs_per_doc" json:"jobs_per_doc"`
	FieldOrder      []FieldKey `yaml:"field_order" json:"field_order"`
	HiddenFields    []FieldKey `yaml:"hidden_fields" json:"hidden_fields"`
	Append          bool       `yaml:"append,omitempty" json:"append,omitempty"`
}

func Defaults() RunSettings {
	return RunSettings{
		JobsPerDoc:   DefaultJobsPerDoc,
		FieldOrder:   append([]FieldKey(nil), DefaultFieldOrder...),
		HiddenFields: []FieldKey{},
	}
}

func IsFieldKey(k FieldKey) bool {
	for _, f := range DefaultFieldOrder {
		if f == k {
			return true
		}
	}
	return false
}

func ParseFieldKeys(raw string) ([]FieldKey, error) {
	out := []FieldKey{}
	for _, part := range strings.Split(raw, ",") {
		v := FieldKey(strings.ToLower(strings.TrimSpace(part)))
		if v == "" {
			continue
		}
		if !IsFieldKey(v) {
			return nil, apperrors.InvalidSettings(fmt.Sprintf("unknown field %q", v), nil)
		}
		out = append(out, v)
	}
	return out, nil
}

// Normalize clamps and repairs settings the way the settings store persists them.
func Normalize(raw RunSettings) RunSettings {
	norm := raw
	norm.OutputDirectory = strings.TrimSpace(norm.OutputDirectory)
	norm.JobsPerDoc = ClampJobsPerDoc(norm.JobsPerDoc)
	norm.FieldOrder = normalizeOrder(norm.FieldOrder)
	norm.HiddenFields = normalizeKeys(norm.HiddenFields)
	return norm
}

func ClampJobsPerDoc(n int) int {
	if n == 0 {
		return DefaultJobsPerDoc
	}
	if n < MinJobsPerDoc {
		return MinJobsPerDoc
	}
	if n > MaxJobsPerDoc {
		return MaxJobsPerDoc
	}
	return n
}

// Validate reports settings a user typed in that Normalize would silently change.
func Validate(s RunSettings) error {
	if s.JobsPerDoc < MinJobsPerDoc || s.JobsPerDoc > MaxJobsPerDoc {
		return apperrors.InvalidSettings(
			fmt.Sprintf("jobs per doc must be between %d and %d, got %d", MinJobsPerDoc, MaxJobsPerDoc, s.JobsPerDoc), nil)
	}
	for _, k := range append(append([]FieldKey(nil), s.FieldOrder...), s.HiddenFields...) {
		if !IsFieldKey(k) {
			return apperrors.InvalidSettings(fmt.Sprintf("unknown field %q", k), nil)
		}
	}
	return nil
}

// VisibleFields is FieldOrder minus HiddenFields, in order.
func (s RunSettings) VisibleFields() []FieldKey {
	hidden := make(map[FieldKey]bool, len(s.HiddenFields))
	for _, k := range s.HiddenFields {
		hidden[k] = true
	}
	out := make([]FieldKey, 0, len(s.FieldOrder))
	for _, k := range s.FieldOrder {
		if !hidden[k] {
			out = append(out, k)
		}
	}
	return out
}

func normalizeKeys(raw []FieldKey) []FieldKey {
	out := make([]FieldKey, 0, len(raw))
	seen := make(map[FieldKey]bool, len(raw))
	for _, k := range raw {
		v := FieldKey(strings.ToLower(strings.TrimSpace(string(k))))
		if !IsFieldKey(v) || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func normalizeOrder(raw []FieldKey) []FieldKey {
	out := normalizeKeys(raw)
	seen := make(map[FieldKey]bool, len(out))
	for _, k := range out {
		seen[k] = true
	}
	for _, k := range DefaultFieldOrder {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return out
}

// Load reads the YAML settings file; a missing file yields defaults.
func Load(path string) (RunSettings, error) {
	s := Defaults()
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	if err := runstore.ReadYAML(path, &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return RunSettings{}, err
	}
	return Normalize(s), nil
}

func Save(path string, s RunSettings) (RunSettings, error) {
	if strings.TrimSpace(path) == "" {
		return RunSettings{}, fmt.Errorf("settings path is required")
	}
	norm := Normalize(s)
	if err := runstore.WriteYAML(path, norm); err != nil {
		return RunSettings{}, err
	}
	return norm, nil
}
