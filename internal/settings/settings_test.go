package settings

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/Paxxs/moledao-spider/internal/errors"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load settings failed: %v", err)
	}
	if s.JobsPerDoc != DefaultJobsPerDoc {
		t.Fatalf("jobs per doc default mismatch: got %d want %d", s.JobsPerDoc, DefaultJobsPerDoc)
	}
	if !reflect.DeepEqual(s.FieldOrder, DefaultFieldOrder) {
		t.Fatalf("field order default mismatch: got %v want %v", s.FieldOrder, DefaultFieldOrder)
	}
	if len(s.HiddenFields) != 0 {
		t.Fatalf("expected no hidden fields, got %v", s.HiddenFields)
	}
	if s.OutputDirectory != "" {
		t.Fatalf("expected blank output directory, got %q", s.OutputDirectory)
	}
}

func TestNormalizeClampsAndRepairs(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 10},
		{-4, 1},
		{1, 1},
		{20, 20},
		{21, 20},
		{500, 20},
	}
	for _, tc := range cases {
		if got := ClampJobsPerDoc(tc.in); got != tc.want {
			t.Fatalf("clamp %d mismatch: got %d want %d", tc.in, got, tc.want)
		}
	}

	s := Normalize(RunSettings{
		OutputDirectory: "  /tmp/out  ",
		JobsPerDoc:      3,
		FieldOrder:      []FieldKey{"TAG", "bogus", FieldType, FieldTag},
		HiddenFields:    []FieldKey{FieldExperience, FieldExperience, "nope"},
	})
	wantOrder := []FieldKey{FieldTag, FieldType, FieldLocation, FieldPreferences, FieldExperience}
	if !reflect.DeepEqual(s.FieldOrder, wantOrder) {
		t.Fatalf("field order mismatch: got %v want %v", s.FieldOrder, wantOrder)
	}
	if !reflect.DeepEqual(s.HiddenFields, []FieldKey{FieldExperience}) {
		t.Fatalf("hidden fields mismatch: got %v", s.HiddenFields)
	}
	if s.OutputDirectory != "/tmp/out" {
		t.Fatalf("output directory mismatch: got %q", s.OutputDirectory)
	}
}

func TestVisibleFieldsFollowOrderMinusHidden(t *testing.T) {
	s := RunSettings{
		FieldOrder:   []FieldKey{FieldTag, FieldLocation, FieldType, FieldPreferences, FieldExperience},
		HiddenFields: []FieldKey{FieldLocation, FieldExperience},
	}
	want := []FieldKey{FieldTag, FieldType, FieldPreferences}
	if got := s.VisibleFields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("visible fields mismatch: got %v want %v", got, want)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	s := Defaults()
	s.JobsPerDoc = 21
	err := Validate(s)
	if !apperrors.Is(err, apperrors.ErrTypeInvalidSettings) {
		t.Fatalf("expected invalid settings error, got %v", err)
	}

	s = Defaults()
	s.HiddenFields = []FieldKey{"salary"}
	if err := Validate(s); err == nil {
		t.Fatal("expected unknown hidden field to be rejected")
	}

	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestParseFieldKeys(t *testing.T) {
	got, err := ParseFieldKeys(" Location, tag ,,type")
	if err != nil {
		t.Fatalf("parse field keys: %v", err)
	}
	want := []FieldKey{FieldLocation, FieldTag, FieldType}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("field keys mismatch: got %v want %v", got, want)
	}
	if _, err := ParseFieldKeys("location,salary"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.yaml")
	saved, err := Save(path, RunSettings{
		OutputDirectory: "/data/jobs",
		JobsPerDoc:      99,
		FieldOrder:      []FieldKey{FieldExperience},
		HiddenFields:    []FieldKey{FieldTag},
		Append:          true,
	})
	if err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if saved.JobsPerDoc != MaxJobsPerDoc {
		t.Fatalf("expected clamp on save, got %d", saved.JobsPerDoc)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if !reflect.DeepEqual(loaded, saved) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, saved)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("jobs_per_doc: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
