package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// RecordID accepts both string and numeric ids from the careers API.
type RecordID string

func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = RecordID(n.String())
	return nil
}

type Belonging struct {
	Name *string `json:"name,omitempty"`
}

type Career struct {
	Preferences *int    `json:"preferences,omitempty"`
	Type        *int    `json:"type,omitempty"`
	Base        *string `json:"base,omitempty"`
}

type DetailCareer struct {
	Career
	Experience *int `json:"experience,omitempty"`
}

// ListRecord is one job summary from the career list endpoint.
type ListRecord struct {
	ID         RecordID   `json:"id"`
	Name       *string    `json:"name,omitempty"`
	Belonging  *Belonging `json:"belonging,omitempty"`
	Career     Career     `json:"career"`
	UpdateDate *string    `json:"updateDate,omitempty"`
}

type Content struct {
	Content *string `json:"content,omitempty"`
}

type Tag struct {
	Name string `json:"name"`
}

// DetailRecord is one job from the career details endpoint, keyed by the list record id.
type DetailRecord struct {
	ID         RecordID     `json:"id"`
	Name       *string      `json:"name,omitempty"`
	Belonging  *Belonging   `json:"belonging,omitempty"`
	Career     DetailCareer `json:"career"`
	UpdateDate *string      `json:"updateDate,omitempty"`
	Content    *Content     `json:"content,omitempty"`
	Tags       []Tag        `json:"tags,omitempty"`
}

type NormalizedRecord struct {
	ID                string   `json:"id"`
	Company           string   `json:"company"`
	Role              string   `json:"role"`
	TypeText          string   `json:"type_text"`
	PreferenceText    string   `json:"preference_text"`
	ExperienceText    string   `json:"experience_text"`
	Location          string   `json:"location"`
	TagText           string   `json:"tag_text"`
	ContentParagraphs []string `json:"content_paragraphs"`
	RelativeTime      string   `json:"relative_time"`
	UpdateDate        string   `json:"update_date"`
}

// LogStub is the per-record progress line.
func (r NormalizedRecord) LogStub() string {
	return "[" + r.Company + "][" + r.Role + "]-[" + r.PreferenceText + "]"
}

func (r NormalizedRecord) Ticker() TickerItem {
	return TickerItem{
		ID:         r.ID,
		Company:    r.Company,
		Title:      r.Role,
		Preference: r.PreferenceText,
	}
}

type TickerItem struct {
	ID         string `json:"id"`
	Company    string `json:"company"`
	Title      string `json:"title"`
	Preference string `json:"preference"`
}

type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

const (
	LevelInfo  = "info"
	LevelError = "error"
)

type LogEntry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

type RunSummary struct {
	OutputDirectory string   `json:"outputDirectory"`
	Files           []string `json:"files"`
}
