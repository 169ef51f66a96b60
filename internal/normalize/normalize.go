// Package normalize turns raw career records into display-ready records.
// Everything here is pure: the same input and clock give the same output.
package normalize

import (
	"strings"
	"time"

	"github.com/Paxxs/moledao-spider/internal/model"
)

// Normalize merges a list record with its optional detail record. Detail
// attributes win; detail-only fields fall back to defaults when detail is nil.
func Normalize(list model.ListRecord, detail *model.DetailRecord, now time.Time) model.NormalizedRecord {
	company := first(belongingName(list.Belonging))
	role := first(list.Name)
	updateDate := first(list.UpdateDate)
	preference := list.Career.Preferences
	jobType := list.Career.Type
	base := list.Career.Base

	var (
		experience *int
		content    string
		tags       string
	)
	if detail != nil {
		company = first(belongingName(detail.Belonging), belongingName(list.Belonging))
		role = first(detail.Name, list.Name)
		updateDate = first(detail.UpdateDate, list.UpdateDate)
		preference = first(detail.Career.Preferences, list.Career.Preferences)
		jobType = first(detail.Career.Type, list.Career.Type)
		base = first(detail.Career.Base, list.Career.Base)
		experience = detail.Career.Experience
		if detail.Content != nil {
			content = deref(detail.Content.Content)
		}
		tags = joinTags(detail.Tags)
	}

	paragraphs := SanitizeContent(content)
	if len(paragraphs) == 0 {
		paragraphs = []string{NoDescription}
	}

	companyText := UnknownText
	if company != nil {
		companyText = *company
	}

	return model.NormalizedRecord{
		ID:                string(list.ID),
		Company:           companyText,
		Role:              deref(role),
		TypeText:          TypeText(jobType),
		PreferenceText:    PreferenceText(preference),
		ExperienceText:    ExperienceText(experience),
		Location:          DeriveLocation(base),
		TagText:           tags,
		ContentParagraphs: paragraphs,
		RelativeTime:      FormatRelativeTime(deref(updateDate), now),
		UpdateDate:        deref(updateDate),
	}
}

func belongingName(b *model.Belonging) *string {
	if b == nil {
		return nil
	}
	return b.Name
}

// first returns the first non-nil pointer.
func first[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinTags(tags []model.Tag) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}
