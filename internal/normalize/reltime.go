package normalize

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts the ISO-8601 shapes the careers API emits. Dates without
// a zone are read as UTC.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatRelativeTime renders iso relative to now, picking the coarsest unit
// that keeps the number small: minutes <60, hours <48, days <60, weeks <52,
// months <18, then years.
func FormatRelativeTime(iso string, now time.Time) string {
	t, ok := ParseDate(iso)
	if !ok {
		return UnknownText
	}
	diffMs := float64(t.Sub(now).Milliseconds())
	minutes := jsRound(diffMs / 60000)
	if math.Abs(minutes) < 60 {
		return relative(int(minutes), "minute")
	}
	hours := jsRound(minutes / 60)
	if math.Abs(hours) < 48 {
		return relative(int(hours), "hour")
	}
	days := jsRound(hours / 24)
	if math.Abs(days) < 60 {
		return relative(int(days), "day")
	}
	weeks := jsRound(days / 7)
	if math.Abs(weeks) < 52 {
		return relative(int(weeks), "week")
	}
	months := jsRound(days / 30)
	if math.Abs(months) < 18 {
		return relative(int(months), "month")
	}
	return relative(int(jsRound(days/365)), "year")
}

// jsRound rounds halves toward positive infinity.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}

var autoPhrases = map[string]map[int]string{
	"minute": {0: "now"},
	"hour":   {0: "this hour"},
	"day":    {-1: "yesterday", 0: "today", 1: "tomorrow"},
	"week":   {-1: "last week", 0: "this week", 1: "next week"},
	"month":  {-1: "last month", 0: "this month", 1: "next month"},
	"year":   {-1: "last year", 0: "this year", 1: "next year"},
}

func relative(n int, unit string) string {
	if phrase, ok := autoPhrases[unit][n]; ok {
		return phrase
	}
	abs := n
	if abs < 0 {
		abs = -abs
	}
	label := unit
	if abs != 1 {
		label += "s"
	}
	if n > 0 {
		return fmt.Sprintf("in %d %s", abs, label)
	}
	return fmt.Sprintf("%d %s ago", abs, label)
}
