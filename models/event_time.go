package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrUnparseableTime is returned when no parser recognises an event time.
var ErrUnparseableTime = errors.New("unparseable event time")

var relativeParser = newRelativeParser()

// calendarDate matches strings carrying an explicit date: a year, a numeric
// day/month pair or a month name.
var calendarDate = regexp.MustCompile(`(?i)\d{4}|\d{1,2}[/.-]\d{1,2}|\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\b`)

// clockTime matches a 12-hour time of day: "8pm", "8 PM", "8:30 p.m.".
var clockTime = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m\b\.?`)

func newRelativeParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseEventTime converts a model-produced time string into a time.Time.
// Absolute formats ("2025-03-14T20:00:00", "March 14, 2025 8pm") are tried
// first; relative English ("Friday 8pm") is resolved against ref.
func ParseEventTime(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparseableTime
	}

	if calendarDate.MatchString(s) {
		hour, hasClock := clockHour(s)
		t, err := dateparse.ParseIn(normaliseClock(s), ref.Location())
		if err == nil && (!hasClock || t.Hour() == hour) {
			return t, nil
		}
	}

	r, err := relativeParser.Parse(s, ref)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse event time %q: %w", s, err)
	}
	if r != nil {
		return r.Time, nil
	}

	if t, err := dateparse.ParseIn(s, ref.Location()); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTime, s)
}

// normaliseClock rewrites bare 12-hour times into the "8:00pm" form the
// absolute parser understands.
func normaliseClock(s string) string {
	return clockTime.ReplaceAllStringFunc(s, func(m string) string {
		parts := clockTime.FindStringSubmatch(m)
		minute := parts[2]
		if minute == "" {
			minute = "00"
		}
		return parts[1] + ":" + minute + strings.ToLower(parts[3]) + "m"
	})
}

// clockHour returns the 24-hour hour of the first 12-hour time in s.
func clockHour(s string) (int, bool) {
	parts := clockTime.FindStringSubmatch(s)
	if parts == nil {
		return 0, false
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h < 1 || h > 12 {
		return 0, false
	}
	h %= 12
	if strings.EqualFold(parts[3], "p") {
		h += 12
	}
	return h, true
}
