package media

import (
	"regexp"
	"strconv"
	"time"
)

// Device filename conventions, checked in priority order; first match wins.
// The order is part of the contract: a WhatsApp name (VID-...-WA...) must not
// fall through to a looser pattern, so do not reorder.
var sourcePatterns = []struct {
	category SourceCategory
	re       *regexp.Regexp
}{
	{SourceAndroid, regexp.MustCompile(`(?i)^VID_\d{8}_\d{6}`)},
	{SourceIPhone, regexp.MustCompile(`(?i)^IMG_\d{4}`)},
	{SourceGoPro, regexp.MustCompile(`(?i)^G[HOX]\d{6}`)},
	{SourceDJI, regexp.MustCompile(`(?i)^DJI_`)},
	{SourceWhatsApp, regexp.MustCompile(`(?i)^VID-\d{8}-WA`)},
}

// ClassifySource matches the filename against the known device conventions.
// Filenames matching nothing are classified as SourceOther.
func ClassifySource(filename string) SourceCategory {
	for _, p := range sourcePatterns {
		if p.re.MatchString(filename) {
			return p.category
		}
	}
	return SourceOther
}

// Timestamp-bearing filename patterns, tried in priority order. Each pattern
// captures year/month/day and, when hasTime is set, hour/minute/second
// (otherwise midnight). The first pattern that matches AND yields a valid
// calendar date wins.
var timestampPatterns = []struct {
	name    string
	re      *regexp.Regexp
	hasTime bool
}{
	{"android", regexp.MustCompile(`(?i)VID_(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})`), true},
	{"whatsapp", regexp.MustCompile(`(?i)VID-(\d{4})(\d{2})(\d{2})-WA`), false},
	{"dji", regexp.MustCompile(`(?i)DJI_(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})`), true},
	{"generic_datetime", regexp.MustCompile(`(\d{4})(\d{2})(\d{2})[_-](\d{2})(\d{2})(\d{2})`), true},
	{"generic_date", regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`), false},
}

// ExtractFilenameTimestamp pulls an embedded capture time out of a filename.
// Returns ok=false when no pattern matches or every match names an impossible
// date (e.g. Feb 30). Never panics on malformed input.
func ExtractFilenameTimestamp(filename string) (time.Time, bool) {
	for _, p := range timestampPatterns {
		m := p.re.FindStringSubmatch(filename)
		if m == nil {
			continue
		}

		year := atoi(m[1])
		month := atoi(m[2])
		day := atoi(m[3])
		hour, minute, second := 0, 0, 0
		if p.hasTime {
			hour = atoi(m[4])
			minute = atoi(m[5])
			second = atoi(m[6])
		}

		if t, ok := calendarDate(year, month, day, hour, minute, second); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// calendarDate builds a UTC time and rejects component combinations that
// time.Date would silently normalise (month 13, Feb 30, hour 25, ...).
func calendarDate(year, month, day, hour, minute, second int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
