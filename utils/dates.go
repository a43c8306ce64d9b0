// utils/dates.go
package utils

import (
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayouts are tried in order by ParseDate. ISO dates come first; the day-first form
// is still accepted because the older API documented it.
var DateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
}

// ParsedDate is the tagged result of ParseDate. OK is false when the input matched none of
// the layouts, which callers must treat differently from a valid date.
type ParsedDate struct {
	Date civil.Date
	OK   bool
}

// ParseDate tries each of DateLayouts in order and returns the first match.
func ParseDate(s string) ParsedDate {
	s = strings.TrimSpace(s)
	if s == "" {
		return ParsedDate{}
	}
	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return ParsedDate{Date: civil.DateOf(t), OK: true}
		}
	}
	return ParsedDate{}
}

// DateArgKind says which form a `date` query value took.
type DateArgKind int

const (
	// DateArgNone means no value was supplied.
	DateArgNone DateArgKind = iota
	// DateArgExact is a calendar date.
	DateArgExact
	// DateArgLast is a non-negative integer N: the last N rows per location.
	DateArgLast
	// DateArgFirst is a negative integer -N: the first N rows per location.
	DateArgFirst
	// DateArgInvalid is a value that is neither a date nor an integer.
	DateArgInvalid
)

// DateArg is a parsed `date` query value.
type DateArg struct {
	Kind DateArgKind
	Date civil.Date
	N    int
}

// ParseDateArg resolves a `date` value. Calendar dates take precedence over integers, so
// "2022-01-01" is never read as a relative window.
func ParseDateArg(s string) DateArg {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateArg{Kind: DateArgNone}
	}
	if p := ParseDate(s); p.OK {
		return DateArg{Kind: DateArgExact, Date: p.Date}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return DateArg{Kind: DateArgInvalid}
	}
	if n < 0 || strings.HasPrefix(s, "-") {
		return DateArg{Kind: DateArgFirst, N: -n}
	}
	return DateArg{Kind: DateArgLast, N: n}
}

// ParseTimestamp accepts the timestamp forms found in the archive file index.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
