package tomldoc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/openfroyo/tomlsnap/pkg/document"
)

// Literal scanning for the token kinds the expression parser leaves as raw
// text. The parser has already validated the token shape; the scanners here
// decode the value and enforce range rules (calendar validity, clock bounds,
// 64-bit overflow).

var errEmptyLiteral = errors.New("empty literal")

// scanInteger decodes a TOML integer literal: optional sign for decimal,
// 0x/0o/0b prefixes, underscore separators.
func scanInteger(s string) (int64, error) {
	if s == "" {
		return 0, errEmptyLiteral
	}
	s = strings.ReplaceAll(s, "_", "")

	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			return strconv.ParseInt(s[2:], 16, 64)
		case 'o', 'O':
			return strconv.ParseInt(s[2:], 8, 64)
		case 'b', 'B':
			return strconv.ParseInt(s[2:], 2, 64)
		}
	}
	return strconv.ParseInt(s, 10, 64)
}

// scanFloat decodes a TOML float literal, including the inf and nan forms.
func scanFloat(s string) (float64, error) {
	if s == "" {
		return 0, errEmptyLiteral
	}
	s = strings.ReplaceAll(s, "_", "")
	return strconv.ParseFloat(s, 64)
}

// scanDate decodes a full-date literal (YYYY-MM-DD) and validates it against
// the calendar.
func scanDate(s string) (document.Date, error) {
	var d document.Date
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return d, fmt.Errorf("malformed date")
	}
	year, err := digits(s[0:4])
	if err != nil {
		return d, err
	}
	month, err := digits(s[5:7])
	if err != nil {
		return d, err
	}
	day, err := digits(s[8:10])
	if err != nil {
		return d, err
	}
	if month < 1 || month > 12 {
		return d, fmt.Errorf("month out of range")
	}
	if day < 1 || day > daysInMonth(year, month) {
		return d, fmt.Errorf("day out of range")
	}
	return document.Date{Year: int32(year), Month: int32(month), Day: int32(day)}, nil
}

// scanTime decodes a partial-time literal (HH:MM:SS with optional fractional
// seconds). It returns the number of bytes consumed so date-time parsing can
// locate a trailing offset.
func scanTime(s string) (document.Time, int, error) {
	var t document.Time
	if len(s) < 8 || s[2] != ':' || s[5] != ':' {
		return t, 0, fmt.Errorf("malformed time")
	}
	hour, err := digits(s[0:2])
	if err != nil {
		return t, 0, err
	}
	minute, err := digits(s[3:5])
	if err != nil {
		return t, 0, err
	}
	second, err := digits(s[6:8])
	if err != nil {
		return t, 0, err
	}
	if hour > 23 {
		return t, 0, fmt.Errorf("hour out of range")
	}
	if minute > 59 {
		return t, 0, fmt.Errorf("minute out of range")
	}
	if second > 59 {
		return t, 0, fmt.Errorf("second out of range")
	}

	consumed := 8
	nanos := 0
	if len(s) > 8 && s[8] == '.' {
		i := 9
		scale := 100_000_000
		if i >= len(s) || !isDigit(s[i]) {
			return t, 0, fmt.Errorf("malformed fractional second")
		}
		for i < len(s) && isDigit(s[i]) {
			// TOML allows arbitrary precision; past nanoseconds the
			// digits are truncated.
			if scale > 0 {
				nanos += int(s[i]-'0') * scale
				scale /= 10
			}
			i++
		}
		consumed = i
	}

	t = document.Time{
		Hour:       int32(hour),
		Minute:     int32(minute),
		Second:     int32(second),
		Nanosecond: int32(nanos),
	}
	return t, consumed, nil
}

// scanDateTime decodes local and offset date-time literals. The date and time
// parts are separated by 'T', 't', or a single space; an optional trailing
// offset is 'Z', 'z', or ±HH:MM.
func scanDateTime(s string) (document.DateTime, error) {
	var dt document.DateTime
	if len(s) < 11 {
		return dt, fmt.Errorf("malformed date-time")
	}
	date, err := scanDate(s[:10])
	if err != nil {
		return dt, err
	}
	switch s[10] {
	case 'T', 't', ' ':
	default:
		return dt, fmt.Errorf("malformed date-time separator")
	}

	rest := s[11:]
	t, consumed, err := scanTime(rest)
	if err != nil {
		return dt, err
	}

	dt.Date = date
	dt.Time = t

	tail := rest[consumed:]
	switch {
	case tail == "":
		// Local date-time, no offset.
	case tail == "Z" || tail == "z":
		dt.HasOffset = true
	case len(tail) == 6 && (tail[0] == '+' || tail[0] == '-') && tail[3] == ':':
		hours, err := digits(tail[1:3])
		if err != nil {
			return dt, err
		}
		minutes, err := digits(tail[4:6])
		if err != nil {
			return dt, err
		}
		if hours > 23 || minutes > 59 {
			return dt, fmt.Errorf("offset out of range")
		}
		offset := int32(hours*60 + minutes)
		if tail[0] == '-' {
			offset = -offset
		}
		dt.HasOffset = true
		dt.OffsetMinutes = offset
	default:
		return dt, fmt.Errorf("malformed offset")
	}
	return dt, nil
}

// digits parses a fixed run of ASCII digits.
func digits(s string) (int, error) {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, fmt.Errorf("expected digit, got %q", s[i])
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// daysInMonth returns the day count for the month, honoring leap years.
func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	default: // February
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	}
}
