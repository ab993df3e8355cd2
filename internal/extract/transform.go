package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrMalformedDate is returned for dates that do not follow D:YYYYMMDDHHmmSS[Z|+|-]HH'mm'
	ErrMalformedDate = errors.New("malformed pdf date")
	// ErrUndecodableText is returned when text is neither the default encoding nor UTF-16
	ErrUndecodableText = errors.New("undecodable text")
)

var pdfDatePattern = regexp.MustCompile(`^(?:D:)?(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})([+\-Zz])?(\d{2})?'?(\d{2})?'?`)

// ParseDate converts a PDF date such as "D:20120321183444+07'00'" to a
// timezone aware time. A missing offset or "Z" means UTC.
func ParseDate(raw string) (time.Time, error) {
	m := pdfDatePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}

	var n [6]int
	for i := range n {
		n[i], _ = strconv.Atoi(m[i+1])
	}
	year, month, day, hour, minute, second := n[0], n[1], n[2], n[3], n[4], n[5]
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) ||
		hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("%w: %q out of range", ErrMalformedDate, raw)
	}

	loc := time.UTC
	if sign := m[7]; sign == "+" || sign == "-" {
		tzHour, _ := strconv.Atoi(m[8])
		tzMinute, _ := strconv.Atoi(m[9])
		offset := 3600*tzHour + 60*tzMinute
		if sign == "-" {
			offset = -offset
		}
		loc = time.FixedZone("", offset)
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc), nil
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DecodeText converts a raw PDF string to UTF-8. Text in the default encoding
// passes through. UTF-16 is recognised by its byte order mark, or by the
// zero high bytes of big endian ASCII. Anything else is read as Latin-1.
func DecodeText(raw string) (string, error) {
	if utf8.ValidString(raw) && !looksUTF16(raw) {
		return strings.TrimRight(raw, "\x00"), nil
	}

	if looksUTF16(raw) {
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().String(raw)
		if err == nil {
			return strings.TrimRight(decoded, "\x00"), nil
		}
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().String(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodableText, err)
	}
	return strings.TrimRight(decoded, "\x00"), nil
}

func looksUTF16(s string) bool {
	if strings.HasPrefix(s, "\xfe\xff") || strings.HasPrefix(s, "\xff\xfe") {
		return true
	}
	if len(s) < 2 || len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i += 2 {
		if s[i] != 0 {
			return false
		}
	}
	return true
}
