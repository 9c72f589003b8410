// Package dateutil parses vendor-supplied date strings. Vendor configuration
// documents carry strptime-style directives (e.g. "%Y-%m-%d"), which are
// translated to Go reference layouts before parsing.
package dateutil

import (
	"fmt"
	"strings"
	"time"
)

const (
	// CanonicalLayout is the normalized form for next_availability_date.
	CanonicalLayout = "2006-01-02 15:04:05"
	// TimestampLayout is the batch modified_on stamp format.
	TimestampLayout = "2006-01-02T15:04:05.000000"
)

var directives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'f': "000000",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'p': "PM",
	'z': "-0700",
	'Z': "MST",
}

// Layout translates a strptime-style format to a Go reference layout.
// Unknown directives produce an error so misconfigured vendor formats are
// caught instead of silently mis-parsed.
func Layout(format string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i == len(format)-1 {
			return "", fmt.Errorf("dangling %% in date format %q", format)
		}
		i++
		d := format[i]
		if d == '%' {
			b.WriteByte('%')
			continue
		}
		layout, ok := directives[d]
		if !ok {
			return "", fmt.Errorf("unsupported date directive %%%c in format %q", d, format)
		}
		b.WriteString(layout)
	}
	return b.String(), nil
}

// Parse parses value using a strptime-style format.
func Parse(value, format string) (time.Time, error) {
	layout, err := Layout(format)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(layout, value)
}
