// Package localtime implements the timezone-naive timestamp format used on the wire.
package localtime

import (
	"bytes"
	"fmt"
	"time"
)

// Layout is the wire format, e.g. 2024-03-01T12:00:00.
const Layout = "2006-01-02T15:04:05"

// accepted lists parse layouts in order of preference.
var accepted = []string{
	"2006-01-02T15:04:05.999999999",
	Layout,
	"2006-01-02T15:04",
}

// DateTime is a wall-clock instant without zone. Values are held in UTC.
type DateTime struct {
	time.Time
}

// From wraps t, dropping its zone.
func From(t time.Time) DateTime {
	return DateTime{Time: t.UTC()}
}

// Parse reads s using the accepted naive layouts.
func Parse(s string) (DateTime, error) {
	for _, layout := range accepted {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return DateTime{Time: t}, nil
		}
	}
	return DateTime{}, fmt.Errorf("invalid timestamp %q, expected %s", s, Layout)
}

func (d DateTime) String() string {
	return d.UTC().Format(Layout)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = DateTime{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp must be a string")
	}
	parsed, err := Parse(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
