package assets

import (
	"fmt"
	"time"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

// timestamp scans SQLite DATETIME values, which the driver hands back either
// as time.Time or as text depending on how the column was produced.
type timestamp struct {
	t *time.Time
}

func (ts timestamp) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*ts.t = time.Time{}
		return nil
	case time.Time:
		*ts.t = x.UTC()
		return nil
	case []byte:
		return ts.parse(string(x))
	case string:
		return ts.parse(x)
	default:
		return fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func (ts timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}
