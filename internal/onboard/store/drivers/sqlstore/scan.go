package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// nullTime scans a nullable timestamp stored either natively or as TEXT in
// TextTimeLayout.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(src any) error {
	n.Time, n.Valid = time.Time{}, false

	var raw string
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("sqlstore: cannot scan %T into time", src)
	}

	t, err := parseTextTime(raw)
	if err != nil {
		return err
	}
	n.Time, n.Valid = t, true
	return nil
}

func (n nullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func parseTextTime(raw string) (time.Time, error) {
	for _, layout := range []string{TextTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("sqlstore: unrecognised timestamp %q", raw)
}

// jsonMeta scans a JSON object column (TEXT or JSONB) into a map.
type jsonMeta struct {
	Meta map[string]any
}

func (j *jsonMeta) Scan(src any) error {
	j.Meta = nil

	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("sqlstore: cannot scan %T into meta", src)
	}

	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &j.Meta); err != nil {
		return fmt.Errorf("sqlstore: decode meta: %w", err)
	}
	return nil
}

func encodeMeta(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("sqlstore: encode meta: %w", err)
	}
	return string(b), nil
}
