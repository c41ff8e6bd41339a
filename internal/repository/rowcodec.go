package repository

import "time"

// Timestamps are stored as RFC3339 strings with nanoseconds kept, so a
// re-read value compares equal to the one that was stamped. An empty cell
// means null.

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t := parseTime(raw)
	if t.IsZero() {
		return nil
	}
	return &t
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func parseBool(raw string) bool {
	return raw == "true" || raw == "TRUE" || raw == "1"
}
