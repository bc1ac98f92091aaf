package logging

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

const clipLimit = 240

// Truncate flattens a value onto one line and clips it for terminal output.
func Truncate(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	if value == "" {
		return "<empty>"
	}
	if len(value) > clipLimit {
		return value[:clipLimit] + "..."
	}
	return value
}

func FormatEventLine(event Event) string {
	ts := event.Time.Format("15:04:05")
	level := strings.ToUpper(event.Level.String())
	fields := ""
	if len(event.Fields) > 0 {
		keys := orderedFieldKeys(event.Level, event.Fields)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, formatFieldValue(event.Fields[key])))
		}
		fields = " " + strings.Join(parts, " ")
	}
	return fmt.Sprintf("%s [%s] %s%s\n", ts, level, event.Message, fields)
}

func formatFieldValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "<nil>"
	case error:
		return quoteIfNeeded(Truncate(v.Error()))
	case string:
		return quoteIfNeeded(v)
	case time.Duration:
		return v.Round(time.Millisecond).String()
	case fmt.Stringer:
		return quoteIfNeeded(v.String())
	default:
		return fmt.Sprintf("%v", v)
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// orderedFieldKeys sorts keys alphabetically but keeps "error" at the end so
// the failure reason reads last on the line.
func orderedFieldKeys(_ slog.Level, fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	hasErr := false
	for key := range fields {
		if key == "error" {
			hasErr = true
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if hasErr {
		keys = append(keys, "error")
	}
	return keys
}
