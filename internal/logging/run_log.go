package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultRunLogMaxBytes = 1 << 20

// FileOptions configures JSONL persistence for one run.
type FileOptions struct {
	// Dir defaults to DefaultLogDirPath.
	Dir string
	// RunKey prefixes the file names and tags every record. The converter
	// passes the destination key so a run's logs match its lock file.
	RunKey string
	// MaxBytes caps each part before the next one is started.
	MaxBytes int64
}

// DefaultLogDirPath is used when persistence is requested without a directory.
func DefaultLogDirPath() (string, error) {
	root, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "blp-icon-converter", "logs"), nil
}

type record struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Run     string         `json:"run,omitempty"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// runLog appends records to iconconv-<key>-<started>-NNN.jsonl parts.
type runLog struct {
	mu      sync.Mutex
	dir     string
	key     string
	base    string
	limit   int64
	part    int
	file    *os.File
	written int64
	closed  bool
}

func openRunLog(opts FileOptions, started time.Time) (*runLog, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		var err error
		if dir, err = DefaultLogDirPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	limit := opts.MaxBytes
	if limit <= 0 {
		limit = defaultRunLogMaxBytes
	}
	key := runKeyName(opts.RunKey)
	l := &runLog{
		dir:   dir,
		key:   key,
		base:  fmt.Sprintf("iconconv-%s-%s", key, started.UTC().Format("20060102-150405")),
		limit: limit,
	}
	if err := l.nextPart(); err != nil {
		return nil, err
	}
	return l, nil
}

// runKeyName keeps keys safe for file names.
func runKeyName(key string) string {
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, key)
	if key == "" {
		return "run"
	}
	return key
}

func (l *runLog) partPath(part int) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s-%03d.jsonl", l.base, part))
}

// nextPart closes the current part and opens the following one. Callers
// hold l.mu or own l exclusively.
func (l *runLog) nextPart() error {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	l.part++
	f, err := os.OpenFile(l.partPath(l.part), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat run log: %w", err)
	}
	l.file = f
	l.written = info.Size()
	return nil
}

func (l *runLog) Write(event Event) error {
	if l == nil {
		return nil
	}
	rec := record{
		Time:    event.Time.UTC(),
		Level:   strings.ToUpper(event.Level.String()),
		Run:     l.key,
		Message: event.Message,
	}
	if len(event.Fields) > 0 {
		rec.Fields = make(map[string]any, len(event.Fields))
		for k, v := range event.Fields {
			rec.Fields[k] = jsonValue(v)
		}
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return os.ErrClosed
	}
	if l.written > 0 && l.written+int64(len(line)) > l.limit {
		if err := l.nextPart(); err != nil {
			return err
		}
	}
	n, err := l.file.Write(line)
	l.written += int64(n)
	return err
}

func (l *runLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// jsonValue turns values without a useful JSON form into strings.
func jsonValue(value any) any {
	switch v := value.(type) {
	case error:
		return v.Error()
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return value
	}
}
