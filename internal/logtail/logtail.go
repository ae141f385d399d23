package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"platen/internal/logging"
)

// Entry is one parsed record from the application log file.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	// Attrs holds every field beyond time, level, and msg.
	Attrs map[string]string
	// Raw is the original line, kept for records that fail to parse.
	Raw string
}

// AttrKeys returns the attribute names in sorted order so repeated renders
// of the same entry look the same.
func (e Entry) AttrKeys() []string {
	if len(e.Attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file reads as empty.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Tail reads the last maxLines of the file at path and parses each line.
func Tail(path string, maxLines int) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, ParseLine(line))
	}
	return entries, nil
}

// ParseLine decodes one slog JSON record. Lines that are not valid JSON
// objects come back with the text in Raw and an info level, so a corrupted
// file still renders.
func ParseLine(line string) Entry {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil || fields == nil {
		return Entry{Level: slog.LevelInfo, Raw: line}
	}

	entry := Entry{Level: slog.LevelInfo, Raw: line}
	for key, value := range fields {
		switch key {
		case slog.TimeKey:
			if s, ok := value.(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					entry.Time = ts
				}
			}
		case slog.LevelKey:
			if s, ok := value.(string); ok {
				entry.Level = logging.ParseLevel(s)
			}
		case slog.MessageKey:
			if s, ok := value.(string); ok {
				entry.Message = s
			}
		default:
			if entry.Attrs == nil {
				entry.Attrs = make(map[string]string)
			}
			entry.Attrs[key] = attrString(value)
		}
	}
	return entry
}

func attrString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; print integers without a fraction.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
