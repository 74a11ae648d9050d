package model

import "strings"

// Level is the severity of a log entry as reported by the parsing service.
type Level string

const (
	LevelError Level = "ERROR"
	LevelWarn  Level = "WARN"
	LevelInfo  Level = "INFO"
	LevelDebug Level = "DEBUG"
)

// Levels lists the known levels from most to least severe.
var Levels = []Level{LevelError, LevelWarn, LevelInfo, LevelDebug}

// Rank returns the fixed severity rank used for sorting (ERROR=4 ... DEBUG=1).
// Unknown levels rank 0.
func (l Level) Rank() int {
	switch l {
	case LevelError:
		return 4
	case LevelWarn:
		return 3
	case LevelInfo:
		return 2
	case LevelDebug:
		return 1
	default:
		return 0
	}
}

// Known reports whether l is one of the four dashboard levels.
func (l Level) Known() bool {
	return l.Rank() > 0
}

// NormalizeLevel converts a raw level string to a Level.
// Common aliases are folded; anything else is kept upper-cased.
func NormalizeLevel(s string) Level {
	switch u := strings.ToUpper(strings.TrimSpace(s)); u {
	case "WARNING":
		return LevelWarn
	case "ERR":
		return LevelError
	default:
		return Level(u)
	}
}

// ParseLevel is like NormalizeLevel but fails for unknown levels.
func ParseLevel(s string) (Level, bool) {
	l := NormalizeLevel(s)
	return l, l.Known()
}

// LogRecord is one parsed log entry.
// ID is positional within its ingest batch and is not unique across uploads.
type LogRecord struct {
	ID       int    `json:"id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	LogLevel Level  `json:"log_level"`
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

// Accessors used by the query matcher.

func (r *LogRecord) GetLevel() string    { return string(r.LogLevel) }
func (r *LogRecord) GetMessage() string  { return r.Message }
func (r *LogRecord) GetThreadID() string { return r.ThreadID }
func (r *LogRecord) GetDate() string     { return r.Date }
func (r *LogRecord) GetTime() string     { return r.Time }
