// Package logger emits structured JSON log lines with PII redaction.
// Submitter emails and the Klaviyo private key pass through most of the
// service, so redaction is on by default and applied by field name.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLevel maps a config string to a Level. Unknown values fall back
// to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

type logger struct {
	mu        sync.Mutex
	out       io.Writer
	level     Level
	redactPII bool
}

var std = &logger{out: os.Stderr, level: INFO, redactPII: true}

// SetLevel sets the minimum level that gets written.
func SetLevel(l Level) { std.level = l }

// SetRedactPII toggles field redaction. Leave it on outside of local
// debugging.
func SetRedactPII(r bool) { std.redactPII = r }

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) { std.out = w }

// Debug logs at DEBUG level with alternating key/value fields.
func Debug(msg string, fields ...interface{}) { std.write(DEBUG, msg, fields) }

// Info logs at INFO level with alternating key/value fields.
func Info(msg string, fields ...interface{}) { std.write(INFO, msg, fields) }

// Warn logs at WARN level with alternating key/value fields.
func Warn(msg string, fields ...interface{}) { std.write(WARN, msg, fields) }

// Error logs at ERROR level with alternating key/value fields.
func Error(msg string, fields ...interface{}) { std.write(ERROR, msg, fields) }

func (l *logger) write(level Level, msg string, fields []interface{}) {
	if level < l.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": level.String(),
		"msg":   msg,
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fmt.Sprintf("%v", fields[i+1])
		if l.redactPII {
			val = redactValue(key, val)
		}
		entry[key] = val
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	// The Klaviyo private key must never reach the logs in cleartext.
	if strings.Contains(key, "api_key") || strings.Contains(key, "credential") {
		return RedactSecret(val)
	}
	if strings.Contains(key, "email") || strings.Contains(key, "profile") {
		return RedactEmail(val)
	}
	// Catch emails embedded in generic fields too
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
