// Package logging routes the standard logger to a console writer and an optional log file,
// and formats traffic exchanged with the inference service.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"
)

// maxPayloadBytes bounds how much of a request or response body is written to the log.
const maxPayloadBytes = 2048

var (
	mu      sync.Mutex
	logFile *os.File
	debug   atomic.Bool
)

// Init sends log output to console and, when logPath is set, appends it to that file too.
// A nil console falls back to stdout.
func Init(logPath string, console io.Writer) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{console}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close releases the log file and points the standard logger back at stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	log.SetOutput(os.Stderr)
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// SetDebug toggles LogDebug and LogExchange output.
func SetDebug(enabled bool) { debug.Store(enabled) }

// DebugEnabled reports whether debug logging is on.
func DebugEnabled() bool { return debug.Load() }

func LogEvent(format string, args ...any) {
	log.Println(fmt.Sprintf(format, args...))
}

func LogDebug(format string, args ...any) {
	if !debug.Load() {
		return
	}
	log.Println("[DEBUG] " + fmt.Sprintf(format, args...))
}

// LogExchange records one request to, or response from, the inference service.
// It is silent unless debug logging is enabled.
func LogExchange(direction, service, model, path string, payload any) {
	if !debug.Load() {
		return
	}
	log.Println(buildExchangeMessage(direction, service, model, path, payload))
}

func buildExchangeMessage(direction, service, model, path string, payload any) string {
	parts := []string{fmt.Sprintf("[%s]", strings.ToUpper(strings.TrimSpace(direction)))}
	parts = append(parts, "service="+orUnknown(service))
	parts = append(parts, "model="+orUnknown(model))
	if path = strings.TrimSpace(path); path != "" {
		parts = append(parts, "path="+path)
	}
	parts = append(parts, "payload="+formatPayload(payload))
	return strings.Join(parts, " ")
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}

func formatPayload(payload any) string {
	var s string
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		s = v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		s = string(v)
	case fmt.Stringer:
		s = v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprintf("%v", v)
		} else {
			s = string(data)
		}
	}
	if len(s) > maxPayloadBytes {
		return fmt.Sprintf("%s…(%d bytes)", s[:runeBoundary(s, maxPayloadBytes)], len(s))
	}
	return s
}

// runeBoundary moves n back to the start of the rune it falls in.
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
