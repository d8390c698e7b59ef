package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RunLogger writes a verbose log file for one generation run
type RunLogger struct {
	briefID   int
	runIndex  int
	logPath   string
	file      *os.File
	log       zerolog.Logger
	mu        sync.Mutex
	startTime time.Time
	closed    bool
}

// NewRunLogger creates <storage>/logs/brief_<id>/run_<index>.log, replacing
// an existing file
func NewRunLogger(storagePath string, briefID, runIndex int) (*RunLogger, error) {
	logDir := filepath.Join(storagePath, "logs", fmt.Sprintf("brief_%d", briefID))
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("run_%d.log", runIndex))
	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	rl := &RunLogger{
		briefID:   briefID,
		runIndex:  runIndex,
		logPath:   logPath,
		file:      file,
		startTime: time.Now(),
	}
	rl.log = zerolog.New(zerolog.ConsoleWriter{
		Out:        file,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
	}).With().Timestamp().Logger()

	rl.log.Info().
		Int("brief_id", briefID).
		Int("run_index", runIndex).
		Time("started", rl.startTime).
		Msg("CAMPAIGN GENERATION RUN")

	return rl, nil
}

func (rl *RunLogger) elapsed() string {
	return time.Since(rl.startTime).Round(time.Millisecond).String()
}

// Phase logs the start of a processing phase
func (rl *RunLogger) Phase(name, description string) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.closed {
		return
	}
	rl.log.Info().Str("elapsed", rl.elapsed()).Str("description", description).Msgf("PHASE: %s", name)
}

// Property logs a key-value property
func (rl *RunLogger) Property(key string, value interface{}) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.closed {
		return
	}
	rl.log.Info().Str("elapsed", rl.elapsed()).Interface(key, value).Msg("PROPERTY")
}

// Asset logs one saved asset with its generation time
func (rl *RunLogger) Asset(product, ratio, lang string, seconds float64) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.closed {
		return
	}
	rl.log.Info().
		Str("elapsed", rl.elapsed()).
		Str("product", product).
		Str("ratio", ratio).
		Str("language", lang).
		Float64("seconds", seconds).
		Msg("ASSET")
}

// Info logs an informational message
func (rl *RunLogger) Info(format string, args ...interface{}) {
	rl.write(zerolog.InfoLevel, format, args...)
}

// Error logs an error message
func (rl *RunLogger) Error(format string, args ...interface{}) {
	rl.write(zerolog.ErrorLevel, format, args...)
}

func (rl *RunLogger) write(level zerolog.Level, format string, args ...interface{}) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.closed {
		return
	}
	rl.log.WithLevel(level).Str("elapsed", rl.elapsed()).Msgf(format, args...)
}

// Close writes the outcome footer and closes the file. A nil RunLogger
// ignores every call.
func (rl *RunLogger) Close(success bool, finalMessage string) error {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.closed {
		return nil
	}
	rl.closed = true

	status := "COMPLETED SUCCESSFULLY"
	event := rl.log.Info()
	if !success {
		status = "FAILED"
		event = rl.log.Error()
	}
	event.Str("duration", rl.elapsed()).Str("result", finalMessage).Msgf("RUN %s", status)

	return rl.file.Close()
}

// Path returns the path to the log file
func (rl *RunLogger) Path() string {
	if rl == nil {
		return ""
	}
	return rl.logPath
}
