// Package logging builds the zerolog logger used by the testreport CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB   = 10
	logMaxBackups  = 3
	logMaxAgeDays  = 14
	redactedValue  = "[REDACTED]"
	consoleTimeFmt = time.Kitchen
)

// GitHub tokens and bearer headers must never reach the log file
var tokenPattern = regexp.MustCompile(`(gh[pousr]_[A-Za-z0-9]{20,}|github_pat_[A-Za-z0-9_]{20,}|(?i:bearer)\s+[A-Za-z0-9._-]{20,})`)

// Options configures the logger
type Options struct {
	Level   string
	File    string
	Console io.Writer // defaults to os.Stderr; files attached to a terminal get the console format
}

// New returns a logger writing to the console and, when File is set, to a
// rotating log file. The returned closer releases the file and is never nil.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if f, ok := console.(*os.File); ok {
		console = selectOutput(f)
	}

	var (
		writer io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		fileWriter, err := newFileWriter(opts.File)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		writer = zerolog.MultiLevelWriter(console, &redactingWriter{w: fileWriter})
		closer = fileWriter
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// selectOutput uses the human readable console writer on a terminal and JSON otherwise
func selectOutput(f *os.File) io.Writer {
	if isatty.IsTerminal(f.Fd()) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: f, TimeFormat: consoleTimeFmt}
	}
	return f
}

func newFileWriter(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
	}, nil
}

// Redact replaces credentials in s with a placeholder
func Redact(s string) string {
	return tokenPattern.ReplaceAllString(s, redactedValue)
}

type redactingWriter struct {
	w io.Writer
}

// Write reports the original length so zerolog does not treat redaction as a short write
func (r *redactingWriter) Write(p []byte) (int, error) {
	if _, err := r.w.Write([]byte(Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
