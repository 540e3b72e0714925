// Package activitylog writes and reads the per-broadcaster activity log.
//
// Every line has the form
//
//	2006-01-02 15:04:05 - <message>
//
// and is written both to <dir>/<unique_id>_log.txt (append mode) and to a
// console writer.
package activitylog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TimeLayout is the timestamp prefix of every log line.
const TimeLayout = "2006-01-02 15:04:05"

// FileSuffix is appended to the broadcaster id to build the file name.
const FileSuffix = "_log.txt"

const separator = " - "

// Sentinel errors.
var (
	ErrLogDirNotFound = errors.New("log directory not found")
	ErrNoLogFile      = errors.New("activity log not found")
	ErrMalformedLine  = errors.New("malformed log line")
)

// FileName returns the log file name for a broadcaster.
func FileName(uniqueID string) string {
	return strings.TrimPrefix(uniqueID, "@") + FileSuffix
}

// Path returns the log file path for a broadcaster inside dir.
func Path(dir, uniqueID string) string {
	return filepath.Join(dir, FileName(uniqueID))
}

// Logger appends timestamped lines to the activity log.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// Open opens (or creates) the broadcaster's log file in append mode and
// mirrors every line to console. console may be nil.
func Open(dir, uniqueID string, console io.Writer) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(Path(dir, uniqueID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening activity log: %w", err)
	}

	sinks := []io.Writer{f}
	if console != nil {
		sinks = append(sinks, console)
	}
	l := New(sinks...)
	l.file = f
	return l, nil
}

// New returns a Logger writing to the given sinks. The caller owns them.
func New(sinks ...io.Writer) *Logger {
	writers := make([]io.Writer, 0, len(sinks))
	for _, w := range sinks {
		writers = append(writers, lineWriter(w))
	}
	return &Logger{
		zl: zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger(),
	}
}

// lineWriter renders zerolog events as "<time> - <message>" lines.
func lineWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: TimeLayout,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return "-"
			}
			return fmt.Sprintf("- %s", i)
		},
	}
}

// lineBreaks escapes CR and LF so a message always stays on its own line.
var lineBreaks = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// Print writes one line.
func (l *Logger) Print(msg string) {
	l.zl.Log().Msg(lineBreaks.Replace(msg))
}

// Printf formats and writes one line.
func (l *Logger) Printf(format string, args ...any) {
	l.Print(fmt.Sprintf(format, args...))
}

// Close closes the log file if Open created it.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// ParseLine parses a line written by Logger. Times are interpreted in the
// local zone, matching how they were written.
func ParseLine(line string) (Entry, error) {
	line = strings.TrimRight(line, "\r\n")
	n := len(TimeLayout)
	if len(line) < n+len(separator) || line[n:n+len(separator)] != separator {
		return Entry{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	ts, err := time.ParseInLocation(TimeLayout, line[:n], time.Local)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return Entry{Time: ts, Message: line[n+len(separator):]}, nil
}

// Find returns the resolved path of an existing log file for the broadcaster.
// Returns ErrNoLogFile if the broadcaster has no log in dir yet.
func Find(dir, uniqueID string) (string, error) {
	resolved, err := resolveDir(dir)
	if err != nil {
		return "", err
	}
	path := Path(resolved, uniqueID)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNoLogFile, path)
	}
	return path, nil
}

// List returns the broadcaster ids that have a log in dir,
// most recently modified first.
func List(dir string) ([]string, error) {
	resolved, err := resolveDir(dir)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(resolved, "*"+FileSuffix))
	if err != nil {
		return nil, fmt.Errorf("globbing log files: %w", err)
	}

	type file struct {
		id  string
		mod time.Time
	}
	files := make([]file, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, file{
			id:  strings.TrimSuffix(filepath.Base(m), FileSuffix),
			mod: info.ModTime(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].mod.After(files[j].mod)
	})

	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.id
	}
	return ids, nil
}

// resolveDir validates dir and resolves symlinks for consistent paths.
func resolveDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrLogDirNotFound, dir)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}
	return resolved, nil
}
