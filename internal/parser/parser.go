// Package parser reads the session logs into typed records.
//
// Readers never fail their caller: a missing, unreadable or oversized file
// yields an empty Result whose Status says why, and malformed lines are
// skipped one at a time.
package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Status describes what happened when a log file was read.
type Status int

const (
	// StatusRead means the file was opened and scanned (possibly partially).
	StatusRead Status = iota
	// StatusMissing means no path was configured or nothing exists there.
	StatusMissing
	// StatusOversized means the file exceeded the size ceiling and was skipped.
	StatusOversized
	// StatusUnreadable means the file exists but could not be opened or stat'ed.
	StatusUnreadable
)

func (s Status) String() string {
	switch s {
	case StatusRead:
		return "read"
	case StatusMissing:
		return "missing"
	case StatusOversized:
		return "oversized"
	case StatusUnreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of reading one log file. The zero value is a valid
// empty result.
type Result[T any] struct {
	Path      string
	Status    Status
	Records   []T
	Lines     int  // lines consumed, including blank and malformed ones
	Skipped   int  // non-blank lines that matched no schema
	Truncated bool // the line cap was reached before EOF
	Err       error
}

// Empty reports whether no records were produced.
func (r Result[T]) Empty() bool { return len(r.Records) == 0 }

// Options bound how much of a file a reader will look at.
type Options struct {
	// MaxBytes skips the whole file when its size exceeds it. Zero disables the check.
	MaxBytes int64
	// MaxLines stops reading after this many lines. Zero means no cap.
	MaxLines int
	Logger   *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// ctxCheckInterval is how many lines are scanned between deadline checks.
const ctxCheckInterval = 256

// readLines scans path line by line, handing each decoded line to parse.
// parse reports whether the line produced a record and whether it was blank.
func readLines[T any](ctx context.Context, path string, opts Options, parse func(line string) (rec T, ok bool, blank bool)) Result[T] {
	res := Result[T]{Path: path, Status: StatusMissing}
	if path == "" {
		return res
	}
	log := opts.logger().With(zap.String("path", path))

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res
		}
		res.Status = StatusUnreadable
		res.Err = fmt.Errorf("stat log: %w", err)
		log.Warn("log unreadable", zap.Error(err))
		return res
	}
	if info.IsDir() {
		return res
	}
	if opts.MaxBytes > 0 && info.Size() > opts.MaxBytes {
		res.Status = StatusOversized
		res.Err = fmt.Errorf("log too large (%.1fMB > %.1fMB)", mib(info.Size()), mib(opts.MaxBytes))
		log.Warn("log too large, skipping",
			zap.Int64("size_bytes", info.Size()),
			zap.Int64("max_bytes", opts.MaxBytes))
		return res
	}

	file, err := os.Open(path)
	if err != nil {
		res.Status = StatusUnreadable
		res.Err = fmt.Errorf("open log: %w", err)
		log.Warn("log unreadable", zap.Error(err))
		return res
	}
	defer file.Close() //nolint:errcheck

	res.Status = StatusRead
	scanner := newScanner(file, info.Size())
	for scanner.Scan() {
		if opts.MaxLines > 0 && res.Lines >= opts.MaxLines {
			res.Truncated = true
			break
		}
		if res.Lines%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				res.Err = err
				return res
			}
		}
		res.Lines++

		line := strings.ToValidUTF8(scanner.Text(), "\uFFFD")
		rec, ok, blank := parse(line)
		if blank {
			continue
		}
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		res.Err = fmt.Errorf("scan log: %w", err)
		log.Warn("log scan stopped early", zap.Error(err), zap.Int("records", len(res.Records)))
	}

	log.Debug("log read",
		zap.Int("lines", res.Lines),
		zap.Int("records", len(res.Records)),
		zap.Int("skipped", res.Skipped),
		zap.Bool("truncated", res.Truncated))
	return res
}

// minScanCapacity is the line limit for files smaller than it.
const minScanCapacity = 8 * 1024 * 1024

// newScanner sizes the line limit to the file, so any file that passed the
// size check is read to the end whatever its longest line.
func newScanner(file *os.File, size int64) *bufio.Scanner {
	scanner := bufio.NewScanner(file)
	maxCapacity := minScanCapacity
	if size+1 > int64(maxCapacity) {
		maxCapacity = int(size + 1)
	}
	buf := make([]byte, 1024)
	scanner.Buffer(buf, maxCapacity)
	return scanner
}

func mib(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
