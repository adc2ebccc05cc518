// Package store keeps learned pattern records as markdown files in a flat
// directory, deduplicates new candidates against them and writes records
// with temp-file-then-rename atomicity.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sessionlearn/internal/model"
)

// ErrNotFound is returned when a record file to update does not exist.
var ErrNotFound = errors.New("pattern record not found")

const (
	recordExt = ".md"
	idTime    = "20060102150405"
	stampTime = "2006-01-02T15:04:05Z"
	dirPerm   = 0o755
	filePerm  = 0o644
)

var (
	usageCountRE = regexp.MustCompile(`(?m)^## Usage Count\n(\d+)`)
	lastUsedRE   = regexp.MustCompile(`(?m)^## Last Used\n(.*)`)
)

// Store reads and writes pattern records under one directory.
type Store struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
	random io.Reader
	fs     fileSystem
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRandom overrides the source of the random id suffix.
func WithRandom(r io.Reader) Option {
	return func(s *Store) { s.random = r }
}

// New returns a Store rooted at dir. The directory is created lazily on the
// first write.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		logger: zap.NewNop(),
		now:    time.Now,
		random: rand.Reader,
		fs:     osFS{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the pattern directory.
func (s *Store) Dir() string { return s.dir }

// NewID returns "category-YYYYMMDDHHMMSS-xxxxxxxx" with 8 random hex chars.
func (s *Store) NewID(category string) (string, error) {
	var suffix [4]byte
	if _, err := io.ReadFull(s.random, suffix[:]); err != nil {
		return "", fmt.Errorf("generate id suffix: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", category, s.now().UTC().Format(idTime), hex.EncodeToString(suffix[:])), nil
}

// Create renders c as a new record and writes it atomically, falling back
// to a direct write when the atomic path fails. It returns the record path.
func (s *Store) Create(c model.Candidate) (string, error) {
	id, err := s.NewID(c.Category)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, id+recordExt)
	content := Render(id, c, s.now())

	if err := s.fs.MkdirAll(s.dir, dirPerm); err != nil {
		return "", fmt.Errorf("create pattern dir: %w", err)
	}

	if err := s.writeAtomic(path, []byte(content)); err != nil {
		s.logger.Warn("atomic write failed, using direct write",
			zap.String("path", path), zap.Error(err))
		if err := s.fs.WriteFile(path, []byte(content), filePerm); err != nil {
			return "", fmt.Errorf("write pattern record: %w", err)
		}
	}
	return path, nil
}

// Update increments the usage count and refreshes the last-used timestamp
// of the record at path, leaving every other byte untouched.
func (s *Store) Update(path string) error {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("read pattern record: %w", err)
	}

	content := bumpUsage(string(data), s.now())
	if err := s.writeAtomic(path, []byte(content)); err != nil {
		return fmt.Errorf("update pattern record: %w", err)
	}
	return nil
}

// bumpUsage rewrites the last Usage Count and Last Used sections only.
// Both always follow the code example, which may quote the same headings.
func bumpUsage(content string, now time.Time) string {
	if loc := lastMatch(usageCountRE, content); loc != nil {
		if n, err := strconv.Atoi(content[loc[2]:loc[3]]); err == nil {
			content = content[:loc[2]] + strconv.Itoa(n+1) + content[loc[3]:]
		}
	}
	if loc := lastMatch(lastUsedRE, content); loc != nil {
		content = content[:loc[2]] + now.UTC().Format(stampTime) + content[loc[3]:]
	}
	return content
}

func lastMatch(re *regexp.Regexp, content string) []int {
	all := re.FindAllStringSubmatchIndex(content, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

// writeAtomic writes data to a temp file next to path and renames it into
// place. The temp file is removed on any failure.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := s.fs.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		_ = s.fs.Remove(tmpPath)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fail(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fail(fmt.Errorf("chmod temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return fail(fmt.Errorf("close temp file: %w", err))
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		return fail(fmt.Errorf("rename temp file: %w", err))
	}
	return nil
}

// Resolve maps a record id or a path to an existing record file.
func (s *Store) Resolve(idOrPath string) (string, error) {
	candidates := []string{idOrPath}
	if s.dir != "" && !strings.ContainsRune(idOrPath, os.PathSeparator) {
		name := idOrPath
		if !strings.HasSuffix(name, recordExt) {
			name += recordExt
		}
		candidates = append(candidates, filepath.Join(s.dir, name))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, idOrPath)
}

// List parses every record in the directory, most recently used first.
// Files that cannot be read or parsed are returned as warnings.
func (s *Store) List() ([]model.Record, []error) {
	paths, err := s.recordPaths()
	if err != nil {
		return nil, []error{err}
	}

	var (
		records  []model.Record
		warnings []error
	)
	for _, path := range paths {
		data, err := s.fs.ReadFile(path)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("read %s: %w", path, err))
			continue
		}
		rec, err := ParseRecord(string(data))
		if err != nil {
			warnings = append(warnings, fmt.Errorf("parse %s: %w", path, err))
			continue
		}
		rec.Path = path
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastUsed.After(records[j].LastUsed)
	})
	return records, warnings
}

// recordPaths lists the markdown files of the directory in name order.
// A missing directory has no records.
func (s *Store) recordPaths() ([]string, error) {
	if s.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pattern dir: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	return paths, nil
}
