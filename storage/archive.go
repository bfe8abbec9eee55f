package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"newsflow/models"
)

// DayArchive is the per-day append-only archive on local durable storage.
// One JSONL file per calendar day; writers append single lines under a
// per-day mutex instead of rewriting the whole file, so concurrent writers
// to the same day serialize on the append only.
type DayArchive struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDayArchive creates the archive rooted at dir.
func NewDayArchive(dir string) (*DayArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &DayArchive{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (a *DayArchive) dayLock(day string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[day]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[day] = lock
	}
	return lock
}

// Path returns the file path of the given day's archive.
func (a *DayArchive) Path(day string) string {
	return filepath.Join(a.dir, day+".jsonl")
}

// Append writes one record to the day's file and returns the file path.
func (a *DayArchive) Append(day string, rec models.ArchiveRecord) (string, error) {
	line, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal archive record: %w", err)
	}

	lock := a.dayLock(day)
	lock.Lock()
	defer lock.Unlock()

	path := a.Path(day)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open day archive: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return "", fmt.Errorf("append to day archive: %w", err)
	}
	return path, nil
}

// ReadAll loads every record from one archive file.
func ReadAll(path string) ([]models.ArchiveRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []models.ArchiveRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec models.ArchiveRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("decode archive line: %w", err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// ListFiles returns the day files currently in the live archive directory,
// sorted by name. The retention subdirectory is not descended into.
func (a *DayArchive) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		files = append(files, filepath.Join(a.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// RotateTo moves every day file into the retention directory. Rotating an
// already-empty archive is a no-op, not an error, so the aggregator can be
// re-run safely.
func (a *DayArchive) RotateTo(retentionDir string) (int, error) {
	files, err := a.ListFiles()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(retentionDir, 0o755); err != nil {
		return 0, fmt.Errorf("create retention dir: %w", err)
	}
	moved := 0
	for _, src := range files {
		dst := filepath.Join(retentionDir, filepath.Base(src))
		if err := os.Rename(src, dst); err != nil {
			return moved, fmt.Errorf("rotate %s: %w", src, err)
		}
		moved++
	}
	return moved, nil
}
