// Package backup writes and reads point-in-time JSON snapshots of the note
// store.
//
// Snapshot files are named anote-backup-YYYYMMDD-HHMMSS.json (local time)
// and live in one directory. Files are written atomically, so a reader never
// sees a partial snapshot, and older files beyond the configured count are
// pruned after each successful write.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/natefinch/atomic"

	"github.com/dshills/anote/pkg/types"
)

const (
	filePrefix = "anote-backup-"
	fileSuffix = ".json"
	timeLayout = "20060102-150405"
)

// ErrExportInProgress is returned when a Write is already running
var ErrExportInProgress = errors.New("export already in progress")

// Writer writes snapshots into Dir and keeps the newest Keep of them.
// Keep 0 keeps every file.
type Writer struct {
	Dir  string
	Keep int

	now  func() time.Time
	lock writeLock
}

// NewWriter creates a Writer for dir
func NewWriter(dir string, keep int) *Writer {
	return &Writer{Dir: dir, Keep: keep, now: time.Now}
}

// Write stores snap as a new snapshot file and returns its path.
func (w *Writer) Write(snap *types.Snapshot) (string, error) {
	if !w.lock.TryAcquire() {
		return "", ErrExportInProgress
	}
	defer w.lock.Release()

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path, err := w.nextPath()
	if err != nil {
		return "", err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := w.prune(); err != nil {
		return path, err
	}
	return path, nil
}

// nextPath picks a file name for the current second that is not taken yet
func (w *Writer) nextPath() (string, error) {
	stamp := w.now().Format(timeLayout)
	for n := 1; n < 1000; n++ {
		name := filePrefix + stamp + fileSuffix
		if n > 1 {
			name = fmt.Sprintf("%s%s-%d%s", filePrefix, stamp, n, fileSuffix)
		}
		path := filepath.Join(w.Dir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		} else if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("too many snapshots for %s", stamp)
}

// List returns the snapshot files in Dir, oldest first
func (w *Writer) List() ([]string, error) {
	entries, err := os.ReadDir(w.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}
	// compare without the suffix so "-2" sorts after its base name
	sort.Slice(names, func(i, j int) bool {
		return strings.TrimSuffix(names[i], fileSuffix) < strings.TrimSuffix(names[j], fileSuffix)
	})

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(w.Dir, name)
	}
	return paths, nil
}

func (w *Writer) prune() error {
	if w.Keep <= 0 {
		return nil
	}
	paths, err := w.List()
	if err != nil {
		return err
	}
	for len(paths) > w.Keep {
		if err := os.Remove(paths[0]); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to prune %s: %w", paths[0], err)
		}
		paths = paths[1:]
	}
	return nil
}

// Read decodes the snapshot at path. Snapshots from another major format
// version are rejected.
func Read(path string) (*types.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.Validationf("snapshot %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, types.Validationf("snapshot %s is not valid JSON: %v", filepath.Base(path), err)
	}
	if err := checkVersion(snap.Version); err != nil {
		return nil, err
	}
	return &snap, nil
}

func checkVersion(v string) error {
	if v == "" {
		return types.Validation("snapshot has no version")
	}
	version, err := semver.NewVersion(v)
	if err != nil {
		return types.Validationf("snapshot version %q is invalid", v)
	}
	current := semver.MustParse(types.SnapshotVersion)
	if version.Major() != current.Major() {
		return types.Validationf("unsupported snapshot version %s", v)
	}
	return nil
}
