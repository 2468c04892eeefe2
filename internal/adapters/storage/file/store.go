// Package file stores pipeline runs as one JSON document per run in a
// local directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/storage/runrecord"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

const (
	recordExt = ".json"
	tmpPrefix = ".tmp-"
)

type HistoryStore struct {
	dir string
}

// NewHistoryStore creates the directory if needed.
func NewHistoryStore(dir string) (*HistoryStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("history directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &domain.PersistenceError{Op: "init", Err: err}
	}
	return &HistoryStore{dir: dir}, nil
}

func (s *HistoryStore) path(id domain.RunID) string {
	return filepath.Join(s.dir, string(id)+recordExt)
}

// Save writes the record to a temp file and renames it into place, so a
// reader never sees a partial record.
func (s *HistoryStore) Save(ctx context.Context, run *domain.PipelineRun) (domain.RunID, error) {
	if run == nil {
		return "", &domain.PersistenceError{Op: "save", Err: errors.New("nil run")}
	}

	id := runrecord.NewID(run.Timestamp)
	data, err := runrecord.Marshal(runrecord.FromRun(id, run))
	if err != nil {
		return "", &domain.PersistenceError{Op: "save", Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, tmpPrefix+"*")
	if err != nil {
		return "", &domain.PersistenceError{Op: "save", Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", &domain.PersistenceError{Op: "save", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return "", &domain.PersistenceError{Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", &domain.PersistenceError{Op: "save", Err: err}
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		cleanup()
		return "", &domain.PersistenceError{Op: "save", Err: err}
	}

	observability.LoggerFromContext(ctx).Debug("run record written", "run_id", id, "bytes", len(data))
	return id, nil
}

// List reads every record, newest first. A record that cannot be read or
// decoded is logged and skipped.
func (s *HistoryStore) List(ctx context.Context) ([]*domain.PipelineRun, error) {
	log := observability.LoggerFromContext(ctx)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*domain.PipelineRun{}, nil
		}
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}

	runs := make([]*domain.PipelineRun, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, tmpPrefix) || !strings.HasSuffix(name, recordExt) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			log.Warn("skipping unreadable run record", "file", name, "error", err)
			continue
		}
		run, err := runrecord.Unmarshal(data, strings.TrimSuffix(name, recordExt))
		if err != nil {
			log.Warn("skipping corrupted run record", "file", name, "error", err)
			continue
		}
		runs = append(runs, run)
	}

	runrecord.SortNewestFirst(runs)
	return runs, nil
}

func (s *HistoryStore) Get(ctx context.Context, id domain.RunID) (*domain.PipelineRun, error) {
	if !runrecord.ValidID(id) {
		return nil, domain.ErrRunNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrRunNotFound
		}
		return nil, &domain.PersistenceError{Op: "get", Err: err}
	}
	run, err := runrecord.Unmarshal(data, string(id))
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get", Err: err}
	}
	return run, nil
}

// Clear deletes every record and any leftover temp file.
func (s *HistoryStore) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &domain.PersistenceError{Op: "clear", Err: err}
	}

	var errs []error
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, recordExt) || strings.HasPrefix(name, tmpPrefix)) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	observability.LoggerFromContext(ctx).Info("history cleared", "removed", removed)
	if len(errs) > 0 {
		return &domain.PersistenceError{Op: "clear", Err: errors.Join(errs...)}
	}
	return nil
}
