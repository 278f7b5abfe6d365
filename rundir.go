package servant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"vawter.tech/stopper"
)

// recordSuffix names run directory record files: <pid>.worker
const recordSuffix = ".worker"

// RunRecord is the content of a run directory record
type RunRecord struct {
	Tag     string    `json:"tag"`
	Name    string    `json:"name"`
	PID     int       `json:"pid"`
	Port    int       `json:"port"`
	Started time.Time `json:"started"`
}

// RunDir is a discovery Source backed by a directory of worker records.
// Supervisors write a record per spawned worker; reads only report records
// whose process is still alive.
type RunDir struct {
	// Path is the directory holding the records
	Path string

	// WatchDebounce coalesces bursts of directory events in Watch
	WatchDebounce time.Duration

	logger *zap.Logger
}

// RunDirOption configures a RunDir
type RunDirOption func(*RunDir)

// WithRunDirDebounce sets the Watch debounce interval
func WithRunDirDebounce(d time.Duration) RunDirOption {
	return func(r *RunDir) {
		r.WatchDebounce = d
	}
}

// WithRunDirLogger sets the run directory's logger
func WithRunDirLogger(l *zap.Logger) RunDirOption {
	return func(r *RunDir) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunDir opens path as a run directory, creating it when missing
func NewRunDir(path string, opts ...RunDirOption) (*RunDir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(abs, DirMode); err != nil {
		return nil, &OpError{Op: OpRecord, Name: abs, Err: err}
	}

	r := &RunDir{
		Path:          abs,
		WatchDebounce: DefaultWatchDebounce,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *RunDir) recordPath(pid int) string {
	return filepath.Join(r.Path, strconv.Itoa(pid)+recordSuffix)
}

// Record writes the record for h, replacing any previous one atomically
func (r *RunDir) Record(h Handle) error {
	data, err := json.Marshal(RunRecord{
		Tag:     h.Tag(),
		Name:    h.Name,
		PID:     h.PID,
		Port:    h.Port,
		Started: time.Now().UTC(),
	})
	if err != nil {
		return &OpError{Op: OpRecord, Name: h.Name, Err: err}
	}
	if err := writeRecord(r.recordPath(h.PID), data); err != nil {
		return &OpError{Op: OpRecord, Name: h.Name, Err: err}
	}
	return nil
}

// Remove deletes the record for h. A missing record is not an error.
func (r *RunDir) Remove(h Handle) error {
	if h.PID == 0 {
		return nil
	}
	if err := os.Remove(r.recordPath(h.PID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &OpError{Op: OpRecord, Name: h.Name, Err: err}
	}
	return nil
}

// Records returns every readable record, alive or not, ordered by pid.
// Files that are not records or fail to parse are skipped.
func (r *RunDir) Records() ([]RunRecord, error) {
	entries, err := os.ReadDir(r.Path)
	if err != nil {
		return nil, &OpError{Op: OpScan, Name: r.Path, Err: err}
	}

	records := make([]RunRecord, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.Path, e.Name()))
		if err != nil {
			continue
		}
		var rec RunRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			r.logger.Debug("skipping unreadable record", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].PID < records[j].PID })
	return records, nil
}

// Tagged implements Source over the records of live workers
func (r *RunDir) Tagged(ctx context.Context) (map[string][]int, error) {
	records, err := r.Records()
	if err != nil {
		return nil, err
	}

	found := make(map[string][]int)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !pidAlive(rec.PID) {
			continue
		}
		found[rec.Tag] = append(found[rec.Tag], rec.PID)
	}
	return found, nil
}

// Prune removes the records of workers that are no longer running and
// returns how many were removed.
func (r *RunDir) Prune() (int, error) {
	records, err := r.Records()
	if err != nil {
		return 0, err
	}

	merr := &MultiError{}
	removed := 0
	for _, rec := range records {
		if pidAlive(rec.PID) {
			continue
		}
		if err := r.Remove(Handle{Name: rec.Name, PID: rec.PID, Port: rec.Port}); err != nil {
			merr.Add(err)
			continue
		}
		removed++
	}
	return removed, merr.Err()
}

// RunDirEvent carries the live workers after a run directory change
type RunDirEvent struct {
	Workers map[string][]int
	Err     error
}

// WatchCleanupFunc stops a watch and waits for its goroutines
type WatchCleanupFunc func() error

// Watch reports the live workers whenever the run directory changes. The
// current view is sent first; later events are sent only when the view
// differs from the last one sent. The channel closes after cleanup or when
// ctx is done.
func (r *RunDir) Watch(ctx context.Context) (<-chan RunDirEvent, WatchCleanupFunc, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, &OpError{Op: OpWatch, Name: r.Path, Err: err}
	}
	if err := watcher.Add(r.Path); err != nil {
		_ = watcher.Close()
		return nil, nil, &OpError{Op: OpWatch, Name: r.Path, Err: err}
	}

	ch := make(chan RunDirEvent, 10)
	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
		close(ch)
	})

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	var (
		mu        sync.Mutex
		last      map[string][]int
		sent      bool
		debouncer *time.Timer
	)

	send := func(ev RunDirEvent) {
		if sctx.IsStopping() {
			return
		}
		select {
		case ch <- ev:
		case <-sctx.Stopping():
		}
	}

	readAndSend := func() {
		if sctx.IsStopping() {
			return
		}
		workers, err := r.Tagged(ctx)
		if err != nil {
			send(RunDirEvent{Err: err})
			return
		}

		mu.Lock()
		changed := !sent || !maps.EqualFunc(last, workers, func(a, b []int) bool { return slices.Equal(a, b) })
		if changed {
			last, sent = workers, true
		}
		mu.Unlock()

		if changed {
			send(RunDirEvent{Workers: workers})
		}
	}

	readAndSend()

	sctx.Go(func(sctx *stopper.Context) error {
		sctx.Defer(func() {
			mu.Lock()
			if debouncer != nil {
				debouncer.Stop()
			}
			mu.Unlock()
		})

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !strings.HasSuffix(event.Name, recordSuffix) {
					continue
				}
				mu.Lock()
				if debouncer != nil {
					debouncer.Stop()
				}
				debouncer = time.AfterFunc(r.WatchDebounce, readAndSend)
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil {
					send(RunDirEvent{Err: err})
				}
			}
		}
		return nil
	})

	return ch, cleanup, nil
}
