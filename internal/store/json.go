package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// document is the on-disk layout, shared with earlier db.json files.
type document struct {
	Links []string `json:"links"`
}

// JSONFile stores the set as a single JSON document. Each read and write holds
// an exclusive lock on a sibling ".lock" file, and writes go through a temp
// file and rename. Whole-lifetime exclusion between processes is Owner's job.
type JSONFile struct {
	path string
	lock *flock.Flock
}

// NewJSONFile returns a backend for the document at path. The file is
// created on the first Save.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Load reads the document. A missing file is an empty set.
func (j *JSONFile) Load(ctx context.Context) ([]string, error) {
	if err := j.acquire(ctx); err != nil {
		return nil, err
	}
	defer j.lock.Unlock()

	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", j.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", j.path, err)
	}
	return doc.Links, nil
}

// Save atomically replaces the document with ids.
func (j *JSONFile) Save(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.MarshalIndent(document{Links: ids}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding seen set: %w", err)
	}

	if err := j.acquire(ctx); err != nil {
		return err
	}
	defer j.lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(j.path), filepath.Base(j.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		return fmt.Errorf("replacing %s: %w", j.path, err)
	}
	return nil
}

// Close is a no-op; the lock is only held during Load and Save.
func (j *JSONFile) Close() error { return nil }

func (j *JSONFile) acquire(ctx context.Context) error {
	ok, err := j.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("locking %s: %w", j.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("locking %s: not acquired", j.lock.Path())
	}
	return nil
}
