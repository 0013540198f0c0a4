package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// cacheFile is the on-disk shape: the document plus a write time.
type cacheFile struct {
	UpdatedAt string          `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// FileStore keeps one JSON file per key under <dir>/<workspace>/ui-cache.
type FileStore struct {
	root string
	now  func() time.Time
}

// NewFileStore creates a FileStore rooted at dir for workspace.
func NewFileStore(dir, workspace string) (*FileStore, error) {
	if dir == "" || workspace == "" {
		return nil, errors.New("file store: dir and workspace are required")
	}
	if filepath.Base(workspace) != workspace || workspace == "." || workspace == ".." {
		return nil, fmt.Errorf("file store: invalid workspace %q", workspace)
	}
	return &FileStore{
		root: filepath.Join(dir, workspace, "ui-cache"),
		now:  time.Now,
	}, nil
}

// Dir returns the directory documents are written to.
func (s *FileStore) Dir() string { return s.root }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.root, key+".json")
}

func (s *FileStore) Get(ctx context.Context, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if err := validKey(key); err != nil {
		return Document{}, &StoreError{Op: "get", Key: key, Cause: err}
	}

	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, &StoreError{Op: "get", Key: key, Cause: ErrNotFound}
	}
	if err != nil {
		return Document{}, &StoreError{Op: "get", Key: key, Cause: err}
	}

	var cf cacheFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return Document{}, &StoreError{Op: "get", Key: key, Cause: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	var doc Document
	if len(cf.Data) > 0 && string(cf.Data) != "null" {
		if err := json.Unmarshal(cf.Data, &doc.Data); err != nil {
			return Document{}, &StoreError{Op: "get", Key: key, Cause: fmt.Errorf("%w: %v", ErrCorrupt, err)}
		}
	}
	return doc, nil
}

// Set writes the document atomically through a temp file and rename.
func (s *FileStore) Set(ctx context.Context, key string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validKey(key); err != nil {
		return &StoreError{Op: "set", Key: key, Cause: err}
	}

	data, err := json.Marshal(doc.Data)
	if err != nil {
		return &StoreError{Op: "set", Key: key, Cause: err}
	}
	out, err := json.MarshalIndent(cacheFile{
		UpdatedAt: s.now().UTC().Format(time.RFC3339Nano),
		Data:      data,
	}, "", "  ")
	if err != nil {
		return &StoreError{Op: "set", Key: key, Cause: err}
	}

	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return &StoreError{Op: "set", Key: key, Cause: err}
	}
	tmp, err := os.CreateTemp(s.root, key+".*.tmp")
	if err != nil {
		return &StoreError{Op: "set", Key: key, Cause: err}
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &StoreError{Op: "set", Key: key, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &StoreError{Op: "set", Key: key, Cause: err}
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return &StoreError{Op: "set", Key: key, Cause: err}
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validKey(key); err != nil {
		return false, &StoreError{Op: "delete", Key: key, Cause: err}
	}
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &StoreError{Op: "delete", Key: key, Cause: err}
	}
	return true, nil
}
