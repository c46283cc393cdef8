package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"productscene/internal/domain"
)

// Batch stages several files and moves them into place together. Either every
// staged file replaces its target or every target keeps its previous content.
type Batch struct {
	store *FileStore
	items []stagedFile
	done  bool
}

type stagedFile struct {
	key    string
	path   string
	tmp    string
	backup string
}

// NewBatch starts an empty batch on the store.
func (s *FileStore) NewBatch() *Batch {
	return &Batch{store: s}
}

// Add writes data to a temp file that Commit later renames to key.
func (b *Batch) Add(ctx context.Context, key string, data []byte) (string, error) {
	if b.store == nil {
		return "", errors.New("storage: no store configured")
	}
	if b.done {
		return "", errors.New("storage: batch already finished")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(b.store.basePath, filepath.FromSlash(cleanKey))
	tmp, err := writeTemp(fullPath, data)
	if err != nil {
		return "", err
	}
	b.items = append(b.items, stagedFile{key: cleanKey, path: fullPath, tmp: tmp})
	return cleanKey, nil
}

// Commit renames every staged file onto its target. Targets that are not
// regular files fail the batch before anything moves. When a rename fails the
// targets already replaced are restored from their backups.
func (b *Batch) Commit() error {
	if b.done {
		return errors.New("storage: batch already finished")
	}
	defer b.Discard()

	for _, item := range b.items {
		info, err := os.Lstat(item.path)
		if err == nil && !info.Mode().IsRegular() {
			return fmt.Errorf("%w: storage: %s is not a regular file", domain.ErrIO, item.key)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: storage: stat %s: %v", domain.ErrIO, item.key, err)
		}
	}

	for i := range b.items {
		if err := b.items[i].swap(); err != nil {
			b.restore(i)
			return err
		}
	}
	for _, item := range b.items {
		if item.backup != "" {
			os.Remove(item.backup)
		}
	}
	b.items = nil
	return nil
}

// Discard removes temp files that were never committed. It is safe to call
// after Commit.
func (b *Batch) Discard() {
	b.done = true
	for _, item := range b.items {
		os.Remove(item.tmp)
	}
	b.items = nil
}

func (f *stagedFile) swap() error {
	if _, err := os.Lstat(f.path); err == nil {
		backup := f.tmp + ".bak"
		if err := os.Rename(f.path, backup); err != nil {
			return fmt.Errorf("%w: storage: back up %s: %v", domain.ErrIO, f.key, err)
		}
		f.backup = backup
	}
	if err := os.Rename(f.tmp, f.path); err != nil {
		f.undo()
		return fmt.Errorf("%w: storage: rename %s: %v", domain.ErrIO, f.key, err)
	}
	return nil
}

// undo puts the backup back, or removes the new file when the target did not
// exist before.
func (f *stagedFile) undo() {
	if f.backup != "" {
		os.Rename(f.backup, f.path)
		f.backup = ""
		return
	}
	if _, err := os.Lstat(f.tmp); errors.Is(err, fs.ErrNotExist) {
		os.Remove(f.path)
	}
}

func (b *Batch) restore(failed int) {
	for i := failed - 1; i >= 0; i-- {
		b.items[i].undo()
	}
}
