// Package fsutil writes files so that readers never observe partial content.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Staged is a fully written temporary file waiting to replace its target.
type Staged struct {
	tmp    string
	target string
}

// Stage writes the output of write to a temporary sibling of path and syncs
// it. Nothing is visible at path until Commit is called.
func Stage(path string, write func(w io.Writer) error) (*Staged, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	fail := func(err error) (*Staged, error) {
		f.Close()
		os.Remove(tmp)
		return nil, err
	}
	if err := write(f); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(fmt.Errorf("sync temp file: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return &Staged{tmp: tmp, target: path}, nil
}

// Commit atomically renames the staged file onto its target.
func (s *Staged) Commit() error {
	if err := os.Rename(s.tmp, s.target); err != nil {
		os.Remove(s.tmp)
		return fmt.Errorf("replace %s: %w", s.target, err)
	}
	return nil
}

// Discard removes the staged file.
func (s *Staged) Discard() {
	os.Remove(s.tmp)
}

// WriteFile stages and commits in one step.
func WriteFile(path string, write func(w io.Writer) error) error {
	s, err := Stage(path, write)
	if err != nil {
		return err
	}
	return s.Commit()
}

// Snapshot makes dst hold the current content of src. Replacing src later
// by rename leaves dst untouched. A hard link is used where possible.
func Snapshot(src, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", dst, err)
	}
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return WriteFile(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}
