// Package fsys enumerates, reads and writes the files a run touches.
//
// Reads may be memoized for the lifetime of a FileService; the cache is keyed
// by absolute path and is never invalidated, so a FileService should not
// outlive a single run.
package fsys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// FileAccessError reports a file that could not be read or written.
type FileAccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("failed to %s file %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

type FileService struct {
	fs    afero.Fs
	cache map[string]string
}

// New wraps fs. A nil fs means the operating system's filesystem.
func New(fs afero.Fs) *FileService {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileService{
		fs:    fs,
		cache: make(map[string]string),
	}
}

// Fs exposes the underlying filesystem.
func (s *FileService) Fs() afero.Fs {
	return s.fs
}

// ResetCache drops every memoized read. Call it when a new run starts.
func (s *FileService) ResetCache() {
	s.cache = make(map[string]string)
}

// GetFiles returns the regular files under root matching pattern, sorted by
// path. Patterns without a slash are matched against the base name; patterns
// with one are matched against the slash-separated path relative to root.
func (s *FileService) GetFiles(root, pattern string, recursive bool) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid search pattern %q", pattern)
	}

	var files []string
	match := func(p string) (bool, error) {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return false, err
		}
		subject := filepath.ToSlash(rel)
		if !strings.Contains(pattern, "/") {
			subject = path.Base(subject)
		}
		return doublestar.Match(pattern, subject)
	}

	if !recursive {
		entries, err := afero.ReadDir(s.fs, root)
		if err != nil {
			return nil, fmt.Errorf("failed to read scripts directory %s: %w", root, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			p := filepath.Join(root, entry.Name())
			ok, err := match(p)
			if err != nil {
				return nil, err
			}
			if ok {
				files = append(files, p)
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err := afero.Walk(s.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ok, err := match(p)
		if err != nil {
			return err
		}
		if ok {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk scripts directory %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// ReadFile returns the contents of p. With useCache the first read of a path
// is remembered and returned for every later cached read.
func (s *FileService) ReadFile(p string, useCache bool) (string, error) {
	key := p
	if abs, err := filepath.Abs(p); err == nil {
		key = abs
	}

	if useCache {
		if content, ok := s.cache[key]; ok {
			return content, nil
		}
	}

	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return "", &FileAccessError{Path: p, Op: "read", Err: err}
	}

	content := string(data)
	if useCache {
		s.cache[key] = content
	}
	return content, nil
}

// Exists reports whether p exists. Errors other than not-exist count as present.
func (s *FileService) Exists(p string) bool {
	_, err := s.fs.Stat(p)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// WriteFile writes content to p, creating parent directories as needed.
func (s *FileService) WriteFile(p, content string) error {
	if dir := filepath.Dir(p); dir != "" {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return &FileAccessError{Path: p, Op: "write", Err: err}
		}
	}
	if err := afero.WriteFile(s.fs, p, []byte(content), 0644); err != nil {
		return &FileAccessError{Path: p, Op: "write", Err: err}
	}
	return nil
}

// Remove deletes p. A missing file is not an error.
func (s *FileService) Remove(p string) error {
	err := s.fs.Remove(p)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return &FileAccessError{Path: p, Op: "remove", Err: err}
}
