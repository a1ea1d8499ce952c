// Package loader reads script source text by path.
package loader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound matches every error a Loader returns for a missing path.
var ErrNotFound = errors.New("source not found")

// Loader reads source text.
type Loader interface {
	ReadSource(path string) (string, error)
}

// NotFoundError reports a path no search location could satisfy. Its
// message is produced by the loader's Message hook and is meant to be shown
// as is.
type NotFoundError struct {
	Path    string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// FileLoader reads from the file system. Relative paths are tried as given,
// then against each search directory; a path without extension also tries
// the default extension.
type FileLoader struct {
	// Message formats the not-found diagnostic for a path. Defaults to
	// "<path> not found in path".
	Message   func(path string) string
	Extension string
	Paths     []string
}

// NewFileLoader creates a loader with the given search directories and the
// ".jl" default extension.
func NewFileLoader(paths ...string) *FileLoader {
	return &FileLoader{Paths: paths, Extension: ".jl"}
}

// ReadSource implements Loader.
func (l *FileLoader) ReadSource(path string) (string, error) {
	for _, candidate := range l.candidates(path) {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !isDir(candidate) {
			return "", err
		}
	}
	return "", &NotFoundError{Path: path, Message: l.message(path)}
}

// Resolve returns the file ReadSource would read, if any.
func (l *FileLoader) Resolve(path string) (string, bool) {
	for _, candidate := range l.candidates(path) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func (l *FileLoader) message(path string) string {
	if l.Message != nil {
		return l.Message(path)
	}
	return path + " not found in path"
}

func (l *FileLoader) candidates(path string) []string {
	if path == "" {
		return nil
	}
	names := []string{path}
	if l.Extension != "" && filepath.Ext(path) == "" {
		names = append(names, path+l.Extension)
	}
	if filepath.IsAbs(path) {
		return names
	}

	out := append([]string(nil), names...)
	for _, dir := range l.Paths {
		for _, n := range names {
			out = append(out, filepath.Join(dir, n))
		}
	}
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// MapLoader serves sources from memory, keyed by path. Keys without
// extension also match path+".jl".
type MapLoader map[string]string

// ReadSource implements Loader.
func (m MapLoader) ReadSource(path string) (string, error) {
	if src, ok := m[path]; ok {
		return src, nil
	}
	if src, ok := m[strings.TrimSuffix(path, ".jl")]; ok {
		return src, nil
	}
	return "", &NotFoundError{Path: path, Message: path + " not found in path"}
}
