/*
Copyright 2024 The Turnstile Authors All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package queue

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/turnstile-sh/turnstile/pkg/util/lock"
)

// Store represents an interface to the shared directory. The queue engine
// performs every filesystem operation through it, so tests can run whole
// multi-participant scenarios against an in-memory implementation.
//
// Errors are expected to satisfy errors.Is against fs.ErrExist and
// fs.ErrNotExist the way the os package does.
type Store interface {
	// Mkdir creates dir, creating parents as needed. Creating the leaf is
	// a single step, so concurrent callers race cleanly on fs.ErrExist.
	Mkdir(dir string) error

	// Rename moves oldpath to newpath.
	Rename(oldpath, newpath string) error

	// Remove deletes a single file.
	Remove(name string) error

	// RemoveAll deletes path and everything below it. Missing paths are
	// not an error.
	RemoveAll(path string) error

	// WriteFile replaces the contents of name. The parent directory must
	// exist.
	WriteFile(name string, data []byte) error

	// ReadFile returns the contents of name.
	ReadFile(name string) ([]byte, error)

	// Stat returns metadata for name.
	Stat(name string) (fs.FileInfo, error)

	// List returns the entry names (not paths) of dir, sorted.
	List(dir string) ([]string, error)
}

// DefaultStore returns the Store backed by the host filesystem.
func DefaultStore() Store {
	return &osStore{}
}

// osStore is the Store used outside of tests.
type osStore struct{}

func (*osStore) Mkdir(dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return err
	}
	return os.Mkdir(dir, 0755)
}

func (*osStore) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (*osStore) Remove(name string) error {
	return os.Remove(name)
}

func (*osStore) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (*osStore) WriteFile(name string, data []byte) error {
	return lock.WriteFile(name, data, 0644)
}

func (*osStore) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (*osStore) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (*osStore) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
