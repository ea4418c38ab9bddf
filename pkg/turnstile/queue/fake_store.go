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
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"k8s.io/klog/v2"
)

// FakeStore keeps an environment tree in memory.
//
// It implements the Store interface and is used for testing. Writes are
// stamped with the injected clock, so tests control modification times by
// advancing a testclock instead of sleeping.
type FakeStore struct {
	mu    sync.Mutex
	clock clock.Clock
	dirs  map[string]bool
	files map[string]*fakeFile
}

type fakeFile struct {
	data    []byte
	modTime time.Time
}

// NewFakeStore returns an empty FakeStore that stamps writes with c.
func NewFakeStore(c clock.Clock) *FakeStore {
	return &FakeStore{
		clock: c,
		dirs:  map[string]bool{},
		files: map[string]*fakeFile{},
	}
}

// Mkdir creates dir. Parents are implicit: only the existence of the leaf is
// enforced, which is the part the bootstrap race cares about.
func (f *FakeStore) Mkdir(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	klog.Infof("(FakeStore) Mkdir: %s", dir)
	if f.dirs[dir] {
		return &fs.PathError{Op: "mkdir", Path: dir, Err: fs.ErrExist}
	}
	f.dirs[dir] = true
	return nil
}

// Rename moves oldpath and everything below it to newpath.
func (f *FakeStore) Rename(oldpath, newpath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	klog.Infof("(FakeStore) Rename: %s -> %s", oldpath, newpath)
	if !f.dirs[oldpath] {
		if file, ok := f.files[oldpath]; ok {
			delete(f.files, oldpath)
			f.files[newpath] = file
			return nil
		}
		return &fs.PathError{Op: "rename", Path: oldpath, Err: fs.ErrNotExist}
	}
	delete(f.dirs, oldpath)
	f.dirs[newpath] = true
	prefix := oldpath + string(filepath.Separator)
	for name, file := range f.files {
		if strings.HasPrefix(name, prefix) {
			delete(f.files, name)
			f.files[filepath.Join(newpath, strings.TrimPrefix(name, prefix))] = file
		}
	}
	for name := range f.dirs {
		if strings.HasPrefix(name, prefix) {
			delete(f.dirs, name)
			f.dirs[filepath.Join(newpath, strings.TrimPrefix(name, prefix))] = true
		}
	}
	return nil
}

// Remove deletes a single file.
func (f *FakeStore) Remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	klog.Infof("(FakeStore) Remove: %s", name)
	if _, ok := f.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(f.files, name)
	return nil
}

// RemoveAll deletes path and everything below it.
func (f *FakeStore) RemoveAll(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	klog.Infof("(FakeStore) RemoveAll: %s", path)
	delete(f.dirs, path)
	delete(f.files, path)
	prefix := path + string(filepath.Separator)
	for name := range f.files {
		if strings.HasPrefix(name, prefix) {
			delete(f.files, name)
		}
	}
	for name := range f.dirs {
		if strings.HasPrefix(name, prefix) {
			delete(f.dirs, name)
		}
	}
	return nil
}

// WriteFile replaces the contents of name, stamping the write with the
// store's clock. The parent directory must exist: the engine relies on this
// to detect an environment torn down between operations.
func (f *FakeStore) WriteFile(name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	klog.Infof("(FakeStore) WriteFile: %s %q", name, data)
	if !f.dirs[filepath.Dir(name)] {
		return &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	f.files[name] = &fakeFile{data: append([]byte{}, data...), modTime: f.clock.Now()}
	return nil
}

// ReadFile returns the contents of name.
func (f *FakeStore) ReadFile(name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte{}, file.data...), nil
}

// Stat returns metadata for name, which may be a file or a directory.
func (f *FakeStore) Stat(name string) (fs.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.files[name]; ok {
		return &fakeFileInfo{name: filepath.Base(name), size: int64(len(file.data)), modTime: file.modTime}, nil
	}
	if f.dirs[name] {
		return &fakeFileInfo{name: filepath.Base(name), dir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// List returns the sorted entry names of dir.
func (f *FakeStore) List(dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirs[dir] {
		return nil, &fs.PathError{Op: "open", Path: dir, Err: fs.ErrNotExist}
	}
	names := []string{}
	for name := range f.files {
		if filepath.Dir(name) == dir {
			names = append(names, filepath.Base(name))
		}
	}
	for name := range f.dirs {
		if name != dir && filepath.Dir(name) == dir {
			names = append(names, filepath.Base(name))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Touch overwrites the modification time of name.
func (f *FakeStore) Touch(name string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[name]
	if !ok {
		return &fs.PathError{Op: "chtimes", Path: name, Err: fs.ErrNotExist}
	}
	file.modTime = t
	return nil
}

// SetFileToContents seeds the store, creating parent directories as needed.
func (f *FakeStore) SetFileToContents(fileToContents map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, contents := range fileToContents {
		klog.Infof("fake file %q -> %q", name, contents)
		f.dirs[filepath.Dir(name)] = true
		f.files[name] = &fakeFile{data: []byte(contents), modTime: f.clock.Now()}
	}
}

// GetFileToContents returns the contents stored for name.
func (f *FakeStore) GetFileToContents(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[name]
	if !ok {
		return "", fmt.Errorf("unavailable file: %s", name)
	}
	return string(file.data), nil
}

// DumpTree prints out the stored directories and files.
func (f *FakeStore) DumpTree(w io.Writer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintln(w, "Directories:")
	for name := range f.dirs {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintln(w, "Files:")
	for name, file := range f.files {
		fmt.Fprintf(w, "  %s: %q\n", name, file.data)
	}
}

// fakeFileInfo is the fs.FileInfo returned by FakeStore.Stat.
type fakeFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

func (fi *fakeFileInfo) Name() string       { return fi.name }
func (fi *fakeFileInfo) Size() int64        { return fi.size }
func (fi *fakeFileInfo) Mode() fs.FileMode  { return 0644 }
func (fi *fakeFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *fakeFileInfo) IsDir() bool        { return fi.dir }
func (fi *fakeFileInfo) Sys() interface{}   { return nil }
