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
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/juju/clock"
)

func TestOSStore(t *testing.T) {
	s := DefaultStore()
	dir := filepath.Join(t.TempDir(), "deep", "turnstile-x")

	if err := s.Mkdir(dir); err != nil {
		t.Fatalf("Mkdir() error: %v", err)
	}
	if err := s.Mkdir(dir); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("second Mkdir() error = %v, want fs.ErrExist", err)
	}

	record := filepath.Join(dir, "100")
	if err := s.WriteFile(record, []byte("waiting")); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := s.WriteFile(filepath.Join(dir, "master"), []byte("100")); err != nil {
		t.Fatalf("WriteFile(master) error: %v", err)
	}

	data, err := s.ReadFile(record)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "waiting" {
		t.Errorf("ReadFile() = %q, want %q", data, "waiting")
	}
	fi, err := s.Stat(record)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if fi.Size() != int64(len("waiting")) {
		t.Errorf("Stat().Size() = %d, want %d", fi.Size(), len("waiting"))
	}

	names, err := s.List(dir)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if diff := cmp.Diff([]string{"100", "master"}, names); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	moved := dir + ".stale-test"
	if err := s.Rename(dir, moved); err != nil {
		t.Fatalf("Rename() error: %v", err)
	}
	if _, err := s.List(dir); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("List() after rename error = %v, want fs.ErrNotExist", err)
	}
	if _, err := s.ReadFile(filepath.Join(moved, "100")); err != nil {
		t.Errorf("record did not move with the directory: %v", err)
	}

	if err := s.Remove(filepath.Join(moved, "100")); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := s.Remove(filepath.Join(moved, "100")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second Remove() error = %v, want fs.ErrNotExist", err)
	}

	if err := s.RemoveAll(moved); err != nil {
		t.Fatalf("RemoveAll() error: %v", err)
	}
	if _, err := s.Stat(moved); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat() after RemoveAll error = %v, want fs.ErrNotExist", err)
	}
	if err := s.RemoveAll(moved); err != nil {
		t.Errorf("RemoveAll() on a missing path error: %v", err)
	}
}

func TestFakeStoreMatchesOSStoreSemantics(t *testing.T) {
	// The engine's tests lean on the fake; pin the error behaviors the
	// fake must share with the real store.
	store := NewFakeStore(clock.WallClock)

	dir := filepath.Join("/coord", "turnstile-sanity")
	if err := store.Mkdir(dir); err != nil {
		t.Fatalf("Mkdir() error: %v", err)
	}
	if err := store.Mkdir(dir); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("second Mkdir() error = %v, want fs.ErrExist", err)
	}
	if err := store.WriteFile(filepath.Join("/nowhere", "100"), []byte("waiting")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("WriteFile() without parent error = %v, want fs.ErrNotExist", err)
	}
	if _, err := store.ReadFile(filepath.Join(dir, "100")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile() of missing file error = %v, want fs.ErrNotExist", err)
	}
}
