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
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/juju/clock/testclock"
)

func TestInspect(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	clk := testclock.NewClock(t0)
	store := NewFakeStore(clk)
	dir := filepath.Join("/coord", "turnstile-report")

	store.SetFileToContents(map[string]string{
		filepath.Join(dir, "master"): "100",
		filepath.Join(dir, "100"):    "active",
	})
	clk.Advance(time.Second)
	store.SetFileToContents(map[string]string{
		filepath.Join(dir, "300"): "waiting",
	})
	clk.Advance(time.Second)
	store.SetFileToContents(map[string]string{
		filepath.Join(dir, "200"): "waiting",
	})

	snap, err := Inspect("report", testConfig(store, clk, 1, nil))
	if err != nil {
		t.Fatalf("Inspect() error: %v", err)
	}
	if snap.Task != "report" || snap.Dir != dir {
		t.Errorf("snapshot identity = %q %q, want %q %q", snap.Task, snap.Dir, "report", dir)
	}
	if snap.MasterPid != 100 {
		t.Errorf("MasterPid = %d, want 100", snap.MasterPid)
	}
	if !snap.Heartbeat.Equal(t0) {
		t.Errorf("Heartbeat = %v, want %v", snap.Heartbeat, t0)
	}

	want := []RecordInfo{
		{Pid: 100, State: StateActive, Leader: true, ModTime: t0},
		{Pid: 300, State: StateWaiting, ModTime: t0.Add(time.Second)},
		{Pid: 200, State: StateWaiting, ModTime: t0.Add(2 * time.Second)},
	}
	if diff := cmp.Diff(want, snap.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectMissingEnvironment(t *testing.T) {
	clk := testclock.NewClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	store := NewFakeStore(clk)

	_, err := Inspect("absent", testConfig(store, clk, 1, nil))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Inspect() error = %v, want fs.ErrNotExist", err)
	}
}

func TestPurge(t *testing.T) {
	var tests = []struct {
		description string
		leaderAlive bool
		force       bool
		wantRemoved bool
		wantErr     bool
	}{
		{"dead leader", false, false, true, false},
		{"live leader refused", true, false, false, true},
		{"live leader forced", true, true, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			clk := testclock.NewClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
			store := NewFakeStore(clk)
			dir := filepath.Join("/coord", "turnstile-victim")
			store.SetFileToContents(map[string]string{
				filepath.Join(dir, "master"): "999",
				filepath.Join(dir, "999"):    "waiting",
			})

			cfg := testConfig(store, clk, 1, map[int]bool{999: tc.leaderAlive})
			removed, err := Purge("victim", cfg, tc.force)
			if gotErr := err != nil; gotErr != tc.wantErr {
				t.Fatalf("Purge() error = %v, wantErr %t", err, tc.wantErr)
			}
			if removed != tc.wantRemoved {
				t.Errorf("Purge() removed = %t, want %t", removed, tc.wantRemoved)
			}
			_, statErr := store.Stat(dir)
			if tc.wantRemoved && !errors.Is(statErr, fs.ErrNotExist) {
				t.Errorf("environment survived purge: %v", statErr)
			}
			if !tc.wantRemoved && statErr != nil {
				t.Errorf("environment missing after refused purge: %v", statErr)
			}
		})
	}
}

func TestPurgeMissingEnvironment(t *testing.T) {
	clk := testclock.NewClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	store := NewFakeStore(clk)

	removed, err := Purge("absent", testConfig(store, clk, 1, nil), false)
	if err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if removed {
		t.Error("Purge() removed = true for a missing environment")
	}
}
