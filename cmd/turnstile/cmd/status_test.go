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

package cmd

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/turnstile-sh/turnstile/pkg/turnstile/queue"
)

func TestStatusToTableData(t *testing.T) {
	now := time.Now()
	rows := []participantRow{
		{Pid: 100, State: "active", Role: "leader", Alive: true, Executable: "make", Since: now.Add(-90 * time.Second)},
		{Pid: 200, State: "waiting", Role: "participant", Alive: false, Executable: "unknown", Since: now},
	}
	data := statusToTableData(rows)
	if len(data) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(data), data)
	}
	want := []string{"100", "active", "leader", "yes"}
	if diff := cmp.Diff(want, data[0][:4]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasSuffix(data[0][4], " ago") {
		t.Errorf("since column = %q, expected an \"ago\" suffix", data[0][4])
	}
	if data[0][5] != "make" {
		t.Errorf("executable column = %q, expected \"make\"", data[0][5])
	}
	if data[1][3] != "no" {
		t.Errorf("alive column = %q, expected \"no\"", data[1][3])
	}
}

func TestStatusRowsProbesSelf(t *testing.T) {
	snap := &queue.Snapshot{
		Task:      "build",
		MasterPid: os.Getpid(),
		Records: []queue.RecordInfo{
			{Pid: os.Getpid(), State: queue.StateActive, Leader: true, ModTime: time.Now()},
		},
	}
	rows := statusRows(snap)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %v", len(rows), rows)
	}
	got := rows[0]
	if !got.Alive {
		t.Errorf("rows[0].Alive = false, expected the current process to probe alive")
	}
	if got.Role != "leader" {
		t.Errorf("rows[0].Role = %q, expected leader", got.Role)
	}
	if got.Executable == "" || got.Executable == "unknown" {
		t.Errorf("rows[0].Executable = %q, expected the test binary name", got.Executable)
	}
}
