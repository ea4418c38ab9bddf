/*
Copyright 2025 The Turnstile Authors All rights reserved.

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

package process

import (
	"math"
	"os"
	"testing"
)

func TestParsePid(t *testing.T) {
	var tests = []struct {
		description string
		data        string
		pid         int
		wantErr     bool
	}{
		{"plain", "1234", 1234, false},
		{"trailing newline", "1234\n", 1234, false},
		{"surrounding space", "  99  ", 99, false},
		{"empty", "", -1, true},
		{"garbage", "not-a-pid", -1, true},
		{"hex", "0x10", -1, true},
		{"fraction", "12.5", -1, true},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			pid, err := ParsePid([]byte(tc.data))
			if gotErr := err != nil; gotErr != tc.wantErr {
				t.Fatalf("ParsePid(%q) error = %v, wantErr %t", tc.data, err, tc.wantErr)
			}
			if pid != tc.pid {
				t.Errorf("ParsePid(%q) = %d, want %d", tc.data, pid, tc.pid)
			}
		})
	}
}

func TestAliveSelf(t *testing.T) {
	pid := os.Getpid()
	alive, err := Alive(pid)
	if err != nil {
		t.Fatalf("Alive(%d) error: %v", pid, err)
	}
	if !alive {
		t.Fatalf("Alive(%d) = false, want true", pid)
	}
}

func TestAliveGone(t *testing.T) {
	// Exceeds pid_max on linux and is far above anything a kernel will
	// hand out elsewhere.
	pid := math.MaxInt32
	alive, err := Alive(pid)
	if err != nil {
		t.Fatalf("Alive(%d) error: %v", pid, err)
	}
	if alive {
		t.Fatalf("Alive(%d) = true, want false", pid)
	}
}
