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
	"testing"
)

func TestParseState(t *testing.T) {
	var tests = []struct {
		description string
		data        string
		want        State
		wantErr     bool
	}{
		{"waiting", "waiting", StateWaiting, false},
		{"ready", "ready_to_run", StateReadyToRun, false},
		{"active", "active", StateActive, false},
		{"empty", "", "", true},
		{"trailing newline", "waiting\n", "", true},
		{"case", "WAITING", "", true},
		{"garbage", "running", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			got, err := parseState([]byte(tc.data))
			if gotErr := err != nil; gotErr != tc.wantErr {
				t.Fatalf("parseState(%q) error = %v, wantErr %t", tc.data, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("parseState(%q) = %q, want %q", tc.data, got, tc.want)
			}
		})
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{From: StateWaiting, To: StateActive}
	want := "invalid state transition: waiting -> active"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
