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

import "fmt"

// State is the lifecycle phase recorded in a participant's record file. The
// record contains exactly the literal state string, nothing else.
type State string

const (
	// StateWaiting marks a registered participant whose turn has not come.
	StateWaiting State = "waiting"

	// StateReadyToRun marks the one participant selected to run next.
	StateReadyToRun State = "ready_to_run"

	// StateActive marks the participant currently running its command.
	StateActive State = "active"
)

// transitions lists the permitted unforced state changes. The lifecycle is
// monotonic: a record never moves backwards and never skips ready_to_run.
var transitions = map[State]State{
	StateWaiting:    StateReadyToRun,
	StateReadyToRun: StateActive,
}

// InvalidTransitionError rejects a state change the lifecycle does not
// allow.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// parseState validates raw record content.
func parseState(data []byte) (State, error) {
	s := State(data)
	switch s {
	case StateWaiting, StateReadyToRun, StateActive:
		return s, nil
	}
	return "", fmt.Errorf("unrecognized state %q", string(data))
}
