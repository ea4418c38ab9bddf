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

// Package exit contains functions useful for exiting gracefully.
//
// Diagnostics always go to stderr: stdout belongs to the wrapped command.
package exit

import (
	"fmt"
	"os"

	"k8s.io/klog/v2"
)

// Exit codes based on sysexits(3)
const (
	Failure     = 1  // Failure represents a general failure code
	Interrupted = 2  // Ctrl-C (SIGINT)
	BadUsage    = 64 // BadUsage represents an incorrect command line
	Data        = 65 // Data represents incorrect data supplied by the user
	NoInput     = 66 // NoInput represents that the input file did not exist or was not readable
	Unavailable = 69 // Unavailable represents when a service was unavailable; used when the leader is lost
	Software    = 70 // Software represents an internal software error
	IO          = 74 // IO represents an I/O error
	Permissions = 77 // Permissions represents a permissions error
	Config      = 78 // Config represents an unconfigured or misconfigured state
)

// Usage outputs a usage error and exits with error code 64
func Usage(format string, a ...interface{}) {
	Message(BadUsage, format, a...)
}

// Message outputs a fatal message to stderr and exits with the supplied error code.
func Message(code int, format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	klog.Flush()
	os.Exit(code)
}

// Error outputs a message and the error it stems from, then exits.
func Error(code int, msg string, err error) {
	klog.Infof("Error(%d, %q) = %v", code, msg, err)
	Message(code, "%s: %v", msg, err)
}
