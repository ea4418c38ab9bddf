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

package constants

import (
	"time"
)

const (
	// EnvPrefix is the prefix for turnstile environment variables
	EnvPrefix = "TURNSTILE"

	// DirPrefix is prepended to the task name to form the shared
	// environment directory under the base directory.
	DirPrefix = "turnstile-"

	// MasterFileName is the leader pointer file inside the shared
	// environment directory. Its content is the leader pid as decimal
	// text, its mtime is the leader heartbeat.
	MasterFileName = "master"
)

// DefaultPollInterval is how often a participant re-checks its own record.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultSettleDelay is how long a freshly elected leader waits before its
// first scheduling decision, so that concurrently starting participants can
// register.
const DefaultSettleDelay = 1 * time.Second

// DefaultMasterTimeout is how long the leader heartbeat may be silent before
// waiting participants give up.
const DefaultMasterTimeout = 15 * time.Second
