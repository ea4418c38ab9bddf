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

// Package process probes the liveness of arbitrary pids without signaling
// or otherwise disturbing them.
package process

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"k8s.io/klog/v2"
)

// ParsePid parses the decimal pid encoding used in record file names and in
// the master file.
func ParsePid(data []byte) (int, error) {
	s := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(s)
	if err != nil {
		return -1, fmt.Errorf("invalid pid %q: %s", s, err)
	}
	return pid, nil
}

// Alive reports whether a process with pid exists. A probe that cannot
// decide reports the process alive: callers purge shared state when a pid is
// dead, and purging on uncertainty would tear an environment down under a
// live leader.
func Alive(pid int) (bool, error) {
	// Fast path if pid does not exist.
	exists, err := pidExists(pid)
	if err != nil {
		return true, err
	}
	if !exists {
		return false, nil
	}

	// Slow path confirmation. On windows and darwin this fetches the
	// process table from the kernel, on linux it reads /proc/pid/stat.
	if _, err := process.NewProcess(int32(pid)); err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return false, nil
		}
		klog.Warningf("process.NewProcess(%d) failed: %v", pid, err)
		return true, nil
	}
	return true, nil
}
