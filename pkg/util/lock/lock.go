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

// Package lock names cross-process mutexes after filesystem paths, so that
// independent processes agree on the lock guarding a shared file.
package lock

import (
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/juju/clock"
	"github.com/juju/mutex/v2"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// WriteFile decorates os.WriteFile with a cross-process lock on the path.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	spec := PathMutexSpec(filename)
	klog.V(1).Infof("attempting to write to file %q with filemode %v", filename, perm)

	releaser, err := mutex.Acquire(spec)
	if err != nil {
		return errors.Wrapf(err, "acquiring lock for %s: %+v", filename, spec)
	}
	defer releaser.Release()

	if err := os.WriteFile(filename, data, perm); err != nil {
		return errors.Wrapf(err, "writing file %s", filename)
	}
	return nil
}

// PathMutexSpec returns a mutex spec derived from a path. Mutex names accept
// only letters, digits and dashes and carry a hard 40 character maximum, so
// the path is hashed rather than sanitized.
func PathMutexSpec(path string) mutex.Spec {
	return mutex.Spec{
		Name:  fmt.Sprintf("ts%x", sha256.Sum256([]byte(path)))[:40],
		Clock: clock.WallClock,
		Delay: 13 * time.Millisecond,
	}
}
