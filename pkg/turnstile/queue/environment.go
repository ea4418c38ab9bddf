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
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/juju/mutex/v2"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/turnstile-sh/turnstile/pkg/turnstile/constants"
	"github.com/turnstile-sh/turnstile/pkg/turnstile/process"
	"github.com/turnstile-sh/turnstile/pkg/util/lock"
)

// bootstrapLockTimeout bounds how long a participant waits for the
// machine-wide bootstrap mutex before giving up on the environment.
const bootstrapLockTimeout = 30 * time.Second

// environment is one task's shared coordination directory.
type environment struct {
	task string
	dir  string
	cfg  Config
}

func newEnvironment(task string, cfg Config) *environment {
	return &environment{
		task: task,
		dir:  filepath.Join(cfg.BaseDir, constants.DirPrefix+task),
		cfg:  cfg,
	}
}

// masterPath returns the leader pointer file.
func (e *environment) masterPath() string {
	return filepath.Join(e.dir, constants.MasterFileName)
}

// masterPid returns the pid recorded in the leader pointer.
func (e *environment) masterPid() (int, error) {
	data, err := e.cfg.Store.ReadFile(e.masterPath())
	if err != nil {
		return -1, err
	}
	return process.ParsePid(data)
}

// writeMaster overwrites the leader pointer with our pid. The scheduler also
// calls this with unchanged content: the refreshed mtime is the heartbeat
// non-leaders watch.
func (e *environment) writeMaster() error {
	return e.cfg.Store.WriteFile(e.masterPath(), []byte(strconv.Itoa(e.cfg.Pid)))
}

// isLeader reports whether our pid is the one in the leader pointer. The
// role is re-derived on every call, never cached.
func (e *environment) isLeader() (bool, error) {
	pid, err := e.masterPid()
	if err != nil {
		return false, err
	}
	return pid == e.cfg.Pid, nil
}

// usable reports whether the environment has a live leader. A missing or
// unparseable pointer and a dead leader pid all mean stale. An inconclusive
// liveness probe counts as alive: purging on uncertainty would tear the
// environment down under a live leader.
func (e *environment) usable() bool {
	pid, err := e.masterPid()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			klog.Warningf("%s: unusable master: %v", e.dir, err)
		}
		return false
	}
	alive, err := e.cfg.ProbeAlive(pid)
	if err != nil {
		klog.Warningf("%s: probing leader pid %d: %v", e.dir, pid, err)
	}
	return alive
}

// ensure makes the environment usable, purging a stale lineage and
// bootstrapping a fresh one if needed. The participant that wins the
// bootstrap becomes leader and pauses for the settling delay, so
// concurrently launched participants can register before its first
// scheduling decision.
func (e *environment) ensure() error {
	created, err := e.bootstrap()
	if err != nil {
		return err
	}
	if created {
		klog.Infof("%s: settling for %s", e.dir, e.cfg.SettleDelay)
		<-e.cfg.Clock.After(e.cfg.SettleDelay)
	}
	return nil
}

// bootstrap runs the probe, purge and create sequence under a machine-wide
// named mutex and reports whether this participant created the directory.
// The mutex narrows the bootstrap race; the Mkdir fs.ErrExist handling
// remains the authority for callers the mutex cannot see.
func (e *environment) bootstrap() (bool, error) {
	spec := lock.PathMutexSpec(e.dir)
	spec.Timeout = bootstrapLockTimeout
	klog.V(1).Infof("acquiring lock: %+v", spec)
	releaser, err := mutex.Acquire(spec)
	if err != nil {
		return false, errors.Wrapf(err, "unable to acquire lock for %+v", spec)
	}
	defer releaser.Release()

	if e.usable() {
		return false, nil
	}

	e.purge()

	if err := e.cfg.Store.Mkdir(e.dir); err != nil {
		if errors.Is(err, fs.ErrExist) {
			// Another participant won the bootstrap between our probe
			// and Mkdir. Its leader owns the pointer; we defer.
			klog.Infof("%s: lost bootstrap race, deferring", e.dir)
			return false, nil
		}
		return false, errors.Wrapf(err, "creating %s", e.dir)
	}

	if err := e.writeMaster(); err != nil {
		return false, errors.Wrap(err, "writing master")
	}
	klog.Infof("%s: bootstrapped environment, leader pid %d", e.dir, e.cfg.Pid)
	return true, nil
}

// purge retires the environment directory: rename it aside, then delete the
// renamed copy. Both steps are best-effort. Losing the rename to a
// concurrent purge leaves nothing to do, and a directory that was renamed
// but not deleted is inert garbage, not shared state.
func (e *environment) purge() {
	aside := fmt.Sprintf("%s.stale-%s", e.dir, uuid.New().String())
	if err := e.cfg.Store.Rename(e.dir, aside); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			klog.Warningf("renaming %s aside: %v", e.dir, err)
		}
		return
	}
	klog.Infof("%s: retired to %s", e.dir, aside)
	if err := e.cfg.Store.RemoveAll(aside); err != nil {
		klog.Warningf("removing %s: %v", aside, err)
	}
}
