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
	"io/fs"
	"sort"
	"time"

	"github.com/juju/mutex/v2"
	"github.com/pkg/errors"

	"github.com/turnstile-sh/turnstile/pkg/util/lock"
)

// Snapshot is a point-in-time, read-only view of one task's environment.
type Snapshot struct {
	Task      string       `json:"task"`
	Dir       string       `json:"dir"`
	MasterPid int          `json:"masterPid"`
	Heartbeat time.Time    `json:"heartbeat"`
	Records   []RecordInfo `json:"records"`
}

// RecordInfo describes one participant record, in queue order.
type RecordInfo struct {
	Pid     int       `json:"pid"`
	State   State     `json:"state"`
	Leader  bool      `json:"leader"`
	ModTime time.Time `json:"modTime"`
}

// Inspect reads task's environment without joining, repairing, or otherwise
// disturbing it. A missing environment is an fs.ErrNotExist.
func Inspect(task string, cfg Config) (*Snapshot, error) {
	if err := validateTask(task); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	e := newEnvironment(task, cfg)

	if _, err := cfg.Store.Stat(e.dir); err != nil {
		return nil, errors.Wrapf(err, "no environment for task %q", task)
	}

	snap := &Snapshot{Task: task, Dir: e.dir, MasterPid: -1}
	if fi, err := cfg.Store.Stat(e.masterPath()); err == nil {
		snap.Heartbeat = fi.ModTime()
		if pid, err := e.masterPid(); err == nil {
			snap.MasterPid = pid
		}
	}

	recs, err := e.listRecords()
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].ModTime.Equal(recs[j].ModTime) {
			return recs[i].ModTime.Before(recs[j].ModTime)
		}
		return recs[i].Pid < recs[j].Pid
	})
	for _, rec := range recs {
		snap.Records = append(snap.Records, RecordInfo{
			Pid:     rec.Pid,
			State:   rec.State,
			Leader:  rec.Pid == snap.MasterPid,
			ModTime: rec.ModTime,
		})
	}
	return snap, nil
}

// Purge removes task's environment outright. Without force it refuses while
// the recorded leader is alive. It reports whether anything was removed.
func Purge(task string, cfg Config, force bool) (bool, error) {
	if err := validateTask(task); err != nil {
		return false, err
	}
	cfg.setDefaults()
	e := newEnvironment(task, cfg)

	spec := lock.PathMutexSpec(e.dir)
	spec.Timeout = bootstrapLockTimeout
	releaser, err := mutex.Acquire(spec)
	if err != nil {
		return false, errors.Wrapf(err, "unable to acquire lock for %+v", spec)
	}
	defer releaser.Release()

	if _, err := cfg.Store.Stat(e.dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if !force && e.usable() {
		pid, _ := e.masterPid()
		return false, errors.Errorf("task %q has a live leader (pid %d), refusing to purge", task, pid)
	}
	e.purge()
	return true, nil
}
