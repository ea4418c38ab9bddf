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
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/turnstile-sh/turnstile/pkg/turnstile/constants"
	"github.com/turnstile-sh/turnstile/pkg/turnstile/process"
)

// record is one participant's registration as read from disk. A waiting
// record keeps the modification time of its registration until promotion,
// which is what the scheduler orders the queue by.
type record struct {
	Pid     int
	State   State
	ModTime time.Time
}

// recordPath returns the record file for pid.
func (e *environment) recordPath(pid int) string {
	return filepath.Join(e.dir, strconv.Itoa(pid))
}

// readRecord loads pid's record.
func (e *environment) readRecord(pid int) (*record, error) {
	path := e.recordPath(pid)
	data, err := e.cfg.Store.ReadFile(path)
	if err != nil {
		return nil, err
	}
	st, err := parseState(data)
	if err != nil {
		return nil, errors.Wrapf(err, "record %s", path)
	}
	fi, err := e.cfg.Store.Stat(path)
	if err != nil {
		return nil, err
	}
	return &record{Pid: pid, State: st, ModTime: fi.ModTime()}, nil
}

// setState overwrites pid's record with the requested state. Unforced
// writes must follow the waiting -> ready_to_run -> active lifecycle; force
// is reserved for (re-)registration at join time.
func (e *environment) setState(pid int, to State, force bool) error {
	if !force {
		cur, err := e.readRecord(pid)
		if err != nil {
			return errors.Wrapf(err, "reading record %d", pid)
		}
		if transitions[cur.State] != to {
			return &InvalidTransitionError{From: cur.State, To: to}
		}
	}
	return e.cfg.Store.WriteFile(e.recordPath(pid), []byte(to))
}

// removeRecord deletes pid's record.
func (e *environment) removeRecord(pid int) error {
	return e.cfg.Store.Remove(e.recordPath(pid))
}

// listRecords loads every record in the environment. Entries that vanish
// mid-scan are skipped silently; entries that are not records are logged and
// skipped.
func (e *environment) listRecords() ([]*record, error) {
	names, err := e.cfg.Store.List(e.dir)
	if err != nil {
		return nil, err
	}
	recs := []*record{}
	for _, name := range names {
		if name == constants.MasterFileName {
			continue
		}
		pid, err := process.ParsePid([]byte(name))
		if err != nil {
			klog.Warningf("%s: ignoring stray entry %q", e.dir, name)
			continue
		}
		rec, err := e.readRecord(pid)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			klog.Warningf("%s: ignoring unreadable record %q: %v", e.dir, name, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
