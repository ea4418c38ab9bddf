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

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// tick is one leader scheduling pass: refresh the heartbeat, then make sure
// at most one participant is selected or running. It relies on nothing but
// the directory contents, so a leader that pauses between passes resumes
// where the records say things stand.
func (p *Participant) tick() error {
	e := p.env

	// Content unchanged; the rewrite refreshes the mtime non-leaders
	// watch.
	if err := e.writeMaster(); err != nil {
		return errors.Wrap(err, "heartbeat")
	}

	recs, err := e.listRecords()
	if err != nil {
		return errors.Wrap(err, "listing records")
	}

	var self *record
	waiting := []*record{}
	for _, rec := range recs {
		if rec.State == StateReadyToRun || rec.State == StateActive {
			// Single flight: someone is already selected or
			// running, nothing to do this pass.
			return nil
		}
		if rec.Pid == e.cfg.Pid {
			self = rec
			continue
		}
		waiting = append(waiting, rec)
	}

	if len(waiting) > 0 {
		// Oldest registration first; pids break ties.
		sort.Slice(waiting, func(i, j int) bool {
			if !waiting[i].ModTime.Equal(waiting[j].ModTime) {
				return waiting[i].ModTime.Before(waiting[j].ModTime)
			}
			return waiting[i].Pid < waiting[j].Pid
		})
		next := waiting[0]
		if err := e.setState(next.Pid, StateReadyToRun, false); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				klog.Warningf("%s: pid %d vanished before promotion", e.dir, next.Pid)
				return nil
			}
			return errors.Wrapf(err, "promoting pid %d", next.Pid)
		}
		klog.Infof("%s: promoted pid %d", e.dir, next.Pid)
		return nil
	}

	// Queue drained: the leader takes the last turn itself.
	if self == nil || self.State != StateWaiting {
		return nil
	}
	if err := e.setState(e.cfg.Pid, StateReadyToRun, false); err != nil {
		return errors.Wrap(err, "promoting self")
	}
	klog.Infof("%s: queue drained, leader pid %d takes its turn", e.dir, e.cfg.Pid)
	return nil
}
