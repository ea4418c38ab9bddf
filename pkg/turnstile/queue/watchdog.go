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
	"github.com/pkg/errors"
)

// ErrMasterLost means the leader heartbeat went silent past the configured
// timeout. A waiting participant cannot tell a wedged leader from a clock
// pause, so it gives up rather than risk running out of turn.
var ErrMasterLost = errors.New("lost the master")

// checkMaster enforces the heartbeat deadline. Non-leaders call it on every
// poll that leaves them waiting: the leader refreshes the master mtime each
// scheduling pass, so silence past MasterTimeout means the leader is gone
// for good.
func (p *Participant) checkMaster() error {
	e := p.env
	fi, err := e.cfg.Store.Stat(e.masterPath())
	if err != nil {
		// A vanished master is the re-register path's business, not a
		// watchdog event.
		return nil
	}
	silence := e.cfg.Clock.Now().Sub(fi.ModTime())
	if silence <= e.cfg.MasterTimeout {
		return nil
	}
	pid, perr := e.masterPid()
	if perr != nil {
		pid = -1
	}
	return errors.Wrapf(ErrMasterLost, "leader pid %d silent for %s", pid, silence)
}
