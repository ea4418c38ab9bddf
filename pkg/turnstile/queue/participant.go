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

// Package queue coordinates independently launched processes that share
// nothing but a filesystem path, so that commands with the same task name
// run one at a time, approximately in arrival order.
//
// Participants register a record file in a shared per-task directory. The
// process that bootstraps the directory becomes leader: it owns the master
// pointer, refreshes its mtime as a heartbeat, and promotes one waiter at a
// time. Everyone else polls its own record and watches the heartbeat. A
// directory whose recorded leader pid is dead is stale, and the next joiner
// purges and rebuilds it.
package queue

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/juju/clock"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/turnstile-sh/turnstile/pkg/turnstile/constants"
	"github.com/turnstile-sh/turnstile/pkg/turnstile/process"
	"github.com/turnstile-sh/turnstile/pkg/util/retry"
)

// taskNameRE constrains task names to strings that map to safe, predictable
// directory names on every platform.
var taskNameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func validateTask(task string) error {
	if !taskNameRE.MatchString(task) {
		return errors.Errorf("invalid task name %q: must match %s", task, taskNameRE)
	}
	return nil
}

// Config carries the tunables and seams of a participant. The zero value is
// usable: Join fills in production defaults for anything unset.
type Config struct {
	// BaseDir is where task environments live. Defaults to os.TempDir().
	BaseDir string

	// PollInterval is the delay between turn checks.
	PollInterval time.Duration

	// SettleDelay is how long a fresh leader pauses before its first
	// scheduling decision, so concurrent launches can register first.
	SettleDelay time.Duration

	// MasterTimeout is how much heartbeat silence non-leaders tolerate
	// before giving the leader up for dead.
	MasterTimeout time.Duration

	// Pid identifies this participant. Defaults to os.Getpid().
	Pid int

	// Store is the filesystem seam. Defaults to the host filesystem.
	Store Store

	// Clock is the time source for settling and heartbeat age. Defaults
	// to the wall clock.
	Clock clock.Clock

	// ProbeAlive reports whether pid is a live process. Defaults to
	// process.Alive.
	ProbeAlive func(pid int) (bool, error)
}

// setDefaults fills in production defaults for unset fields.
func (c *Config) setDefaults() {
	if c.BaseDir == "" {
		c.BaseDir = os.TempDir()
	}
	if c.PollInterval == 0 {
		c.PollInterval = constants.DefaultPollInterval
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = constants.DefaultSettleDelay
	}
	if c.MasterTimeout == 0 {
		c.MasterTimeout = constants.DefaultMasterTimeout
	}
	if c.Pid == 0 {
		c.Pid = os.Getpid()
	}
	if c.Store == nil {
		c.Store = DefaultStore()
	}
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	if c.ProbeAlive == nil {
		c.ProbeAlive = process.Alive
	}
}

// Participant is one process's membership in a task queue.
type Participant struct {
	env *environment
}

// Join registers the calling process as a waiting participant of task,
// bootstrapping or repairing the shared environment as needed. The returned
// participant must be cleaned up on every exit path.
func Join(task string, cfg Config) (*Participant, error) {
	if err := validateTask(task); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	p := &Participant{env: newEnvironment(task, cfg)}
	if err := p.register(); err != nil {
		return nil, errors.Wrapf(err, "joining %q", task)
	}
	klog.Infof("%s: pid %d joined", p.env.dir, cfg.Pid)
	return p, nil
}

// register ensures the environment and force-writes our waiting record, the
// one forced write a participant performs. The sequence retries as a whole:
// the environment can be purged out from under us between the ensure and
// the record write.
func (p *Participant) register() error {
	return retry.Expo(func() error {
		if err := p.env.ensure(); err != nil {
			return err
		}
		return p.env.setState(p.env.cfg.Pid, StateWaiting, true)
	}, 200*time.Millisecond, 10*time.Second)
}

// reregister repairs an environment torn down under us. Whoever removed it
// considered the lineage stale, so rejoin the replacement as a fresh waiter.
func (p *Participant) reregister(why string) error {
	klog.Warningf("%s: %s, re-registering pid %d", p.env.dir, why, p.env.cfg.Pid)
	return p.register()
}

// ReadyToRun reports whether this participant has been selected to run. The
// leader performs one scheduling pass per call; everyone re-derives the
// role from the master pointer every time, so leadership changes take
// effect on the next poll. A torn-down environment is not an error: the
// participant re-registers and reports not ready.
func (p *Participant) ReadyToRun() (bool, error) {
	leader, err := p.env.isLeader()
	if err != nil {
		return false, p.reregister(fmt.Sprintf("unusable master (%v)", err))
	}

	if leader {
		if err := p.tick(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, p.reregister("environment torn down mid-schedule")
			}
			return false, errors.Wrap(err, "scheduling")
		}
	}

	rec, err := p.env.readRecord(p.env.cfg.Pid)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, p.reregister("own record missing")
		}
		return false, errors.Wrap(err, "reading own record")
	}
	if rec.State == StateReadyToRun {
		return true, nil
	}

	if !leader {
		if err := p.checkMaster(); err != nil {
			return false, err
		}
	}
	return false, nil
}

// errNotOurTurn keeps the poll loop going between scheduling passes.
var errNotOurTurn = errors.New("not our turn yet")

// Await blocks until the scheduler selects this participant, polling at the
// configured interval. Waiting is unbounded while the leader stays live;
// only a lost leader ends it early, with ErrMasterLost.
func (p *Participant) Await() error {
	return retry.Poll(func() error {
		ready, err := p.ReadyToRun()
		if err != nil {
			if errors.Is(err, ErrMasterLost) {
				return backoff.Permanent(err)
			}
			return err
		}
		if !ready {
			return errNotOurTurn
		}
		return nil
	}, p.env.cfg.PollInterval)
}

// MarkActive records that this participant is now running its command. Only
// legal from ready_to_run.
func (p *Participant) MarkActive() error {
	if err := p.env.setState(p.env.cfg.Pid, StateActive, false); err != nil {
		return err
	}
	klog.Infof("%s: pid %d active", p.env.dir, p.env.cfg.Pid)
	return nil
}

// Cleanup withdraws this participant: its own record is removed, and a
// leader additionally retires the whole environment. Safe to call more than
// once and expected on every exit path.
func (p *Participant) Cleanup() error {
	leader, err := p.env.isLeader()
	if err != nil {
		// No usable master means nothing to lead. Our record may
		// still exist, so keep going.
		leader = false
	}
	if err := p.env.removeRecord(p.env.cfg.Pid); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "removing record")
	}
	if leader {
		klog.Infof("%s: leader pid %d retiring environment", p.env.dir, p.env.cfg.Pid)
		p.env.purge()
	}
	return nil
}

// IsLeader reports whether this participant currently holds the leader
// role.
func (p *Participant) IsLeader() bool {
	leader, err := p.env.isLeader()
	if err != nil {
		return false
	}
	return leader
}
