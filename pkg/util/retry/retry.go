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

// Package retry wraps flaky operations in bounded or unbounded retry loops.
package retry

import (
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"k8s.io/klog/v2"
)

const (
	// repeatLogInterval is the shortest gap between two log lines for the
	// same repeating error.
	repeatLogInterval = 3 * time.Second
	// stuckAfter is how long an error must repeat before the log line says so.
	stuckAfter = 30 * time.Second
	// maxRepeats is how many times one error is spelled out before it is
	// reduced to a placeholder.
	maxRepeats = 10
)

// repeatLog rate-limits logging of an error that repeats across retry
// attempts.
type repeatLog struct {
	mu      sync.Mutex
	err     string
	since   time.Time
	last    time.Time
	printed int
}

var attempts repeatLog

func (r *repeatLog) notify(err error, wait time.Duration) {
	r.mu.Lock()
	if err.Error() != r.err {
		r.err = err.Error()
		r.since = time.Now()
		r.printed = 0
	}
	if time.Since(r.last) < repeatLogInterval {
		r.last = time.Now()
		r.mu.Unlock()
		return
	}
	r.last = time.Now()
	r.printed++
	printed, since := r.printed, r.since
	r.mu.Unlock()

	if printed > maxRepeats {
		klog.Infof("retrying in %s: same error as above", wait)
		return
	}
	msg := fmt.Sprintf("retrying in %s: %v", wait, err)
	if time.Since(since) > stuckAfter {
		msg += fmt.Sprintf(" (repeating for %s)", time.Since(since).Round(time.Second))
	}
	klog.Info(msg)
}

// Expo retries callback with exponential backoff, starting at initInterval
// and giving up once maxTime has elapsed. The last error is returned.
func Expo(callback func() error, initInterval, maxTime time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initInterval
	b.MaxElapsedTime = maxTime
	return backoff.RetryNotify(callback, b, attempts.notify)
}

// Poll retries callback at a fixed interval with no deadline. Only a nil
// return or an error wrapped with backoff.Permanent ends the loop.
func Poll(callback func() error, interval time.Duration) error {
	return backoff.RetryNotify(callback, backoff.NewConstantBackOff(interval), attempts.notify)
}
