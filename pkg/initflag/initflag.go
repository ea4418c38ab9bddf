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

// Package initflag parses an empty flag set as early as possible, before
// klog can emit "ERROR: logging before flag.Parse".
// See https://github.com/kubernetes/kubernetes/issues/17162.
package initflag

import (
	"flag"
)

func init() {
	flag.CommandLine.Parse([]string{})
}
