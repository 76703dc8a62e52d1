// Copyright Project Contour Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors holds the core's load-time error and warning types.
// Construction-time problems are collected rather than
// aborting the whole configuration reload: a single bad strategy, or a
// single bad field inside an otherwise-good strategy, is dropped and
// reported, and everything else proceeds.
package errors

import (
	"fmt"
	"strings"
)

// ConfigRejected means a strategy as a whole could not be built and was
// dropped; the rest of the configuration generation still proceeds.
type ConfigRejected struct {
	StrategyName string
	Reason       string
}

func (e *ConfigRejected) Error() string {
	return fmt.Sprintf("strategy %q rejected: %s", e.StrategyName, e.Reason)
}

// InvalidScheme is a warning: a host's protocol entry named a scheme the
// loader does not recognize. The entry is dropped, not the whole host.
type InvalidScheme struct {
	Hostname string
	Scheme   string
}

func (e *InvalidScheme) Error() string {
	return fmt.Sprintf("host %q: invalid scheme %q", e.Hostname, e.Scheme)
}

// InvalidResponseCode is a warning: a configured response code fell
// outside (300, 599) and was dropped from the set.
type InvalidResponseCode struct {
	StrategyName string
	Code         int
}

func (e *InvalidResponseCode) Error() string {
	return fmt.Sprintf("strategy %q: invalid response code %d", e.StrategyName, e.Code)
}

// GroupCapExceeded is a warning: the document specified more host groups
// than MaxGroupRings; the excess groups were dropped.
type GroupCapExceeded struct {
	StrategyName string
	Configured   int
	Cap          int
}

func (e *GroupCapExceeded) Error() string {
	return fmt.Sprintf("strategy %q: %d groups configured, capping at %d", e.StrategyName, e.Configured, e.Cap)
}

// Warnings collects recoverable load-time problems across an entire
// configuration document. Nothing in Warnings ever aborts a reload; it
// exists so callers can log (or surface via an admin endpoint) everything
// that was silently corrected.
type Warnings []error

// Add appends err to the collection if it is non-nil.
func (w *Warnings) Add(err error) {
	if err != nil {
		*w = append(*w, err)
	}
}

// String joins every collected warning into one human-readable message.
func (w Warnings) String() string {
	if len(w) == 0 {
		return ""
	}
	msgs := make([]string, len(w))
	for i, err := range w {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
