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

package parentselect

// MarkReason explains why a host's availability changed.
type MarkReason string

const (
	ReasonActiveProbe MarkReason = "ACTIVE_PROBE"
	ReasonPassive5xx  MarkReason = "PASSIVE_5XX"
	ReasonConnectFail MarkReason = "CONNECT_FAIL"
	ReasonSelfDetect  MarkReason = "SELF_DETECT"
	ReasonManual      MarkReason = "MANUAL"
)

// HealthView is a read-only-from-the-core projection of an externally
// owned, process-wide host status table. The core never
// mutates host status directly and never blocks waiting for a write to
// become visible: mark_down/mark_up are best-effort and the store may
// throttle or batch them. A HealthView implementation is expected to
// synchronize itself (a reader-writer lock or an atomic bitmap); the core
// places no ordering requirement on it beyond eventual visibility.
type HealthView interface {
	// IsAvailable reports whether host is currently usable. Implementations
	// return true unless the host was explicitly marked down, or is in a
	// self-detect state the strategy has been configured to honor.
	IsAvailable(host Key) bool

	// MarkDown records host as unusable for the given reason. Idempotent.
	MarkDown(host Key, reason MarkReason)

	// MarkUp records host as usable again. Idempotent.
	MarkUp(host Key)
}
