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

// Package parentselect is the next-hop selection engine for a forward/reverse
// proxy: given a request fingerprint and a named strategy, it picks which
// upstream parent to try, tracks per-transaction retry state, and decides
// whether a failed attempt should be retried against a different parent or
// surfaced to the caller.
//
// The package does not open sockets, parse HTTP, or schedule timers. It reads
// host availability through the HealthView interface and reports outcomes
// back through the same interface; all other state is either immutable
// (Strategy, HostGroup, HostRecord) after construction or owned exclusively
// by the calling transaction (Scratchpad).
package parentselect
