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

// Scheme is the protocol an upstream endpoint speaks.
type Scheme string

const (
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
	SchemeNone  Scheme = "none"
)

// Endpoint is one protocol a HostRecord can be reached on.
type Endpoint struct {
	Scheme         Scheme
	Port           int
	HealthCheckURL string
}

// HostRecord is an immutable-after-load descriptor of one upstream parent.
// A HostRecord never holds a pointer back to its HostGroup or Strategy;
// callers that need to act on a record (mark it down, check availability)
// do so through its (GroupIndex, HostIndex) pair and the HealthView, never
// by mutating the record itself.
type HostRecord struct {
	// Hostname is the DNS name or literal address of the upstream. Never empty.
	Hostname string

	// Protocols is the non-empty, ordered list of endpoints this host can
	// be reached on.
	Protocols []Endpoint

	// Weight is the relative selection weight used to size this host's
	// share of virtual nodes on the consistent-hash ring. Defaults to 1.0.
	Weight float64

	// HashString, when non-empty, overrides Hostname as the ring seed for
	// this host. Lets two records with different hostnames collapse onto
	// the same ring position (e.g. blue/green pairs), or a single hostname
	// spread across positions it would not naturally land on.
	HashString string

	// GroupIndex and HostIndex are assigned at load time and together
	// uniquely identify this record within its Strategy.
	GroupIndex uint32
	HostIndex  uint32

	// SelfDetected is not set by pkg/config's loader, and the core does
	// not read it: the loader records self-detection by marking the host
	// down in the HealthView with ReasonSelfDetect.
	SelfDetected bool
}

// hashSeed returns the string used to place this host's virtual nodes on
// the ring: HashString if set, else Hostname.
func (h HostRecord) hashSeed() string {
	if h.HashString != "" {
		return h.HashString
	}
	return h.Hostname
}

// Key returns the (group, host) pair identifying this record within a
// Strategy. It is the only handle external collaborators (the HealthView,
// ParentResult) ever need.
type Key struct {
	Group uint32
	Host  uint32
}

func (h HostRecord) Key() Key {
	return Key{Group: h.GroupIndex, Host: h.HostIndex}
}
