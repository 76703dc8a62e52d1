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

import "fmt"

// MaxGroupRings bounds how many host groups a single Strategy may hold.
// Groups beyond this cap are dropped at load time with a GroupCapExceeded
// warning.
const MaxGroupRings = 32

// HostGroup is an ordered, non-empty sequence of HostRecords occupying one
// tier of a Strategy's failover hierarchy. It owns its records; nothing
// else in the package holds a competing reference to them.
type HostGroup struct {
	hosts []HostRecord
	ring  *hashRing
}

// NewHostGroup builds a HostGroup from hosts, assigning HostIndex values in
// load order and materializing the consistent-hash ring over them. hosts
// must be non-empty; group is the GroupIndex to stamp onto every record.
func NewHostGroup(group uint32, hosts []HostRecord) (*HostGroup, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("host group %d: must contain at least one host", group)
	}

	assigned := make([]HostRecord, len(hosts))
	for i, h := range hosts {
		h.GroupIndex = group
		h.HostIndex = uint32(i)
		assigned[i] = h
	}

	return &HostGroup{
		hosts: assigned,
		ring:  newHashRing(assigned),
	}, nil
}

// Len returns the number of hosts in the group.
func (g *HostGroup) Len() int { return len(g.hosts) }

// At returns the host at position i, in load order.
func (g *HostGroup) At(i int) HostRecord { return g.hosts[i] }

// Iter calls fn for every host in the group, in stable load order.
func (g *HostGroup) Iter(fn func(HostRecord)) {
	for _, h := range g.hosts {
		fn(h)
	}
}

// firstHost returns the host the ring places at or after fingerprint.
func (g *HostGroup) firstHost(fingerprint uint64) (HostRecord, bool) {
	i, ok := g.ring.first(fingerprint)
	if !ok {
		return HostRecord{}, false
	}
	return g.hosts[i], true
}

// nextHost returns the next host in ring order after fingerprint whose
// HostIndex is not present in visited.
func (g *HostGroup) nextHost(fingerprint uint64, visited map[int]bool) (HostRecord, bool) {
	i, ok := g.ring.next(fingerprint, visited)
	if !ok {
		return HostRecord{}, false
	}
	return g.hosts[i], true
}
