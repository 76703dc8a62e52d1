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

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// vnodesPerWeight is the constant K: the number of virtual nodes a host
// with weight 1.0 contributes to the ring.
const vnodesPerWeight = 1024

// vnode is one virtual node on a hashRing.
type vnode struct {
	hash       uint64
	hostIndex  int
	vnodeIndex int
}

// hashRing is the weighted consistent-hash selector (C6) over one
// HostGroup. It is built once, at load time, and never mutated afterward;
// concurrent reads are always safe.
type hashRing struct {
	entries []vnode
}

// newHashRing materializes a weighted hash ring of virtual nodes keyed on
// hashSeed(), using a 64-bit xxhash of the seed and virtual-node index. The
// number of virtual nodes per host is proportional to weight * K.
func newHashRing(hosts []HostRecord) *hashRing {
	var entries []vnode

	for hostIndex, h := range hosts {
		weight := h.Weight
		if weight <= 0 {
			weight = 1.0
		}
		n := int(weight * vnodesPerWeight)
		if n < 1 {
			n = 1
		}

		seed := h.hashSeed()
		for v := 0; v < n; v++ {
			entries = append(entries, vnode{
				hash:       hashVNode(seed, v),
				hostIndex:  hostIndex,
				vnodeIndex: v,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].hash != entries[j].hash {
			return entries[i].hash < entries[j].hash
		}
		if entries[i].hostIndex != entries[j].hostIndex {
			return entries[i].hostIndex < entries[j].hostIndex
		}
		return entries[i].vnodeIndex < entries[j].vnodeIndex
	})

	return &hashRing{entries: entries}
}

// hashVNode hashes a (seed, virtual node index) pair to a 64-bit value.
func hashVNode(seed string, idx int) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(idx))

	d := xxhash.New()
	_, _ = d.WriteString(seed)
	_, _ = d.Write(buf[:4])
	return d.Sum64()
}

// first returns the host whose virtual node is the smallest hash >=
// fingerprint, wrapping to the start of the ring if none is.
func (r *hashRing) first(fingerprint uint64) (hostIndex int, ok bool) {
	if len(r.entries) == 0 {
		return 0, false
	}
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].hash >= fingerprint
	})
	if i == len(r.entries) {
		i = 0
	}
	return r.entries[i].hostIndex, true
}

// next returns the next host in ring order after fingerprint, walking
// forward (with wraparound) and skipping any host index present in skip.
// It returns ok=false once it has walked the full ring without finding an
// unskipped host.
func (r *hashRing) next(fingerprint uint64, skip map[int]bool) (hostIndex int, ok bool) {
	n := len(r.entries)
	if n == 0 {
		return 0, false
	}

	start := sort.Search(n, func(i int) bool {
		return r.entries[i].hash >= fingerprint
	})

	for step := 0; step < n; step++ {
		i := (start + step) % n
		h := r.entries[i].hostIndex
		if !skip[h] {
			return h, true
		}
	}
	return 0, false
}
