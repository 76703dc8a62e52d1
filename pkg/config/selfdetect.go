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

package config

import "net"

// localAddressSet returns every unicast address bound to a local
// interface, used to detect a parent host that names this very process.
// Resolved once per Build call, not per host.
func localAddressSet() (map[string]bool, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		set[ipNet.IP.String()] = true
	}
	return set, nil
}

// resolver abstracts net.LookupHost so tests can substitute a fake
// without touching the real resolver.
type resolver func(hostname string) ([]string, error)

// netLookupHost is the production resolver; tests substitute their own.
func netLookupHost(hostname string) ([]string, error) {
	return net.LookupHost(hostname)
}

// selfDetect reports whether hostname resolves to one of the addresses in
// local. A lookup failure is treated as "not self": an unreachable host is
// a health-check concern, not a self-detect one.
func selfDetect(lookup resolver, hostname string, local map[string]bool) bool {
	ips, err := lookup(hostname)
	if err != nil {
		return false
	}
	for _, ip := range ips {
		if local[ip] {
			return true
		}
	}
	return false
}
