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

import "sort"

// StatusConnectionFailure is the sentinel outcome code for a transport-level
// connect failure (no HTTP response was ever received). It is numerically
// disjoint from the HTTP 3xx-5xx range a ResponseCodeSet otherwise holds,
// and is always a member of every ResponseCodeSet.
const StatusConnectionFailure = -1

// ResponseCodeSet is a sorted, deduplicated set of HTTP status codes (plus
// StatusConnectionFailure) classified as "failure for retry purposes".
// Membership lookup does not need to be O(1): the set is small and rebuilt
// rarely, so a sorted slice plus binary search is enough.
type ResponseCodeSet struct {
	codes []int
}

// NewResponseCodeSet builds a ResponseCodeSet from the given codes, dropping
// duplicates and always including StatusConnectionFailure.
func NewResponseCodeSet(codes ...int) ResponseCodeSet {
	set := make(map[int]struct{}, len(codes)+1)
	set[StatusConnectionFailure] = struct{}{}
	for _, c := range codes {
		set[c] = struct{}{}
	}

	out := make([]int, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Ints(out)

	return ResponseCodeSet{codes: out}
}

// Contains reports whether code is a member of the set.
func (r ResponseCodeSet) Contains(code int) bool {
	i := sort.SearchInts(r.codes, code)
	return i < len(r.codes) && r.codes[i] == code
}

// Codes returns the sorted codes, including StatusConnectionFailure.
func (r ResponseCodeSet) Codes() []int {
	out := make([]int, len(r.codes))
	copy(out, r.codes)
	return out
}

// IsValidResponseCode reports whether code is a legal member of a
// ResponseCodeSet as configured: each must fall in (300, 599). The
// sentinel is not itself a configurable value and is excluded from this
// check; callers validating configuration input use this to decide
// whether to drop an entry with an InvalidResponseCode warning.
func IsValidResponseCode(code int) bool {
	return code > 300 && code < 599
}
