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

package validation

import (
	"fmt"
	"net"
	"regexp"
)

// A parent hostname names an upstream to connect to: it is legitimately
// either a DNS name or a literal IP address, so Hostname accepts both.
// What it rejects is a value that is neither.
var dns1123Label = regexp.MustCompile(`(?i)^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

const maxHostnameLength = 253
const maxLabelLength = 63

// Hostname validates s as either a literal IP address or a DNS name
// conforming to RFC 1123 subdomain rules.
func Hostname(s string) error {
	if s == "" {
		return fmt.Errorf("hostname must not be empty")
	}
	if net.ParseIP(s) != nil {
		return nil
	}
	if len(s) > maxHostnameLength {
		return fmt.Errorf("hostname %q must be no more than %d characters", s, maxHostnameLength)
	}
	labels := splitLabels(s)
	for _, label := range labels {
		if len(label) == 0 || len(label) > maxLabelLength || !dns1123Label.MatchString(label) {
			return fmt.Errorf("hostname %q must be a DNS name or IP address", s)
		}
	}
	return nil
}

func splitLabels(s string) []string {
	var labels []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			labels = append(labels, s[start:i])
			start = i + 1
		}
	}
	labels = append(labels, s[start:])
	return labels
}
