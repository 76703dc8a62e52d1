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

import (
	"fmt"

	"github.com/projectcontour/parentselect/internal/parentselect"
)

// decodeScheme is the single tagged-variant decode point for a protocol
// entry's scheme discriminator: one dispatch function rather than
// per-scheme decoder types, since there is no runtime polymorphism left
// once load completes.
func decodeScheme(s string) (parentselect.Scheme, error) {
	switch s {
	case "http":
		return parentselect.SchemeHTTP, nil
	case "https":
		return parentselect.SchemeHTTPS, nil
	case "none":
		return parentselect.SchemeNone, nil
	default:
		return "", fmt.Errorf("unrecognized scheme %q", s)
	}
}

// decodeProtocol converts one parsed protocol entry into a core Endpoint.
func decodeProtocol(p ProtocolDocument) (parentselect.Endpoint, error) {
	scheme, err := decodeScheme(p.Scheme)
	if err != nil {
		return parentselect.Endpoint{}, err
	}
	if p.Port < 1 || p.Port > 65535 {
		return parentselect.Endpoint{}, fmt.Errorf("port %d out of range", p.Port)
	}
	return parentselect.Endpoint{
		Scheme:         scheme,
		Port:           p.Port,
		HealthCheckURL: p.HealthCheckURL,
	}, nil
}
