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

// Package config loads the declarative strategy document from YAML and
// builds the in-memory parentselect.Strategy tree from it.
// Unlike the core package, it touches the filesystem, the network (for
// self-detect), and reflection-based decoding.
package config

// Document is the root of a parsed, not-yet-built configuration file:
// zero or more named strategies.
type Document struct {
	Strategies []StrategyDocument `yaml:"strategies"`
}

// StrategyDocument mirrors the declarative shape for one named strategy,
// before validation and before it is turned into a parentselect.Strategy.
type StrategyDocument struct {
	Name             string           `yaml:"name"`
	Scheme           string           `yaml:"scheme"`
	GoDirect         bool             `yaml:"go_direct"`
	ParentIsProxy    bool             `yaml:"parent_is_proxy"`
	IgnoreSelfDetect bool             `yaml:"ignore_self_detect"`
	Failover         FailoverDocument `yaml:"failover"`
	Groups           [][]HostDocument `yaml:"groups"`
}

// FailoverDocument is the "failover:" sub-document.
type FailoverDocument struct {
	RingMode         string   `yaml:"ring_mode"`
	MaxSimpleRetries uint32   `yaml:"max_simple_retries"`
	ResponseCodes    []int    `yaml:"response_codes"`
	HealthCheck      []string `yaml:"health_check"`
}

// HostDocument is one host entry within a group.
type HostDocument struct {
	Host       string             `yaml:"host"`
	Protocol   []ProtocolDocument `yaml:"protocol"`
	Weight     float64            `yaml:"weight"`
	HashString string             `yaml:"hash_string"`
}

// ProtocolDocument is one entry in a host's "protocol:" list.
type ProtocolDocument struct {
	Scheme         string `yaml:"scheme"`
	Port           int    `yaml:"port"`
	HealthCheckURL string `yaml:"health_check_url,omitempty"`
}
