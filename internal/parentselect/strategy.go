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
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

// RingMode is the policy for moving between host groups during retry.
type RingMode string

const (
	// RingModeExhaustRing fully exhausts available hosts within the
	// current group before advancing to the next group.
	RingModeExhaustRing RingMode = "exhaust_ring"

	// RingModeAlternateRing round-robins across groups: attempt N targets
	// group (N mod groups).
	RingModeAlternateRing RingMode = "alternate_ring"
)

// ErrNoParentAvailable is returned by FindNextHop when no eligible parent
// remains for the transaction. It is a runtime condition, not a bug: the
// caller decides whether to bypass to origin (GoDirect) or fail.
var ErrNoParentAvailable = errors.New("parentselect: no parent available")

// HealthCheckConfig records which health-check mechanisms a strategy
// honors. It is reported verbatim to collaborators; the core does not
// schedule checks itself.
type HealthCheckConfig struct {
	Active  bool
	Passive bool
}

// Decision is the outcome of ShouldRetry: what the proxy should do next
// after an attempt failed.
type Decision int

const (
	DecisionRetry Decision = iota
	DecisionGoDirect
	DecisionFail
)

func (d Decision) String() string {
	switch d {
	case DecisionRetry:
		return "retry"
	case DecisionGoDirect:
		return "go_direct"
	case DecisionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Outcome is what happened when the proxy attempted a parent returned by
// FindNextHop.
type Outcome struct {
	// Connected is false for a transport-level connect failure. When
	// false, StatusCode is ignored and treated as StatusConnectionFailure.
	Connected bool

	// StatusCode is the HTTP status the parent returned, when Connected.
	StatusCode int
}

// ParentResult is the host FindNextHop selected for the current attempt.
type ParentResult struct {
	Hostname string
	Port     int
	Scheme   Scheme
	IsProxy  bool
	IsRetry  bool
	Attempt  uint32
}

// Strategy is the root object for one named selection policy (C5). It is
// immutable after construction: all fields below are set once by
// NewStrategy and never mutated afterward, so concurrent reads from any
// number of goroutines need no locking. The only mutable collaborator it
// touches is HealthView, which owns its own synchronization.
type Strategy struct {
	Name             string
	Scheme           Scheme
	GoDirect         bool
	ParentIsProxy    bool
	IgnoreSelfDetect bool
	RingMode         RingMode
	MaxSimpleRetries uint32
	RespCodes        ResponseCodeSet
	HealthChecks     HealthCheckConfig

	groups     []*HostGroup
	numParents uint32

	health HealthView
	log    logrus.FieldLogger
}

// StrategyConfig is the validated, in-memory configuration NewStrategy
// builds a Strategy from, after the configuration loader has parsed and
// validated the declarative document it came from.
type StrategyConfig struct {
	Name             string
	Scheme           Scheme
	GoDirect         bool
	ParentIsProxy    bool
	IgnoreSelfDetect bool
	RingMode         RingMode
	MaxSimpleRetries uint32
	ResponseCodes    []int
	HealthChecks     HealthCheckConfig
}

// NewStrategy builds a Strategy from cfg and groups. groups must be
// non-empty and capped at MaxGroupRings; each HostGroup is itself
// non-empty by construction (NewHostGroup rejects empty host lists).
func NewStrategy(cfg StrategyConfig, groups []*HostGroup, health HealthView, log logrus.FieldLogger) (*Strategy, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("parentselect: strategy name must not be empty")
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("parentselect: strategy %q must have at least one host group", cfg.Name)
	}
	if len(groups) > MaxGroupRings {
		return nil, fmt.Errorf("parentselect: strategy %q exceeds max group rings (%d > %d)", cfg.Name, len(groups), MaxGroupRings)
	}
	if cfg.RingMode != RingModeExhaustRing && cfg.RingMode != RingModeAlternateRing {
		return nil, fmt.Errorf("parentselect: strategy %q has invalid ring_mode %q", cfg.Name, cfg.RingMode)
	}
	if health == nil {
		return nil, fmt.Errorf("parentselect: strategy %q requires a HealthView", cfg.Name)
	}

	var numParents uint32
	for _, g := range groups {
		numParents += uint32(g.Len())
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Strategy{
		Name:             cfg.Name,
		Scheme:           cfg.Scheme,
		GoDirect:         cfg.GoDirect,
		ParentIsProxy:    cfg.ParentIsProxy,
		IgnoreSelfDetect: cfg.IgnoreSelfDetect,
		RingMode:         cfg.RingMode,
		MaxSimpleRetries: cfg.MaxSimpleRetries,
		RespCodes:        NewResponseCodeSet(cfg.ResponseCodes...),
		HealthChecks:     cfg.HealthChecks,
		groups:           groups,
		numParents:       numParents,
		health:           health,
		log:              log.WithField("strategy", cfg.Name),
	}, nil
}

// NumParents is the total host count across all groups.
func (s *Strategy) NumParents() uint32 { return s.numParents }

// Groups exposes the strategy's host groups in load order, read-only.
func (s *Strategy) Groups() []*HostGroup { return s.groups }

// maxAttempts is the number of picks this strategy will make before
// returning ErrNoParentAvailable: min(max_simple_retries+1, num_parents),
// i.e. one initial attempt plus up to MaxSimpleRetries retries, never
// exceeding the parent count.
func (s *Strategy) maxAttempts() uint32 {
	budget := s.MaxSimpleRetries + 1
	if s.numParents < budget {
		return s.numParents
	}
	return budget
}

// NextHopExists reports whether any host across all groups is currently
// available per the HealthView.
func (s *Strategy) NextHopExists() bool {
	for _, g := range s.groups {
		for i := 0; i < g.Len(); i++ {
			h := g.At(i)
			if s.health.IsAvailable(h.Key()) {
				return true
			}
		}
	}
	return false
}

// IsAvailable reports whether the given host is currently available per
// this strategy's HealthView. Exposed for the debug/admin surfaces, which
// need to render status without reaching into the core's retry path.
func (s *Strategy) IsAvailable(host Key) bool {
	return s.health.IsAvailable(host)
}

// FindNextHop picks a parent for the current attempt, or returns
// ErrNoParentAvailable when the attempt/retry budget or group exhaustion
// rules say to stop.
func (s *Strategy) FindNextHop(reqCtx RequestContext, scratch *Scratchpad) (ParentResult, error) {
	scratch.ensureInit()
	if !scratch.haveFP {
		scratch.fingerprint = fingerprintOf(reqCtx)
		scratch.haveFP = true
	}

	if scratch.attempts >= s.maxAttempts() {
		return ParentResult{}, ErrNoParentAvailable
	}

	var (
		host HostRecord
		ok   bool
	)
	switch s.RingMode {
	case RingModeExhaustRing:
		host, ok = s.pickExhaustRing(scratch)
	default:
		host, ok = s.pickAlternateRing(scratch)
	}
	if !ok {
		return ParentResult{}, ErrNoParentAvailable
	}

	isRetry := scratch.attempts > 0
	scratch.visited[host.Key()] = true
	scratch.lastGroup = host.GroupIndex
	scratch.lastHost = host.HostIndex
	attempt := scratch.attempts
	scratch.attempts++

	endpoint := endpointForScheme(host, s.Scheme)

	return ParentResult{
		Hostname: host.Hostname,
		Port:     endpoint.Port,
		Scheme:   endpoint.Scheme,
		IsProxy:  s.ParentIsProxy,
		IsRetry:  isRetry,
		Attempt:  attempt,
	}, nil
}

// pickExhaustRing implements the exhaust_ring policy: fully exhaust
// available, unvisited hosts in scratch.currentGroup before advancing.
// Group index never decreases across picks within one transaction.
func (s *Strategy) pickExhaustRing(scratch *Scratchpad) (HostRecord, bool) {
	for g := scratch.currentGroup; g < uint32(len(s.groups)); g++ {
		if host, ok := s.pickWithinGroup(s.groups[g], scratch); ok {
			scratch.currentGroup = g
			return host, true
		}
		scratch.currentGroup = g + 1
	}
	return HostRecord{}, false
}

// pickAlternateRing implements the alternate_ring policy: attempt N
// targets group (N mod groups), and if that group is exhausted, scans
// forward through the remaining groups in round-robin order.
func (s *Strategy) pickAlternateRing(scratch *Scratchpad) (HostRecord, bool) {
	n := uint32(len(s.groups))
	start := scratch.attempts % n

	for step := uint32(0); step < n; step++ {
		g := (start + step) % n
		if host, ok := s.pickWithinGroup(s.groups[g], scratch); ok {
			return host, true
		}
	}
	return HostRecord{}, false
}

// pickWithinGroup returns the next available, unvisited host in g
// according to the consistent-hash ring, or ok=false if g has no such
// host. Hosts skipped over because they are currently unavailable are not
// added to scratch.visited: only hosts actually returned count as visited.
func (s *Strategy) pickWithinGroup(g *HostGroup, scratch *Scratchpad) (HostRecord, bool) {
	groupIndex := g.At(0).GroupIndex

	visitedInGroup := make(map[int]bool)
	anyVisited := false
	for k := range scratch.visited {
		if k.Group == groupIndex {
			visitedInGroup[int(k.Host)] = true
			anyVisited = true
		}
	}

	fp := scratch.fingerprint
	first := !anyVisited

	for {
		var (
			host HostRecord
			ok   bool
		)
		if first {
			host, ok = g.firstHost(fp)
			first = false
		} else {
			host, ok = g.nextHost(fp, visitedInGroup)
		}
		if !ok {
			return HostRecord{}, false
		}
		if visitedInGroup[int(host.HostIndex)] {
			// Ring wrapped back onto something we've already rejected in
			// this scan; nothing left to try.
			return HostRecord{}, false
		}
		if s.health.IsAvailable(host.Key()) {
			return host, true
		}
		visitedInGroup[int(host.HostIndex)] = true
	}
}

// Mark records the outcome of an attempt, reporting it to the HealthView.
// Marking is best-effort and never blocks selection.
func (s *Strategy) Mark(scratch *Scratchpad, outcome Outcome) {
	key := Key{Group: scratch.lastGroup, Host: scratch.lastHost}

	if !outcome.Connected {
		s.health.MarkDown(key, ReasonConnectFail)
		s.log.WithField("host", key).Debug("marking parent down after connect failure")
		return
	}

	if !s.RespCodes.Contains(outcome.StatusCode) {
		s.health.MarkUp(key)
		return
	}

	if onFailureMarkParentDown(outcome.StatusCode) {
		s.health.MarkDown(key, ReasonPassive5xx)
		s.log.WithField("host", key).WithField("status", outcome.StatusCode).Debug("marking parent down after failure response")
	}
}

// ShouldRetry decides whether the proxy should call FindNextHop again
// after the just-marked outcome, bypass to origin, or fail the
// transaction outright.
func (s *Strategy) ShouldRetry(scratch *Scratchpad, outcome Outcome) Decision {
	code := outcome.StatusCode
	if !outcome.Connected {
		code = StatusConnectionFailure
	}

	if responseIsRetryable(s.RespCodes, code, scratch.attempts, s.MaxSimpleRetries+1, s.numParents) {
		return DecisionRetry
	}
	if s.GoDirect {
		return DecisionGoDirect
	}
	return DecisionFail
}

// fingerprintOf derives the 64-bit fingerprint used to seed ring lookups
// from a RequestContext's stable key.
func fingerprintOf(reqCtx RequestContext) uint64 {
	return xxhash.Sum64(reqCtx.FingerprintKey())
}

// endpointForScheme returns h's protocol entry matching scheme. The
// strategy's scheme is a filter, not a constraint: a host may carry
// protocol entries for schemes the strategy never selects, so when none
// matches, endpointForScheme falls back to the host's first entry rather
// than failing the pick.
func endpointForScheme(h HostRecord, scheme Scheme) Endpoint {
	if len(h.Protocols) == 0 {
		return Endpoint{}
	}
	for _, ep := range h.Protocols {
		if ep.Scheme == scheme {
			return ep
		}
	}
	return h.Protocols[0]
}
