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

	"github.com/sirupsen/logrus"

	coreerrors "github.com/projectcontour/parentselect/internal/errors"
	"github.com/projectcontour/parentselect/internal/parentselect"
	"github.com/projectcontour/parentselect/pkg/validation"
)

// Build turns a parsed Document into the core Strategy tree, collecting
// every recoverable problem into warnings rather than aborting the whole
// reload: parse-time errors are collected, never abort the overall
// reload. health is wired into every built strategy and is also
// where self-detected hosts are marked down.
func Build(doc *Document, health parentselect.HealthView, log logrus.FieldLogger) ([]*parentselect.Strategy, coreerrors.Warnings) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	var warnings coreerrors.Warnings
	local, err := localAddressSet()
	if err != nil {
		log.WithError(err).Warn("could not enumerate local addresses, self-detect disabled for this generation")
		local = map[string]bool{}
	}

	var strategies []*parentselect.Strategy
	for _, sd := range doc.Strategies {
		s, strategyWarnings, err := buildStrategy(sd, health, local, log)
		warnings = append(warnings, strategyWarnings...)
		if err != nil {
			warnings.Add(&coreerrors.ConfigRejected{StrategyName: sd.Name, Reason: err.Error()})
			continue
		}
		strategies = append(strategies, s)
	}
	return strategies, warnings
}

func buildStrategy(
	sd StrategyDocument,
	health parentselect.HealthView,
	local map[string]bool,
	log logrus.FieldLogger,
) (*parentselect.Strategy, coreerrors.Warnings, error) {
	var warnings coreerrors.Warnings

	if sd.Name == "" {
		return nil, warnings, fmt.Errorf("strategy name must not be empty")
	}

	scheme, err := decodeScheme(sd.Scheme)
	if err != nil {
		return nil, warnings, fmt.Errorf("invalid scheme: %w", err)
	}

	ringMode := parentselect.RingMode(sd.Failover.RingMode)
	if ringMode != parentselect.RingModeExhaustRing && ringMode != parentselect.RingModeAlternateRing {
		return nil, warnings, fmt.Errorf("invalid ring_mode %q", sd.Failover.RingMode)
	}

	respCodes := make([]int, 0, len(sd.Failover.ResponseCodes))
	for _, c := range sd.Failover.ResponseCodes {
		if !parentselect.IsValidResponseCode(c) {
			warnings.Add(&coreerrors.InvalidResponseCode{StrategyName: sd.Name, Code: c})
			continue
		}
		respCodes = append(respCodes, c)
	}

	healthChecks, err := decodeHealthChecks(sd.Failover.HealthCheck)
	if err != nil {
		return nil, warnings, err
	}

	if len(sd.Groups) == 0 {
		return nil, warnings, fmt.Errorf("must have at least one host group")
	}

	groupDocs := sd.Groups
	if len(groupDocs) > parentselect.MaxGroupRings {
		warnings.Add(&coreerrors.GroupCapExceeded{
			StrategyName: sd.Name,
			Configured:   len(groupDocs),
			Cap:          parentselect.MaxGroupRings,
		})
		groupDocs = groupDocs[:parentselect.MaxGroupRings]
	}

	groups := make([]*parentselect.HostGroup, 0, len(groupDocs))
	for gi, hostDocs := range groupDocs {
		records := make([]parentselect.HostRecord, 0, len(hostDocs))
		for _, hd := range hostDocs {
			rec, hostWarnings, ok := buildHostRecord(hd, log)
			warnings = append(warnings, hostWarnings...)
			if !ok {
				continue
			}
			records = append(records, rec)
		}
		if len(records) == 0 {
			return nil, warnings, fmt.Errorf("host group %d has no valid hosts", gi)
		}
		group, err := parentselect.NewHostGroup(uint32(gi), records)
		if err != nil {
			return nil, warnings, err
		}
		groups = append(groups, group)
	}

	cfg := parentselect.StrategyConfig{
		Name:             sd.Name,
		Scheme:           scheme,
		GoDirect:         sd.GoDirect,
		ParentIsProxy:    sd.ParentIsProxy,
		IgnoreSelfDetect: sd.IgnoreSelfDetect,
		RingMode:         ringMode,
		MaxSimpleRetries: sd.Failover.MaxSimpleRetries,
		ResponseCodes:    respCodes,
		HealthChecks:     healthChecks,
	}

	strategy, err := parentselect.NewStrategy(cfg, groups, health, log)
	if err != nil {
		return nil, warnings, err
	}

	if !sd.IgnoreSelfDetect {
		markSelfDetected(strategy, health, local, log)
	}

	return strategy, warnings, nil
}

// buildHostRecord decodes one host entry, dropping it (rather than
// rejecting the whole strategy) when its hostname or every one of its
// protocol entries is invalid.
func buildHostRecord(hd HostDocument, log logrus.FieldLogger) (parentselect.HostRecord, coreerrors.Warnings, bool) {
	var warnings coreerrors.Warnings

	if err := validation.Hostname(hd.Host); err != nil {
		log.WithField("host", hd.Host).WithError(err).Warn("dropping host with invalid hostname")
		return parentselect.HostRecord{}, warnings, false
	}

	endpoints := make([]parentselect.Endpoint, 0, len(hd.Protocol))
	for _, p := range hd.Protocol {
		ep, err := decodeProtocol(p)
		if err != nil {
			warnings.Add(&coreerrors.InvalidScheme{Hostname: hd.Host, Scheme: p.Scheme})
			continue
		}
		endpoints = append(endpoints, ep)
	}
	if len(endpoints) == 0 {
		log.WithField("host", hd.Host).Warn("dropping host with no valid protocol entries")
		return parentselect.HostRecord{}, warnings, false
	}

	weight := hd.Weight
	if weight <= 0 {
		weight = 1.0
	}

	return parentselect.HostRecord{
		Hostname:   hd.Host,
		Protocols:  endpoints,
		Weight:     weight,
		HashString: hd.HashString,
	}, warnings, true
}

// decodeHealthChecks turns the "active"/"passive" string list into the
// core's HealthCheckConfig, rejecting unrecognized entries outright (they
// indicate a typo in the failover document, not a dynamic value).
func decodeHealthChecks(entries []string) (parentselect.HealthCheckConfig, error) {
	var cfg parentselect.HealthCheckConfig
	for _, e := range entries {
		switch e {
		case "active":
			cfg.Active = true
		case "passive":
			cfg.Passive = true
		default:
			return cfg, fmt.Errorf("invalid health_check entry %q", e)
		}
	}
	return cfg, nil
}

// markSelfDetected marks down, at load time, every host whose hostname
// resolves to this process. It runs once per strategy build, never again
// at runtime.
func markSelfDetected(strategy *parentselect.Strategy, health parentselect.HealthView, local map[string]bool, log logrus.FieldLogger) {
	for _, g := range strategy.Groups() {
		g.Iter(func(h parentselect.HostRecord) {
			if selfDetect(netLookupHost, h.Hostname, local) {
				log.WithField("host", h.Hostname).Warn("host resolves to this process, marking down")
				health.MarkDown(h.Key(), parentselect.ReasonSelfDetect)
			}
		})
	}
}
