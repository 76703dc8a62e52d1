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

// Package metrics provides Prometheus metrics for the selection engine.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/projectcontour/parentselect/internal/build"
)

// Metric name constants, exported so check-config and tests can refer to
// them without string literals.
const (
	BuildInfoGauge     = "parentselect_build_info"
	PicksTotal         = "parentselect_picks_total"
	MarkDownTotal      = "parentselect_mark_down_total"
	AvailableHostGauge = "parentselect_available_hosts"
)

// Metrics provides the Prometheus metrics for the selection engine: how
// many hosts each strategy has picked, how often a host was marked down
// and why, and how many hosts currently remain available per group.
type Metrics struct {
	buildInfoGauge     *prometheus.GaugeVec
	picksTotal         *prometheus.CounterVec
	markDownTotal      *prometheus.CounterVec
	availableHostGauge *prometheus.GaugeVec
}

// NewMetrics creates a new set of metrics and registers them with the
// supplied registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := Metrics{
		buildInfoGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: BuildInfoGauge,
				Help: "Build information. Labels include the branch and git SHA the binary was built from, and the version.",
			},
			[]string{"branch", "revision", "version"},
		),
		picksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: PicksTotal,
				Help: "Total number of hosts returned by FindNextHop, by strategy and retry flag.",
			},
			[]string{"strategy", "retry"},
		),
		markDownTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MarkDownTotal,
				Help: "Total number of times a parent was marked down, by strategy and reason.",
			},
			[]string{"strategy", "reason"},
		),
		availableHostGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: AvailableHostGauge,
				Help: "Number of hosts currently considered available, by strategy and group.",
			},
			[]string{"strategy", "group"},
		),
	}
	m.buildInfoGauge.WithLabelValues(build.Branch, build.Sha, build.Version).Set(1)
	m.register(registry)
	return &m
}

func (m *Metrics) register(registry *prometheus.Registry) {
	registry.MustRegister(
		m.buildInfoGauge,
		m.picksTotal,
		m.markDownTotal,
		m.availableHostGauge,
	)
}

// RecordPick increments the pick counter for a strategy, recording whether
// this particular FindNextHop call was the transaction's first pick or a
// retry.
func (m *Metrics) RecordPick(strategy string, isRetry bool) {
	retry := "false"
	if isRetry {
		retry = "true"
	}
	m.picksTotal.WithLabelValues(strategy, retry).Inc()
}

// RecordMarkDown increments the mark-down counter for a strategy and
// reason.
func (m *Metrics) RecordMarkDown(strategy, reason string) {
	m.markDownTotal.WithLabelValues(strategy, reason).Inc()
}

// SetAvailableHosts sets the current available-host count for a strategy's
// group.
func (m *Metrics) SetAvailableHosts(strategy string, group uint32, count int) {
	m.availableHostGauge.WithLabelValues(strategy, strconv.FormatUint(uint64(group), 10)).Set(float64(count))
}

// Handler returns a http.Handler for a metrics endpoint.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
