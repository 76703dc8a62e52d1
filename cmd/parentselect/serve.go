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

package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/projectcontour/parentselect/internal/debug"
	"github.com/projectcontour/parentselect/internal/health"
	"github.com/projectcontour/parentselect/internal/healthz"
	"github.com/projectcontour/parentselect/internal/httpsvc"
	"github.com/projectcontour/parentselect/internal/metrics"
	"github.com/projectcontour/parentselect/internal/parentselect"
	"github.com/projectcontour/parentselect/internal/timeout"
	"github.com/projectcontour/parentselect/internal/workgroup"
	"github.com/projectcontour/parentselect/pkg/config"
)

// serveContext holds the flags for the serve subcommand: where the
// strategy document lives, and the addresses of every surface the
// harness exposes while it picks parents for incoming demo traffic.
type serveContext struct {
	ConfigFile string

	ProxyAddress string
	ProxyPort    int

	MetricsAddress string
	MetricsPort    int

	HealthAddress string
	HealthPort    int

	DebugAddress string
	DebugPort    int

	ActiveHealthCheckInterval string
	ActiveHealthCheckTimeout  string
}

func newServeContext() *serveContext {
	return &serveContext{
		ProxyAddress:              "0.0.0.0",
		ProxyPort:                 8080,
		MetricsAddress:            "0.0.0.0",
		MetricsPort:               8000,
		HealthAddress:             "0.0.0.0",
		HealthPort:                8001,
		DebugAddress:              "127.0.0.1",
		DebugPort:                 6060,
		ActiveHealthCheckInterval: "10s",
		ActiveHealthCheckTimeout:  "2s",
	}
}

func registerServe(app *kingpin.Application) (*kingpin.CmdClause, *serveContext) {
	ctx := newServeContext()

	serve := app.Command("serve", "Serve next-hop selection decisions for incoming demo traffic.")

	serve.Flag("config", "Path to the strategy document.").Required().StringVar(&ctx.ConfigFile)

	serve.Flag("proxy-address", "Address the demo proxy listener binds.").StringVar(&ctx.ProxyAddress)
	serve.Flag("proxy-port", "Port the demo proxy listener binds.").IntVar(&ctx.ProxyPort)

	serve.Flag("metrics-address", "Address the metrics endpoint binds.").StringVar(&ctx.MetricsAddress)
	serve.Flag("metrics-port", "Port the metrics endpoint binds.").IntVar(&ctx.MetricsPort)

	serve.Flag("health-address", "Address the health-status endpoint binds.").StringVar(&ctx.HealthAddress)
	serve.Flag("health-port", "Port the health-status endpoint binds.").IntVar(&ctx.HealthPort)

	serve.Flag("debug-address", "Address the pprof/topology endpoint binds.").StringVar(&ctx.DebugAddress)
	serve.Flag("debug-port", "Port the pprof/topology endpoint binds.").IntVar(&ctx.DebugPort)

	serve.Flag("active-health-check-interval", "How often to run active health checks, or \"infinity\" to disable.").StringVar(&ctx.ActiveHealthCheckInterval)
	serve.Flag("active-health-check-timeout", "Per-probe timeout for active health checks.").StringVar(&ctx.ActiveHealthCheckTimeout)

	return serve, ctx
}

func doServe(log *logrus.Logger, ctx *serveContext) error {
	doc, err := config.ParseFile(ctx.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	store := health.NewStore(log.WithField("context", "health"))
	strategies, warnings := config.Build(doc, store, log)
	for _, w := range warnings {
		log.WithError(w).Warn("configuration warning")
	}
	if len(strategies) == 0 {
		return fmt.Errorf("no usable strategies in %s", ctx.ConfigFile)
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	for _, s := range strategies {
		publishAvailability(m, s)
	}

	var wg workgroup.Group

	metricsService := httpsvc.Service{
		Addr:        ctx.MetricsAddress,
		Port:        ctx.MetricsPort,
		FieldLogger: log.WithField("context", "metrics"),
	}
	metricsService.ServeMux.Handle("/metrics", metrics.Handler(registry))
	wg.Add(metricsService.Start)

	healthService := httpsvc.Service{
		Addr:        ctx.HealthAddress,
		Port:        ctx.HealthPort,
		FieldLogger: log.WithField("context", "health"),
	}
	healthService.ServeMux.HandleFunc("/healthz", healthz.Healthz)
	healthService.ServeMux.HandleFunc("/readyz", healthz.Readyz(func() bool { return len(strategies) > 0 }))
	healthService.ServeMux.Handle("/status", store.Handler())
	wg.Add(healthService.Start)

	debugService := debug.Service{
		Service: httpsvc.Service{
			Addr:        ctx.DebugAddress,
			Port:        ctx.DebugPort,
			FieldLogger: log.WithField("context", "debug"),
		},
		Strategies: strategyLister(strategies),
	}
	wg.Add(debugService.Start)

	proxy := &proxyHandler{
		strategies: indexStrategies(strategies),
		metrics:    m,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log.WithField("context", "proxy"),
	}
	proxyService := httpsvc.Service{
		Addr:        ctx.ProxyAddress,
		Port:        ctx.ProxyPort,
		FieldLogger: log.WithField("context", "proxy"),
	}
	proxyService.ServeMux.Handle("/", proxy)
	wg.Add(proxyService.Start)

	interval := timeout.Parse(ctx.ActiveHealthCheckInterval)
	probeTimeout := timeout.Parse(ctx.ActiveHealthCheckTimeout)
	wg.Add(func(stop <-chan struct{}) error {
		runActiveHealthChecks(stop, strategies, store, interval, probeTimeout, log.WithField("context", "activehealth"))
		return nil
	})

	log.Info("starting parentselect")
	return wg.Run()
}

// strategyLister adapts a plain strategy slice to debug.StrategyLister.
type strategyLister []*parentselect.Strategy

func (s strategyLister) Strategies() []*parentselect.Strategy { return s }

func indexStrategies(strategies []*parentselect.Strategy) map[string]*parentselect.Strategy {
	out := make(map[string]*parentselect.Strategy, len(strategies))
	for _, s := range strategies {
		out[s.Name] = s
	}
	return out
}

func publishAvailability(m *metrics.Metrics, s *parentselect.Strategy) {
	for gi, g := range s.Groups() {
		available := 0
		for i := 0; i < g.Len(); i++ {
			if s.IsAvailable(g.At(i).Key()) {
				available++
			}
		}
		m.SetAvailableHosts(s.Name, uint32(gi), available)
	}
}

// proxyHandler is an illustrative harness exercising the core over real
// HTTP traffic: it is not part of the selection engine's contract, which
// never opens a socket or parses HTTP itself.
// The strategy used for a request is named by the X-Strategy header,
// falling back to the sole configured strategy when there is only one.
type proxyHandler struct {
	strategies map[string]*parentselect.Strategy
	metrics    *metrics.Metrics
	client     *http.Client
	log        logrus.FieldLogger
}

func (h *proxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	strategy := h.resolveStrategy(r)
	if strategy == nil {
		http.Error(w, "unknown strategy", http.StatusNotFound)
		return
	}

	reqCtx := newDemoRequest([]byte(r.URL.Path))
	scratch := &parentselect.Scratchpad{}

	for {
		hop, err := strategy.FindNextHop(reqCtx, scratch)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		h.metrics.RecordPick(strategy.Name, hop.IsRetry)

		outcome, resp, attemptErr := h.attempt(r, hop)
		strategy.Mark(scratch, outcome)
		if !outcome.Connected {
			h.metrics.RecordMarkDown(strategy.Name, string(parentselect.ReasonConnectFail))
		} else if outcome.StatusCode >= 500 && outcome.StatusCode <= 599 && strategy.RespCodes.Contains(outcome.StatusCode) {
			h.metrics.RecordMarkDown(strategy.Name, string(parentselect.ReasonPassive5xx))
		}

		if attemptErr == nil && outcome.Connected && outcome.StatusCode < 500 {
			copyResponse(w, resp)
			return
		}

		switch strategy.ShouldRetry(scratch, outcome) {
		case parentselect.DecisionRetry:
			continue
		case parentselect.DecisionGoDirect:
			http.Error(w, "no parent available, go_direct has no origin configured in this harness", http.StatusBadGateway)
			return
		default:
			http.Error(w, "no parent available", http.StatusBadGateway)
			return
		}
	}
}

func (h *proxyHandler) resolveStrategy(r *http.Request) *parentselect.Strategy {
	if name := r.Header.Get("X-Strategy"); name != "" {
		return h.strategies[name]
	}
	if len(h.strategies) == 1 {
		for _, s := range h.strategies {
			return s
		}
	}
	return nil
}

func (h *proxyHandler) attempt(r *http.Request, hop parentselect.ParentResult) (parentselect.Outcome, *http.Response, error) {
	scheme := "http"
	if hop.Scheme == parentselect.SchemeHTTPS {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s:%d%s", scheme, hop.Hostname, hop.Port, r.URL.Path)

	req, err := http.NewRequestWithContext(r.Context(), r.Method, url, r.Body)
	if err != nil {
		return parentselect.Outcome{Connected: false}, nil, err
	}
	req.Header = r.Header.Clone()

	resp, err := h.client.Do(req)
	if err != nil {
		h.log.WithField("host", hop.Hostname).WithError(err).Debug("connect failed")
		return parentselect.Outcome{Connected: false}, nil, err
	}
	return parentselect.Outcome{Connected: true, StatusCode: resp.StatusCode}, resp, nil
}

func copyResponse(w http.ResponseWriter, resp *http.Response) {
	if resp == nil {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// demoRequest is the harness's parentselect.RequestContext implementation:
// a per-request UUID supplies TransactionID, and the request path is the
// fingerprint seed.
type demoRequest struct {
	id  uuid.UUID
	key []byte
}

func newDemoRequest(key []byte) demoRequest {
	return demoRequest{id: uuid.New(), key: key}
}

func (r demoRequest) FingerprintKey() []byte { return r.key }

func (r demoRequest) TransactionID() uint64 {
	return binary.BigEndian.Uint64(r.id[:8])
}

// runActiveHealthChecks periodically probes every host of each strategy
// that enables active health checking, until stop is closed. A probe uses
// only the host's first endpoint: a GET to that endpoint's HealthCheckURL
// if it has one, else a bare GET to the endpoint itself.
func runActiveHealthChecks(
	stop <-chan struct{},
	strategies []*parentselect.Strategy,
	store *health.Store,
	interval, probeTimeout timeout.Setting,
	log logrus.FieldLogger,
) {
	if interval.IsDisabled() {
		log.Info("active health checks disabled")
		return
	}

	d := 10 * time.Second
	if !interval.UseDefault() {
		d = interval.Duration()
	}
	client := &http.Client{}
	switch {
	case probeTimeout.IsDisabled():
	case probeTimeout.UseDefault():
		client.Timeout = 2 * time.Second
	default:
		client.Timeout = probeTimeout.Duration()
	}

	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, s := range strategies {
				if !s.HealthChecks.Active {
					continue
				}
				probeStrategy(client, s, store, log)
			}
		}
	}
}

func probeStrategy(client *http.Client, s *parentselect.Strategy, store *health.Store, log logrus.FieldLogger) {
	for _, g := range s.Groups() {
		g.Iter(func(h parentselect.HostRecord) {
			if len(h.Protocols) == 0 {
				return
			}
			ep := h.Protocols[0]
			url := ep.HealthCheckURL
			if url == "" {
				url = fmt.Sprintf("%s://%s:%d/", ep.Scheme, h.Hostname, ep.Port)
			}
			resp, err := client.Get(url) //nolint:gosec,noctx
			if err != nil || resp.StatusCode >= 500 {
				store.MarkDown(h.Key(), parentselect.ReasonActiveProbe)
				log.WithField("host", h.Hostname).Debug("active probe failed")
				return
			}
			resp.Body.Close()
			store.MarkUp(h.Key())
		})
	}
}
