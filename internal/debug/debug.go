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

// Package debug provides http endpoints for pprof debugging and a DOT
// export of a strategy's group/ring topology.
package debug

import (
	"net/http"
	"net/http/pprof"

	"github.com/projectcontour/parentselect/internal/httpsvc"
	"github.com/projectcontour/parentselect/internal/parentselect"
)

// Service serves various http endpoints including /debug/pprof and
// /debug/topology.
type Service struct {
	httpsvc.Service

	Strategies StrategyLister
}

// StrategyLister supplies the strategies to render; cmd/parentselect wires
// this to the live configuration's strategy set.
type StrategyLister interface {
	Strategies() []*parentselect.Strategy
}

// Start fulfills the g.Start contract.
// When stop is closed the http server will shutdown.
func (svc *Service) Start(stop <-chan struct{}) error {
	registerProfile(&svc.ServeMux)
	registerDotWriter(&svc.ServeMux, svc.Strategies)
	return svc.Service.Start(stop)
}

func registerProfile(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/pprof/block", pprof.Handler("block"))
	mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	mux.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
}

func registerDotWriter(mux *http.ServeMux, strategies StrategyLister) {
	mux.HandleFunc("/debug/topology", func(w http.ResponseWriter, r *http.Request) {
		dw := &dotWriter{Strategies: strategies.Strategies()}
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		dw.writeDot(w)
	})
}
