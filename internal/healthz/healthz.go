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

// Package healthz provides the process-level liveness and readiness
// endpoints for the serve command, as distinct from internal/health's
// per-parent status surface: healthz answers "is this process up", not
// "is this particular parent up".
package healthz

import "net/http"

// Healthz answers the process liveness probe: if the process can schedule
// a goroutine to handle the request, it is alive.
func Healthz(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok")) //nolint:errcheck
}

// ReadyFunc reports whether the process is ready to serve selection
// decisions. The serve command reports ready once at least one strategy
// has been built.
type ReadyFunc func() bool

// Readyz wraps ready into a readiness probe handler: 200 while ready
// returns true, 503 otherwise.
func Readyz(ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	}
}
