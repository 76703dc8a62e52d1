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

package debug

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/projectcontour/parentselect/internal/parentselect"
)

type fakeLister struct {
	strategies []*parentselect.Strategy
}

func (f fakeLister) Strategies() []*parentselect.Strategy { return f.strategies }

func TestRegisterDotWriterServesTopology(t *testing.T) {
	mux := http.NewServeMux()
	registerDotWriter(mux, fakeLister{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/topology", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "digraph Topology")
}

func TestRegisterProfileServesPprofIndex(t *testing.T) {
	mux := http.NewServeMux()
	registerProfile(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}
