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
	"fmt"
	"html"
	"io"

	"github.com/projectcontour/parentselect/internal/parentselect"
)

// quick and dirty dot debugging package, walking a strategy's group/ring
// topology instead of a request-routing DAG.

type dotWriter struct {
	Strategies []*parentselect.Strategy
}

// WriteDot renders the topology of strategies as a DOT graph, for the CLI's
// offline "dot" subcommand as well as the /debug/topology endpoint.
func WriteDot(w io.Writer, strategies []*parentselect.Strategy) {
	dw := &dotWriter{Strategies: strategies}
	dw.writeDot(w)
}

func (dw *dotWriter) writeDot(w io.Writer) {
	fmt.Fprintln(w, "digraph Topology {\nrankdir=\"LR\"")

	for _, s := range dw.Strategies {
		writeStrategy(w, s)
	}

	fmt.Fprintln(w, "}")
}

func writeStrategy(w io.Writer, s *parentselect.Strategy) {
	sid := fmt.Sprintf("strategy_%s", sanitize(s.Name))
	fmt.Fprintf(w, `"%s" [shape=record, label="{strategy|%s|%s}"]`+"\n", sid, html.EscapeString(s.Name), s.RingMode)

	for gi, g := range s.Groups() {
		gid := fmt.Sprintf("%s_group_%d", sid, gi)
		fmt.Fprintf(w, `"%s" [shape=record, label="{group|%d}"]`+"\n", gid, gi)
		fmt.Fprintf(w, `"%s" -> "%s"`+"\n", sid, gid)

		g.Iter(func(h parentselect.HostRecord) {
			hid := fmt.Sprintf("%s_host_%d", gid, h.HostIndex)
			color := "green"
			if !s.IsAvailable(h.Key()) {
				color = "red"
			}
			fmt.Fprintf(w, `"%s" [shape=record, color=%s, label="{host|%s|weight %.2f}"]`+"\n",
				hid, color, html.EscapeString(h.Hostname), h.Weight)
			fmt.Fprintf(w, `"%s" -> "%s"`+"\n", gid, hid)
		})
	}
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
