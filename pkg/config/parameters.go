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
	"io"
	"os"

	"dario.cat/mergo"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/projectcontour/parentselect/internal/parentselect"
)

// Defaults returns the StrategyDocument fields every parsed strategy is
// layered onto before validation, filling whatever the document left at
// its Go zero value. A strategy that sets ring_mode,
// max_simple_retries or a host's weight explicitly keeps its own value;
// applyDefaults merges the document over these defaults with
// mergo.WithOverride, which replaces a default only with a non-zero field.
func Defaults() StrategyDocument {
	return StrategyDocument{
		Scheme: "http",
		Failover: FailoverDocument{
			RingMode:         string(parentselect.RingModeExhaustRing),
			MaxSimpleRetries: 1,
			ResponseCodes:    []int{502, 503, 504},
		},
	}
}

// Parse decodes a strategy document from r. Unknown fields anywhere in
// the document are ignored rather than rejected, so that a typo in one
// strategy's fragment can never take down every other strategy in the
// same file; Build is what decides, per strategy, whether what's left is
// usable. Parse does not validate or build the core Strategy tree; call
// Build on the result for that.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "parsing configuration")
	}
	return applyDefaults(&doc)
}

// ParseFile opens path and parses it as a strategy document.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening configuration file")
	}
	defer f.Close()
	return Parse(f)
}

// applyDefaults layers Defaults() onto every strategy in doc in place,
// leaving any field the document already set untouched.
func applyDefaults(doc *Document) (*Document, error) {
	for i := range doc.Strategies {
		merged := Defaults()
		if err := mergo.Merge(&merged, doc.Strategies[i], mergo.WithOverride); err != nil {
			return nil, errors.Wrapf(err, "strategy %q: applying defaults", doc.Strategies[i].Name)
		}
		doc.Strategies[i] = merged
	}
	return doc, nil
}
