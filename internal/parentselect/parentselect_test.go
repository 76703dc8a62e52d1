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
	"testing"

	"github.com/sirupsen/logrus"
)

// fakeHealth is a minimal, in-memory HealthView shared across this
// package's tests. Unlike internal/health.Store it keeps no history and
// is not safe for concurrent use; tests that need concurrency build their
// own.
type fakeHealth struct {
	down map[Key]MarkReason
}

func newFakeHealth() *fakeHealth {
	return &fakeHealth{down: map[Key]MarkReason{}}
}

func (f *fakeHealth) IsAvailable(host Key) bool {
	_, down := f.down[host]
	return !down
}

func (f *fakeHealth) MarkDown(host Key, reason MarkReason) {
	f.down[host] = reason
}

func (f *fakeHealth) MarkUp(host Key) {
	delete(f.down, host)
}

// testRequest is a minimal RequestContext backed by a fixed key, so tests
// can control which fingerprint a transaction hashes to.
type testRequest string

func (r testRequest) FingerprintKey() []byte { return []byte(r) }
func (r testRequest) TransactionID() uint64  { return 0 }

func discardLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(nopWriter{})
	return log
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func oneHostPerGroupStrategy(t *testing.T, n int, health HealthView) *Strategy {
	t.Helper()
	groups := make([]*HostGroup, n)
	for i := 0; i < n; i++ {
		rec := HostRecord{
			Hostname:  hostNameForGroup(i),
			Protocols: []Endpoint{{Scheme: SchemeHTTP, Port: 80}},
			Weight:    1.0,
		}
		g, err := NewHostGroup(uint32(i), []HostRecord{rec})
		if err != nil {
			t.Fatalf("NewHostGroup: %v", err)
		}
		groups[i] = g
	}

	cfg := StrategyConfig{
		Name:             "test",
		Scheme:           SchemeHTTP,
		RingMode:         RingModeExhaustRing,
		MaxSimpleRetries: uint32(n) - 1,
		ResponseCodes:    []int{502, 503, 504},
	}
	s, err := NewStrategy(cfg, groups, health, discardLog())
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}
	return s
}

func hostNameForGroup(i int) string {
	names := []string{"parent-a", "parent-b", "parent-c", "parent-d", "parent-e"}
	if i < len(names) {
		return names[i]
	}
	return "parent-extra"
}
