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

// Package health provides the default, in-process implementation of
// parentselect.HealthView: a process-wide host status table that the
// selection engine only ever reads, and that active/passive probing (or a
// human, via MarkReason ReasonManual) only ever writes.
//
// Host records themselves stay immutable, and all mutable status lives
// here behind a reader-writer lock, so Strategy selection never takes a
// lock of its own.
package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/projectcontour/parentselect/internal/parentselect"
)

// status is one host's current state, exported for JSON serialization via
// Snapshot.
type status struct {
	Available bool                    `json:"available"`
	Reason    parentselect.MarkReason `json:"reason,omitempty"`
	Since     time.Time               `json:"since"`
}

// Store is a reader-writer-locked host status table. Its zero value is not
// ready to use; call NewStore. Every host defaults to available until
// marked down.
type Store struct {
	mu    sync.RWMutex
	hosts map[parentselect.Key]status

	log logrus.FieldLogger
}

// NewStore returns an empty Store. log may be nil, in which case
// logrus.StandardLogger() is used.
func NewStore(log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		hosts: make(map[parentselect.Key]status),
		log:   log,
	}
}

var _ parentselect.HealthView = (*Store)(nil)

// IsAvailable implements parentselect.HealthView.
func (s *Store) IsAvailable(host parentselect.Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.hosts[host]
	if !ok {
		return true
	}
	return st.Available
}

// MarkDown implements parentselect.HealthView. Idempotent: marking an
// already-down host down again just refreshes the reason and timestamp.
func (s *Store) MarkDown(host parentselect.Key, reason parentselect.MarkReason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hosts[host] = status{Available: false, Reason: reason, Since: time.Now()}
	s.log.WithField("host", host).WithField("reason", reason).Info("marked parent down")
}

// MarkUp implements parentselect.HealthView. Idempotent.
func (s *Store) MarkUp(host parentselect.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.hosts[host]; ok && !st.Available {
		s.log.WithField("host", host).Info("marked parent up")
	}
	s.hosts[host] = status{Available: true, Since: time.Now()}
}

// Snapshot returns a point-in-time copy of the table, keyed by a
// human-readable "group:host" string, for the debug/admin HTTP surface.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.hosts))
	for k, v := range s.hosts {
		out[fmt.Sprintf("%d:%d", k.Group, k.Host)] = v
	}
	return out
}

// Handler returns a http.Handler for a health-status endpoint that
// serializes this process's own host status table as JSON.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
