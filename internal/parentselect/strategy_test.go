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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeGroupExhaustStrategy(t *testing.T, health HealthView) *Strategy {
	return oneHostPerGroupStrategy(t, 3, health)
}

func TestNewStrategyRejectsEmptyName(t *testing.T) {
	g, err := NewHostGroup(0, []HostRecord{{Hostname: "a"}})
	require.NoError(t, err)

	_, err = NewStrategy(StrategyConfig{RingMode: RingModeExhaustRing}, []*HostGroup{g}, newFakeHealth(), discardLog())
	assert.Error(t, err)
}

func TestNewStrategyRejectsNoGroups(t *testing.T) {
	_, err := NewStrategy(StrategyConfig{Name: "origin", RingMode: RingModeExhaustRing}, nil, newFakeHealth(), discardLog())
	assert.Error(t, err)
}

func TestNewStrategyRejectsTooManyGroups(t *testing.T) {
	groups := make([]*HostGroup, MaxGroupRings+1)
	for i := range groups {
		g, err := NewHostGroup(uint32(i), []HostRecord{{Hostname: "a"}})
		require.NoError(t, err)
		groups[i] = g
	}

	_, err := NewStrategy(StrategyConfig{Name: "origin", RingMode: RingModeExhaustRing}, groups, newFakeHealth(), discardLog())
	assert.Error(t, err)
}

func TestNewStrategyRejectsInvalidRingMode(t *testing.T) {
	g, err := NewHostGroup(0, []HostRecord{{Hostname: "a"}})
	require.NoError(t, err)

	_, err = NewStrategy(StrategyConfig{Name: "origin", RingMode: "round_robin"}, []*HostGroup{g}, newFakeHealth(), discardLog())
	assert.Error(t, err)
}

func TestNewStrategyRejectsNilHealth(t *testing.T) {
	g, err := NewHostGroup(0, []HostRecord{{Hostname: "a"}})
	require.NoError(t, err)

	_, err = NewStrategy(StrategyConfig{Name: "origin", RingMode: RingModeExhaustRing}, []*HostGroup{g}, nil, discardLog())
	assert.Error(t, err)
}

func TestFindNextHopNeverRevisitsWithinTransaction(t *testing.T) {
	s := threeGroupExhaustStrategy(t, newFakeHealth())
	scratch := &Scratchpad{}
	req := testRequest("/foo")

	seen := map[Key]bool{}
	for {
		result, err := s.FindNextHop(req, scratch)
		if err != nil {
			break
		}
		key := Key{Group: scratch.lastGroup, Host: scratch.lastHost}
		assert.False(t, seen[key], "host %s picked twice in one transaction", result.Hostname)
		seen[key] = true
	}
	assert.Len(t, seen, 3)
}

func TestFindNextHopGroupIndexNeverDecreasesExhaustRing(t *testing.T) {
	s := threeGroupExhaustStrategy(t, newFakeHealth())
	scratch := &Scratchpad{}
	req := testRequest("/foo")

	var lastGroup uint32
	first := true
	for {
		_, err := s.FindNextHop(req, scratch)
		if err != nil {
			break
		}
		if !first {
			assert.GreaterOrEqual(t, scratch.lastGroup, lastGroup)
		}
		lastGroup = scratch.lastGroup
		first = false
	}
}

func TestFindNextHopStopsAtMaxAttempts(t *testing.T) {
	health := newFakeHealth()
	s := oneHostPerGroupStrategy(t, 5, health)
	// MaxSimpleRetries is numGroups-1, so maxAttempts == numParents here;
	// tighten it to confirm the retry budget (not just parent count) can
	// be the limiting factor.
	s.MaxSimpleRetries = 1

	scratch := &Scratchpad{}
	req := testRequest("/foo")

	attempts := 0
	for {
		_, err := s.FindNextHop(req, scratch)
		if err != nil {
			assert.ErrorIs(t, err, ErrNoParentAvailable)
			break
		}
		attempts++
	}
	assert.Equal(t, 2, attempts, "expected maxAttempts = MaxSimpleRetries+1 = 2")
}

func TestFindNextHopSkipsUnavailableHosts(t *testing.T) {
	health := newFakeHealth()
	s := threeGroupExhaustStrategy(t, health)

	// Mark every host but the one in group 2 down.
	health.MarkDown(Key{Group: 0, Host: 0}, ReasonManual)
	health.MarkDown(Key{Group: 1, Host: 0}, ReasonManual)

	scratch := &Scratchpad{}
	result, err := s.FindNextHop(testRequest("/foo"), scratch)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), scratch.lastGroup)
	assert.False(t, result.IsRetry)
}

func TestFindNextHopNoneAvailableReturnsError(t *testing.T) {
	health := newFakeHealth()
	s := threeGroupExhaustStrategy(t, health)
	for g := uint32(0); g < 3; g++ {
		health.MarkDown(Key{Group: g, Host: 0}, ReasonManual)
	}

	_, err := s.FindNextHop(testRequest("/foo"), &Scratchpad{})
	assert.ErrorIs(t, err, ErrNoParentAvailable)
}

func TestFindNextHopSelectsEndpointMatchingStrategyScheme(t *testing.T) {
	rec := HostRecord{
		Hostname: "parent-a",
		Protocols: []Endpoint{
			{Scheme: SchemeHTTP, Port: 80},
			{Scheme: SchemeHTTPS, Port: 443},
		},
		Weight: 1.0,
	}
	g, err := NewHostGroup(0, []HostRecord{rec})
	require.NoError(t, err)

	cfg := StrategyConfig{
		Name:             "test",
		Scheme:           SchemeHTTPS,
		RingMode:         RingModeExhaustRing,
		MaxSimpleRetries: 0,
		ResponseCodes:    []int{502, 503, 504},
	}
	s, err := NewStrategy(cfg, []*HostGroup{g}, newFakeHealth(), discardLog())
	require.NoError(t, err)

	result, err := s.FindNextHop(testRequest("/foo"), &Scratchpad{})
	require.NoError(t, err)
	assert.Equal(t, SchemeHTTPS, result.Scheme)
	assert.Equal(t, 443, result.Port)
}

func TestFindNextHopFallsBackToFirstEndpointWhenSchemeAbsent(t *testing.T) {
	rec := HostRecord{
		Hostname:  "parent-a",
		Protocols: []Endpoint{{Scheme: SchemeHTTP, Port: 80}},
		Weight:    1.0,
	}
	g, err := NewHostGroup(0, []HostRecord{rec})
	require.NoError(t, err)

	cfg := StrategyConfig{
		Name:             "test",
		Scheme:           SchemeHTTPS,
		RingMode:         RingModeExhaustRing,
		MaxSimpleRetries: 0,
		ResponseCodes:    []int{502, 503, 504},
	}
	s, err := NewStrategy(cfg, []*HostGroup{g}, newFakeHealth(), discardLog())
	require.NoError(t, err)

	result, err := s.FindNextHop(testRequest("/foo"), &Scratchpad{})
	require.NoError(t, err)
	assert.Equal(t, SchemeHTTP, result.Scheme)
	assert.Equal(t, 80, result.Port)
}

func TestFindNextHopFirstAttemptIsNotRetry(t *testing.T) {
	s := threeGroupExhaustStrategy(t, newFakeHealth())
	result, err := s.FindNextHop(testRequest("/foo"), &Scratchpad{})
	require.NoError(t, err)
	assert.False(t, result.IsRetry)
	assert.Equal(t, uint32(0), result.Attempt)
}

func TestFindNextHopSecondAttemptIsRetry(t *testing.T) {
	s := threeGroupExhaustStrategy(t, newFakeHealth())
	scratch := &Scratchpad{}
	_, err := s.FindNextHop(testRequest("/foo"), scratch)
	require.NoError(t, err)

	result, err := s.FindNextHop(testRequest("/foo"), scratch)
	require.NoError(t, err)
	assert.True(t, result.IsRetry)
	assert.Equal(t, uint32(1), result.Attempt)
}

func TestAlternateRingRotatesStartGroupByAttempt(t *testing.T) {
	health := newFakeHealth()
	groups := make([]*HostGroup, 3)
	for i := range groups {
		g, err := NewHostGroup(uint32(i), []HostRecord{{Hostname: hostNameForGroup(i)}})
		require.NoError(t, err)
		groups[i] = g
	}
	cfg := StrategyConfig{
		Name:             "origin",
		RingMode:         RingModeAlternateRing,
		MaxSimpleRetries: 2,
		ResponseCodes:    []int{502},
	}
	s, err := NewStrategy(cfg, groups, health, discardLog())
	require.NoError(t, err)

	scratch := &Scratchpad{}
	var groupsPicked []uint32
	for i := 0; i < 3; i++ {
		_, err := s.FindNextHop(testRequest("/foo"), scratch)
		require.NoError(t, err)
		groupsPicked = append(groupsPicked, scratch.lastGroup)
	}
	assert.ElementsMatch(t, []uint32{0, 1, 2}, groupsPicked)
}

func TestNextHopExists(t *testing.T) {
	health := newFakeHealth()
	s := threeGroupExhaustStrategy(t, health)
	assert.True(t, s.NextHopExists())

	for g := uint32(0); g < 3; g++ {
		health.MarkDown(Key{Group: g, Host: 0}, ReasonManual)
	}
	assert.False(t, s.NextHopExists())
}

func TestIsAvailableDelegatesToHealthView(t *testing.T) {
	health := newFakeHealth()
	s := threeGroupExhaustStrategy(t, health)
	key := Key{Group: 0, Host: 0}

	assert.True(t, s.IsAvailable(key))
	health.MarkDown(key, ReasonManual)
	assert.False(t, s.IsAvailable(key))
}

func TestMarkConnectFailureMarksDown(t *testing.T) {
	health := newFakeHealth()
	s := threeGroupExhaustStrategy(t, health)
	scratch := &Scratchpad{}
	_, err := s.FindNextHop(testRequest("/foo"), scratch)
	require.NoError(t, err)

	s.Mark(scratch, Outcome{Connected: false})
	assert.False(t, health.IsAvailable(Key{Group: scratch.lastGroup, Host: scratch.lastHost}))
}

func TestMarkFailureResponseMarksDown(t *testing.T) {
	health := newFakeHealth()
	s := threeGroupExhaustStrategy(t, health)
	scratch := &Scratchpad{}
	_, err := s.FindNextHop(testRequest("/foo"), scratch)
	require.NoError(t, err)

	s.Mark(scratch, Outcome{Connected: true, StatusCode: 503})
	assert.False(t, health.IsAvailable(Key{Group: scratch.lastGroup, Host: scratch.lastHost}))
}

func TestMarkNonFailureCodeNotInSetMarksUp(t *testing.T) {
	health := newFakeHealth()
	s := threeGroupExhaustStrategy(t, health)
	key := Key{Group: 0, Host: 0}
	health.MarkDown(key, ReasonManual)

	scratch := &Scratchpad{lastGroup: 0, lastHost: 0}
	s.Mark(scratch, Outcome{Connected: true, StatusCode: 200})
	assert.True(t, health.IsAvailable(key))
}

func TestMarkConfiguredSuccessCodeLeavesHostUp(t *testing.T) {
	health := newFakeHealth()
	s := threeGroupExhaustStrategy(t, health)
	scratch := &Scratchpad{lastGroup: 0, lastHost: 0}

	// 404 isn't in the failure set and isn't in the 5xx range, so Mark
	// must not touch availability either way beyond marking it up.
	s.Mark(scratch, Outcome{Connected: true, StatusCode: 404})
	assert.True(t, health.IsAvailable(Key{Group: 0, Host: 0}))
}

func TestShouldRetryConnectFailureUsesSentinel(t *testing.T) {
	s := threeGroupExhaustStrategy(t, newFakeHealth())
	scratch := &Scratchpad{attempts: 0}
	decision := s.ShouldRetry(scratch, Outcome{Connected: false})
	assert.Equal(t, DecisionRetry, decision)
}

func TestShouldRetryGoDirectWhenRetriesExhausted(t *testing.T) {
	health := newFakeHealth()
	s := oneHostPerGroupStrategy(t, 1, health)
	s.GoDirect = true
	scratch := &Scratchpad{attempts: 1}

	decision := s.ShouldRetry(scratch, Outcome{Connected: true, StatusCode: 503})
	assert.Equal(t, DecisionGoDirect, decision)
}

func TestShouldRetryFailWhenRetriesExhaustedAndNoGoDirect(t *testing.T) {
	health := newFakeHealth()
	s := oneHostPerGroupStrategy(t, 1, health)
	scratch := &Scratchpad{attempts: 1}

	decision := s.ShouldRetry(scratch, Outcome{Connected: true, StatusCode: 503})
	assert.Equal(t, DecisionFail, decision)
}

func TestShouldRetryNonFailureCodeFails(t *testing.T) {
	s := threeGroupExhaustStrategy(t, newFakeHealth())
	scratch := &Scratchpad{attempts: 0}
	decision := s.ShouldRetry(scratch, Outcome{Connected: true, StatusCode: 200})
	assert.Equal(t, DecisionFail, decision)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "retry", DecisionRetry.String())
	assert.Equal(t, "go_direct", DecisionGoDirect.String())
	assert.Equal(t, "fail", DecisionFail.String())
	assert.Equal(t, "unknown", Decision(99).String())
}

func TestFindNextHopFingerprintStableAcrossAttempts(t *testing.T) {
	s := threeGroupExhaustStrategy(t, newFakeHealth())
	scratch := &Scratchpad{}
	req := testRequest("/stable-path")

	_, err := s.FindNextHop(req, scratch)
	require.NoError(t, err)
	fp := scratch.fingerprint

	_, err = s.FindNextHop(req, scratch)
	require.NoError(t, err)
	assert.Equal(t, fp, scratch.fingerprint, "fingerprint must be computed once per transaction")
}

func TestSameFingerprintPicksSameFirstHost(t *testing.T) {
	health := newFakeHealth()
	s1 := threeGroupExhaustStrategy(t, health)
	s2 := threeGroupExhaustStrategy(t, newFakeHealth())

	r1, err := s1.FindNextHop(testRequest("/same-path"), &Scratchpad{})
	require.NoError(t, err)
	r2, err := s2.FindNextHop(testRequest("/same-path"), &Scratchpad{})
	require.NoError(t, err)

	assert.Equal(t, r1.Hostname, r2.Hostname, "identical topology and fingerprint must pick the same host")
}
