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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectcontour/parentselect/internal/parentselect"
)

func TestDecodeSchemeRecognized(t *testing.T) {
	for in, want := range map[string]parentselect.Scheme{
		"http":  parentselect.SchemeHTTP,
		"https": parentselect.SchemeHTTPS,
		"none":  parentselect.SchemeNone,
	} {
		got, err := decodeScheme(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDecodeSchemeUnrecognized(t *testing.T) {
	_, err := decodeScheme("ftp")
	assert.Error(t, err)
}

func TestDecodeProtocolValid(t *testing.T) {
	ep, err := decodeProtocol(ProtocolDocument{Scheme: "https", Port: 443, HealthCheckURL: "/healthz"})
	require.NoError(t, err)
	assert.Equal(t, parentselect.SchemeHTTPS, ep.Scheme)
	assert.Equal(t, 443, ep.Port)
	assert.Equal(t, "/healthz", ep.HealthCheckURL)
}

func TestDecodeProtocolPortOutOfRange(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		_, err := decodeProtocol(ProtocolDocument{Scheme: "http", Port: port})
		assert.Error(t, err)
	}
}

func TestDecodeHealthChecksValid(t *testing.T) {
	cfg, err := decodeHealthChecks([]string{"active", "passive"})
	require.NoError(t, err)
	assert.True(t, cfg.Active)
	assert.True(t, cfg.Passive)
}

func TestDecodeHealthChecksInvalid(t *testing.T) {
	_, err := decodeHealthChecks([]string{"active", "bogus"})
	assert.Error(t, err)
}
