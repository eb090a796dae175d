// Copyright 2022 The tribot Authors
//
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

package dns

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolver_ClientTargets(t *testing.T) {
	// given
	var gotService, gotName string
	r := &Resolver{
		lookUpFn: func(_ context.Context, service, _, name string) (string, []*net.SRV, error) {
			gotService, gotName = service, name
			return "", []*net.SRV{
				{Target: "xmpp1.example.com.", Port: 5222, Priority: 0},
				{Target: "xmpp0.example.com.", Port: 5223, Priority: 10},
			}, nil
		},
	}

	// when
	targets, err := r.ClientTargets(context.Background(), "example.com", false)

	// then
	require.NoError(t, err)
	require.Equal(t, "xmpp-client", gotService)
	require.Equal(t, "example.com", gotName)
	require.Equal(t, []string{"xmpp1.example.com:5222", "xmpp0.example.com:5223"}, targets)
}

func TestResolver_DirectTLSService(t *testing.T) {
	// given
	var gotService string
	r := &Resolver{
		lookUpFn: func(_ context.Context, service, _, _ string) (string, []*net.SRV, error) {
			gotService = service
			return "", nil, nil
		},
	}

	// when
	targets, err := r.ClientTargets(context.Background(), "example.com", true)

	// then
	require.NoError(t, err)
	require.Empty(t, targets)
	require.Equal(t, "xmpps-client", gotService)
}

func TestResolver_ServiceUnavailable(t *testing.T) {
	// given
	r := &Resolver{
		lookUpFn: func(_ context.Context, _, _, _ string) (string, []*net.SRV, error) {
			return "", []*net.SRV{{Target: ".", Port: 0}}, nil
		},
	}

	// when
	_, err := r.ClientTargets(context.Background(), "example.com", false)

	// then
	require.True(t, errors.Is(err, ErrServiceUnavailable))
}

func TestResolver_LookupError(t *testing.T) {
	// given
	lookupErr := errors.New("no such host")
	r := &Resolver{
		lookUpFn: func(_ context.Context, _, _, _ string) (string, []*net.SRV, error) {
			return "", nil, lookupErr
		},
	}

	// when
	_, err := r.ClientTargets(context.Background(), "example.com", false)

	// then
	require.Equal(t, lookupErr, err)
}
