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
	"strconv"
	"strings"
	"time"
)

const resolveTimeout = time.Second * 5

// ErrServiceUnavailable is returned when a domain explicitly announces it offers no client service.
var ErrServiceUnavailable = errors.New("dns: service not available at domain")

// Resolver looks up the client connection endpoints of an XMPP domain.
type Resolver struct {
	lookUpFn func(ctx context.Context, service, proto, name string) (cname string, addrs []*net.SRV, err error)
}

// NewResolver returns a Resolver backed by the system DNS resolver.
func NewResolver() *Resolver {
	return &Resolver{lookUpFn: net.DefaultResolver.LookupSRV}
}

// ClientTargets returns the host:port pairs announced for domain, in the
// priority and weight order chosen by the DNS lookup. When directTLS is set
// the xmpps-client service is queried instead of xmpp-client.
func (r *Resolver) ClientTargets(ctx context.Context, domain string, directTLS bool) ([]string, error) {
	service := "xmpp-client"
	if directTLS {
		service = "xmpps-client"
	}
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	_, addrs, err := r.lookUpFn(ctx, service, "tcp", domain)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 1 && addrs[0].Target == "." {
		return nil, ErrServiceUnavailable
	}
	targets := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Target == "." {
			continue
		}
		host := strings.TrimSuffix(addr.Target, ".")
		targets = append(targets, net.JoinHostPort(host, strconv.Itoa(int(addr.Port))))
	}
	return targets, nil
}
