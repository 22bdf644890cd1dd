// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ssrf provides an HTTP client that refuses to connect to addresses
// rejected by a configurable policy, protecting servers that fetch
// user-supplied URLs from Server-Side Request Forgery.
//
// The policy is evaluated after DNS resolution and before the socket is
// opened, on the very addresses that are then dialed.
package ssrf

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/google/go-websecurity/internal/metrics"
)

// ErrIllegalAddress is matched by every error caused by a refused address.
var ErrIllegalAddress = errors.New("illegal address")

// IllegalAddressError describes a refused connection.
type IllegalAddressError struct {
	Hostname string
	IP       net.IP
	Family   int
}

func (e *IllegalAddressError) Error() string {
	return fmt.Sprintf("illegal address: IP %s, family %d, hostname %s", e.IP, e.Family, e.Hostname)
}

// Is makes errors.Is(err, ErrIllegalAddress) hold.
func (e *IllegalAddressError) Is(target error) bool {
	return target == ErrIllegalAddress
}

// Resolver looks up the addresses of a host.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger used for warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Guard) { g.log = l }
}

// WithRegisterer registers the guard metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(g *Guard) { g.metrics = metrics.New(reg) }
}

// WithMetrics shares already registered collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// WithTimeout sets the overall timeout of the client requests. Zero means no
// timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) { g.timeout = d }
}

// WithResolver replaces net.DefaultResolver.
func WithResolver(r Resolver) Option {
	return func(g *Guard) { g.resolver = r }
}

// Guard issues outbound HTTP requests under an address policy. It is safe
// for concurrent use.
type Guard struct {
	check    CheckAddressFunc
	log      zerolog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	resolver Resolver
	dialer   *net.Dialer
	client   *http.Client
}

// New builds a Guard from cfg. A cfg without policy yields a Guard that
// warns on every call and does not filter anything.
func New(cfg Config, opts ...Option) (*Guard, error) {
	check, err := cfg.Checker()
	if err != nil {
		return nil, err
	}
	g := &Guard{
		check:    check,
		log:      zerolog.Nop(),
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second},
	}
	for _, o := range opts {
		o(g)
	}

	transport := &http.Transport{
		// A proxy would connect on our behalf and escape the policy.
		Proxy:               nil,
		DialContext:         g.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if check == nil {
		transport.DialContext = g.dialer.DialContext
	}
	g.client = &http.Client{Timeout: g.timeout, Transport: transport}
	return g, nil
}

// Client returns the guarded client. Redirects are followed through the same
// transport, so every hop is checked.
func (g *Guard) Client() *http.Client {
	return g.client
}

// Configured reports whether the guard filters addresses.
func (g *Guard) Configured() bool {
	return g.check != nil
}

// Do sends req through the guarded client. Refused addresses surface as
// errors matching ErrIllegalAddress.
func (g *Guard) Do(req *http.Request) (*http.Response, error) {
	if g.check == nil {
		g.log.Warn().Str("url", req.URL.Redacted()).Msg("please configure `ssrf` first")
	}
	return g.client.Do(req)
}

// Get issues a GET to url with ctx.
func (g *Guard) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return g.Do(req)
}

// DialContext resolves addr, checks every resolved address and dials the
// first one that accepts the connection.
func (g *Guard) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		addrs, err := g.resolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			ips = append(ips, a.IP)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}

	for _, ip := range ips {
		if err := g.allow(ip, host); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for _, ip := range ips {
		conn, err := g.dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (g *Guard) allow(ip net.IP, hostname string) error {
	family := 6
	if ip.To4() != nil {
		family = 4
	}
	if g.check(ip, family, hostname) {
		return nil
	}
	g.metrics.ObserveSSRFBlocked()
	g.log.Warn().Str("hostname", hostname).Str("ip", ip.String()).Msg("outbound connection refused")
	return &IllegalAddressError{Hostname: hostname, IP: ip, Family: family}
}
