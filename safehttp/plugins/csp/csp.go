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

// Package csp provides a safehttp.Interceptor setting the
// Content-Security-Policy header.
//
// Every response carries a per-request nonce, also exposed in the
// X-CSP-Nonce header and through Nonce, which is added to script-src so that
// inline scripts marked with it are allowed to run.
package csp

import (
	"context"
	"errors"
	"regexp"

	"github.com/google/go-websecurity/safehttp"
)

const name = "csp"

// Mozilla/4.0 (compatible; MSIE 6.0; Windows NT 5.1)
var msie = regexp.MustCompile(`(?i) MSIE `)

// Config configures the interceptor.
type Config struct {
	safehttp.Gate `yaml:",inline"`

	Enable bool   `yaml:"enable"`
	Policy Policy `yaml:"policy"`
	// ReportOnly uses the Content-Security-Policy-Report-Only header.
	ReportOnly bool `yaml:"reportOnly"`
	// SupportIE uses the X-Content-Security-Policy header for Internet
	// Explorer user agents.
	SupportIE bool `yaml:"supportIE"`
}

// DefaultConfig returns the default configuration: disabled, with an empty
// policy.
func DefaultConfig() Config {
	return Config{}
}

// Interceptor sets the Content-Security-Policy and X-CSP-Nonce headers.
type Interceptor struct {
	safehttp.NopBefore
	cfg Config
}

var _ safehttp.Interceptor = &Interceptor{}

// New returns an Interceptor for cfg.
func New(cfg Config) *Interceptor {
	return &Interceptor{cfg: cfg}
}

// Default returns an Interceptor enforcing a strict policy and a framing
// policy.
func Default(reportURI string) *Interceptor {
	return New(Config{
		Enable: true,
		Policy: Merge(StrictPolicy{ReportURI: reportURI}.Policy(), FramingPolicy{}.Policy()),
	})
}

// Override changes the configuration used for r. It must be called before
// the response is written. Replace Policy rather than modifying it, for
// example with Policy.With.
func Override(r *safehttp.IncomingRequest, fn func(*Config)) {
	safehttp.Override(r, name, fn)
}

// Name implements safehttp.Named.
func (it *Interceptor) Name() string { return name }

// Commit sets the headers.
func (it *Interceptor) Commit(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	cfg := safehttp.Resolve(r, name, it.cfg)
	if safehttp.CheckIgnore(cfg.Enable, cfg.Gate, r) {
		return nil
	}
	nonce := r.Nonce()
	if err := w.Header().Set(HeaderName(cfg, r.Header.Get("User-Agent")), cfg.Policy.Serialize(nonce)); err != nil {
		return err
	}
	return w.Header().Set("X-CSP-Nonce", nonce)
}

// HeaderName returns the header cfg is sent in for a user agent.
func HeaderName(cfg Config, userAgent string) string {
	h := "Content-Security-Policy"
	if cfg.ReportOnly {
		h += "-Report-Only"
	}
	if cfg.SupportIE && msie.MatchString(userAgent) {
		h = "X-" + h
	}
	return h
}

// Nonce returns the nonce of the request ctx belongs to. The same nonce is
// sent in the policy of the response.
func Nonce(ctx context.Context) (string, error) {
	r := safehttp.RequestFromContext(ctx)
	if r == nil {
		return "", errors.New("no request in context")
	}
	return r.Nonce(), nil
}
