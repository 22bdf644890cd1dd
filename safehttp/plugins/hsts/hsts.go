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

// Package hsts provides a safehttp.Interceptor setting the
// Strict-Transport-Security header, which tells browsers to only reach the
// site over HTTPS.
package hsts

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/go-websecurity/safehttp"
)

const name = "hsts"

// Config configures the interceptor.
type Config struct {
	safehttp.Gate `yaml:",inline"`

	Enable bool `yaml:"enable"`
	// The time, in seconds, that the browser should remember that the site
	// is only to be accessed using HTTPS.
	MaxAge int `yaml:"maxAge"`
	// IncludeSubdomains extends the rule to every subdomain of the host.
	IncludeSubdomains bool `yaml:"includeSubdomains"`
	// Preload asks for inclusion in the browsers' HSTS preload list. See
	// https://hstspreload.org/ for more info.
	Preload bool `yaml:"preload"`
	// RedirectHTTP answers plain HTTP requests with a permanent redirect to
	// HTTPS. Leave it off when a proxy terminates TLS in front of the
	// server.
	RedirectHTTP bool `yaml:"redirectHTTP"`
}

// DefaultConfig returns the default configuration: disabled, with a max-age
// of one year.
func DefaultConfig() Config {
	return Config{MaxAge: 365 * 24 * 3600}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.MaxAge < 0 {
		return errors.New("maxAge must not be negative")
	}
	return nil
}

// Value returns the header value for c.
func (c Config) Value() string {
	var value strings.Builder
	value.WriteString("max-age=")
	value.WriteString(strconv.Itoa(c.MaxAge))
	if c.IncludeSubdomains {
		value.WriteString("; includeSubdomains")
	}
	if c.Preload {
		value.WriteString("; preload")
	}
	return value.String()
}

// Interceptor sets the Strict-Transport-Security header.
type Interceptor struct {
	cfg Config
}

var _ safehttp.Interceptor = &Interceptor{}

// New returns an Interceptor for cfg.
func New(cfg Config) (*Interceptor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Interceptor{cfg: cfg}, nil
}

// Override changes the configuration used for r. It must be called before
// the response is written.
func Override(r *safehttp.IncomingRequest, fn func(*Config)) {
	safehttp.Override(r, name, fn)
}

// Name implements safehttp.Named.
func (it *Interceptor) Name() string { return name }

// Before redirects plain HTTP requests to HTTPS if RedirectHTTP is set.
func (it *Interceptor) Before(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	if !it.cfg.RedirectHTTP || r.Request().TLS != nil || safehttp.CheckIgnore(it.cfg.Enable, it.cfg.Gate, r) {
		return nil
	}
	u := *r.URL()
	u.Scheme = "https"
	u.Host = r.Host()
	return &safehttp.RedirectError{Location: u.String(), Code: http.StatusMovedPermanently}
}

// Commit sets the header.
func (it *Interceptor) Commit(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	cfg := safehttp.Resolve(r, name, it.cfg)
	if safehttp.CheckIgnore(cfg.Enable, cfg.Gate, r) {
		return nil
	}
	if cfg.MaxAge < 0 {
		return safehttp.Errorf("hsts: negative maxAge %d", cfg.MaxAge)
	}
	return w.Header().Set("Strict-Transport-Security", cfg.Value())
}
