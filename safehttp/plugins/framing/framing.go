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

// Package framing provides a safehttp.Interceptor setting the
// X-Frame-Options header against clickjacking.
package framing

import (
	"fmt"
	"strings"

	"github.com/google/go-websecurity/safehttp"
)

const name = "xframe"

// Config configures the interceptor.
type Config struct {
	safehttp.Gate `yaml:",inline"`

	Enable bool `yaml:"enable"`
	// Value is DENY, SAMEORIGIN or ALLOW-FROM <uri>. Empty means
	// SAMEORIGIN.
	Value string `yaml:"value"`
	// BlackURLs is used as Ignore when Ignore is unset.
	//
	// Deprecated: use Ignore.
	BlackURLs safehttp.Rules `yaml:"blackUrls"`
}

// DefaultConfig returns the default configuration: enabled, SAMEORIGIN.
func DefaultConfig() Config {
	return Config{Enable: true, Value: "SAMEORIGIN"}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	v := strings.ToUpper(c.Value)
	switch {
	case v == "", v == "DENY", v == "SAMEORIGIN", strings.HasPrefix(v, "ALLOW-FROM "):
		return nil
	}
	return fmt.Errorf("invalid X-Frame-Options value %q", c.Value)
}

// Interceptor sets the X-Frame-Options header.
type Interceptor struct {
	safehttp.NopBefore
	cfg Config
}

var _ safehttp.Interceptor = &Interceptor{}

// New returns an Interceptor for cfg.
func New(cfg Config) (*Interceptor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Ignore) == 0 && len(cfg.BlackURLs) > 0 {
		cfg.Ignore = cfg.BlackURLs
	}
	return &Interceptor{cfg: cfg}, nil
}

// Override changes the configuration used for r. It must be called before
// the response is written.
func Override(r *safehttp.IncomingRequest, fn func(*Config)) {
	safehttp.Override(r, name, fn)
}

// Disable turns the protection off for r, allowing the page to be framed by
// any site.
func Disable(r *safehttp.IncomingRequest) {
	Override(r, func(c *Config) { c.Enable = false })
}

// Name implements safehttp.Named.
func (it *Interceptor) Name() string { return name }

// Commit sets the header.
func (it *Interceptor) Commit(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	cfg := safehttp.Resolve(r, name, it.cfg)
	if safehttp.CheckIgnore(cfg.Enable, cfg.Gate, r) {
		return nil
	}
	value := cfg.Value
	if value == "" {
		value = "SAMEORIGIN"
	}
	return w.Header().Set("X-Frame-Options", value)
}
