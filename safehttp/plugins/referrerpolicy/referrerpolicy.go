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

// Package referrerpolicy provides a safehttp.Interceptor setting the
// Referrer-Policy header.
package referrerpolicy

import (
	"fmt"
	"net/http"

	"github.com/google/go-websecurity/safehttp"
)

const name = "referrerPolicy"

// https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Referrer-Policy
var allowed = map[string]bool{
	"no-referrer":                     true,
	"no-referrer-when-downgrade":      true,
	"origin":                          true,
	"origin-when-cross-origin":        true,
	"same-origin":                     true,
	"strict-origin":                   true,
	"strict-origin-when-cross-origin": true,
	"unsafe-url":                      true,
	"":                                true,
}

// Config configures the interceptor.
type Config struct {
	safehttp.Gate `yaml:",inline"`

	Enable bool   `yaml:"enable"`
	Value  string `yaml:"value"`
}

// DefaultConfig returns the default configuration: disabled,
// no-referrer-when-downgrade.
func DefaultConfig() Config {
	return Config{Value: "no-referrer-when-downgrade"}
}

// Validate reports whether Value is a known policy.
func (c Config) Validate() error {
	return check(c.Value)
}

func check(v string) error {
	if !allowed[v] {
		return &safehttp.Error{
			Code:    http.StatusInternalServerError,
			Message: fmt.Sprintf("\"%s\" is not available.", v),
		}
	}
	return nil
}

// Interceptor sets the Referrer-Policy header.
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
	return &Interceptor{cfg: cfg}, nil
}

// Override changes the configuration used for r. An override to an unknown
// policy fails the response with 500 Internal Server Error.
func Override(r *safehttp.IncomingRequest, fn func(*Config)) {
	safehttp.Override(r, name, fn)
}

// Name implements safehttp.Named.
func (it *Interceptor) Name() string { return name }

// Commit sets the header.
func (it *Interceptor) Commit(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	cfg := safehttp.Resolve(r, name, it.cfg)
	if safehttp.CheckIgnore(cfg.Enable, cfg.Gate, r) {
		return nil
	}
	if err := check(cfg.Value); err != nil {
		return err
	}
	return w.Header().Set("Referrer-Policy", cfg.Value)
}
