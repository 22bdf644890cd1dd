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

// Package staticheaders provides interceptors setting fixed protective
// response headers: X-Content-Type-Options (nosniff), X-Download-Options
// (noopen) and X-XSS-Protection.
package staticheaders

import (
	"net/http"

	"github.com/google/go-websecurity/safehttp"
)

// Names of the interceptors, as used in overrides and metrics.
const (
	NoSniffName       = "nosniff"
	NoOpenName        = "noopen"
	XSSProtectionName = "xssProtection"
)

// Config configures a header that can be switched on and off.
type Config struct {
	safehttp.Gate `yaml:",inline"`

	Enable bool `yaml:"enable"`
}

// XSSConfig configures the X-XSS-Protection header.
type XSSConfig struct {
	safehttp.Gate `yaml:",inline"`

	Enable bool   `yaml:"enable"`
	Value  string `yaml:"value"`
}

// DefaultConfig returns an enabled Config.
func DefaultConfig() Config {
	return Config{Enable: true}
}

// DefaultXSSConfig returns the default X-XSS-Protection configuration:
// enabled, "1; mode=block".
func DefaultXSSConfig() XSSConfig {
	return XSSConfig{Enable: true, Value: "1; mode=block"}
}

// redirectStatus lists the redirect codes nosniff is not set on.
var redirectStatus = map[int]bool{
	http.StatusMultipleChoices:   true,
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusUseProxy:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

// NoSniff sets X-Content-Type-Options: nosniff on every response except
// redirects.
type NoSniff struct {
	safehttp.NopBefore
	Config Config
}

// Name implements safehttp.Named.
func (NoSniff) Name() string { return NoSniffName }

// Commit sets the header.
func (it NoSniff) Commit(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	if redirectStatus[w.Status()] {
		return nil
	}
	cfg := safehttp.Resolve(r, NoSniffName, it.Config)
	if safehttp.CheckIgnore(cfg.Enable, cfg.Gate, r) {
		return nil
	}
	return w.Header().Set("X-Content-Type-Options", "nosniff")
}

// NoOpen sets X-Download-Options: noopen, which stops old versions of
// Internet Explorer from opening downloads in the context of the site.
type NoOpen struct {
	safehttp.NopBefore
	Config Config
}

// Name implements safehttp.Named.
func (NoOpen) Name() string { return NoOpenName }

// Commit sets the header.
func (it NoOpen) Commit(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	cfg := safehttp.Resolve(r, NoOpenName, it.Config)
	if safehttp.CheckIgnore(cfg.Enable, cfg.Gate, r) {
		return nil
	}
	return w.Header().Set("X-Download-Options", "noopen")
}

// XSSProtection sets the X-XSS-Protection header.
type XSSProtection struct {
	safehttp.NopBefore
	Config XSSConfig
}

// Name implements safehttp.Named.
func (XSSProtection) Name() string { return XSSProtectionName }

// Commit sets the header.
func (it XSSProtection) Commit(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	cfg := safehttp.Resolve(r, XSSProtectionName, it.Config)
	if safehttp.CheckIgnore(cfg.Enable, cfg.Gate, r) {
		return nil
	}
	return w.Header().Set("X-XSS-Protection", cfg.Value)
}

// OverrideNoSniff changes the nosniff configuration used for r.
func OverrideNoSniff(r *safehttp.IncomingRequest, fn func(*Config)) {
	safehttp.Override(r, NoSniffName, fn)
}

// OverrideNoOpen changes the noopen configuration used for r.
func OverrideNoOpen(r *safehttp.IncomingRequest, fn func(*Config)) {
	safehttp.Override(r, NoOpenName, fn)
}

// OverrideXSSProtection changes the X-XSS-Protection configuration used for
// r.
func OverrideXSSProtection(r *safehttp.IncomingRequest, fn func(*XSSConfig)) {
	safehttp.Override(r, XSSProtectionName, fn)
}
