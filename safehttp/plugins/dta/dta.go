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

// Package dta provides a safehttp.Interceptor rejecting requests whose path
// climbs above the root once decoded, a directory traversal attack.
package dta

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/go-websecurity/safehttp"
)

// Config configures the interceptor.
type Config struct {
	safehttp.Gate `yaml:",inline"`

	Enable bool `yaml:"enable"`
}

// DefaultConfig returns an enabled Config.
func DefaultConfig() Config {
	return Config{Enable: true}
}

// IsSafePath reports whether p, a request path in its escaped form, stays
// inside the root once decoded and cleaned. The error is set if p cannot be
// decoded.
func IsSafePath(p string) (bool, error) {
	p = "." + p
	if strings.Contains(p, "%") {
		d, err := url.PathUnescape(p)
		if err != nil {
			return false, err
		}
		p = d
	}
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return p != ".." && !strings.HasPrefix(p, "../"), nil
}

// Interceptor rejects traversing requests with 400 Bad Request.
type Interceptor struct {
	safehttp.NopCommit
	Config Config
}

var _ safehttp.Interceptor = Interceptor{}

// Name implements safehttp.Named.
func (Interceptor) Name() string { return "dta" }

// Before rejects the request if its path is unsafe.
func (it Interceptor) Before(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	if safehttp.CheckIgnore(it.Config.Enable, it.Config.Gate, r) {
		return nil
	}
	ok, err := IsSafePath(r.URL().EscapedPath())
	if err != nil {
		log := r.Logger()
		log.Warn().Err(err).Str("path", r.URL().EscapedPath()).Msg("decoding request path")
	}
	if !ok {
		return safehttp.NewError(http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
	}
	return nil
}
