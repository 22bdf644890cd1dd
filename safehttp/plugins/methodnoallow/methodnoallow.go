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

// Package methodnoallow provides a safehttp.Interceptor rejecting TRACE,
// TRACK and unknown HTTP methods with 405 Method Not Allowed, which defeats
// Cross-Site Tracing.
package methodnoallow

import (
	"net/http"

	"github.com/google/go-websecurity/safehttp"
)

// allowed lists the HTTP and WebDAV methods requests may use.
var allowed = map[string]bool{
	"ACL":         true,
	"BIND":        true,
	"CHECKOUT":    true,
	"CONNECT":     true,
	"COPY":        true,
	"DELETE":      true,
	"GET":         true,
	"HEAD":        true,
	"LINK":        true,
	"LOCK":        true,
	"M-SEARCH":    true,
	"MERGE":       true,
	"MKACTIVITY":  true,
	"MKCALENDAR":  true,
	"MKCOL":       true,
	"MOVE":        true,
	"NOTIFY":      true,
	"OPTIONS":     true,
	"PATCH":       true,
	"POST":        true,
	"PROPFIND":    true,
	"PROPPATCH":   true,
	"PURGE":       true,
	"PUT":         true,
	"QUERY":       true,
	"REBIND":      true,
	"REPORT":      true,
	"SEARCH":      true,
	"SOURCE":      true,
	"SUBSCRIBE":   true,
	"UNBIND":      true,
	"UNLINK":      true,
	"UNLOCK":      true,
	"UNSUBSCRIBE": true,
}

// Config configures the interceptor.
type Config struct {
	safehttp.Gate `yaml:",inline"`

	Enable bool `yaml:"enable"`
}

// DefaultConfig returns an enabled Config.
func DefaultConfig() Config {
	return Config{Enable: true}
}

// Interceptor rejects disallowed methods.
type Interceptor struct {
	safehttp.NopCommit
	Config Config
}

var _ safehttp.Interceptor = Interceptor{}

// Name implements safehttp.Named.
func (Interceptor) Name() string { return "methodnoallow" }

// Before rejects the request if its method is not allowed.
func (it Interceptor) Before(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	if safehttp.CheckIgnore(it.Config.Enable, it.Config.Gate, r) {
		return nil
	}
	if !allowed[r.Method()] {
		return safehttp.NewError(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	}
	return nil
}
