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

// Package csrf provides a safehttp.Interceptor protecting against Cross-Site
// Request Forgery.
//
// Every client gets a random secret, stored in one or more cookies or in its
// session. Pages embed tokens derived from the secret (see Token) in their
// forms, and state changing requests must send one back in the query, the
// body or a header. Tokens are salted so that they differ on every page,
// which defeats compression side channels such as BREACH. Instead of, or on
// top of, the token check, requests can be verified by their Referer or
// Origin header.
//
// Failed checks are answered with 403 Forbidden and a message naming the
// reason, for example "missing csrf token" or "invalid csrf referer or
// origin".
package csrf

import (
	"github.com/google/go-websecurity/safehttp"
)

// Interceptor verifies state changing requests.
type Interceptor struct {
	safehttp.NopCommit
	cfg Config
}

var _ safehttp.Interceptor = &Interceptor{}

// New returns an Interceptor for cfg, or an error if cfg is invalid.
func New(cfg Config) (*Interceptor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Interceptor{cfg: cfg}, nil
}

// Name implements safehttp.Named.
func (it *Interceptor) Name() string { return "csrf" }

// Before issues a secret to clients that have none and verifies supported
// requests.
func (it *Interceptor) Before(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	st := attach(r, &it.cfg)
	if safehttp.CheckIgnore(it.cfg.Enable, it.cfg.Gate, r) {
		return nil
	}
	if it.cfg.Type.usesSecret() {
		if err := st.ensure(r, false); err != nil {
			return err
		}
	}
	if !it.cfg.supported(r) {
		return nil
	}
	if it.cfg.IgnoreJSON && r.IsJSON() {
		return nil
	}
	return st.assert(r)
}
