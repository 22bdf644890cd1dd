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

package csrf

import (
	"strings"

	"github.com/google/go-websecurity/internal/hostmatch"
	"github.com/google/go-websecurity/safehttp"
)

const (
	reasonMissingToken   = "missing csrf token"
	reasonInvalidToken   = "invalid csrf token"
	reasonMissingReferer = "missing csrf referer or origin"
	reasonInvalidReferer = "invalid csrf referer or origin"
)

func (st *state) assert(r *safehttp.IncomingRequest) error {
	switch st.cfg.Type {
	case TypeCToken:
		if reason, err := st.checkToken(r); reason != "" || err != nil {
			return st.fail(r, reason, err)
		}
	case TypeReferer:
		if reason := st.checkReferer(r); reason != "" {
			return st.fail(r, reason, nil)
		}
	case TypeAll:
		if reason, err := st.checkToken(r); reason != "" || err != nil {
			return st.fail(r, reason, err)
		}
		if reason := st.checkReferer(r); reason != "" {
			return st.fail(r, reason, nil)
		}
	case TypeAny:
		tokenReason, err := st.checkToken(r)
		if err != nil {
			return err
		}
		if tokenReason == "" {
			return nil
		}
		refererReason := st.checkReferer(r)
		if refererReason == "" {
			return nil
		}
		return st.fail(r, "both ctoken and referer check error: "+strings.Join([]string{tokenReason, refererReason}, ", "), nil)
	default:
		return safehttp.Errorf("invalid type %q", st.cfg.Type)
	}
	return nil
}

func (st *state) fail(r *safehttp.IncomingRequest, reason string, err error) error {
	if err != nil {
		return err
	}
	return st.reject(r, reason)
}

// checkToken returns the reason the token check fails, or "". The error is
// set when a rotation could not be persisted.
func (st *state) checkToken(r *safehttp.IncomingRequest) (string, error) {
	secret := st.incoming(r)
	if secret == "" {
		st.notice(r, reasonMissingToken)
		return reasonMissingToken, nil
	}
	// Clients reading the secret from the cookie send it back as is.
	token := st.inputToken(r)
	if token == secret || VerifyToken(secret, token) {
		return "", nil
	}
	st.notice(r, reasonInvalidToken)
	if st.cfg.RotateWhenInvalid {
		if err := st.rotate(r); err != nil {
			return "", err
		}
	}
	return reasonInvalidToken, nil
}

func (st *state) inputToken(r *safehttp.IncomingRequest) string {
	for _, name := range st.cfg.QueryName {
		if v := r.QueryValue(name); v != "" {
			return v
		}
	}
	for _, name := range st.cfg.BodyName {
		if v := r.BodyValue(name); v != "" {
			return v
		}
	}
	if st.cfg.HeaderName != "" {
		return r.Header.Get(st.cfg.HeaderName)
	}
	return ""
}

func (st *state) checkReferer(r *safehttp.IncomingRequest) string {
	referer := r.Header.Get("Referer")
	if referer == "" {
		referer = r.Header.Get("Origin")
	}
	referer = strings.ToLower(referer)
	if referer == "" {
		st.notice(r, reasonMissingReferer)
		return reasonMissingReferer
	}

	host := hostmatch.Host(referer)
	whitelist := append(append([]string(nil), st.cfg.RefererWhiteList...), r.Host())
	if host == "" || !hostmatch.IsSafeDomain(host, whitelist) {
		st.notice(r, reasonInvalidReferer)
		return reasonInvalidReferer
	}
	return ""
}

// notice explains rejections to developers running locally.
func (st *state) notice(r *safehttp.IncomingRequest, reason string) {
	if !r.Env().IsLocal() {
		return
	}
	log := r.Logger()
	log.Warn().
		Str("reason", reason).
		Str("path", r.Path()).
		Msg(reason + ". See https://owasp.org/www-community/attacks/csrf")
}
