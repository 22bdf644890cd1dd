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
	"context"
	"net/http"

	"github.com/google/go-websecurity/safehttp"
)

type stateKey struct{}

// state is the secret bookkeeping of one request.
type state struct {
	cfg *Config

	loaded bool
	// secret is the secret the request arrived with.
	secret string
	// issued is the secret written by this request, if any.
	issued string
}

func attach(r *safehttp.IncomingRequest, cfg *Config) *state {
	if st, ok := r.Value(stateKey{}).(*state); ok {
		return st
	}
	st := &state{cfg: cfg}
	r.SetValue(stateKey{}, st)
	return st
}

func lookup(r *safehttp.IncomingRequest) *state {
	st, _ := r.Value(stateKey{}).(*state)
	return st
}

// incoming returns the secret the request carries in its session or
// cookies.
func (st *state) incoming(r *safehttp.IncomingRequest) string {
	if st.loaded {
		return st.secret
	}
	st.loaded = true
	if st.cfg.UseSession {
		if s := r.Session(); s != nil {
			st.secret, _ = s.Get(st.cfg.SessionName)
		}
		return st.secret
	}
	for _, name := range st.cfg.CookieName {
		if st.secret = r.Cookies().Get(name, st.cfg.CookieOptions.Signed); st.secret != "" {
			break
		}
	}
	return st.secret
}

// current prefers the secret issued by this request.
func (st *state) current(r *safehttp.IncomingRequest) string {
	if st.issued != "" {
		return st.issued
	}
	return st.incoming(r)
}

func (st *state) ensure(r *safehttp.IncomingRequest, rotate bool) error {
	if !rotate && st.current(r) != "" {
		return nil
	}
	secret, err := NewSecret()
	if err != nil {
		return safehttp.Errorf("%w", err)
	}
	if st.cfg.UseSession {
		s := r.Session()
		if s == nil {
			return safehttp.Errorf("csrf.useSession enabled, but the request has no session")
		}
		s.Set(st.cfg.SessionName, secret)
	} else {
		opts := st.cfg.cookieOptions(r)
		for _, name := range st.cfg.CookieName {
			if err := r.Cookies().Set(name, secret, opts); err != nil {
				return safehttp.Errorf("setting csrf cookie %q: %w", name, err)
			}
		}
	}
	cause := "new"
	if rotate {
		cause = "rotate"
	}
	r.Metrics().ObserveSecretIssued(cause)
	st.issued = secret
	return nil
}

func (st *state) rotate(r *safehttp.IncomingRequest) error {
	if st.issued != "" || st.incoming(r) == "" {
		return nil
	}
	return st.ensure(r, true)
}

// Token returns a fresh token for the current secret of r, or "" if r has
// no secret or was not served by the interceptor. Templates embed it in
// forms; clients send it back in the query, body or header.
func Token(r *safehttp.IncomingRequest) string {
	st := lookup(r)
	if st == nil {
		return ""
	}
	secret := st.current(r)
	if secret == "" {
		return ""
	}
	tok, err := NewToken(secret)
	if err != nil {
		log := r.Logger()
		log.Error().Err(err).Msg("creating csrf token")
		return ""
	}
	return tok
}

// TokenFromContext is like Token for handlers holding only the request
// context.
func TokenFromContext(ctx context.Context) string {
	r := safehttp.RequestFromContext(ctx)
	if r == nil {
		return ""
	}
	return Token(r)
}

// EnsureSecret makes sure r has a secret, issuing one if it has none or if
// rotate is set.
func EnsureSecret(r *safehttp.IncomingRequest, rotate bool) error {
	st := lookup(r)
	if st == nil {
		return safehttp.Errorf("csrf interceptor is not installed")
	}
	return st.ensure(r, rotate)
}

// RotateSecret replaces the secret of r with a new one. It does nothing if
// r has no secret yet or a secret was already issued during this request.
// Call it when the user logs in.
func RotateSecret(r *safehttp.IncomingRequest) error {
	st := lookup(r)
	if st == nil {
		return safehttp.Errorf("csrf interceptor is not installed")
	}
	return st.rotate(r)
}

// Assert verifies r according to the configured type, skipping requests
// ignored by the configuration. A failure is a 403 safehttp.Error carrying
// the reason.
func Assert(r *safehttp.IncomingRequest) error {
	st := lookup(r)
	if st == nil {
		return safehttp.Errorf("csrf interceptor is not installed")
	}
	if st.cfg.Gate.Ignores(r) {
		return nil
	}
	return st.assert(r)
}

func (st *state) reject(r *safehttp.IncomingRequest, reason string) error {
	r.Metrics().ObserveCSRFFailure(string(st.cfg.Type), reason)
	return safehttp.NewError(http.StatusForbidden, reason)
}
