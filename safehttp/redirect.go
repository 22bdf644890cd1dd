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

package safehttp

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/google/go-websecurity/internal/hostmatch"
)

// Redirector issues redirects restricted to a domain whitelist.
type Redirector struct {
	// DomainWhiteList lists the hosts absolute redirect targets may point
	// to. An empty list disables the host check.
	DomainWhiteList []string
	Env             Env
	Log             zerolog.Logger
}

// SafeTarget returns the location a redirect to target should use.
//
// Paths starting with a single "/" are internal and returned as is.
// Anything that is not an absolute http(s) URL with a host becomes "/". An
// absolute URL whose host is outside a non-empty DomainWhiteList also
// becomes "/" in production, and is refused with a 500 Error elsewhere.
func (rd Redirector) SafeTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		target = "/"
	}
	if strings.HasPrefix(target, "//") {
		target = "/"
	}
	if target[0] == '/' && !strings.HasPrefix(target, "/\\") {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "/", nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "/", nil
	}
	if u.Hostname() == "" {
		return "/", nil
	}
	if len(rd.DomainWhiteList) > 0 && !hostmatch.IsSafeDomain(u.Hostname(), rd.DomainWhiteList) {
		msg := fmt.Sprintf("a security problem has been detected for url \"%s\", redirection is prohibited.", target)
		if rd.Env.IsProduction() {
			rd.Log.Warn().Str("url", target).Msg(msg)
			return "/", nil
		}
		return "", &Error{Code: http.StatusInternalServerError, Message: msg, Expose: true}
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Redirect replies with a redirect to the safe form of target. On refusal
// the error is rendered instead and returned.
func (rd Redirector) Redirect(w http.ResponseWriter, r *http.Request, target string, code int) error {
	loc, err := rd.SafeTarget(target)
	if err != nil {
		WriteError(w, rd.Log, err)
		return err
	}
	http.Redirect(w, r, loc, code)
	return nil
}

// UnsafeRedirect replies with a redirect to target without any check. Only
// use it for targets that can never be influenced by the client.
func UnsafeRedirect(w http.ResponseWriter, r *http.Request, target string, code int) {
	http.Redirect(w, r, target, code)
}

// RedirectError is returned by an interceptor to answer the request with a
// redirect instead of running the handler.
type RedirectError struct {
	Location string
	Code     int
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect (%d) to %s", e.Code, e.Location)
}
