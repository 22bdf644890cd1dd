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
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-websecurity/safehttp"
)

// Type selects how requests are verified.
type Type string

const (
	// TypeCToken verifies a token derived from the secret.
	TypeCToken Type = "ctoken"
	// TypeReferer verifies the Referer or Origin header.
	TypeReferer Type = "referer"
	// TypeAll requires both checks to pass.
	TypeAll Type = "all"
	// TypeAny requires one of the checks to pass.
	TypeAny Type = "any"
)

func (t Type) usesSecret() bool {
	return t == TypeCToken || t == TypeAll || t == TypeAny
}

// SupportedRequest selects the requests that are verified: those whose path
// matches Path and whose method is one of Methods.
type SupportedRequest struct {
	Path    safehttp.Regexp `yaml:"path"`
	Methods []string        `yaml:"methods"`
}

// Config configures the interceptor.
type Config struct {
	safehttp.Gate `yaml:",inline"`

	Enable bool `yaml:"enable"`
	Type   Type `yaml:"type"`
	// IgnoreJSON skips requests declaring a JSON body.
	//
	// Deprecated: browsers can send cross-site JSON bodies.
	IgnoreJSON bool `yaml:"ignoreJSON"`

	// CookieName lists the cookies holding the secret. All of them are
	// written, the first non-empty one is read.
	CookieName  safehttp.Names `yaml:"cookieName"`
	SessionName string         `yaml:"sessionName"`
	UseSession  bool           `yaml:"useSession"`

	// The token is looked up in the query, then in the body, then in the
	// header.
	QueryName  safehttp.Names `yaml:"queryName"`
	BodyName   safehttp.Names `yaml:"bodyName"`
	HeaderName string         `yaml:"headerName"`

	RotateWhenInvalid bool `yaml:"rotateWhenInvalid"`

	// CookieDomain is the Domain attribute of the secret cookies.
	// CookieDomainFunc, when set, takes precedence.
	CookieDomain     string                                   `yaml:"cookieDomain"`
	CookieDomainFunc func(r *safehttp.IncomingRequest) string `yaml:"-"`
	CookieOptions    safehttp.CookieOptions                   `yaml:"cookieOptions"`

	SupportedRequests []SupportedRequest `yaml:"supportedRequests"`
	// RefererWhiteList lists the domains trusted by the referer check, on
	// top of the host of the request itself.
	RefererWhiteList []string `yaml:"refererWhiteList"`
}

// DefaultConfig returns the default configuration: ctoken verification of
// every POST, PATCH, DELETE, PUT and CONNECT request.
func DefaultConfig() Config {
	return Config{
		Enable:      true,
		Type:        TypeCToken,
		CookieName:  safehttp.Names{"csrfToken"},
		SessionName: "csrfToken",
		QueryName:   safehttp.Names{"_csrf"},
		BodyName:    safehttp.Names{"_csrf"},
		HeaderName:  "x-csrf-token",
		CookieOptions: safehttp.CookieOptions{
			Overwrite: true,
		},
		SupportedRequests: []SupportedRequest{{
			Path: safehttp.MustCompile(`^/`),
			Methods: []string{
				http.MethodPost,
				http.MethodPatch,
				http.MethodDelete,
				http.MethodPut,
				http.MethodConnect,
			},
		}},
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	switch c.Type {
	case TypeCToken, TypeReferer, TypeAll, TypeAny:
	default:
		return fmt.Errorf("type must be one of all, referer, ctoken, any, got %q", c.Type)
	}
	if c.UseSession {
		if c.SessionName == "" {
			return errors.New("sessionName is required with useSession")
		}
	} else if len(c.CookieName) == 0 {
		return errors.New("at least one cookieName is required")
	}
	for i, sr := range c.SupportedRequests {
		if sr.Path.Regexp == nil {
			return fmt.Errorf("supportedRequests[%d]: path is required", i)
		}
	}
	return nil
}

// supported reports whether r is subject to verification.
func (c Config) supported(r *safehttp.IncomingRequest) bool {
	for _, sr := range c.SupportedRequests {
		if !sr.Path.MatchString(r.Path()) {
			continue
		}
		for _, m := range sr.Methods {
			if m == r.Method() {
				return true
			}
		}
	}
	return false
}

func (c Config) cookieOptions(r *safehttp.IncomingRequest) safehttp.CookieOptions {
	opts := c.CookieOptions
	if opts.Domain != "" {
		return opts
	}
	if c.CookieDomainFunc != nil {
		opts.Domain = c.CookieDomainFunc(r)
	} else {
		opts.Domain = c.CookieDomain
	}
	return opts
}
