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

package securities

import (
	"errors"
	"fmt"

	"github.com/google/go-websecurity/safehttp"
	"github.com/google/go-websecurity/safehttp/plugins/csp"
	"github.com/google/go-websecurity/safehttp/plugins/csrf"
	"github.com/google/go-websecurity/safehttp/plugins/dta"
	"github.com/google/go-websecurity/safehttp/plugins/framing"
	"github.com/google/go-websecurity/safehttp/plugins/hsts"
	"github.com/google/go-websecurity/safehttp/plugins/methodnoallow"
	"github.com/google/go-websecurity/safehttp/plugins/referrerpolicy"
	"github.com/google/go-websecurity/safehttp/plugins/staticheaders"
	"github.com/google/go-websecurity/sanitize"
	"github.com/google/go-websecurity/ssrf"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid security config")

// Middleware names, as used in DefaultMiddleware.
const (
	CSRF           = "csrf"
	HSTS           = "hsts"
	MethodNoAllow  = "methodnoallow"
	NoOpen         = "noopen"
	NoSniff        = "nosniff"
	CSP            = "csp"
	XSSProtection  = "xssProtection"
	XFrame         = "xframe"
	DTA            = "dta"
	ReferrerPolicy = "referrerPolicy"
)

// DefaultMiddleware is the default composition order.
var DefaultMiddleware = safehttp.Names{CSRF, HSTS, MethodNoAllow, NoOpen, NoSniff, CSP, XSSProtection, XFrame, DTA}

// HelperConfig configures the output helpers.
type HelperConfig struct {
	SHTML sanitize.SHTMLConfig `yaml:"shtml"`
}

// Config is the whole security configuration. It is built once at boot and
// must not be changed once New has been called.
type Config struct {
	// Match and Ignore are not supported at this level and only trigger a
	// warning; set them on each middleware instead.
	safehttp.Gate `yaml:",inline"`

	Env safehttp.Env `yaml:"env"`
	// Keys sign the cookies that ask for it. The first key signs, all of
	// them verify.
	Keys []string `yaml:"keys"`
	// DomainWhiteList restricts redirects and links kept by SHTML.
	DomainWhiteList []string `yaml:"domainWhiteList"`
	// ProtocolWhiteList extends the protocols accepted by SURL.
	ProtocolWhiteList []string `yaml:"protocolWhiteList"`
	// DefaultMiddleware lists the middlewares to compose, in order.
	DefaultMiddleware safehttp.Names `yaml:"defaultMiddleware"`

	CSRF           csrf.Config             `yaml:"csrf"`
	XFrame         framing.Config          `yaml:"xframe"`
	HSTS           hsts.Config             `yaml:"hsts"`
	MethodNoAllow  methodnoallow.Config    `yaml:"methodnoallow"`
	NoOpen         staticheaders.Config    `yaml:"noopen"`
	NoSniff        staticheaders.Config    `yaml:"nosniff"`
	XSSProtection  staticheaders.XSSConfig `yaml:"xssProtection"`
	CSP            csp.Config              `yaml:"csp"`
	ReferrerPolicy referrerpolicy.Config   `yaml:"referrerPolicy"`
	DTA            dta.Config              `yaml:"dta"`
	SSRF           ssrf.Config             `yaml:"ssrf"`
	Helper         HelperConfig            `yaml:"helper"`

	// shorthands lists the middlewares configured as a bare boolean.
	shorthands []string
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DefaultMiddleware: append(safehttp.Names(nil), DefaultMiddleware...),
		CSRF:              csrf.DefaultConfig(),
		XFrame:            framing.DefaultConfig(),
		HSTS:              hsts.DefaultConfig(),
		MethodNoAllow:     methodnoallow.DefaultConfig(),
		NoOpen:            staticheaders.DefaultConfig(),
		NoSniff:           staticheaders.DefaultConfig(),
		XSSProtection:     staticheaders.DefaultXSSConfig(),
		CSP:               csp.DefaultConfig(),
		ReferrerPolicy:    referrerpolicy.DefaultConfig(),
		DTA:               dta.DefaultConfig(),
	}
}

// Validate reports the first configuration error found, wrapped in
// ErrInvalidConfig.
func (c Config) Validate() error {
	seen := map[string]bool{}
	for _, n := range c.DefaultMiddleware {
		if _, ok := features[n]; !ok {
			return fmt.Errorf("%w: defaultMiddleware: unknown middleware %q", ErrInvalidConfig, n)
		}
		if seen[n] {
			return fmt.Errorf("%w: defaultMiddleware: %q listed twice", ErrInvalidConfig, n)
		}
		seen[n] = true
	}
	if c.CSRF.Enable {
		if err := c.CSRF.Validate(); err != nil {
			return fmt.Errorf("%w: csrf: %v", ErrInvalidConfig, err)
		}
	}
	if err := c.HSTS.Validate(); err != nil {
		return fmt.Errorf("%w: hsts: %v", ErrInvalidConfig, err)
	}
	if err := c.XFrame.Validate(); err != nil {
		return fmt.Errorf("%w: xframe: %v", ErrInvalidConfig, err)
	}
	if c.ReferrerPolicy.Enable {
		if err := c.ReferrerPolicy.Validate(); err != nil {
			return fmt.Errorf("%w: referrerPolicy: %v", ErrInvalidConfig, err)
		}
	}
	if err := c.SSRF.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
