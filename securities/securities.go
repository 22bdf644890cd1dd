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

// Package securities composes the security middlewares into a single
// net/http middleware from one Config.
//
// Typical use:
//
//	cfg, err := securities.Load("security.yaml")
//	...
//	sec, err := securities.New(*cfg, securities.WithLogger(log))
//	...
//	router.Use(sec.Wrap)
package securities

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/google/go-websecurity/internal/logger"
	"github.com/google/go-websecurity/internal/metrics"
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

// feature ties a middleware name to its part of the Config.
type feature struct {
	gate    func(c *Config) *safehttp.Gate
	enabled func(c *Config) bool
	build   func(c *Config) (safehttp.Interceptor, error)
}

var features = map[string]feature{
	CSRF: {
		gate:    func(c *Config) *safehttp.Gate { return &c.CSRF.Gate },
		enabled: func(c *Config) bool { return c.CSRF.Enable },
		build: func(c *Config) (safehttp.Interceptor, error) {
			return csrf.New(c.CSRF)
		},
	},
	HSTS: {
		gate:    func(c *Config) *safehttp.Gate { return &c.HSTS.Gate },
		enabled: func(c *Config) bool { return c.HSTS.Enable },
		build: func(c *Config) (safehttp.Interceptor, error) {
			return hsts.New(c.HSTS)
		},
	},
	MethodNoAllow: {
		gate:    func(c *Config) *safehttp.Gate { return &c.MethodNoAllow.Gate },
		enabled: func(c *Config) bool { return c.MethodNoAllow.Enable },
		build: func(c *Config) (safehttp.Interceptor, error) {
			return methodnoallow.Interceptor{Config: c.MethodNoAllow}, nil
		},
	},
	NoOpen: {
		gate:    func(c *Config) *safehttp.Gate { return &c.NoOpen.Gate },
		enabled: func(c *Config) bool { return c.NoOpen.Enable },
		build: func(c *Config) (safehttp.Interceptor, error) {
			return staticheaders.NoOpen{Config: c.NoOpen}, nil
		},
	},
	NoSniff: {
		gate:    func(c *Config) *safehttp.Gate { return &c.NoSniff.Gate },
		enabled: func(c *Config) bool { return c.NoSniff.Enable },
		build: func(c *Config) (safehttp.Interceptor, error) {
			return staticheaders.NoSniff{Config: c.NoSniff}, nil
		},
	},
	CSP: {
		gate:    func(c *Config) *safehttp.Gate { return &c.CSP.Gate },
		enabled: func(c *Config) bool { return c.CSP.Enable },
		build: func(c *Config) (safehttp.Interceptor, error) {
			return csp.New(c.CSP), nil
		},
	},
	XSSProtection: {
		gate:    func(c *Config) *safehttp.Gate { return &c.XSSProtection.Gate },
		enabled: func(c *Config) bool { return c.XSSProtection.Enable },
		build: func(c *Config) (safehttp.Interceptor, error) {
			return staticheaders.XSSProtection{Config: c.XSSProtection}, nil
		},
	},
	XFrame: {
		gate:    func(c *Config) *safehttp.Gate { return &c.XFrame.Gate },
		enabled: func(c *Config) bool { return c.XFrame.Enable },
		build: func(c *Config) (safehttp.Interceptor, error) {
			return framing.New(c.XFrame)
		},
	},
	DTA: {
		gate:    func(c *Config) *safehttp.Gate { return &c.DTA.Gate },
		enabled: func(c *Config) bool { return c.DTA.Enable },
		build: func(c *Config) (safehttp.Interceptor, error) {
			return dta.Interceptor{Config: c.DTA}, nil
		},
	},
	ReferrerPolicy: {
		gate:    func(c *Config) *safehttp.Gate { return &c.ReferrerPolicy.Gate },
		enabled: func(c *Config) bool { return c.ReferrerPolicy.Enable },
		build: func(c *Config) (safehttp.Interceptor, error) {
			return referrerpolicy.New(c.ReferrerPolicy)
		},
	},
}

// Option configures New.
type Option func(*options)

type options struct {
	log      zerolog.Logger
	reg      prometheus.Registerer
	sessions safehttp.SessionProvider
	extra    []safehttp.Interceptor
}

// WithLogger sets the logger of the composed middlewares.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRegisterer registers the security metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// WithSessions provides the sessions csrf.useSession stores secrets in.
func WithSessions(p safehttp.SessionProvider) Option {
	return func(o *options) { o.sessions = p }
}

// WithInterceptors appends application interceptors, such as access
// control, after the security middlewares. They share the request state of
// the security middlewares.
func WithInterceptors(its ...safehttp.Interceptor) Option {
	return func(o *options) { o.extra = append(o.extra, its...) }
}

// Security is the composed security layer.
type Security struct {
	pipeline    *safehttp.Pipeline
	middlewares []string
	redirector  safehttp.Redirector
	helper      *sanitize.Helper
	guard       *ssrf.Guard
}

// New validates cfg and composes the enabled middlewares listed in
// cfg.DefaultMiddleware, in that order.
func New(cfg Config, opts ...Option) (*Security, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.Component(o.log, "securities")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, n := range cfg.shorthands {
		log.Warn().Msgf("Please use `%s: {enable: false}` instead of `%s: false`", n, n)
	}
	if len(cfg.Match) > 0 || len(cfg.Ignore) > 0 {
		log.Warn().Msg("Please set `match` or `ignore` on sub config")
	}

	var interceptors []safehttp.Interceptor
	var names []string
	for _, n := range cfg.DefaultMiddleware {
		f := features[n]
		if !f.enabled(&cfg) {
			continue
		}
		if n == CSRF {
			if cfg.CSRF.UseSession && o.sessions == nil {
				return nil, fmt.Errorf("%w: csrf.useSession enabled, but session plugin is disabled", ErrInvalidConfig)
			}
			if cfg.CSRF.IgnoreJSON {
				log.Warn().Msg("`csrf.ignoreJSON` is not safe now, please disable it")
			}
		}
		if g := f.gate(&cfg); len(g.Match) > 0 && len(g.Ignore) > 0 {
			log.Warn().Str("middleware", n).Msg("`match` and `ignore` are both set, using `match`")
			g.Ignore = nil
		}
		if n == XFrame && len(cfg.XFrame.Ignore) == 0 && len(cfg.XFrame.BlackURLs) > 0 {
			log.Warn().Msg("Please use `xframe.ignore` instead, `xframe.blackUrls` will be removed very soon")
		}

		it, err := f.build(&cfg)
		if err != nil {
			return nil, err
		}
		interceptors = append(interceptors, it)
		names = append(names, n)
		log.Info().Msgf("use %s middleware", n)
	}
	log.Info().Msgf("compose %d middlewares into one security middleware", len(interceptors))
	interceptors = append(interceptors, o.extra...)

	m := metrics.New(o.reg)
	popts := []safehttp.Option{
		safehttp.WithEnv(cfg.Env),
		safehttp.WithLogger(o.log),
		safehttp.WithCookieKeys(cfg.Keys...),
		safehttp.WithMetrics(m),
	}
	if o.sessions != nil {
		popts = append(popts, safehttp.WithSessions(o.sessions))
	}
	p, err := safehttp.NewPipeline(interceptors, popts...)
	if err != nil {
		return nil, err
	}

	guard, err := ssrf.New(cfg.SSRF, ssrf.WithLogger(logger.Component(o.log, "ssrf")), ssrf.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	return &Security{
		pipeline:    p,
		middlewares: names,
		redirector:  safehttp.Redirector{DomainWhiteList: cfg.DomainWhiteList, Env: cfg.Env, Log: o.log},
		helper: sanitize.New(sanitize.Config{
			Env:               cfg.Env,
			DomainWhiteList:   cfg.DomainWhiteList,
			ProtocolWhiteList: cfg.ProtocolWhiteList,
			SHTML:             cfg.Helper.SHTML,
		}, sanitize.WithLogger(o.log)),
		guard: guard,
	}, nil
}

// Wrap returns next behind the composed middlewares.
func (s *Security) Wrap(next http.Handler) http.Handler {
	return s.pipeline.Wrap(next)
}

// Middlewares returns the names of the composed middlewares, in order.
func (s *Security) Middlewares() []string {
	return append([]string(nil), s.middlewares...)
}

// Redirect answers r with a redirect to target, restricted to the domain
// whitelist.
func (s *Security) Redirect(w http.ResponseWriter, r *http.Request, target string, code int) error {
	return s.redirector.Redirect(w, r, target, code)
}

// Redirector returns the redirector Redirect uses.
func (s *Security) Redirector() safehttp.Redirector {
	return s.redirector
}

// Helper returns the output helpers bound to the whitelists.
func (s *Security) Helper() *sanitize.Helper {
	return s.helper
}

// HTTPClient returns the SSRF guarded client.
func (s *Security) HTTPClient() *http.Client {
	return s.guard.Client()
}

// SafeCurl sends req through the SSRF guard.
func (s *Security) SafeCurl(req *http.Request) (*http.Response, error) {
	return s.guard.Do(req)
}
