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
	"errors"
	"net/http"
	"slices"

	"github.com/rs/zerolog"

	"github.com/google/go-websecurity/internal/metrics"
)

// Pipeline runs a fixed list of interceptors around an http.Handler.
type Pipeline struct {
	interceptors []Interceptor

	env      Env
	log      zerolog.Logger
	keys     *keyring
	sessions SessionProvider
	metrics  *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	env      Env
	log      zerolog.Logger
	keys     []string
	sessions SessionProvider
	metrics  *metrics.Metrics
}

// WithEnv sets the environment of the Pipeline.
func WithEnv(env Env) Option {
	return func(o *pipelineOptions) { o.env = env }
}

// WithLogger sets the logger handed to interceptors through the request.
func WithLogger(l zerolog.Logger) Option {
	return func(o *pipelineOptions) { o.log = l }
}

// WithCookieKeys sets the secrets signed cookies are signed with. The first
// key signs, all keys verify.
func WithCookieKeys(keys ...string) Option {
	return func(o *pipelineOptions) { o.keys = keys }
}

// WithSessions sets the session provider.
func WithSessions(p SessionProvider) Option {
	return func(o *pipelineOptions) { o.sessions = p }
}

// WithMetrics sets the collectors rejections are reported to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *pipelineOptions) { o.metrics = m }
}

// NewPipeline creates a Pipeline running interceptors in the given order.
func NewPipeline(interceptors []Interceptor, opts ...Option) (*Pipeline, error) {
	o := pipelineOptions{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	keys, err := newKeyring(o.keys)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		interceptors: append([]Interceptor(nil), interceptors...),
		env:          o.env,
		log:          o.log,
		keys:         keys,
		sessions:     o.sessions,
		metrics:      o.metrics,
	}, nil
}

// Len returns the number of interceptors.
func (p *Pipeline) Len() int {
	return len(p.interceptors)
}

// HasSessions reports whether the Pipeline was given a session provider.
func (p *Pipeline) HasSessions() bool {
	return p.sessions != nil
}

// Wrap returns a handler running the interceptors around next. It has the
// signature expected by chi's Router.Use.
func (p *Pipeline) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		p.serve(next, rw, req)
	})
}

// A single request "flight".
type flight struct {
	p   *Pipeline
	rw  http.ResponseWriter
	req *IncomingRequest

	header Header
	code   int
	// before holds the headers as the Before phases left them.
	before http.Header

	committed bool
	failed    bool
}

func (p *Pipeline) serve(next http.Handler, rw http.ResponseWriter, req *http.Request) {
	f := &flight{
		p:      p,
		rw:     rw,
		header: newHeader(rw.Header()),
	}
	f.req = newIncomingRequest(req, rw, p)

	// The net/http package handles all panics. We just make sure to clear
	// all the headers and cookies.
	defer func() {
		if r := recover(); r != nil {
			f.header.clear()
			panic(r)
		}
	}()

	for _, it := range p.interceptors {
		if err := it.Before(f, f.req); err != nil {
			f.committed = true
			f.failed = true
			f.reject(it, err)
			return
		}
	}

	f.before = rw.Header().Clone()
	w := &responseWriter{f: f}
	next.ServeHTTP(w, f.req.Request())
	if !f.committed {
		w.WriteHeader(http.StatusOK)
	}
}

// Header implements ResponseWriter.
func (f *flight) Header() Header {
	return f.header
}

// Status implements ResponseWriter.
func (f *flight) Status() int {
	return f.code
}

// commit runs the Commit phases of all the interceptors, in reverse order,
// and then writes the status line.
func (f *flight) commit(code int) {
	f.committed = true
	f.code = code
	fromHandler := f.handlerHeaders()
	for i := len(f.p.interceptors) - 1; i >= 0; i-- {
		it := f.p.interceptors[i]
		if err := it.Commit(f, f.req); err != nil {
			f.failed = true
			// Drop what the handler set for its own response.
			h := f.rw.Header()
			for k, v := range fromHandler {
				if slices.Equal(h[k], v) {
					delete(h, k)
				}
			}
			f.reject(it, err)
			return
		}
	}
	f.rw.WriteHeader(code)
}

// handlerHeaders returns the headers the handler added after the Before
// phases.
func (f *flight) handlerHeaders() http.Header {
	added := http.Header{}
	for k, v := range f.rw.Header() {
		if _, ok := f.before[k]; !ok {
			added[k] = slices.Clone(v)
		}
	}
	return added
}

func (f *flight) reject(it Interceptor, err error) {
	var re *RedirectError
	if errors.As(err, &re) {
		http.Redirect(f.rw, f.req.Request(), re.Location, re.Code)
		return
	}
	name := "unknown"
	if n, ok := it.(Named); ok {
		name = n.Name()
	}
	code := StatusCode(err)
	f.p.metrics.ObserveRejection(name, code)
	f.p.log.Debug().Str("middleware", name).Int("status", code).Str("path", f.req.Path()).Err(err).Msg("request rejected")
	WriteError(f.rw, f.p.log, err)
}

// responseWriter is the http.ResponseWriter handed to the wrapped handler.
// The first WriteHeader or Write triggers the commit phase.
type responseWriter struct {
	f *flight
}

func (w *responseWriter) Header() http.Header {
	return w.f.rw.Header()
}

func (w *responseWriter) WriteHeader(code int) {
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		w.f.rw.WriteHeader(code)
		return
	}
	if w.f.committed {
		if !w.f.failed {
			w.f.rw.WriteHeader(code)
		}
		return
	}
	w.f.commit(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.f.committed {
		w.WriteHeader(http.StatusOK)
	}
	if w.f.failed {
		return len(b), nil
	}
	return w.f.rw.Write(b)
}

// Flush implements http.Flusher.
func (w *responseWriter) Flush() {
	if !w.f.committed {
		w.WriteHeader(http.StatusOK)
	}
	if fl, ok := w.f.rw.(http.Flusher); ok && !w.f.failed {
		fl.Flush()
	}
}

// Unwrap returns the underlying http.ResponseWriter, for use with
// http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.f.rw
}
