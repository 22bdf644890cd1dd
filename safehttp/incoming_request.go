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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/google/go-websecurity/internal/metrics"
)

// maxBodyBytes bounds how much of a request body is buffered to look up
// body fields.
const maxBodyBytes = 10 << 20

// defaultMaxMemory is the memory limit for multipart forms, the rest is
// stored on disk.
const defaultMaxMemory = 32 << 20

type ctxKey struct{}

// IncomingRequest represents an HTTP request received by the server along
// with the state the security middlewares keep for it. It lives exactly as
// long as the request and is never shared between requests.
type IncomingRequest struct {
	req *http.Request
	// Header is the request header.
	Header http.Header

	env     Env
	log     zerolog.Logger
	cookies *CookieJar
	session Session
	metrics *metrics.Metrics

	nonce     string
	values    map[interface{}]interface{}
	overrides map[string][]interface{}

	query     url.Values
	bodyRead  bool
	body      url.Values
	bodyError error
}

func newIncomingRequest(req *http.Request, rw http.ResponseWriter, p *Pipeline) *IncomingRequest {
	ir := &IncomingRequest{
		req:     req,
		Header:  req.Header,
		env:     p.env,
		log:     p.log,
		metrics: p.metrics,
		cookies: &CookieJar{
			req:    req,
			header: newHeader(rw.Header()),
			keys:   p.keys,
		},
	}
	if p.sessions != nil {
		ir.session = p.sessions(req)
	}
	ir.req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, ir))
	ir.cookies.req = ir.req
	return ir
}

// RequestFromContext returns the IncomingRequest the Pipeline attached to
// ctx, or nil.
func RequestFromContext(ctx context.Context) *IncomingRequest {
	ir, _ := ctx.Value(ctxKey{}).(*IncomingRequest)
	return ir
}

// Request returns the underlying *http.Request. Its context carries the
// IncomingRequest.
func (r *IncomingRequest) Request() *http.Request {
	return r.req
}

// Context returns the context of the request.
func (r *IncomingRequest) Context() context.Context {
	return r.req.Context()
}

// Method returns the HTTP method of the request.
func (r *IncomingRequest) Method() string {
	return r.req.Method
}

// Host returns the host the request was sent to, including the port if
// present.
func (r *IncomingRequest) Host() string {
	return r.req.Host
}

// Path returns the path of the request URL. It is never empty.
func (r *IncomingRequest) Path() string {
	if r.req.URL.Path == "" {
		return "/"
	}
	return r.req.URL.Path
}

// URL returns the request URL.
func (r *IncomingRequest) URL() *url.URL {
	return r.req.URL
}

// Env returns the environment of the Pipeline serving the request.
func (r *IncomingRequest) Env() Env {
	return r.env
}

// Logger returns the logger of the Pipeline serving the request.
func (r *IncomingRequest) Logger() zerolog.Logger {
	return r.log
}

// Metrics returns the collectors of the Pipeline serving the request. It may
// be nil, which records nothing.
func (r *IncomingRequest) Metrics() *metrics.Metrics {
	return r.metrics
}

// Cookies returns the cookie jar bound to the request and its response.
func (r *IncomingRequest) Cookies() *CookieJar {
	return r.cookies
}

// Session returns the session of the request, or nil if the Pipeline has
// no session provider or the provider returned none.
func (r *IncomingRequest) Session() Session {
	return r.session
}

// Value returns the request-scoped value stored under key.
func (r *IncomingRequest) Value(key interface{}) interface{} {
	return r.values[key]
}

// SetValue stores a request-scoped value under key. Use an unexported key
// type to avoid collisions, as with context.WithValue.
func (r *IncomingRequest) SetValue(key, value interface{}) {
	if r.values == nil {
		r.values = map[interface{}]interface{}{}
	}
	r.values[key] = value
}

// Nonce returns the nonce of this request, generating it on first use. All
// callers within one request get the same value.
func (r *IncomingRequest) Nonce() string {
	if r.nonce == "" {
		r.nonce = generateNonce()
	}
	return r.nonce
}

// QueryValue returns the first value of the named query parameter.
func (r *IncomingRequest) QueryValue(name string) string {
	if r.query == nil {
		r.query = r.req.URL.Query()
	}
	return r.query.Get(name)
}

// BodyValue returns the first value of the named body field. Bodies encoded
// as application/x-www-form-urlencoded, multipart/form-data and JSON objects
// are understood. The body is restored so that the handler can read it
// again; multipart bodies remain available through
// http.Request.MultipartForm.
func (r *IncomingRequest) BodyValue(name string) string {
	if !r.bodyRead {
		r.bodyRead = true
		r.body, r.bodyError = r.parseBody()
		if r.bodyError != nil {
			r.log.Debug().Err(r.bodyError).Msg("parsing request body")
		}
	}
	return r.body.Get(name)
}

// IsJSON reports whether the request declares a JSON body.
func (r *IncomingRequest) IsJSON() bool {
	mt, _, err := mime.ParseMediaType(r.req.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func (r *IncomingRequest) parseBody() (url.Values, error) {
	if r.req.Body == nil || r.req.Body == http.NoBody {
		return nil, nil
	}
	mt, _, err := mime.ParseMediaType(r.req.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil
	}
	switch {
	case mt == "multipart/form-data":
		if err := r.req.ParseMultipartForm(defaultMaxMemory); err != nil {
			return nil, err
		}
		return url.Values(r.req.MultipartForm.Value), nil
	case mt == "application/x-www-form-urlencoded":
		b, err := r.bufferBody()
		if err != nil {
			return nil, err
		}
		return url.ParseQuery(string(b))
	case r.IsJSON():
		b, err := r.bufferBody()
		if err != nil || len(bytes.TrimSpace(b)) == 0 {
			return nil, err
		}
		var obj map[string]interface{}
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil, err
		}
		v := url.Values{}
		for k, f := range obj {
			switch f := f.(type) {
			case string:
				v.Add(k, f)
			case []interface{}:
				for _, e := range f {
					if s, ok := e.(string); ok {
						v.Add(k, s)
					}
				}
			}
		}
		return v, nil
	}
	return nil, nil
}

// ErrBodyTooLarge is reported by Form for bodies longer than the
// inspection limit. The handler still receives the whole body.
var ErrBodyTooLarge = errors.New("request body too large to inspect")

type replayBody struct {
	io.Reader
	io.Closer
}

// bufferBody reads up to maxBodyBytes of the body and puts a reader yielding
// the complete original body back in place.
func (r *IncomingRequest) bufferBody() ([]byte, error) {
	orig := r.req.Body
	b, err := io.ReadAll(io.LimitReader(orig, maxBodyBytes+1))
	r.req.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(b), orig), Closer: orig}
	if err != nil {
		return nil, err
	}
	if len(b) > maxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return b, nil
}
