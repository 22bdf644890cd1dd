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

package safehttptest

import (
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/google/go-websecurity/safehttp"
)

// Serve runs req through a Pipeline made of interceptors around h and
// returns the recorded response. It panics if the Pipeline cannot be built.
func Serve(interceptors []safehttp.Interceptor, h http.Handler, req *http.Request, opts ...safehttp.Option) *httptest.ResponseRecorder {
	p, err := safehttp.NewPipeline(interceptors, opts...)
	if err != nil {
		panic(err)
	}
	rec := httptest.NewRecorder()
	p.Wrap(h).ServeHTTP(rec, req)
	return rec
}

// OKHandler answers 200 with the body "OK".
var OKHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "OK")
})

// Capture returns a handler calling fn with the IncomingRequest of the
// flight before answering 200 "OK".
func Capture(fn func(r *safehttp.IncomingRequest)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(safehttp.RequestFromContext(r.Context()))
		io.WriteString(w, "OK")
	})
}

// StatusHandler answers with the given status code and no body.
func StatusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

// Cookies returns the cookies set on rec, keyed by name. Later cookies with
// the same name win.
func Cookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}
