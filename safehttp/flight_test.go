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

package safehttp_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/go-cmp/cmp"

	"github.com/google/go-websecurity/safehttp"
	"github.com/google/go-websecurity/safehttp/plugins/csrf"
	"github.com/google/go-websecurity/safehttp/safehttptest"
)

type recordingInterceptor struct {
	name      string
	log       *[]string
	beforeErr error
	commitErr error
	status    *int
}

func (it recordingInterceptor) Before(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	*it.log = append(*it.log, "before "+it.name)
	return it.beforeErr
}

func (it recordingInterceptor) Commit(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	*it.log = append(*it.log, "commit "+it.name)
	if it.status != nil {
		*it.status = w.Status()
	}
	w.Header().Set("X-"+it.name, "done")
	return it.commitErr
}

func (it recordingInterceptor) Name() string { return it.name }

func TestPipelineOrder(t *testing.T) {
	var log []string
	its := []safehttp.Interceptor{
		recordingInterceptor{name: "A", log: &log},
		recordingInterceptor{name: "B", log: &log},
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log = append(log, "handler")
		io.WriteString(w, "hello")
		log = append(log, "written")
	})

	rec := safehttptest.Serve(its, h, safehttptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"before A", "before B", "handler", "commit B", "commit A", "written"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
	if got, want := rec.Code, http.StatusOK; got != want {
		t.Errorf("rec.Code got: %v want: %v", got, want)
	}
	if got, want := rec.Body.String(), "hello"; got != want {
		t.Errorf("rec.Body got: %q want: %q", got, want)
	}
	if got := rec.Header().Get("X-A"); got != "done" {
		t.Errorf(`rec.Header().Get("X-A") got: %q want: "done"`, got)
	}
}

func TestBeforeErrorStopsFlight(t *testing.T) {
	var log []string
	its := []safehttp.Interceptor{
		recordingInterceptor{name: "A", log: &log, beforeErr: safehttp.NewError(http.StatusForbidden, "invalid csrf token")},
		recordingInterceptor{name: "B", log: &log},
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler called")
	})

	rec := safehttptest.Serve(its, h, safehttptest.NewRequest(http.MethodPost, "/", nil))

	if diff := cmp.Diff([]string{"before A"}, log); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
	if got, want := rec.Code, http.StatusForbidden; got != want {
		t.Errorf("rec.Code got: %v want: %v", got, want)
	}
	if got, want := rec.Body.String(), "invalid csrf token\n"; got != want {
		t.Errorf("rec.Body got: %q want: %q", got, want)
	}
	if got := rec.Header().Get("X-A"); got != "" {
		t.Errorf(`rec.Header().Get("X-A") got: %q want: ""`, got)
	}
}

type cookieInterceptor struct {
	safehttp.NopCommit
}

func (cookieInterceptor) Before(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	if err := r.Cookies().Set("csrfToken", "fresh", safehttp.CookieOptions{}); err != nil {
		return err
	}
	return safehttp.NewError(http.StatusForbidden, "nope")
}

func TestBeforeErrorKeepsCookies(t *testing.T) {
	rec := safehttptest.Serve([]safehttp.Interceptor{cookieInterceptor{}}, safehttptest.OKHandler, safehttptest.NewRequest(http.MethodPost, "/", nil))

	if got, want := rec.Code, http.StatusForbidden; got != want {
		t.Errorf("rec.Code got: %v want: %v", got, want)
	}
	c, ok := safehttptest.Cookies(rec)["csrfToken"]
	if !ok {
		t.Fatal("csrfToken cookie not set on the error response")
	}
	if c.Value != "fresh" {
		t.Errorf("csrfToken got: %q want: %q", c.Value, "fresh")
	}
}

func TestCommitSeesStatus(t *testing.T) {
	var log []string
	var status int
	its := []safehttp.Interceptor{recordingInterceptor{name: "A", log: &log, status: &status}}

	rec := safehttptest.Serve(its, safehttptest.StatusHandler(http.StatusFound), safehttptest.NewRequest(http.MethodGet, "/", nil))

	if status != http.StatusFound {
		t.Errorf("w.Status() in Commit got: %v want: %v", status, http.StatusFound)
	}
	if rec.Code != http.StatusFound {
		t.Errorf("rec.Code got: %v want: %v", rec.Code, http.StatusFound)
	}
}

func TestImplicitOK(t *testing.T) {
	var log []string
	var status int
	its := []safehttp.Interceptor{recordingInterceptor{name: "A", log: &log, status: &status}}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := safehttptest.Serve(its, h, safehttptest.NewRequest(http.MethodGet, "/", nil))

	if diff := cmp.Diff([]string{"before A", "commit A"}, log); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
	if status != http.StatusOK || rec.Code != http.StatusOK {
		t.Errorf("status got: %v, %v want: 200", status, rec.Code)
	}
}

func TestCommitErrorReplacesResponse(t *testing.T) {
	var log []string
	its := []safehttp.Interceptor{
		recordingInterceptor{name: "A", log: &log},
		recordingInterceptor{name: "B", log: &log, commitErr: errors.New("boom")},
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("X-App", "1")
		io.WriteString(w, "secret body")
	})

	rec := safehttptest.Serve(its, h, safehttptest.NewRequest(http.MethodGet, "/", nil))

	if diff := cmp.Diff([]string{"before A", "before B", "commit B"}, log); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
	if got, want := rec.Code, http.StatusInternalServerError; got != want {
		t.Errorf("rec.Code got: %v want: %v", got, want)
	}
	if strings.Contains(rec.Body.String(), "secret body") {
		t.Errorf("rec.Body got: %q, want handler body discarded", rec.Body.String())
	}
	if got := rec.Header().Get("X-App"); got != "" {
		t.Errorf(`rec.Header().Get("X-App") got: %q want: ""`, got)
	}
	if got := rec.Header().Get("Content-Type"); got == "text/csv" {
		t.Errorf("Content-Type got: %q, want the handler's value dropped", got)
	}
	if got := rec.Header().Get("X-B"); got != "done" {
		t.Errorf(`rec.Header().Get("X-B") got: %q want: "done"`, got)
	}
}

func TestPanicClearsHeaders(t *testing.T) {
	p, err := safehttp.NewPipeline([]safehttp.Interceptor{cookieCommitInterceptor{}})
	if err != nil {
		t.Fatalf("safehttp.NewPipeline() got err: %v", err)
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler", "1")
		panic("handler")
	})
	rec := httptest.NewRecorder()

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic to propagate")
			}
		}()
		p.Wrap(h).ServeHTTP(rec, safehttptest.NewRequest(http.MethodGet, "/", nil))
	}()

	if len(rec.Header()) != 0 {
		t.Errorf("rec.Header() got: %v want: empty", rec.Header())
	}
}

func TestPanickingPredicateIsNotARejection(t *testing.T) {
	cfg := csrf.DefaultConfig()
	cfg.Ignore = safehttp.Rules{safehttp.Func(func(*safehttp.IncomingRequest) bool {
		panic("predicate")
	})}
	it, err := csrf.New(cfg)
	if err != nil {
		t.Fatalf("csrf.New() got err: %v", err)
	}
	p, err := safehttp.NewPipeline([]safehttp.Interceptor{it})
	if err != nil {
		t.Fatalf("safehttp.NewPipeline() got err: %v", err)
	}
	called := false
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	middleware.Recoverer(p.Wrap(h)).ServeHTTP(rec, safehttptest.NewRequest(http.MethodPost, "/", nil))

	if got, want := rec.Code, http.StatusInternalServerError; got != want {
		t.Errorf("rec.Code got: %v want: %v", got, want)
	}
	if got := rec.Header().Values("Set-Cookie"); len(got) != 0 {
		t.Errorf("Set-Cookie got: %v want: none", got)
	}
	if called {
		t.Error("handler called after a panicking predicate")
	}
}

type cookieCommitInterceptor struct {
	safehttp.NopCommit
}

func (cookieCommitInterceptor) Before(w safehttp.ResponseWriter, r *safehttp.IncomingRequest) error {
	return r.Cookies().Set("a", "b", safehttp.CookieOptions{})
}

func TestRequestFromContext(t *testing.T) {
	var got *safehttp.IncomingRequest
	safehttptest.Serve(nil, safehttptest.Capture(func(r *safehttp.IncomingRequest) {
		got = r
	}), safehttptest.NewRequest(http.MethodGet, "/path", nil))

	if got == nil {
		t.Fatal("RequestFromContext() got: nil")
	}
	if got.Path() != "/path" {
		t.Errorf("Path() got: %q want: %q", got.Path(), "/path")
	}
	if n1, n2 := got.Nonce(), got.Nonce(); n1 == "" || n1 != n2 {
		t.Errorf("Nonce() got: %q then %q, want the same non-empty value", n1, n2)
	}
}
