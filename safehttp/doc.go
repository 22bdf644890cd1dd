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

// Package safehttp provides the request pipeline the security middlewares
// plug into.
//
// # Interceptors
//
// Some protections must reject a request before it reaches the handler (for
// example Cross-site Request Forgery checks), others stamp headers on the
// response once the handler has decided what to answer. An Interceptor
// implements both halves: Before runs before the handler, Commit runs right
// before the response status line is written.
//
// # Life of a Request
//
// 1. [Before phase] The request is passed to all installed Interceptors, via
// their Before methods, in the order of installation on the Pipeline. The
// first Before method returning an error stops the flow: the error is
// rendered with WriteError and neither the handler nor any Commit method
// runs. Cookies queued during the Before phase are kept on the error response.
//
// 2. The request is passed to the wrapped http.Handler. Handler code can reach
// the request-scoped state (nonce, overrides, cookie jar) through
// RequestFromContext.
//
// 3. [Commit phase] When the handler first calls WriteHeader or Write, or
// returns without writing anything, Commit methods of the installed
// Interceptors are called in LIFO order (i.e. first Interceptor to be called
// in Before phase is called last in the Commit phase). Commit methods see the
// status code chosen by the handler and can set headers. An error returned by
// a Commit method replaces the response with an error response.
//
// Stack trace of the flow:
//
//	Pipeline.ServeHTTP()
//	--+ InterceptorFoo.Before()
//	--+ InterceptorBar.Before()
//	--+ Handler.ServeHTTP()
//	----+ ResponseWriter.WriteHeader()
//	------+ InterceptorBar.Commit()  // notice the inverted order
//	------+ InterceptorFoo.Commit()
//	------+ http.ResponseWriter.WriteHeader()
//
// # Panics
//
// Panics are not recovered. All response headers, including cookies, are
// cleared and the panic is propagated to net/http (or to a recovering
// middleware of the host router).
//
// # Restricting Risky APIs
//
// Some APIs are easy-to-misuse in a security sensitive context, e.g. issuing
// outbound requests without the SSRF guard or writing Set-Cookie headers by
// hand. cmd/bancheck allows you to restrict these and check for their usage as
// part of the CI/CD pipeline.
package safehttp
