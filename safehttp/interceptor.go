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

// Interceptor alter the processing of incoming requests.
//
// See the package documentation to understand how interceptors are run and
// what happens in case of errors during request processing.
type Interceptor interface {
	// Before runs before the IncomingRequest is sent to the handler. If an
	// error is returned, the remaining interceptors and the handler won't
	// execute and the error is rendered as the response.
	Before(w ResponseWriter, r *IncomingRequest) error

	// Commit runs before the response status line is written. If an error is
	// returned, the Commit phases of the remaining interceptors won't execute
	// and the response is replaced with an error response.
	Commit(w ResponseWriter, r *IncomingRequest) error
}

// ResponseWriter is the view of the response available to interceptors.
type ResponseWriter interface {
	// Header returns the collection of headers that will be set on the
	// response.
	Header() Header

	// Status returns the status code chosen by the handler. It is 0 during
	// the Before phase.
	Status() int
}

// Named is implemented by interceptors that report under a middleware name
// in logs and metrics.
type Named interface {
	Name() string
}

// NopCommit can be embedded by interceptors that only implement Before.
type NopCommit struct{}

// Commit does nothing.
func (NopCommit) Commit(ResponseWriter, *IncomingRequest) error { return nil }

// NopBefore can be embedded by interceptors that only implement Commit.
type NopBefore struct{}

// Before does nothing.
func (NopBefore) Before(ResponseWriter, *IncomingRequest) error { return nil }
