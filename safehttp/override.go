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

// Override registers a per-request change to the configuration of the named
// middleware. Mutators run, in registration order, on a copy of the
// middleware's configuration when it resolves it for this request, so they
// must replace slices and maps rather than modify them in place.
//
// Header middlewares resolve their configuration in the Commit phase, so
// handlers can call Override before writing the response.
func Override[C any](r *IncomingRequest, name string, fn func(*C)) {
	if r.overrides == nil {
		r.overrides = map[string][]interface{}{}
	}
	r.overrides[name] = append(r.overrides[name], fn)
}

// Resolve returns base with every override registered for name under the
// same configuration type applied.
func Resolve[C any](r *IncomingRequest, name string, base C) C {
	for _, o := range r.overrides[name] {
		if fn, ok := o.(func(*C)); ok {
			fn(&base)
		}
	}
	return base
}
