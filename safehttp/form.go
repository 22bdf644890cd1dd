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
	"fmt"
	"net/url"
	"strconv"
)

// Form gives typed access to the body fields of a request: the same fields
// BodyValue looks tokens up in. Getters return the default value when the
// field is absent; a conversion failure also records an error, reported by
// Err.
type Form struct {
	values url.Values
	err    error
}

// Form returns the parsed body fields of r. A body that cannot be parsed
// yields an empty Form whose Err reports why.
func (r *IncomingRequest) Form() *Form {
	r.BodyValue("")
	return &Form{values: r.body, err: r.bodyError}
}

// String returns the first value of param.
func (f *Form) String(param, defaultValue string) string {
	vals, ok := f.values[param]
	if !ok || len(vals) == 0 {
		return defaultValue
	}
	return vals[0]
}

// Strings returns all the values of param.
func (f *Form) Strings(param string) []string {
	return append([]string(nil), f.values[param]...)
}

// Int64 returns the first value of param as an int64.
func (f *Form) Int64(param string, defaultValue int64) int64 {
	v, ok := f.first(param)
	if !ok {
		return defaultValue
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		f.err = err
		return defaultValue
	}
	return n
}

// Uint64 returns the first value of param as a uint64.
func (f *Form) Uint64(param string, defaultValue uint64) uint64 {
	v, ok := f.first(param)
	if !ok {
		return defaultValue
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		f.err = err
		return defaultValue
	}
	return n
}

// Float64 returns the first value of param as a float64.
func (f *Form) Float64(param string, defaultValue float64) float64 {
	v, ok := f.first(param)
	if !ok {
		return defaultValue
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		f.err = err
		return defaultValue
	}
	return n
}

// Bool returns the first value of param, which must be "true" or "false".
func (f *Form) Bool(param string, defaultValue bool) bool {
	v, ok := f.first(param)
	if !ok {
		return defaultValue
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	f.err = fmt.Errorf("values of form parameter %q not a boolean", param)
	return defaultValue
}

// Err returns the last error that occurred while parsing the body or
// converting a value.
func (f *Form) Err() error {
	return f.err
}

func (f *Form) first(param string) (string, bool) {
	vals := f.values[param]
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
