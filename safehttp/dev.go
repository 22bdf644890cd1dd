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

import "strings"

// Env names the deployment environment a pipeline runs in. It only changes
// diagnostics (extra warnings in local development) and the failure mode of
// a few protections, never whether a protection runs.
type Env string

// Well-known environments.
const (
	EnvLocal      Env = "local"
	EnvUnittest   Env = "unittest"
	EnvProduction Env = "prod"
)

// IsLocal reports whether e is the local development environment.
func (e Env) IsLocal() bool {
	return strings.EqualFold(string(e), string(EnvLocal))
}

// IsDevelopment reports whether e is local development or a test run.
func (e Env) IsDevelopment() bool {
	return e.IsLocal() || strings.EqualFold(string(e), string(EnvUnittest))
}

// IsProduction reports whether e is a production environment.
func (e Env) IsProduction() bool {
	s := strings.ToLower(string(e))
	return s == "prod" || s == "production"
}
