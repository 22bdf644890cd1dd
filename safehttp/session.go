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
	"net/http"
	"sync"
)

// Session is the per-user server-side store offered by the host
// application.
type Session interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// SessionProvider returns the session of a request. It may return nil when
// the request has no session.
type SessionProvider func(r *http.Request) Session

// MemorySession is a Session kept in memory. It is meant for tests and
// single-process examples.
type MemorySession struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemorySession returns an empty MemorySession.
func NewMemorySession() *MemorySession {
	return &MemorySession{values: map[string]string{}}
}

// Get returns the value stored under key.
func (s *MemorySession) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *MemorySession) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}
