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
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Error is a request failure carrying the HTTP status code to answer with.
//
// Client errors (4xx) expose Message in the response body. Server errors
// (5xx) only expose the status text, unless Expose is set, and are logged.
type Error struct {
	Code    int
	Message string
	Err     error
	Expose  bool
}

// NewError returns an Error with the given status code and message.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf returns a 500 Error wrapping the formatted error.
func Errorf(format string, args ...interface{}) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{Code: http.StatusInternalServerError, Message: err.Error(), Err: err}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the status code for err: the code of the first *Error
// in the chain, or 500.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Code >= 400 && e.Code < 600 {
		return e.Code
	}
	return http.StatusInternalServerError
}

// WriteError renders err on w.
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	code := StatusCode(err)
	msg := http.StatusText(code)
	var e *Error
	if errors.As(err, &e) && e.Message != "" && (code < 500 || e.Expose) {
		msg = e.Message
	}
	if code >= 500 {
		log.Error().Err(err).Int("status", code).Msg("request failed")
	}
	http.Error(w, msg, code)
}
