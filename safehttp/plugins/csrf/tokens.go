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

package csrf

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

var randReader = rand.Reader

const (
	// secretSize is the number of random bytes in a secret.
	secretSize = 18
	saltSize   = 8
	saltChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewSecret returns a new random secret.
func NewSecret() (string, error) {
	b := make([]byte, secretSize)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", fmt.Errorf("generating csrf secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewToken derives a token from secret. Every call picks a fresh salt, so
// two tokens of the same secret differ, but both verify against it.
func NewToken(secret string) (string, error) {
	b := make([]byte, saltSize)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", fmt.Errorf("generating csrf token salt: %w", err)
	}
	for i := range b {
		b[i] = saltChars[int(b[i])%len(saltChars)]
	}
	salt := string(b)
	return salt + "-" + hash(salt, secret), nil
}

// VerifyToken reports whether token was derived from secret by NewToken.
func VerifyToken(secret, token string) bool {
	if secret == "" || token == "" {
		return false
	}
	i := strings.IndexByte(token, '-')
	if i <= 0 {
		return false
	}
	want := token[:i] + "-" + hash(token[:i], secret)
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

func hash(salt, secret string) string {
	sum := sha256.Sum256([]byte(salt + "-" + secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
