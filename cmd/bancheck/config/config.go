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

// Package config reads the bancheck configuration files.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BannedAPI is a fully qualified import path, function or package variable
// that must not be used.
type BannedAPI struct {
	Name       string      `json:"name" yaml:"name"` // fully qualified identifier name
	Msg        string      `json:"msg" yaml:"msg"`   // additional information e.g. rationale for banning
	Exemptions []Exemption `json:"exemptions" yaml:"exemptions"`
}

// Exemption allows a package to use a banned API anyway. AllowedPkg is a
// path.Match pattern over the package import path; a trailing "/..."
// also selects every package below.
type Exemption struct {
	Justification string `json:"justification" yaml:"justification"`
	AllowedPkg    string `json:"allowedPkg" yaml:"allowedPkg"`
}

// Config represents the contents of one or more configuration files.
type Config struct {
	Imports   []BannedAPI `json:"imports" yaml:"imports"`
	Functions []BannedAPI `json:"functions" yaml:"functions"`
}

//go:embed websecurity.yaml
var websecurityRules []byte

// WebSecurity returns the rules keeping code on the guarded APIs of this
// module: outbound requests through the SSRF guard, cookies through
// safehttp and unchecked safehtml conversions inside the packages that own
// them.
func WebSecurity() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(websecurityRules, &cfg); err != nil {
		return nil, fmt.Errorf("built-in rules: %w", err)
	}
	return &cfg, nil
}

// ReadConfigs reads all config files and concatenates their rules. Files
// ending in ".json" are read as JSON, all others as YAML.
func ReadConfigs(files []string) (*Config, error) {
	cfg := &Config{}
	for _, file := range files {
		c, err := read(file)
		if err != nil {
			return nil, err
		}
		cfg.Merge(c)
	}
	return cfg, nil
}

// Merge appends the rules of other to c.
func (c *Config) Merge(other *Config) {
	c.Imports = append(c.Imports, other.Imports...)
	c.Functions = append(c.Functions, other.Functions...)
}

func read(filename string) (*Config, error) {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file %q does not exist", filename)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config file %q is a directory", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", filename, err)
	}
	for _, api := range append(append([]BannedAPI(nil), cfg.Imports...), cfg.Functions...) {
		if api.Name == "" {
			return nil, fmt.Errorf("parsing %q: %w", filename, errMissingName)
		}
	}
	return &cfg, nil
}

var errMissingName = errors.New("banned API without a name")
