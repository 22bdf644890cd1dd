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

package securities

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/google/go-websecurity/safehttp"
	"github.com/google/go-websecurity/safehttp/plugins/csrf"
)

// Load reads the configuration: defaults, then the YAML file at path (if
// not empty), then SECURITY_* environment variables. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseFile reads and unmarshals a YAML configuration file.
func (c *Config) parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return c.parse(data)
}

func (c *Config) parse(data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	c.shorthands = append(c.shorthands, expandShorthands(root)...)
	if err := root.Decode(c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}

// expandShorthands rewrites `<middleware>: false` into
// `<middleware>: {enable: false}` and returns the rewritten keys.
func expandShorthands(root *yaml.Node) []string {
	if root.Kind != yaml.MappingNode {
		return nil
	}
	var out []string
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if _, ok := features[key.Value]; !ok || val.Kind != yaml.ScalarNode || val.Tag != "!!bool" {
			continue
		}
		root.Content[i+1] = &yaml.Node{
			Kind: yaml.MappingNode,
			Tag:  "!!map",
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Tag: "!!str", Value: "enable"},
				{Kind: yaml.ScalarNode, Tag: "!!bool", Value: val.Value},
			},
		}
		out = append(out, key.Value)
	}
	return out
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SECURITY_ENV"); v != "" {
		c.Env = safehttp.Env(v)
	}
	setListIfEnv(&c.Keys, "SECURITY_KEYS")
	setListIfEnv(&c.DomainWhiteList, "SECURITY_DOMAIN_WHITELIST")
	setListIfEnv(&c.ProtocolWhiteList, "SECURITY_PROTOCOL_WHITELIST")
	if v := os.Getenv("SECURITY_DEFAULT_MIDDLEWARE"); v != "" {
		c.DefaultMiddleware = safehttp.SplitNames(v)
	}

	// CSRF
	setBoolIfEnv(&c.CSRF.Enable, "SECURITY_CSRF_ENABLE")
	if v := os.Getenv("SECURITY_CSRF_TYPE"); v != "" {
		c.CSRF.Type = csrf.Type(v)
	}
	setBoolIfEnv(&c.CSRF.UseSession, "SECURITY_CSRF_USE_SESSION")
	setIfEnv(&c.CSRF.CookieDomain, "SECURITY_CSRF_COOKIE_DOMAIN")
	setListIfEnv(&c.CSRF.RefererWhiteList, "SECURITY_CSRF_REFERER_WHITELIST")

	// Headers
	setBoolIfEnv(&c.HSTS.Enable, "SECURITY_HSTS_ENABLE")
	setIntIfEnv(&c.HSTS.MaxAge, "SECURITY_HSTS_MAX_AGE")
	setBoolIfEnv(&c.CSP.Enable, "SECURITY_CSP_ENABLE")
	setBoolIfEnv(&c.CSP.ReportOnly, "SECURITY_CSP_REPORT_ONLY")
	setBoolIfEnv(&c.XFrame.Enable, "SECURITY_XFRAME_ENABLE")
	setIfEnv(&c.XFrame.Value, "SECURITY_XFRAME_VALUE")
	setBoolIfEnv(&c.ReferrerPolicy.Enable, "SECURITY_REFERRER_POLICY_ENABLE")
	setIfEnv(&c.ReferrerPolicy.Value, "SECURITY_REFERRER_POLICY_VALUE")

	// SSRF
	setListIfEnv(&c.SSRF.IPBlackList, "SECURITY_SSRF_IP_BLACKLIST")
	setListIfEnv(&c.SSRF.IPExceptionList, "SECURITY_SSRF_IP_EXCEPTIONLIST")
	setListIfEnv(&c.SSRF.HostnameExceptionList, "SECURITY_SSRF_HOSTNAME_EXCEPTIONLIST")
}

// setIfEnv sets a string pointer to the environment variable value if it exists.
func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

// setBoolIfEnv sets a boolean pointer from an environment variable.
// Accepts "1", "true", "TRUE", "True" as true values.
func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

// setIntIfEnv ignores values that do not parse.
func setIntIfEnv(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

// setListIfEnv splits a comma separated variable.
func setListIfEnv(target *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = safehttp.SplitNames(v)
	}
}
