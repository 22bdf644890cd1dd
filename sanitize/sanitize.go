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

// Package sanitize holds output helpers for HTML, JavaScript, JSON, URLs,
// file paths and shell commands.
//
// The stateless helpers are plain functions. SHTML, SURL and SPath depend on
// the domain and protocol whitelists and hang off a Helper.
package sanitize

import (
	"net/url"
	"strings"

	"github.com/google/safehtml"
	"github.com/google/safehtml/uncheckedconversions"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/google/go-websecurity/internal/hostmatch"
	"github.com/google/go-websecurity/safehttp"
)

// DefaultProtocols are always accepted by SURL.
var DefaultProtocols = []string{"http", "https", "file", "data"}

// SHTMLConfig tunes SHTML.
type SHTMLConfig struct {
	// WhiteList maps allowed elements to their allowed attributes. Empty
	// means the bluemonday user generated content policy.
	WhiteList map[string][]string `yaml:"whiteList"`
	// Deprecated: use Config.DomainWhiteList.
	DomainWhiteList []string `yaml:"domainWhiteList"`
}

// Config holds the helper settings.
type Config struct {
	Env               safehttp.Env
	DomainWhiteList   []string
	ProtocolWhiteList []string
	SHTML             SHTMLConfig
}

// Option configures a Helper.
type Option func(*Helper)

// WithLogger sets the logger used for warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Helper) { h.log = l }
}

// Helper applies the whitelist dependent sanitizers. It is safe for
// concurrent use.
type Helper struct {
	env       safehttp.Env
	domains   []string
	protocols map[string]bool
	policy    *bluemonday.Policy
	log       zerolog.Logger
}

// New builds a Helper from cfg.
func New(cfg Config, opts ...Option) *Helper {
	h := &Helper{
		env:       cfg.Env,
		domains:   cfg.DomainWhiteList,
		protocols: map[string]bool{},
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(h)
	}
	for _, p := range append(append([]string{}, DefaultProtocols...), cfg.ProtocolWhiteList...) {
		h.protocols[strings.ToLower(p)] = true
	}
	h.policy = h.newPolicy(cfg.SHTML)
	return h
}

func (h *Helper) newPolicy(cfg SHTMLConfig) *bluemonday.Policy {
	var p *bluemonday.Policy
	if len(cfg.WhiteList) == 0 {
		p = bluemonday.UGCPolicy()
	} else {
		p = bluemonday.NewPolicy()
		p.AllowStandardURLs()
		for el, attrs := range cfg.WhiteList {
			p.AllowElements(el)
			if len(attrs) > 0 {
				p.AllowAttrs(attrs...).OnElements(el)
			}
		}
	}
	// Links are kept as written.
	p.RequireNoFollowOnLinks(false)

	if len(h.domains) == 0 && len(cfg.DomainWhiteList) == 0 {
		h.log.Warn().Msg("shtml: domainWhiteList is empty, links to any host are kept")
		return p
	}
	if len(cfg.DomainWhiteList) > 0 {
		h.log.Warn().Msg("`shtml.domainWhiteList` is deprecated, use `domainWhiteList` instead")
	}
	allowed := func(u *url.URL) bool {
		host := u.Hostname()
		if host == "" {
			return true
		}
		return hostmatch.IsSafeDomain(host, h.domains) || hostmatch.IsSafeDomain(host, cfg.DomainWhiteList)
	}
	p.AllowURLSchemeWithCustomPolicy("http", allowed)
	p.AllowURLSchemeWithCustomPolicy("https", allowed)
	return p
}

// SHTML filters s down to the whitelisted elements and attributes. Links and
// sources pointing at absolute hosts outside the domain whitelist are
// dropped.
func (h *Helper) SHTML(s string) safehtml.HTML {
	// The policy only lets whitelisted, well-formed markup through.
	return uncheckedconversions.HTMLFromStringKnownToSatisfyTypeContract(h.policy.Sanitize(s))
}

var urlReplacer = strings.NewReplacer(`"`, "&quot;", "<", "&lt;", ">", "&gt;", "'", "&#x27;")

// SURL returns s with quotes and angle brackets escaped, or "" if s is not a
// root relative path and its protocol is not whitelisted.
func (h *Helper) SURL(s string) string {
	if !strings.HasPrefix(s, "/") {
		protocol := ""
		if i := strings.Index(s, "://"); i >= 0 {
			protocol = strings.ToLower(s[:i])
		}
		if protocol == "" || !h.protocols[protocol] {
			if h.env.IsLocal() {
				h.log.Warn().Str("url", s).Str("protocol", protocol).
					Msg("surl: protocol is empty or not in white list, convert to empty string")
			}
			return ""
		}
	}
	return urlReplacer.Replace(s)
}

// SPath returns p and true if p, percent-decoded until no escape remains,
// neither contains ".." nor starts with "/". Otherwise it returns "" and
// false.
func (h *Helper) SPath(p string) (string, bool) {
	decoded := p
	for strings.Contains(decoded, "%") {
		next, err := url.PathUnescape(decoded)
		if err != nil {
			if !h.env.IsProduction() {
				h.log.Warn().Str("path", decoded).Msg("spath: decode file path failed")
			}
			break
		}
		decoded = next
	}
	if strings.Contains(decoded, "..") || strings.HasPrefix(decoded, "/") {
		return "", false
	}
	return p, true
}
