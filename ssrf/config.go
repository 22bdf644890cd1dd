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

package ssrf

import (
	"fmt"
	"net"
	"strings"
)

// CheckAddressFunc decides whether a connection to ip, resolved from
// hostname, is allowed. family is 4 or 6.
type CheckAddressFunc func(ip net.IP, family int, hostname string) bool

// Config holds the outbound address policy.
type Config struct {
	// IPBlackList lists the IPs or CIDRs that must not be reached.
	IPBlackList []string `yaml:"ipBlackList"`
	// IPExceptionList punches holes in IPBlackList.
	IPExceptionList []string `yaml:"ipExceptionList"`
	// HostnameExceptionList lists hostnames that are always allowed,
	// whatever they resolve to.
	HostnameExceptionList []string `yaml:"hostnameExceptionList"`
	// CheckAddress replaces the list based policy when set.
	CheckAddress CheckAddressFunc `yaml:"-"`
}

// Validate checks that every list entry is an IP or a CIDR.
func (c Config) Validate() error {
	if _, err := parseIPList(c.IPBlackList); err != nil {
		return fmt.Errorf("ssrf.ipBlackList: %w", err)
	}
	if _, err := parseIPList(c.IPExceptionList); err != nil {
		return fmt.Errorf("ssrf.ipExceptionList: %w", err)
	}
	return nil
}

// Configured reports whether c yields an address checker.
func (c Config) Configured() bool {
	return c.CheckAddress != nil || len(c.IPBlackList) > 0
}

// Checker returns CheckAddress if set, otherwise the list based policy. It
// returns nil if neither is configured.
func (c Config) Checker() (CheckAddressFunc, error) {
	if c.CheckAddress != nil {
		return c.CheckAddress, nil
	}
	if len(c.IPBlackList) == 0 {
		return nil, nil
	}
	black, err := parseIPList(c.IPBlackList)
	if err != nil {
		return nil, fmt.Errorf("ssrf.ipBlackList: %w", err)
	}
	except, err := parseIPList(c.IPExceptionList)
	if err != nil {
		return nil, fmt.Errorf("ssrf.ipExceptionList: %w", err)
	}
	hosts := make(map[string]bool, len(c.HostnameExceptionList))
	for _, h := range c.HostnameExceptionList {
		hosts[strings.ToLower(h)] = true
	}

	return func(ip net.IP, _ int, hostname string) bool {
		if hosts[strings.ToLower(hostname)] {
			return true
		}
		if except.contains(ip) {
			return true
		}
		return !black.contains(ip)
	}, nil
}

type ipList []*net.IPNet

func (l ipList) contains(ip net.IP) bool {
	for _, n := range l {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// parseIPList accepts plain IPs and CIDRs. A plain IP is treated as a
// single address network.
func parseIPList(entries []string) (ipList, error) {
	var out ipList
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if strings.Contains(e, "/") {
			_, n, err := net.ParseCIDR(e)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %q", e)
			}
			out = append(out, n)
			continue
		}
		ip := net.ParseIP(e)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP %q", e)
		}
		bits := 128
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 32
		}
		out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return out, nil
}
