// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import "testing"

func TestOpenEmptyPathDisabled(t *testing.T) {
	g, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\"): %v", err)
	}
	if g.IsEnabled() {
		t.Error("IsEnabled() = true without a database")
	}
	if got := g.LookupCountry("8.8.8.8"); got != "" {
		t.Errorf("LookupCountry = %q, want empty for disabled lookup", got)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Fatal("Open should fail for a missing database file")
	}
}

func TestLookupCountryLocalAddresses(t *testing.T) {
	g := &Lookup{}

	tests := []struct {
		name string
		ip   string
		want string
	}{
		{"loopback", "127.0.0.1", "LOCAL"},
		{"private 10", "10.1.2.3", "LOCAL"},
		{"private 192.168", "192.168.0.5", "LOCAL"},
		{"private with port", "192.168.0.5:51234", "LOCAL"},
		{"ipv6 loopback", "::1", "LOCAL"},
		{"invalid", "not-an-ip", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.LookupCountry(tt.ip); got != tt.want {
				t.Errorf("LookupCountry(%q) = %q, want %q", tt.ip, got, tt.want)
			}
		})
	}
}

func TestCloseIdempotent(t *testing.T) {
	g := &Lookup{}
	if err := g.Close(); err != nil {
		t.Errorf("Close on disabled lookup: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
