package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[exchange]
Mode = "public"
Operators = ["nlp1qypqxpq9qcrsszg2pvxq6rs0zqg3yyc5z5tpwxqergd3c8g7rusqqn0aj6"]

[[exchange.tokens]]
Symbol = "usdc"
Decimals = 6
Enabled = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8665" {
		t.Fatalf("listen address = %q", cfg.ListenAddress)
	}
	if cfg.Exchange.RateNumerator != 100 || cfg.Exchange.RateDenominator != 100 {
		t.Fatalf("rate = %d/%d", cfg.Exchange.RateNumerator, cfg.Exchange.RateDenominator)
	}
	if cfg.Exchange.Tokens[0].Symbol != "USDC" {
		t.Fatalf("symbol not canonicalised: %q", cfg.Exchange.Tokens[0].Symbol)
	}
	if cfg.Gateway.RequestsPerMinute != 600 || cfg.Gateway.Burst != 20 {
		t.Fatalf("gateway limits = %v/%d", cfg.Gateway.RequestsPerMinute, cfg.Gateway.Burst)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown mode", `
[exchange]
Mode = "everyone"
`},
		{"duplicate token", `
[[exchange.tokens]]
Symbol = "USDC"
[[exchange.tokens]]
Symbol = "usdc"
`},
		{"fee for unknown token", `
[[exchange.operational_fees]]
Symbol = "GHOST"
FeeBps = 50
`},
		{"enabled fee without recipient", `
[[exchange.tokens]]
Symbol = "USDC"
[[exchange.operational_fees]]
Symbol = "USDC"
FeeBps = 50
Enabled = true
`},
		{"tokens without operator", `
[[exchange.tokens]]
Symbol = "USDC"
`},
		{"auth without secret", `
[gateway]
AuthEnabled = true
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("invalid config accepted")
			}
		})
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Exchange.Mode != "closed" {
		t.Fatalf("default mode = %q", cfg.Exchange.Mode)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	// A second load round-trips the generated file.
	if _, err := Load(path); err != nil {
		t.Fatalf("reload: %v", err)
	}
}
