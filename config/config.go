package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the top-level nlpxd configuration, decoded from TOML.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`

	Exchange ExchangeConfig `toml:"exchange"`
	Gateway  GatewayConfig  `toml:"gateway"`
	Log      LogConfig      `toml:"log"`
}

// ExchangeConfig seeds the engine's registry on startup. Runtime admin calls
// may override any of it afterwards.
type ExchangeConfig struct {
	Mode            string          `toml:"Mode"`
	MaxFeeBps       uint32          `toml:"MaxFeeBps"`
	RateNumerator   uint64          `toml:"RateNumerator"`
	RateDenominator uint64          `toml:"RateDenominator"`
	ReserveAddress  string          `toml:"ReserveAddress"`
	TreasuryAddress string          `toml:"TreasuryAddress"`
	Operators       []string        `toml:"Operators"`
	Tokens          []TokenConfig   `toml:"tokens"`
	OperationalFees []FeeConfig     `toml:"operational_fees"`
}

// TokenConfig describes one settlement asset.
type TokenConfig struct {
	Symbol         string `toml:"Symbol"`
	Address        string `toml:"Address"`
	Native         bool   `toml:"Native"`
	Decimals       uint8  `toml:"Decimals"`
	ExchangeFeeBps uint32 `toml:"ExchangeFeeBps"`
	Enabled        bool   `toml:"Enabled"`
	DisplaySymbol  string `toml:"DisplaySymbol"`
}

// FeeConfig describes the operational fee layer for one asset.
type FeeConfig struct {
	Symbol    string `toml:"Symbol"`
	FeeBps    uint32 `toml:"FeeBps"`
	Recipient string `toml:"Recipient"`
	Enabled   bool   `toml:"Enabled"`
}

// GatewayConfig covers the HTTP surface.
type GatewayConfig struct {
	AuthEnabled       bool    `toml:"AuthEnabled"`
	JWTSecret         string  `toml:"JWTSecret"`
	JWTIssuer         string  `toml:"JWTIssuer"`
	JWTAudience       string  `toml:"JWTAudience"`
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// LogConfig covers structured log output and rotation.
type LogConfig struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.Normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalise fills defaults and canonicalises symbols in place.
func (c *Config) Normalise() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8665"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./nlpxd-data"
	}
	if strings.TrimSpace(c.Exchange.Mode) == "" {
		c.Exchange.Mode = "closed"
	}
	if c.Exchange.RateNumerator == 0 {
		c.Exchange.RateNumerator = 100
	}
	if c.Exchange.RateDenominator == 0 {
		c.Exchange.RateDenominator = 100
	}
	for i := range c.Exchange.Tokens {
		c.Exchange.Tokens[i].Symbol = strings.ToUpper(strings.TrimSpace(c.Exchange.Tokens[i].Symbol))
	}
	for i := range c.Exchange.OperationalFees {
		c.Exchange.OperationalFees[i].Symbol = strings.ToUpper(strings.TrimSpace(c.Exchange.OperationalFees[i].Symbol))
	}
	if c.Gateway.RequestsPerMinute <= 0 {
		c.Gateway.RequestsPerMinute = 600
	}
	if c.Gateway.Burst <= 0 {
		c.Gateway.Burst = 20
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configurations that cannot drive a working engine.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Exchange.Mode)) {
	case "closed", "whitelist", "rolebased", "role-based", "public":
	default:
		return fmt.Errorf("config: unknown exchange mode %q", c.Exchange.Mode)
	}
	if c.Exchange.RateDenominator == 0 {
		return fmt.Errorf("config: rate denominator must be positive")
	}
	seen := make(map[string]struct{}, len(c.Exchange.Tokens))
	for _, token := range c.Exchange.Tokens {
		if token.Symbol == "" {
			return fmt.Errorf("config: token with empty symbol")
		}
		if _, dup := seen[token.Symbol]; dup {
			return fmt.Errorf("config: duplicate token %s", token.Symbol)
		}
		seen[token.Symbol] = struct{}{}
	}
	for _, fee := range c.Exchange.OperationalFees {
		if _, ok := seen[fee.Symbol]; !ok {
			return fmt.Errorf("config: operational fee for unknown token %s", fee.Symbol)
		}
		if fee.Enabled && strings.TrimSpace(fee.Recipient) == "" {
			return fmt.Errorf("config: operational fee for %s enabled without recipient", fee.Symbol)
		}
	}
	needsOperator := len(c.Exchange.Tokens) > 0 ||
		strings.TrimSpace(c.Exchange.TreasuryAddress) != ""
	if needsOperator && len(c.Exchange.Operators) == 0 {
		return fmt.Errorf("config: seeding the registry requires at least one operator address")
	}
	if c.Gateway.AuthEnabled && strings.TrimSpace(c.Gateway.JWTSecret) == "" {
		return fmt.Errorf("config: gateway auth enabled without JWT secret")
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Normalise()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
