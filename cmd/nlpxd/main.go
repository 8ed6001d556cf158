package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/k0yote/newlo-point-sub001/config"
	"github.com/k0yote/newlo-point-sub001/core/events"
	"github.com/k0yote/newlo-point-sub001/core/state"
	"github.com/k0yote/newlo-point-sub001/crypto"
	"github.com/k0yote/newlo-point-sub001/gateway"
	"github.com/k0yote/newlo-point-sub001/gateway/middleware"
	"github.com/k0yote/newlo-point-sub001/native/exchange"
	"github.com/k0yote/newlo-point-sub001/native/token"
	"github.com/k0yote/newlo-point-sub001/observability/logging"
	obsmetrics "github.com/k0yote/newlo-point-sub001/observability/metrics"
	"github.com/k0yote/newlo-point-sub001/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("nlpxd", cfg.Environment, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	st := state.NewManager(db)
	gate := exchange.NewAccessGate(st)
	registry := exchange.NewTokenRegistry(st, gate)
	snapshots := exchange.NewAdminSnapshotStore(st)

	var reserve [20]byte
	if strings.TrimSpace(cfg.Exchange.ReserveAddress) != "" {
		reserve, err = parseAddress(cfg.Exchange.ReserveAddress)
		if err != nil {
			logger.Error("Invalid reserve address", slog.Any("error", err))
			os.Exit(1)
		}
	}

	points := token.NewPointLedger(st)
	assets := exchange.AssetMap{}
	for _, tok := range cfg.Exchange.Tokens {
		assets[tok.Symbol] = token.NewVault(st, tok.Symbol, reserve)
	}

	engine := exchange.NewEngine(st, registry, gate, exchange.NewPriceSource(snapshots), points, assets, reserve)
	engine.SetLogger(logger)
	engine.SetMetrics(obsmetrics.NewExchange(prometheus.DefaultRegisterer))

	emitter := &events.LogEmitter{Logger: logger}
	engine.SetEmitter(emitter)
	registry.SetEmitter(emitter)
	snapshots.SetEmitter(emitter)

	if err := seedRegistry(cfg, st, registry); err != nil {
		logger.Error("Failed to seed exchange registry", slog.Any("error", err))
		os.Exit(1)
	}

	server := gateway.New(gateway.Config{
		Engine:    engine,
		Registry:  registry,
		Gate:      gate,
		Snapshots: snapshots,
		Auth: middleware.AuthConfig{
			Enabled:  cfg.Gateway.AuthEnabled,
			Secret:   cfg.Gateway.JWTSecret,
			Issuer:   cfg.Gateway.JWTIssuer,
			Audience: cfg.Gateway.JWTAudience,
		},
		RateLimit: middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Gateway.RequestsPerMinute,
			Burst:             cfg.Gateway.Burst,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Gateway listening", slog.String("address", cfg.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Gateway stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("Gateway stopped")
}

// seedRegistry grants operator roles and applies the configured exchange
// parameters. Admin routes may override any of it at runtime.
func seedRegistry(cfg *config.Config, st *state.Manager, registry *exchange.TokenRegistry) error {
	var operator [20]byte
	haveOperator := false
	for _, raw := range cfg.Exchange.Operators {
		addr, err := parseAddress(raw)
		if err != nil {
			return fmt.Errorf("operator %q: %w", raw, err)
		}
		for _, role := range []string{
			exchange.RoleConfigManager,
			exchange.RolePriceUpdater,
			exchange.RoleFeeManager,
			exchange.RoleEmergencyManager,
			exchange.RoleWhitelistManager,
		} {
			if err := st.GrantRole(role, addr[:]); err != nil {
				return err
			}
		}
		if !haveOperator {
			operator, haveOperator = addr, true
		}
	}
	if !haveOperator {
		return nil
	}

	if cfg.Exchange.MaxFeeBps > 0 {
		if err := registry.SetMaxFeeBps(operator, cfg.Exchange.MaxFeeBps); err != nil {
			return err
		}
	}
	if err := registry.SetRate(operator, exchange.RateConfig{
		Numerator:   cfg.Exchange.RateNumerator,
		Denominator: cfg.Exchange.RateDenominator,
	}); err != nil {
		return err
	}
	if mode, ok := exchange.ParseExchangeMode(cfg.Exchange.Mode); ok {
		if err := registry.SetMode(operator, mode); err != nil {
			return err
		}
	}
	for _, tok := range cfg.Exchange.Tokens {
		tokenCfg := &exchange.TokenConfig{
			Symbol:         tok.Symbol,
			Native:         tok.Native,
			Decimals:       tok.Decimals,
			ExchangeFeeBps: tok.ExchangeFeeBps,
			Enabled:        tok.Enabled,
			DisplaySymbol:  tok.DisplaySymbol,
		}
		if strings.TrimSpace(tok.Address) != "" {
			addr, err := parseHexAddress(tok.Address)
			if err != nil {
				return fmt.Errorf("token %s: %w", tok.Symbol, err)
			}
			tokenCfg.Address = addr
		}
		if err := registry.SetToken(operator, tokenCfg); err != nil {
			return err
		}
	}
	for _, fee := range cfg.Exchange.OperationalFees {
		feeCfg := &exchange.OperationalFeeConfig{
			Symbol:  fee.Symbol,
			FeeBps:  fee.FeeBps,
			Enabled: fee.Enabled,
		}
		if strings.TrimSpace(fee.Recipient) != "" {
			recipient, err := parseAddress(fee.Recipient)
			if err != nil {
				return fmt.Errorf("fee recipient for %s: %w", fee.Symbol, err)
			}
			feeCfg.Recipient = recipient
		}
		if err := registry.SetOperationalFee(operator, feeCfg); err != nil {
			return err
		}
	}
	if strings.TrimSpace(cfg.Exchange.TreasuryAddress) != "" {
		treasury, err := parseAddress(cfg.Exchange.TreasuryAddress)
		if err != nil {
			return fmt.Errorf("treasury: %w", err)
		}
		if err := registry.SetTreasury(operator, treasury); err != nil {
			return err
		}
	}
	return nil
}

func parseAddress(value string) ([20]byte, error) {
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, err
	}
	var addr [20]byte
	copy(addr[:], decoded.Bytes())
	return addr, nil
}

func parseHexAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	if len(raw) != 20 {
		return [20]byte{}, fmt.Errorf("address must be 20 bytes")
	}
	var addr [20]byte
	copy(addr[:], raw)
	return addr, nil
}
