package gateway

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/k0yote/newlo-point-sub001/crypto"
	"github.com/k0yote/newlo-point-sub001/gateway/middleware"
	"github.com/k0yote/newlo-point-sub001/native/common"
	"github.com/k0yote/newlo-point-sub001/native/exchange"
)

// ScopeSettle authorizes settlement submission; ScopeAdmin authorizes every
// configuration and recovery route.
const (
	ScopeSettle = "exchange.settle"
	ScopeAdmin  = "exchange.admin"
)

// Config assembles the HTTP surface around an engine.
type Config struct {
	Engine    *exchange.Engine
	Registry  *exchange.TokenRegistry
	Gate      *exchange.AccessGate
	Snapshots *exchange.AdminSnapshotStore

	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

// Server exposes quote, settlement, receipt, and admin endpoints.
type Server struct {
	engine    *exchange.Engine
	registry  *exchange.TokenRegistry
	gate      *exchange.AccessGate
	snapshots *exchange.AdminSnapshotStore
	logger    *slog.Logger
	handler   http.Handler
}

// New wires the router with auth, rate limiting, and the metrics endpoint.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:    cfg.Engine,
		registry:  cfg.Registry,
		gate:      cfg.Gate,
		snapshots: cfg.Snapshots,
		logger:    logger,
	}

	auth := middleware.NewAuthenticator(cfg.Auth, logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimit)

	r := chi.NewRouter()
	r.Use(limiter.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/exchange", func(er chi.Router) {
		er.Get("/quote", s.handleQuote)
		er.Get("/tokens", s.handleTokens)
		er.Get("/receipts", s.handleReceipts)
		er.Get("/receipts/export", s.handleReceiptExport)
		er.With(auth.Middleware(ScopeSettle)).Post("/settle", s.handleSettle)
	})

	r.Route("/v1/admin", func(ar chi.Router) {
		ar.Use(auth.Middleware(ScopeAdmin))
		ar.Post("/token", s.handleSetToken)
		ar.Post("/fee", s.handleSetOperationalFee)
		ar.Post("/rate", s.handleSetRate)
		ar.Post("/mode", s.handleSetMode)
		ar.Post("/treasury", s.handleSetTreasury)
		ar.Post("/price", s.handlePushPrice)
		ar.Post("/whitelist", s.handleWhitelist)
		ar.Post("/fees/withdraw", s.handleWithdrawFee)
		ar.Post("/pause", s.handlePause)
		ar.Post("/unpause", s.handleUnpause)
		ar.Post("/emergency-withdraw", s.handleEmergencyWithdraw)
	})

	s.handler = r
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	amount, err := parseBig(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	quote, err := s.engine.QuoteExchange(symbol, amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"available":      quote.Available,
		"tokenAmount":    quote.TokenAmount.String(),
		"exchangeFee":    quote.ExchangeFee.String(),
		"operationalFee": quote.OperationalFee.String(),
		"tokenUsdPrice":  quote.TokenUsdPrice.String(),
		"jpyUsdPrice":    quote.JpyUsdPrice.String(),
	})
}

func (s *Server) handleTokens(w http.ResponseWriter, _ *http.Request) {
	symbols, err := s.registry.Tokens()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	tokens := make([]map[string]interface{}, 0, len(symbols))
	for _, symbol := range symbols {
		cfg, ok, err := s.registry.Token(symbol)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		if !ok {
			continue
		}
		tokens = append(tokens, map[string]interface{}{
			"symbol":         cfg.Symbol,
			"displaySymbol":  cfg.DisplaySymbol,
			"address":        "0x" + hex.EncodeToString(cfg.Address[:]),
			"native":         cfg.Native,
			"decimals":       cfg.Decimals,
			"exchangeFeeBps": cfg.ExchangeFeeBps,
			"enabled":        cfg.Enabled,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": tokens})
}

type settleRequest struct {
	Beneficiary string         `json:"beneficiary"`
	Symbol      string         `json:"symbol"`
	NlpAmount   string         `json:"nlpAmount"`
	MinOut      string         `json:"minOut"`
	Relayer     string         `json:"relayer"`
	Permit      *permitPayload `json:"permit"`
}

type permitPayload struct {
	Owner    string `json:"owner"`
	Spender  string `json:"spender"`
	Value    string `json:"value"`
	Deadline uint64 `json:"deadline"`
	V        uint8  `json:"v"`
	R        string `json:"r"`
	S        string `json:"s"`
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	beneficiary, err := parseAddress(req.Beneficiary)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid beneficiary address")
		return
	}
	amount, err := parseBig(req.NlpAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid nlpAmount")
		return
	}
	request := exchange.ExchangeRequest{
		Beneficiary: beneficiary,
		Symbol:      req.Symbol,
		NlpAmount:   amount,
	}
	if strings.TrimSpace(req.MinOut) != "" {
		minOut, err := parseBig(req.MinOut)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid minOut")
			return
		}
		request.MinOut = minOut
	}
	if strings.TrimSpace(req.Relayer) != "" {
		relayer, err := parseAddress(req.Relayer)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid relayer address")
			return
		}
		request.Relayer = relayer
	}
	if req.Permit != nil {
		permit, err := req.Permit.decode()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid permit")
			return
		}
		request.Permit = permit
	}

	// The authenticated principal must be the acting party: the relayer on a
	// relayed settlement, the beneficiary otherwise.
	if request.Relayed() {
		if caller != request.Relayer {
			writeError(w, http.StatusForbidden, "caller is not the named relayer")
			return
		}
	} else if caller != request.Beneficiary {
		writeError(w, http.StatusForbidden, "caller is not the beneficiary")
		return
	}

	record, err := s.engine.Exchange(request)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"receiptId":      record.ReceiptID,
		"symbol":         record.Symbol,
		"nlpAmount":      record.NlpAmount.String(),
		"tokenAmount":    record.TokenAmount.String(),
		"exchangeFee":    record.ExchangeFee.String(),
		"operationalFee": record.OperationalFee.String(),
		"relayed":        record.Relayed,
		"createdAt":      record.CreatedAt,
	})
}

func (p *permitPayload) decode() (*exchange.PermitPayload, error) {
	owner, err := parseAddress(p.Owner)
	if err != nil {
		return nil, err
	}
	permit := &exchange.PermitPayload{
		Owner:    owner,
		Deadline: p.Deadline,
		V:        p.V,
	}
	if strings.TrimSpace(p.Spender) != "" {
		spender, err := parseAddress(p.Spender)
		if err != nil {
			return nil, err
		}
		permit.Spender = spender
	}
	if strings.TrimSpace(p.Value) != "" {
		value, err := parseBig(p.Value)
		if err != nil {
			return nil, err
		}
		permit.Value = value
	}
	if r, err := parseHash(p.R); err != nil {
		return nil, err
	} else {
		permit.R = r
	}
	if s, err := parseHash(p.S); err != nil {
		return nil, err
	} else {
		permit.S = s
	}
	return permit, nil
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start := parseInt64(query.Get("start"))
	end := parseInt64(query.Get("end"))
	limit := int(parseInt64(query.Get("limit")))
	records, cursor, err := s.engine.Receipts().List(start, end, query.Get("cursor"), limit)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		out = append(out, map[string]interface{}{
			"receiptId":      record.ReceiptID,
			"beneficiary":    crypto.NewAddress(crypto.NLPPrefix, record.Beneficiary[:]).String(),
			"symbol":         record.Symbol,
			"nlpAmount":      record.NlpAmount.String(),
			"tokenAmount":    record.TokenAmount.String(),
			"exchangeFee":    record.ExchangeFee.String(),
			"operationalFee": record.OperationalFee.String(),
			"relayed":        record.Relayed,
			"createdAt":      record.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"receipts":   out,
		"nextCursor": cursor,
	})
}

func (s *Server) handleReceiptExport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	encoded, count, err := s.engine.Receipts().ExportCSV(parseInt64(query.Get("start")), parseInt64(query.Get("end")))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"csvBase64": encoded,
		"count":     count,
	})
}

type tokenRequest struct {
	Symbol         string `json:"symbol"`
	Address        string `json:"address"`
	Native         bool   `json:"native"`
	Decimals       uint8  `json:"decimals"`
	ExchangeFeeBps uint32 `json:"exchangeFeeBps"`
	Enabled        bool   `json:"enabled"`
	DisplaySymbol  string `json:"displaySymbol"`
}

func (s *Server) handleSetToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	cfg := &exchange.TokenConfig{
		Symbol:         req.Symbol,
		Native:         req.Native,
		Decimals:       req.Decimals,
		ExchangeFeeBps: req.ExchangeFeeBps,
		Enabled:        req.Enabled,
		DisplaySymbol:  req.DisplaySymbol,
	}
	if strings.TrimSpace(req.Address) != "" {
		addr, err := parseHexAddress(req.Address)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid token address")
			return
		}
		cfg.Address = addr
	}
	if err := s.registry.SetToken(caller, cfg); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type feeRequest struct {
	Symbol    string `json:"symbol"`
	FeeBps    uint32 `json:"feeBps"`
	Recipient string `json:"recipient"`
	Enabled   bool   `json:"enabled"`
}

func (s *Server) handleSetOperationalFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	var req feeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	cfg := &exchange.OperationalFeeConfig{
		Symbol:  req.Symbol,
		FeeBps:  req.FeeBps,
		Enabled: req.Enabled,
	}
	if strings.TrimSpace(req.Recipient) != "" {
		recipient, err := parseAddress(req.Recipient)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid recipient address")
			return
		}
		cfg.Recipient = recipient
	}
	if err := s.registry.SetOperationalFee(caller, cfg); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	var req struct {
		Numerator   uint64 `json:"numerator"`
		Denominator uint64 `json:"denominator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.registry.SetRate(caller, exchange.RateConfig{
		Numerator:   req.Numerator,
		Denominator: req.Denominator,
	}); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	mode, ok := exchange.ParseExchangeMode(req.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown exchange mode")
		return
	}
	if err := s.registry.SetMode(caller, mode); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetTreasury(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	var req struct {
		Treasury string `json:"treasury"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	treasury, err := parseAddress(req.Treasury)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid treasury address")
		return
	}
	if err := s.registry.SetTreasury(caller, treasury); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pricePushRequest struct {
	Symbol          string `json:"symbol"`
	RoundID         string `json:"roundId"`
	Answer          string `json:"answer"`
	StartedAt       uint64 `json:"startedAt"`
	UpdatedAt       uint64 `json:"updatedAt"`
	AnsweredInRound string `json:"answeredInRound"`
	Decimals        uint8  `json:"decimals"`
}

func (s *Server) handlePushPrice(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	var req pricePushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	roundID, err := parseBig(req.RoundID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid roundId")
		return
	}
	answer, err := parseBig(req.Answer)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid answer")
		return
	}
	answeredIn := new(big.Int).Set(roundID)
	if strings.TrimSpace(req.AnsweredInRound) != "" {
		if answeredIn, err = parseBig(req.AnsweredInRound); err != nil {
			writeError(w, http.StatusBadRequest, "invalid answeredInRound")
			return
		}
	}
	round := &exchange.RoundData{
		RoundID:         roundID,
		Answer:          answer,
		StartedAt:       req.StartedAt,
		UpdatedAt:       req.UpdatedAt,
		AnsweredInRound: answeredIn,
	}
	if err := s.snapshots.Push(caller, req.Symbol, round, req.Decimals); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWhitelist(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	var req struct {
		Address string `json:"address"`
		Action  string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "add", "":
		err = s.gate.AddToWhitelist(caller, addr)
	case "remove":
		err = s.gate.RemoveFromWhitelist(caller, addr)
	default:
		writeError(w, http.StatusBadRequest, "unknown whitelist action")
		return
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWithdrawFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	var req struct {
		Symbol string `json:"symbol"`
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	var amount *big.Int
	if strings.TrimSpace(req.Amount) != "" {
		parsed, err := parseBig(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
		amount = parsed
	}
	withdrawn, err := s.engine.WithdrawOperationalFee(caller, req.Symbol, amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"withdrawn": withdrawn.String()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	if err := s.engine.Pause(caller); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	if err := s.engine.Unpause(caller); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (s *Server) handleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller address required")
		return
	}
	var req struct {
		Symbol string `json:"symbol"`
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	amount, err := parseBig(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	if err := s.engine.EmergencyWithdraw(caller, req.Symbol, amount); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// callerAddress resolves the acting principal: the verified token claim when
// auth is enabled, otherwise the X-Caller-Address header for development
// deployments.
func callerAddress(r *http.Request) ([20]byte, bool) {
	if addr, ok := middleware.CallerFromContext(r.Context()); ok {
		return addr, true
	}
	header := strings.TrimSpace(r.Header.Get("X-Caller-Address"))
	if header == "" {
		return [20]byte{}, false
	}
	addr, err := parseAddress(header)
	if err != nil {
		return [20]byte{}, false
	}
	return addr, true
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, exchange.ErrUnauthorized),
		errors.Is(err, exchange.ErrNotWhitelisted),
		errors.Is(err, exchange.ErrExchangeClosed),
		errors.Is(err, exchange.ErrAuthorizationFailed):
		status = http.StatusForbidden
	case errors.Is(err, exchange.ErrTokenNotConfigured):
		status = http.StatusNotFound
	case errors.Is(err, exchange.ErrInvalidAmount),
		errors.Is(err, exchange.ErrRecipientRequired),
		errors.Is(err, exchange.ErrFeeExceedsCap),
		errors.Is(err, exchange.ErrInvalidPriceData),
		errors.Is(err, exchange.ErrPriceDataStale),
		errors.Is(err, exchange.ErrRoundRegression),
		errors.Is(err, exchange.ErrTokenDisabled),
		errors.Is(err, exchange.ErrNotPaused),
		errors.Is(err, exchange.ErrTreasuryNotSet):
		status = http.StatusBadRequest
	case errors.Is(err, exchange.ErrSlippageExceeded),
		errors.Is(err, exchange.ErrInsufficientBalance),
		errors.Is(err, exchange.ErrInsufficientOperationalFee),
		errors.Is(err, exchange.ErrReentrantCall):
		status = http.StatusConflict
	case errors.Is(err, exchange.ErrNoPriceData),
		errors.Is(err, common.ErrModulePaused):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("gateway internal error", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func parseBig(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errors.New("gateway: empty integer")
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, errors.New("gateway: invalid integer")
	}
	return parsed, nil
}

func parseInt64(value string) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return parsed
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
		return [20]byte{}, errors.New("gateway: address must be 20 bytes")
	}
	var addr [20]byte
	copy(addr[:], raw)
	return addr, nil
}

func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return out, nil
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, errors.New("gateway: hash must be 32 bytes")
	}
	copy(out[:], raw)
	return out, nil
}
