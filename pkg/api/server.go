// Package api exposes the submitOrder/getOrderBook/getMatches/getSettlements
// REST surface and the subscribe/event WebSocket streaming surface over a
// single Engine, adapted from the teacher's gorilla/mux + rs/cors REST
// server and gorilla/websocket hub.
package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/duskpool/core/pkg/app/engine"
	"github.com/duskpool/core/pkg/asset"
	"github.com/duskpool/core/pkg/commitment"
	"github.com/duskpool/core/pkg/errs"
	"github.com/duskpool/core/pkg/eventbus"
	"github.com/duskpool/core/pkg/field"
	"github.com/duskpool/core/pkg/orderbook"
	"github.com/duskpool/core/pkg/settlement"
	"github.com/duskpool/core/pkg/sign"
)

// Server is the REST/WebSocket front end over a single Engine. One Server
// serves every asset's order book; routing between assets happens inside
// the engine.
type Server struct {
	engine     *engine.Engine
	bus        *eventbus.Bus
	registry   *prometheus.Registry
	intents    *sign.Signer712
	router     *mux.Router
	corsOrigin string
	logger     *zap.SugaredLogger

	heartbeat heartbeatConfig
}

type heartbeatConfig struct {
	interval        int64 // milliseconds
	missedPongLimit int
}

// NewServer wires the REST and WebSocket routes over eng. corsOrigin is the
// single allowed origin (or "*"); heartbeatMillis/missedPongLimit configure
// the WebSocket ping cadence.
func NewServer(eng *engine.Engine, bus *eventbus.Bus, registry *prometheus.Registry, corsOrigin string, heartbeatMillis int64, missedPongLimit int, logger *zap.SugaredLogger) *Server {
	s := &Server{
		engine:     eng,
		bus:        bus,
		registry:   registry,
		intents:    sign.NewSigner712(sign.DefaultDomain()),
		router:     mux.NewRouter(),
		corsOrigin: corsOrigin,
		logger:     logger,
		heartbeat: heartbeatConfig{
			interval:        heartbeatMillis,
			missedPongLimit: missedPongLimit,
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orderbook/{asset}", s.handleGetOrderBook).Methods("GET")
	api.HandleFunc("/matches", s.handleGetMatches).Methods("GET")
	api.HandleFunc("/settlements", s.handleGetSettlements).Methods("GET")
	api.HandleFunc("/settlements/{matchId}", s.handleGetSettlement).Methods("GET")
	api.HandleFunc("/settlements/{matchId}/signature", s.handleSubmitSignature).Methods("POST")
	api.HandleFunc("/whitelist/{index}/proof", s.handleWhitelistProof).Methods("GET")
	api.HandleFunc("/admin/processPendingMatches", s.handleProcessPendingMatches).Methods("POST")

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the fully wrapped HTTP handler (routes plus CORS),
// suitable for http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{s.corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errs.Wrap(errs.InvalidInput, "invalid request body", err))
		return
	}

	orderReq, parseErr := parseOrderRequest(req)
	if parseErr != nil {
		respondErr(w, parseErr)
		return
	}

	result, err := s.engine.SubmitOrder(orderReq)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SubmitOrderResponse{
		Accepted:          result.Accepted,
		PendingMatches:    matchViews(req.AssetAddress, result.PendingMatches),
		OrderBookSnapshot: orderBookView(result.OrderBookSnapshot),
		NoMatchReason:     result.NoMatchReason,
	})
}

func parseOrderRequest(req SubmitOrderRequest) (engine.OrderRequest, *errs.Error) {
	var side commitment.Side
	switch strings.ToLower(req.Side) {
	case "buy":
		side = commitment.Buy
	case "sell":
		side = commitment.Sell
	default:
		return engine.OrderRequest{}, errs.New(errs.InvalidInput, "side must be \"buy\" or \"sell\"")
	}

	quantity, err := strconv.ParseUint(req.Quantity, 10, 64)
	if err != nil {
		return engine.OrderRequest{}, errs.Wrap(errs.InvalidInput, "invalid quantity", err)
	}
	price, err := strconv.ParseUint(req.Price, 10, 64)
	if err != nil {
		return engine.OrderRequest{}, errs.Wrap(errs.InvalidInput, "invalid price", err)
	}
	commitmentElem, err := field.FromDecimalString(req.Commitment)
	if err != nil {
		return engine.OrderRequest{}, errs.Wrap(errs.InvalidInput, "invalid commitment", err)
	}
	secretElem, err := field.FromDecimalString(req.Secret)
	if err != nil {
		return engine.OrderRequest{}, errs.Wrap(errs.InvalidInput, "invalid secret", err)
	}
	nonceElem, err := field.FromDecimalString(req.Nonce)
	if err != nil {
		return engine.OrderRequest{}, errs.Wrap(errs.InvalidInput, "invalid nonce", err)
	}

	return engine.OrderRequest{
		Trader:         req.Trader,
		AssetAddress:   req.AssetAddress,
		Side:           side,
		Quantity:       quantity,
		Price:          price,
		Expiry:         unixToTime(req.ExpiryUnix),
		Commitment:     commitmentElem,
		Secret:         secretElem,
		Nonce:          nonceElem,
		WhitelistIndex: req.WhitelistIndex,
	}, nil
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	assetAddress := mux.Vars(r)["asset"]
	if err := asset.ValidateAddress(assetAddress); err != nil {
		respondErr(w, errs.Wrap(errs.InvalidInput, "invalid asset address", err))
		return
	}
	snap := s.engine.GetOrderBook(assetAddress)
	respondJSON(w, http.StatusOK, orderBookView(snap))
}

func (s *Server) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.engine.GetMatches()
	if err != nil {
		respondErr(w, errs.Wrap(errs.InvalidInput, "loading matches", err))
		return
	}
	views := make([]MatchView, len(matches))
	for i, m := range matches {
		views[i] = matchView(m.BuyOrder.AssetAddress, m)
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetSettlements(w http.ResponseWriter, r *http.Request) {
	trader := r.URL.Query().Get("trader")
	records := s.engine.GetSettlements(trader)
	views := make([]SettlementView, len(records))
	for i, rec := range records {
		views[i] = settlementView(rec)
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]
	rec, ok := s.engine.GetSettlement(matchID)
	if !ok {
		respondErr(w, errs.ForMatch(errs.InvalidInput, matchID, "unknown match"))
		return
	}
	respondJSON(w, http.StatusOK, settlementView(rec))
}

func (s *Server) handleSubmitSignature(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	var req SubmitSignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errs.Wrap(errs.InvalidInput, "invalid request body", err))
		return
	}
	req.MatchID = matchID

	role, err := parseRole(req.Role)
	if err != nil {
		respondErr(w, err)
		return
	}
	signature, decErr := decodeHex(req.Signature)
	if decErr != nil {
		respondErr(w, errs.ForMatchf(errs.InvalidInput, matchID, "invalid signature: %v", decErr))
		return
	}

	if err := s.verifyIntentSignature(matchID, role, signature); err != nil {
		respondErr(w, err)
		return
	}

	buyerSigned, sellerSigned, submitErr := s.engine.SubmitSignature(matchID, role, signature)
	if submitErr != nil {
		respondErr(w, submitErr)
		return
	}

	respondJSON(w, http.StatusOK, SubmitSignatureResponse{BuyerSigned: buyerSigned, SellerSigned: sellerSigned})
}

// verifyIntentSignature recovers the signer of the EIP-712 SettlementIntent
// digest over the match's nullifier/price/quantity and checks it against
// the expected trader address for role, per the signed-settlement-intent
// convention (SPEC_FULL §D.3).
func (s *Server) verifyIntentSignature(matchID string, role settlement.Role, signature []byte) *errs.Error {
	rec, ok := s.engine.GetSettlement(matchID)
	if !ok {
		return errs.ForMatch(errs.InvalidInput, matchID, "unknown match")
	}
	m, found, err := s.engine.GetMatch(matchID)
	if err != nil || !found {
		return errs.ForMatch(errs.InvalidInput, matchID, "match not yet persisted")
	}

	trader := rec.BuyerTrader
	if role == settlement.RoleSeller {
		trader = rec.SellerTrader
	}
	// EIP-712 recovery only yields an Ethereum address, so a trader who
	// wants their settlement signature checked must register with a
	// 0x-prefixed hex address rather than the 56-char whitelist id.
	if !common.IsHexAddress(trader) {
		return errs.ForMatch(errs.InvalidInput, matchID, "trader address is not a verifiable signing address")
	}

	nullifier, err := field.FromHex(rec.NullifierHash)
	if err != nil {
		return errs.ForMatchf(errs.InvalidInput, matchID, "match has no nullifier yet: %v", err)
	}
	intent := &sign.SettlementIntent{
		MatchID:           matchID,
		NullifierHash:     nullifier.BigInt(),
		ExecutionPrice:    field.FromUint64(m.ExecutionPrice).BigInt(),
		ExecutionQuantity: field.FromUint64(m.ExecutionQuantity).BigInt(),
		Role:              uint8(role),
	}

	ok, err = s.intents.VerifyIntentSignature(intent, signature, common.HexToAddress(trader))
	if err != nil {
		return errs.ForMatchf(errs.InvalidInput, matchID, "verifying signature: %v", err)
	}
	if !ok {
		return errs.ForMatch(errs.InvalidInput, matchID, "signature does not match the expected trader")
	}
	return nil
}

func (s *Server) handleWhitelistProof(w http.ResponseWriter, r *http.Request) {
	indexStr := mux.Vars(r)["index"]
	index, err := strconv.ParseUint(indexStr, 10, 64)
	if err != nil {
		respondErr(w, errs.Wrap(errs.InvalidInput, "invalid whitelist index", err))
		return
	}

	proof, leaf, proofErr := s.engine.WhitelistProof(index)
	if proofErr != nil {
		respondErr(w, errs.Wrap(errs.InvalidInput, "resolving whitelist proof", proofErr))
		return
	}

	siblings := make([]string, len(proof.Siblings))
	for i, sib := range proof.Siblings {
		siblings[i] = sib.Hex()
	}
	respondJSON(w, http.StatusOK, WhitelistProofResponse{
		Index:    index,
		Leaf:     leaf.Hex(),
		Root:     s.engine.Whitelist().Root().Hex(),
		Siblings: siblings,
		Indices:  proof.Indices[:],
	})
}

func (s *Server) handleProcessPendingMatches(w http.ResponseWriter, r *http.Request) {
	drained := s.engine.ProcessPendingMatches()
	respondJSON(w, http.StatusOK, map[string]int{"drained": len(drained)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseRole(role string) (settlement.Role, *errs.Error) {
	switch strings.ToLower(role) {
	case "buyer":
		return settlement.RoleBuyer, nil
	case "seller":
		return settlement.RoleSeller, nil
	default:
		return 0, errs.New(errs.InvalidInput, "role must be \"buyer\" or \"seller\"")
	}
}

func matchViews(assetAddress string, matches []orderbook.Match) []MatchView {
	views := make([]MatchView, len(matches))
	for i, m := range matches {
		views[i] = matchView(assetAddress, m)
	}
	return views
}

func matchView(assetAddress string, m orderbook.Match) MatchView {
	return MatchView{
		MatchID:           m.MatchID,
		BuyerAddress:      m.BuyOrder.Trader,
		SellerAddress:     m.SellOrder.Trader,
		AssetAddress:      assetAddress,
		ExecutionPrice:    asset.FromScaledInteger(m.ExecutionPrice),
		ExecutionQuantity: asset.FromScaledInteger(m.ExecutionQuantity),
		Timestamp:         m.Timestamp,
	}
}

func orderBookView(snap engine.OrderBookSnapshot) OrderBookResponse {
	return OrderBookResponse{
		Buys:           len(snap.BuyPrices),
		Sells:          len(snap.SellPrices),
		BuyQuantities:  scaledStrings(snap.BuyQuantities),
		SellQuantities: scaledStrings(snap.SellQuantities),
		BuyPrices:      scaledStrings(snap.BuyPrices),
		SellPrices:     scaledStrings(snap.SellPrices),
	}
}

func scaledStrings(values []uint64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = asset.FromScaledInteger(v)
	}
	return out
}

func settlementView(r *settlement.Record) SettlementView {
	return SettlementView{
		MatchID:       r.MatchID,
		AssetAddress:  r.AssetAddress,
		BuyerAddress:  r.BuyerTrader,
		SellerAddress: r.SellerTrader,
		Status:        string(r.Status),
		NullifierHash: r.NullifierHash,
		ProofHex:      bytesToHex(r.ProofBytes),
		SignalsHex:    bytesToHex(r.PublicSignals),
		BuyerSigned:   r.BuyerSigned,
		SellerSigned:  r.SellerSigned,
		TxHash:        r.TxHash,
		Error:         r.Error,
		ErrorKind:     r.ErrorKind,
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondErr renders any error as the stable {code, message, matchId} shape
// per §7's propagation policy. A non-*errs.Error is surfaced as
// invalid-input with its Go error text, which should only happen for
// programmer errors this layer failed to wrap.
func respondErr(w http.ResponseWriter, err error) {
	e, ok := err.(*errs.Error)
	if !ok {
		respondJSON(w, http.StatusInternalServerError, errorResponse{Code: string(errs.InvalidInput), Message: err.Error()})
		return
	}
	status := http.StatusBadRequest
	if e.Kind != errs.InvalidInput {
		status = http.StatusConflict
	}
	respondJSON(w, status, errorResponse{Code: e.Code(), Message: e.Message, MatchID: e.MatchID})
}

func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

func bytesToHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return "0x" + hex.EncodeToString(b)
}
