// Package api exposes the sale desk over REST plus a WebSocket purchase feed.
// Administrative calls carry the caller address in the request body; the
// deployment is expected to sit behind a gateway that authenticates it.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/tokendesk/tokendesk/params"
	"github.com/tokendesk/tokendesk/pkg/desk"
	"github.com/tokendesk/tokendesk/pkg/ledger"
)

// Server handles REST API and WebSocket connections.
type Server struct {
	desk    *desk.Desk
	token   *ledger.Ledger
	payment *ledger.Ledger
	cfg     params.Desk
	faucet  bool

	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

// NewServer wires the desk and its two ledgers into a router. The hub is
// created by the caller so it can also serve as the desk's notifier.
func NewServer(d *desk.Desk, token, payment *ledger.Ledger, cfg params.Desk, faucet bool, hub *Hub, log *zap.SugaredLogger) *Server {
	s := &Server{
		desk:    d,
		token:   token,
		payment: payment,
		cfg:     cfg,
		faucet:  faucet,
		router:  mux.NewRouter(),
		hub:     hub,
		log:     log,
	}
	s.setupRoutes()
	return s
}

// Hub returns the WebSocket hub, which implements desk.Notifier.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Reads. "cheapest" is registered before "{id}" so it wins the match.
	api.HandleFunc("/orders/cheapest", s.handleCheapestOrder).Methods("GET")
	api.HandleFunc("/orders", s.handleGetOpenOrders).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/metrics", s.handleGetMetrics).Methods("GET")
	api.HandleFunc("/balances/{address}", s.handleGetBalances).Methods("GET")

	// Seller administration.
	api.HandleFunc("/orders", s.handleAddOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/increase", s.handleIncreaseAmount).Methods("POST")
	api.HandleFunc("/orders/{id}/decrease", s.handleDecreaseAmount).Methods("POST")
	api.HandleFunc("/orders/{id}", s.handleRemoveOrder).Methods("DELETE")

	// Purchases.
	api.HandleFunc("/buy", s.handleBuy).Methods("POST")

	// Devnet provisioning.
	if s.faucet {
		api.HandleFunc("/faucet/mint", s.handleMint).Methods("POST")
		api.HandleFunc("/faucet/approve", s.handleApprove).Methods("POST")
	}

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the WebSocket hub and serves HTTP on addr. Blocks.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	})

	s.log.Infow("api_listening", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// ==============================
// REST handlers
// ==============================

func (s *Server) handleGetOpenOrders(w http.ResponseWriter, r *http.Request) {
	ids := s.desk.OpenOrders()
	out := make([]OrderInfo, 0, len(ids))
	for _, id := range ids {
		o, err := s.desk.Order(id)
		if err != nil {
			continue
		}
		out = append(out, OrderInfo{ID: id, Price: o.Price, Amount: o.Amount, Open: o.Open()})
	}
	respondJSON(w, out)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	o, err := s.desk.Order(id)
	if err != nil {
		s.respondDeskError(w, err)
		return
	}
	respondJSON(w, OrderInfo{ID: id, Price: o.Price, Amount: o.Amount, Open: o.Open()})
}

func (s *Server) handleCheapestOrder(w http.ResponseWriter, r *http.Request) {
	id, found := s.desk.CheapestOrder()
	if !found {
		respondJSON(w, CheapestResponse{Found: false})
		return
	}
	o, err := s.desk.Order(id)
	if err != nil {
		s.respondDeskError(w, err)
		return
	}
	respondJSON(w, CheapestResponse{Found: true, ID: id, Price: o.Price, Amount: o.Amount})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, ConfigInfo{
		Seller:        s.cfg.Seller.Hex(),
		DeskAccount:   s.cfg.Account.Hex(),
		TokenSymbol:   s.cfg.TokenSymbol,
		PaymentSymbol: s.cfg.PaymentSymbol,
		Divisor:       s.desk.Divisor(),
		MaxOrders:     s.desk.MaxOrders(),
	})
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.desk.Metrics().Snapshot())
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}
	respondJSON(w, BalanceInfo{
		Address: addr.Hex(),
		Token:   s.token.BalanceOf(addr),
		Payment: s.payment.BalanceOf(addr),
	})
}

func (s *Server) handleAddOrder(w http.ResponseWriter, r *http.Request) {
	var req AddOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	from, ok := parseAddress(w, req.From)
	if !ok {
		return
	}
	id, err := s.desk.AddOrder(from, req.Price, req.Amount)
	if err != nil {
		s.respondDeskError(w, err)
		return
	}
	respondJSON(w, AddOrderResponse{ID: id})
}

func (s *Server) handleIncreaseAmount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	from, ok := parseAddress(w, req.From)
	if !ok {
		return
	}
	if err := s.desk.IncreaseAmount(from, id, req.Amount); err != nil {
		s.respondDeskError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleDecreaseAmount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	from, ok := parseAddress(w, req.From)
	if !ok {
		return
	}
	if err := s.desk.DecreaseAmount(from, id, req.Amount); err != nil {
		s.respondDeskError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	var req RemoveOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	from, ok := parseAddress(w, req.From)
	if !ok {
		return
	}
	if err := s.desk.RemoveOrder(from, id); err != nil {
		s.respondDeskError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	buyer, ok := parseAddress(w, req.Buyer)
	if !ok {
		return
	}

	var bought uint64
	var err error
	if req.MaxPrice == 0 {
		// No ceiling given: the default purchase buys at any price.
		bought, err = s.desk.BuyAny(buyer, req.Budget)
	} else {
		bought, err = s.desk.Buy(buyer, req.MaxPrice, req.Budget)
	}
	if err != nil {
		s.respondDeskError(w, err)
		return
	}
	respondJSON(w, BuyResponse{Buyer: buyer.Hex(), Budget: req.Budget, TokensBought: bought})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	to, ok := parseAddress(w, req.To)
	if !ok {
		return
	}
	l, ok := s.pickLedger(w, req.Ledger)
	if !ok {
		return
	}
	if err := l.Mint(to, req.Amount); err != nil {
		respondError(w, http.StatusBadRequest, "mint failed", err.Error())
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

// handleApprove sets the owner's allowance for the desk account, which is the
// only spender the service ever uses.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, ok := parseAddress(w, req.Owner)
	if !ok {
		return
	}
	l, ok := s.pickLedger(w, req.Ledger)
	if !ok {
		return
	}
	if err := l.Approve(owner, s.desk.Account(), req.Amount); err != nil {
		respondError(w, http.StatusBadRequest, "approve failed", err.Error())
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func (s *Server) pickLedger(w http.ResponseWriter, name string) (*ledger.Ledger, bool) {
	switch name {
	case "token":
		return s.token, true
	case "payment":
		return s.payment, true
	default:
		respondError(w, http.StatusBadRequest, "unknown ledger", "expected \"token\" or \"payment\"")
		return nil, false
	}
}

// respondDeskError maps desk error kinds to HTTP statuses.
func (s *Server) respondDeskError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, desk.ErrNotSeller):
		status = http.StatusForbidden
	case errors.Is(err, desk.ErrNoSuchOrder):
		status = http.StatusNotFound
	case errors.Is(err, desk.ErrBookFull):
		status = http.StatusConflict
	case errors.Is(err, desk.ErrOverflow):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, desk.ErrTransferFailed):
		status = http.StatusBadGateway
	}
	respondError(w, status, "operation failed", err.Error())
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", err.Error())
		return 0, false
	}
	return id, true
}

func parseAddress(w http.ResponseWriter, raw string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, "invalid address", raw)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: error, Message: message})
}
