package api

// Request and response shapes for the REST endpoints and WebSocket events.
// All amounts are raw base units, all prices are smallest-payment-unit
// scaled by the desk divisor.

// ==============================
// Requests
// ==============================

// AddOrderRequest lists a new order. From must be the seller.
type AddOrderRequest struct {
	From   string `json:"from"`
	Price  uint64 `json:"price"`
	Amount uint64 `json:"amount"`
}

// AmountRequest carries the amount for increase/decrease ops.
type AmountRequest struct {
	From   string `json:"from"`
	Amount uint64 `json:"amount"`
}

// RemoveOrderRequest identifies the caller of a removal.
type RemoveOrderRequest struct {
	From string `json:"from"`
}

// BuyRequest spends Budget payment units across the book. MaxPrice zero or
// omitted means no price ceiling (the default purchase).
type BuyRequest struct {
	Buyer    string `json:"buyer"`
	Budget   uint64 `json:"budget"`
	MaxPrice uint64 `json:"maxPrice,omitempty"`
}

// MintRequest credits a devnet faucet mint. Ledger is "token" or "payment".
type MintRequest struct {
	Ledger string `json:"ledger"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ApproveRequest sets Owner's allowance for the desk on one ledger.
type ApproveRequest struct {
	Ledger string `json:"ledger"`
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
}

// ==============================
// Responses
// ==============================

// OrderInfo is one order slot.
type OrderInfo struct {
	ID     uint64 `json:"id"`
	Price  uint64 `json:"price"`
	Amount uint64 `json:"amount"`
	Open   bool   `json:"open"`
}

// AddOrderResponse returns the id assigned to a new order.
type AddOrderResponse struct {
	ID uint64 `json:"id"`
}

// BuyResponse reports a completed purchase.
type BuyResponse struct {
	Buyer        string `json:"buyer"`
	Budget       uint64 `json:"budget"`
	TokensBought uint64 `json:"tokensBought"`
}

// CheapestResponse is the cheapest open order, if any.
type CheapestResponse struct {
	Found  bool   `json:"found"`
	ID     uint64 `json:"id,omitempty"`
	Price  uint64 `json:"price,omitempty"`
	Amount uint64 `json:"amount,omitempty"`
}

// ConfigInfo is the desk's static configuration.
type ConfigInfo struct {
	Seller        string `json:"seller"`
	DeskAccount   string `json:"deskAccount"`
	TokenSymbol   string `json:"tokenSymbol"`
	PaymentSymbol string `json:"paymentSymbol"`
	Divisor       uint64 `json:"divisor"`
	MaxOrders     int    `json:"maxOrders"`
}

// BalanceInfo is one account's holdings on both ledgers.
type BalanceInfo struct {
	Address string `json:"address"`
	Token   uint64 `json:"token"`
	Payment uint64 `json:"payment"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket events
// ==============================

// PurchaseEvent is broadcast to all WebSocket clients after each buy.
type PurchaseEvent struct {
	Type         string `json:"type"` // always "purchase"
	Buyer        string `json:"buyer"`
	TokensBought uint64 `json:"tokensBought"`
	Timestamp    int64  `json:"timestamp"` // Unix milliseconds
}
