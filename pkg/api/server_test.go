package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tokendesk/tokendesk/params"
	"github.com/tokendesk/tokendesk/pkg/desk"
	"github.com/tokendesk/tokendesk/pkg/ledger"
)

var (
	testSeller = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testDesk   = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	testBuyer  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	token := ledger.NewInMemory("TOK")
	payment := ledger.NewInMemory("PAY")
	require.NoError(t, token.Mint(testSeller, 10_000_000_000))
	require.NoError(t, token.Approve(testSeller, testDesk, math.MaxUint64))
	require.NoError(t, payment.Mint(testBuyer, 10_000_000_000))
	require.NoError(t, payment.Approve(testBuyer, testDesk, math.MaxUint64))

	hub := NewHub()
	d, err := desk.New(desk.Config{
		Seller:    testSeller,
		Account:   testDesk,
		Token:     token.Account(testDesk),
		Bank:      payment.Account(testDesk),
		Divisor:   1,
		MaxOrders: 10,
		Notifier:  hub,
	})
	require.NoError(t, err)

	cfg := params.Default().Desk
	cfg.Seller = testSeller
	cfg.Account = testDesk
	return NewServer(d, token, payment, cfg, true, hub, zap.NewNop().Sugar())
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestAddOrderEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/v1/orders", AddOrderRequest{
		From: testSeller.Hex(), Price: 100, Amount: 2000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AddOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(0), resp.ID)

	rec = doJSON(t, s, "GET", "/api/v1/orders/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info OrderInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, OrderInfo{ID: 0, Price: 100, Amount: 2000, Open: true}, info)
}

func TestAddOrderForbiddenForNonSeller(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/v1/orders", AddOrderRequest{
		From: testBuyer.Hex(), Price: 100, Amount: 2000,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnknownOrderIs404(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/v1/orders/7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, "POST", "/api/v1/orders/7/increase", AmountRequest{From: testSeller.Hex(), Amount: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheapestEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/v1/orders/cheapest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cheap CheapestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cheap))
	assert.False(t, cheap.Found)

	doJSON(t, s, "POST", "/api/v1/orders", AddOrderRequest{From: testSeller.Hex(), Price: 300, Amount: 10})
	doJSON(t, s, "POST", "/api/v1/orders", AddOrderRequest{From: testSeller.Hex(), Price: 200, Amount: 10})

	rec = doJSON(t, s, "GET", "/api/v1/orders/cheapest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cheap))
	assert.True(t, cheap.Found)
	assert.Equal(t, uint64(1), cheap.ID)
	assert.Equal(t, uint64(200), cheap.Price)
}

func TestBuyEndpoint(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, "POST", "/api/v1/orders", AddOrderRequest{From: testSeller.Hex(), Price: 1000, Amount: 1_000_000})

	rec := doJSON(t, s, "POST", "/api/v1/buy", BuyRequest{
		Buyer: testBuyer.Hex(), Budget: 2_000_000_000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp BuyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1_000_000), resp.TokensBought)

	// The buyer now holds the tokens; the seller got the proceeds.
	rec = doJSON(t, s, "GET", "/api/v1/balances/"+testBuyer.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal BalanceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	assert.Equal(t, uint64(1_000_000), bal.Token)
	assert.Equal(t, uint64(9_000_000_000), bal.Payment)
}

func TestFaucetMintAndApprove(t *testing.T) {
	s := newTestServer(t)

	other := common.HexToAddress("0x0000000000000000000000000000000000000077")
	rec := doJSON(t, s, "POST", "/api/v1/faucet/mint", MintRequest{Ledger: "payment", To: other.Hex(), Amount: 500})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, s, "POST", "/api/v1/faucet/approve", ApproveRequest{Ledger: "payment", Owner: other.Hex(), Amount: 500})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, "POST", "/api/v1/faucet/mint", MintRequest{Ledger: "bogus", To: other.Hex(), Amount: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg ConfigInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, testSeller.Hex(), cfg.Seller)
	assert.Equal(t, uint64(1), cfg.Divisor)
	assert.Equal(t, 10, cfg.MaxOrders)
}
