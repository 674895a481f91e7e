package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tokendesk/tokendesk/params"
	"github.com/tokendesk/tokendesk/pkg/api"
	"github.com/tokendesk/tokendesk/pkg/desk"
	"github.com/tokendesk/tokendesk/pkg/ledger"
	"github.com/tokendesk/tokendesk/pkg/storage"
	"github.com/tokendesk/tokendesk/pkg/util"
)

func main() {
	// Load config from .env file and environment variables.
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("deskd_starting",
		"seller", cfg.Desk.Seller.Hex(),
		"divisor", cfg.Desk.Divisor,
		"max_orders", cfg.Desk.MaxOrders,
		"data_dir", cfg.Node.DataDir,
	)

	// ---- Ledgers: the token on sale and the payment currency ----
	var (
		token   *ledger.Ledger
		payment *ledger.Ledger
		store   *storage.DeskStore
	)
	if cfg.Node.DataDir == "" {
		// Devnet: everything in memory.
		token = ledger.NewInMemory(cfg.Desk.TokenSymbol)
		payment = ledger.NewInMemory(cfg.Desk.PaymentSymbol)
	} else {
		token, err = ledger.Open(cfg.Desk.TokenSymbol, filepath.Join(cfg.Node.DataDir, "token"))
		if err != nil {
			log.Fatalf("token ledger: %v", err)
		}
		defer token.Close()
		payment, err = ledger.Open(cfg.Desk.PaymentSymbol, filepath.Join(cfg.Node.DataDir, "payment"))
		if err != nil {
			log.Fatalf("payment ledger: %v", err)
		}
		defer payment.Close()
		store, err = storage.NewDeskStore(filepath.Join(cfg.Node.DataDir, "desk"))
		if err != nil {
			log.Fatalf("desk store: %v", err)
		}
		defer store.Close()
	}

	// First-start provisioning: give the seller something to list.
	if cfg.Desk.SellerMint > 0 && token.BalanceOf(cfg.Desk.Seller) == 0 {
		if err := token.Mint(cfg.Desk.Seller, cfg.Desk.SellerMint); err != nil {
			log.Fatalf("seller mint: %v", err)
		}
		sugar.Infow("seller_provisioned", "minted", cfg.Desk.SellerMint)
	}

	// ---- Desk ----
	hub := api.NewHub()
	deskCfg := desk.Config{
		Seller:    cfg.Desk.Seller,
		Account:   cfg.Desk.Account,
		Token:     token.Account(cfg.Desk.Account),
		Bank:      payment.Account(cfg.Desk.Account),
		Divisor:   cfg.Desk.Divisor,
		MaxOrders: cfg.Desk.MaxOrders,
		Notifier:  hub,
		Logger:    sugar,
	}
	if store != nil {
		deskCfg.Snapshot = store
	}
	d, err := desk.New(deskCfg)
	if err != nil {
		log.Fatalf("desk: %v", err)
	}
	if store != nil {
		orders, err := store.LoadOrders()
		if err != nil {
			log.Fatalf("load orders: %v", err)
		}
		if err := d.Restore(orders); err != nil {
			log.Fatalf("restore orders: %v", err)
		}
		sugar.Infow("book_restored", "orders", len(orders))
	}

	// ---- API ----
	server := api.NewServer(d, token, payment, cfg.Desk, cfg.Node.Faucet, hub, sugar)
	go func() {
		if err := server.Start(cfg.Node.ListenAddr); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	// Block until interrupted.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	sugar.Infow("deskd_stopping", "signal", sig.String())
}
