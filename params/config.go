package params

import (
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Desk holds the immutable sale-desk parameters fixed at startup.
type Desk struct {
	// Seller is the only principal allowed to mutate the order book.
	Seller common.Address
	// Account is the desk's own custody account on both ledgers.
	Account common.Address
	// Divisor is the fixed-point scale relating order prices to payment per
	// token base unit.
	Divisor uint64
	// MaxOrders caps the book; it bounds the worst-case work of one buy.
	MaxOrders int
	// TokenSymbol / PaymentSymbol name the two ledgers in logs and API output.
	TokenSymbol   string
	PaymentSymbol string
	// SellerMint is minted to the seller's token account on first start so a
	// fresh devnet has something to list. Zero disables it.
	SellerMint uint64
}

// Node holds service-level settings.
type Node struct {
	ListenAddr string
	// DataDir is the root for the Pebble databases. Empty means fully
	// in-memory (devnet / tests).
	DataDir string
	LogFile string
	// Faucet enables the devnet mint endpoint. Never enable it on anything
	// holding real balances.
	Faucet bool
}

type Config struct {
	Desk Desk
	Node Node
}

func Default() Config {
	return Config{
		Desk: Desk{
			Seller:        common.HexToAddress("0x00000000000000000000000000000000000dE5c0"),
			Account:       common.HexToAddress("0x00000000000000000000000000000000000dE5d1"),
			Divisor:       1_000_000,
			MaxOrders:     100,
			TokenSymbol:   "TOK",
			PaymentSymbol: "PAY",
			SellerMint:    0,
		},
		Node: Node{
			ListenAddr: ":8420",
			DataDir:    "",
			LogFile:    "data/desk.log",
			Faucet:     true,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and the
// environment. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("DESK_SELLER"); v != "" {
		cfg.Desk.Seller = common.HexToAddress(v)
	}
	if v := os.Getenv("DESK_ACCOUNT"); v != "" {
		cfg.Desk.Account = common.HexToAddress(v)
	}
	if v := os.Getenv("DESK_DIVISOR"); v != "" {
		if d, err := strconv.ParseUint(v, 10, 64); err == nil && d > 0 {
			cfg.Desk.Divisor = d
		}
	}
	if v := os.Getenv("DESK_MAX_ORDERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Desk.MaxOrders = n
		}
	}
	if v := os.Getenv("DESK_TOKEN_SYMBOL"); v != "" {
		cfg.Desk.TokenSymbol = v
	}
	if v := os.Getenv("DESK_PAYMENT_SYMBOL"); v != "" {
		cfg.Desk.PaymentSymbol = v
	}
	if v := os.Getenv("DESK_SELLER_MINT"); v != "" {
		if m, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Desk.SellerMint = m
		}
	}

	if v := os.Getenv("DESK_LISTEN_ADDR"); v != "" {
		cfg.Node.ListenAddr = v
	}
	if v := os.Getenv("DESK_DATA_DIR"); v != "" {
		cfg.Node.DataDir = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}
	if v := os.Getenv("DESK_FAUCET"); v != "" {
		cfg.Node.Faucet = v == "true"
	}

	return cfg
}
