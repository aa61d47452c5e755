package constants

import "time"

// Redis keys
const (
	RedisKeyRecentOrders = "orders:recent"
	RedisKeyPositions    = "positions:open"
)

// Redis Pub/Sub channels
const (
	PubSubChannelOrders = "orders:live"
)

// Limits
const (
	MaxRecentOrders    = 100
	SignatureBatchSize = 3 // Reduced to avoid rate limits on public RPC
)

// Rate limiting
const (
	DelayBetweenTxFetch = 3 * time.Second // Delay between getTransaction calls
)

// Transaction limits
const (
	// Maximum serialized transaction size accepted by the network. Oversized
	// transactions are rejected at build time, never submitted.
	MaxTransactionBytes = 1232
)

// Order lifecycle
const (
	// DefaultOrderAttempts is the total retry budget for one logical order.
	DefaultOrderAttempts = 3
)

// Program addresses
const (
	// Raydium AMM v4 liquidity program
	RaydiumAMMProgram = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// OpenBook (serum v3 successor) central limit order book program
	OpenBookProgram = "srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX"
	// wSOL mint, the reference currency for liquidity measures
	WSOLMint = "So11111111111111111111111111111111111111112"
)

// Jito block engine endpoints (bundle submission APIs)
var BlockEngineEndpoints = []string{
	"https://mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://frankfurt.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://ny.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://tokyo.mainnet.block-engine.jito.wtf/api/v1/bundles",
}

// Jito tip accounts; one is picked per bundle
var JitoTipAccounts = []string{
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	"DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL",
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
	"3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT",
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
	"ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt",
	"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh",
}

// Token mint addresses to symbols, for logs and API responses
var TokenSymbols = map[string]string{
	"So11111111111111111111111111111111111111112":  "SOL",
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R": "RAY",
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": "BONK",
	"7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr": "POPCAT",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "JUP",
}
