package exchange

import "strings"

// Known quote currencies for pair splitting, longest match first
var quotes = []string{
	"USDT",
	"BUSD",
	"USDC",
	"BTC",
	"BNB",
	"ETH",
	"EUR",
	"TRY",
	"AUD",
	"BRL",
	"GBP",
	"USD",
	"NGN",
}

// FormatPair builds a pair symbol from a base asset and quote currency
func FormatPair(asset, quote string) string {
	return strings.ToUpper(asset + quote)
}

// SplitAssetQuote splits a trading pair into base asset and quote asset
func SplitAssetQuote(pair string) (asset, quote string) {
	for _, q := range quotes {
		if len(pair) > len(q) && strings.HasSuffix(pair, q) {
			return pair[:len(pair)-len(q)], q
		}
	}
	return pair[:len(pair)/2], pair[len(pair)/2:]
}
