/*
Package coins tags headlines with the ticker symbols they mention.
*/
package coins

import (
	"strings"
)

// Symbol pairs a ticker with the aliases that identify it in a headline.
type Symbol struct {
	Ticker  string   `yaml:"ticker"`
	Aliases []string `yaml:"aliases"`
}

// DefaultTable is the set of coins recognised when no table is configured.
var DefaultTable = []Symbol{
	{Ticker: "BTC", Aliases: []string{"BTC", "Bitcoin"}},
	{Ticker: "ETH", Aliases: []string{"ETH", "Ethereum"}},
	{Ticker: "SOL", Aliases: []string{"SOL", "Solana"}},
	{Ticker: "BNB", Aliases: []string{"BNB"}},
	{Ticker: "XRP", Aliases: []string{"XRP", "Ripple"}},
	{Ticker: "DOGE", Aliases: []string{"DOGE", "Dogecoin"}},
	{Ticker: "ADA", Aliases: []string{"ADA", "Cardano"}},
	{Ticker: "MATIC", Aliases: []string{"MATIC", "Polygon"}},
	{Ticker: "LINK", Aliases: []string{"LINK", "Chainlink"}},
}

// Tagger matches headlines against a fixed symbol table. It holds no mutable
// state and is safe for concurrent use.
type Tagger struct {
	symbols []Symbol
}

// NewTagger builds a tagger over table. Aliases are upper-cased once here; an
// empty table falls back to DefaultTable.
func NewTagger(table []Symbol) *Tagger {
	if len(table) == 0 {
		table = DefaultTable
	}

	symbols := make([]Symbol, 0, len(table))
	for _, s := range table {
		ticker := strings.ToUpper(strings.TrimSpace(s.Ticker))
		if ticker == "" {
			continue
		}
		aliases := make([]string, 0, len(s.Aliases))
		for _, a := range s.Aliases {
			if a = strings.ToUpper(strings.TrimSpace(a)); a != "" {
				aliases = append(aliases, a)
			}
		}
		if len(aliases) == 0 {
			aliases = []string{ticker}
		}
		symbols = append(symbols, Symbol{Ticker: ticker, Aliases: aliases})
	}

	return &Tagger{symbols: symbols}
}

// Detect returns every ticker with at least one alias contained in the
// upper-cased title, in table order. A title with no match yields an empty,
// non-nil slice.
func (t *Tagger) Detect(title string) []string {
	upper := strings.ToUpper(title)
	found := []string{}

	for _, s := range t.symbols {
		for _, alias := range s.Aliases {
			if strings.Contains(upper, alias) {
				found = append(found, s.Ticker)
				break
			}
		}
	}

	return found
}

// Tickers lists the symbols the tagger knows about.
func (t *Tagger) Tickers() []string {
	tickers := make([]string, 0, len(t.symbols))
	for _, s := range t.symbols {
		tickers = append(tickers, s.Ticker)
	}
	return tickers
}
