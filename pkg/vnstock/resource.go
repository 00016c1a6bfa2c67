package vnstock

import (
	"fmt"
	"sort"
)

// Resource identifies one upstream data method. The set is closed: every
// value maps to a fixed route in the dispatch table below.
type Resource int

// Known resources.
const (
	ResourceUnknown Resource = iota

	StockListingAllSymbols
	StockListingSymbolsByExchange
	StockListingSymbolsByIndustries

	StockCompanyOverview
	StockCompanyProfile
	StockCompanyShareholders
	StockCompanyOfficers
	StockCompanySubsidiaries
	StockCompanyDividends
	StockCompanyInsiderDeals
	StockCompanyEvents
	StockCompanyNews

	StockFinanceIncomeStatement
	StockFinanceBalanceSheet
	StockFinanceCashFlow
	StockFinanceRatio

	StockQuoteHistory
	StockQuoteIntraday
	FXQuoteHistory
	CryptoQuoteHistory
	WorldIndexQuoteHistory

	FundListing
	FundFilter
	FundNAVReport
	FundTopHolding
	FundIndustryHolding
	FundAssetHolding

	GoldSJC
	GoldBTMC
	ExchangeRateVCB
)

// route describes how a resource is reached upstream.
type route struct {
	path string
	// requires lists request fields the upstream rejects when absent.
	requires []string
}

var routes = map[Resource]struct {
	name  string
	route route
}{
	StockListingAllSymbols:          {"stock.listing.all_symbols", route{path: "/stock/listing/all_symbols"}},
	StockListingSymbolsByExchange:   {"stock.listing.symbols_by_exchange", route{path: "/stock/listing/symbols_by_exchange"}},
	StockListingSymbolsByIndustries: {"stock.listing.symbols_by_industries", route{path: "/stock/listing/symbols_by_industries"}},

	StockCompanyOverview:     {"stock.company.overview", route{path: "/stock/company/overview", requires: []string{"symbol"}}},
	StockCompanyProfile:      {"stock.company.profile", route{path: "/stock/company/profile", requires: []string{"symbol"}}},
	StockCompanyShareholders: {"stock.company.shareholders", route{path: "/stock/company/shareholders", requires: []string{"symbol"}}},
	StockCompanyOfficers:     {"stock.company.officers", route{path: "/stock/company/officers", requires: []string{"symbol"}}},
	StockCompanySubsidiaries: {"stock.company.subsidiaries", route{path: "/stock/company/subsidiaries", requires: []string{"symbol"}}},
	StockCompanyDividends:    {"stock.company.dividends", route{path: "/stock/company/dividends", requires: []string{"symbol"}}},
	StockCompanyInsiderDeals: {"stock.company.insider_deals", route{path: "/stock/company/insider_deals", requires: []string{"symbol"}}},
	StockCompanyEvents:       {"stock.company.events", route{path: "/stock/company/events", requires: []string{"symbol"}}},
	StockCompanyNews:         {"stock.company.news", route{path: "/stock/company/news", requires: []string{"symbol"}}},

	StockFinanceIncomeStatement: {"stock.finance.income_statement", route{path: "/stock/finance/income_statement", requires: []string{"symbol"}}},
	StockFinanceBalanceSheet:    {"stock.finance.balance_sheet", route{path: "/stock/finance/balance_sheet", requires: []string{"symbol"}}},
	StockFinanceCashFlow:        {"stock.finance.cash_flow", route{path: "/stock/finance/cash_flow", requires: []string{"symbol"}}},
	StockFinanceRatio:           {"stock.finance.ratio", route{path: "/stock/finance/ratio", requires: []string{"symbol"}}},

	StockQuoteHistory:      {"stock.quote.history", route{path: "/stock/quote/history", requires: []string{"symbol"}}},
	StockQuoteIntraday:     {"stock.quote.intraday", route{path: "/stock/quote/intraday", requires: []string{"symbol"}}},
	FXQuoteHistory:         {"fx.quote.history", route{path: "/fx/quote/history", requires: []string{"symbol"}}},
	CryptoQuoteHistory:     {"crypto.quote.history", route{path: "/crypto/quote/history", requires: []string{"symbol"}}},
	WorldIndexQuoteHistory: {"world_index.quote.history", route{path: "/world_index/quote/history", requires: []string{"symbol"}}},

	FundListing:         {"fund.listing", route{path: "/fund/listing"}},
	FundFilter:          {"fund.filter", route{path: "/fund/filter"}},
	FundNAVReport:       {"fund.details.nav_report", route{path: "/fund/details/nav_report", requires: []string{"symbol"}}},
	FundTopHolding:      {"fund.details.top_holding", route{path: "/fund/details/top_holding", requires: []string{"symbol"}}},
	FundIndustryHolding: {"fund.details.industry_holding", route{path: "/fund/details/industry_holding", requires: []string{"symbol"}}},
	FundAssetHolding:    {"fund.details.asset_holding", route{path: "/fund/details/asset_holding", requires: []string{"symbol"}}},

	GoldSJC:         {"gold.sjc", route{path: "/misc/gold/sjc"}},
	GoldBTMC:        {"gold.btmc", route{path: "/misc/gold/btmc"}},
	ExchangeRateVCB: {"exchange_rate.vcb", route{path: "/misc/exchange_rate/vcb", requires: []string{"date"}}},
}

var byName = func() map[string]Resource {
	m := make(map[string]Resource, len(routes))
	for r, def := range routes {
		m[def.name] = r
	}
	return m
}()

// String returns the dotted resource path, e.g. "stock.company.overview".
func (r Resource) String() string {
	if def, ok := routes[r]; ok {
		return def.name
	}
	return fmt.Sprintf("resource(%d)", int(r))
}

// Valid reports whether r is in the dispatch table.
func (r Resource) Valid() bool {
	_, ok := routes[r]
	return ok
}

// Path returns the upstream route for r.
func (r Resource) Path() string {
	return routes[r].route.path
}

// Requires returns the request fields the upstream needs for r.
func (r Resource) Requires() []string {
	return routes[r].route.requires
}

// MarshalText encodes r as its dotted path.
func (r Resource) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownResource, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a dotted path.
func (r *Resource) UnmarshalText(text []byte) error {
	parsed, err := ParseResource(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseResource resolves a dotted path against the dispatch table.
func ParseResource(name string) (Resource, error) {
	if r, ok := byName[name]; ok {
		return r, nil
	}
	return ResourceUnknown, fmt.Errorf("%w: %q", ErrUnknownResource, name)
}

// Resources returns every known resource ordered by dotted path.
func Resources() []Resource {
	out := make([]Resource, 0, len(routes))
	for r := range routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
