package registry

import (
	"github.com/txn2/mcp-vnstock/pkg/tables"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

// RegisterBuiltinFactories registers a factory for every table family.
func RegisterBuiltinFactories(r *Registry) {
	r.RegisterFactory(tables.FamilyStock, StockFactory)
	r.RegisterFactory(tables.FamilyQuote, QuoteFactory)
	r.RegisterFactory(tables.FamilyFund, FundFactory)
	r.RegisterFactory(tables.FamilyFundList, FundListFactory)
	r.RegisterFactory(tables.FamilyGold, GoldFactory)
	r.RegisterFactory(tables.FamilyExchangeRate, ExchangeRateFactory)
}

// StockFactory creates a stock table.
func StockFactory(name string, r vnstock.Resource, deps tables.Deps) (tables.Table, error) {
	return tables.NewStockTable(name, r, deps)
}

// QuoteFactory creates a quote history table.
func QuoteFactory(name string, r vnstock.Resource, deps tables.Deps) (tables.Table, error) {
	return tables.NewQuoteTable(name, r, deps)
}

// FundFactory creates a fund detail table.
func FundFactory(name string, r vnstock.Resource, deps tables.Deps) (tables.Table, error) {
	return tables.NewFundTable(name, r, deps)
}

// FundListFactory creates the fund listing table.
func FundListFactory(name string, r vnstock.Resource, deps tables.Deps) (tables.Table, error) {
	return tables.NewFundListTable(name, r, deps)
}

// GoldFactory creates a gold price table.
func GoldFactory(name string, r vnstock.Resource, deps tables.Deps) (tables.Table, error) {
	return tables.NewGoldPriceTable(name, r, deps)
}

// ExchangeRateFactory creates the exchange-rate table.
func ExchangeRateFactory(name string, r vnstock.Resource, deps tables.Deps) (tables.Table, error) {
	return tables.NewExchangeRateTable(name, r, deps)
}

// Builtins returns the default table set.
func Builtins() []TableConfig {
	return []TableConfig{
		{Name: "stock_list_all_symbols", Family: "stock", Resource: "stock.listing.all_symbols"},
		{Name: "stock_list_all_symbols_by_exchange", Family: "stock", Resource: "stock.listing.symbols_by_exchange"},
		{Name: "stock_listing_all_symbols_by_industries", Family: "stock", Resource: "stock.listing.symbols_by_industries"},

		{Name: "stock_company_overview", Family: "stock", Resource: "stock.company.overview"},
		{Name: "stock_company_profile", Family: "stock", Resource: "stock.company.profile"},
		{Name: "stock_company_shareholders", Family: "stock", Resource: "stock.company.shareholders"},
		{Name: "stock_company_officers", Family: "stock", Resource: "stock.company.officers"},
		{Name: "stock_company_subsidiaries", Family: "stock", Resource: "stock.company.subsidiaries"},
		{Name: "stock_company_dividends", Family: "stock", Resource: "stock.company.dividends"},
		{Name: "stock_company_insider_deals", Family: "stock", Resource: "stock.company.insider_deals"},
		{Name: "stock_company_events", Family: "stock", Resource: "stock.company.events"},
		{Name: "stock_company_news", Family: "stock", Resource: "stock.company.news"},

		{Name: "stock_finance_income_statement", Family: "stock", Resource: "stock.finance.income_statement"},
		{Name: "stock_finance_balance_sheet", Family: "stock", Resource: "stock.finance.balance_sheet"},
		{Name: "stock_finance_cash_flow", Family: "stock", Resource: "stock.finance.cash_flow"},
		{Name: "stock_finance_ratio", Family: "stock", Resource: "stock.finance.ratio"},

		{Name: "stock_quote_history", Family: "quote", Resource: "stock.quote.history"},
		{Name: "stock_quote_intraday", Family: "stock", Resource: "stock.quote.intraday"},
		{Name: "quote_history", Family: "quote", Resource: "stock.quote.history"},
		{Name: "fx_quote_history", Family: "quote", Resource: "fx.quote.history"},
		{Name: "crypto_quote_history", Family: "quote", Resource: "crypto.quote.history"},
		{Name: "world_index_quote_history", Family: "quote", Resource: "world_index.quote.history"},

		{Name: "fund_list", Family: "fund_list", Resource: "fund.listing"},
		{Name: "fund_filter", Family: "fund", Resource: "fund.filter"},
		{Name: "fund_details_nav_report", Family: "fund", Resource: "fund.details.nav_report"},
		{Name: "fund_details_top_holding", Family: "fund", Resource: "fund.details.top_holding"},
		{Name: "fund_details_industry_holding", Family: "fund", Resource: "fund.details.industry_holding"},
		{Name: "fund_details_asset_holding", Family: "fund", Resource: "fund.details.asset_holding"},

		{Name: "gold_price_sjc_gold_price", Family: "gold", Resource: "gold.sjc"},
		{Name: "gold_price_btmc_gold_price", Family: "gold", Resource: "gold.btmc"},

		{Name: "exchange_rate", Family: "exchange_rate", Resource: "exchange_rate.vcb"},
	}
}
