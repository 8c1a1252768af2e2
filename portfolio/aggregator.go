// Package portfolio derives performance figures from a user's
// investments and transactions. Everything here is a pure function of
// its inputs: arithmetic stays in decimals end to end and rounds to
// two places only when a figure is formatted for a response.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
)

var hundred = decimal.NewFromInt(100)

// Metrics holds the per-investment figures before formatting.
type Metrics struct {
	CurrentValue     decimal.Decimal
	CostBasis        decimal.Decimal
	ReturnValue      decimal.Decimal
	ReturnPercentage decimal.Decimal
}

// ComputeMetrics values a single investment at its current mark.
// A zero cost basis yields a zero return percentage.
func ComputeMetrics(inv models.Investment) Metrics {
	currentValue := inv.Quantity.Mul(inv.CurrentPrice)
	costBasis := inv.Quantity.Mul(inv.PurchasePrice)
	returnValue := currentValue.Sub(costBasis)

	returnPercentage := decimal.Zero
	if costBasis.IsPositive() {
		returnPercentage = returnValue.Div(costBasis).Mul(hundred)
	}

	return Metrics{
		CurrentValue:     currentValue,
		CostBasis:        costBasis,
		ReturnValue:      returnValue,
		ReturnPercentage: returnPercentage,
	}
}

// EnrichedInvestment is an investment with its valuation figures
// rendered to two decimal places.
type EnrichedInvestment struct {
	models.Investment
	CurrentValue     string `json:"currentValue"`
	CostBasis        string `json:"costBasis"`
	ReturnValue      string `json:"returnValue"`
	ReturnPercentage string `json:"returnPercentage"`

	returnPct decimal.Decimal
}

// Allocation is the share of portfolio value held in one category.
type Allocation struct {
	Value      string `json:"value"`
	Percentage string `json:"percentage"`
	Count      int    `json:"count"`
}

// Summary is the portfolio-wide headline figures.
type Summary struct {
	TotalValue            string `json:"totalValue"`
	TotalCost             string `json:"totalCost"`
	TotalReturn           string `json:"totalReturn"`
	TotalReturnPercentage string `json:"totalReturnPercentage"`
	TotalInvestments      int    `json:"totalInvestments"`
	TotalTransactions     int    `json:"totalTransactions"`
}

// Overview is the full aggregation over a user's holdings.
type Overview struct {
	Summary         Summary               `json:"summary"`
	AssetAllocation map[string]Allocation `json:"assetAllocation"`
	TopPerformers   []EnrichedInvestment  `json:"topPerformers"`
	WorstPerformers []EnrichedInvestment  `json:"worstPerformers"`
	Investments     []EnrichedInvestment  `json:"investments"`
}

type typeBucket struct {
	value decimal.Decimal
	count int
}

// BuildOverview computes summary totals, allocation by category and
// best/worst performer rankings. totalTransactions is carried into the
// summary untouched.
func BuildOverview(investments []models.Investment, totalTransactions int) Overview {
	totalValue := decimal.Zero
	totalCost := decimal.Zero

	buckets := make(map[string]typeBucket)
	enriched := make([]EnrichedInvestment, 0, len(investments))

	for _, inv := range investments {
		m := ComputeMetrics(inv)

		totalValue = totalValue.Add(m.CurrentValue)
		totalCost = totalCost.Add(m.CostBasis)

		b := buckets[inv.Type]
		b.value = b.value.Add(m.CurrentValue)
		b.count++
		buckets[inv.Type] = b

		enriched = append(enriched, EnrichedInvestment{
			Investment:       inv,
			CurrentValue:     m.CurrentValue.StringFixed(2),
			CostBasis:        m.CostBasis.StringFixed(2),
			ReturnValue:      m.ReturnValue.StringFixed(2),
			ReturnPercentage: m.ReturnPercentage.StringFixed(2),
			returnPct:        m.ReturnPercentage,
		})
	}

	totalReturn := totalValue.Sub(totalCost)
	totalReturnPercentage := decimal.Zero
	if totalCost.IsPositive() {
		totalReturnPercentage = totalReturn.Div(totalCost).Mul(hundred)
	}

	allocation := make(map[string]Allocation, len(buckets))
	for t, b := range buckets {
		percentage := decimal.Zero
		if totalValue.IsPositive() {
			percentage = b.value.Div(totalValue).Mul(hundred)
		}
		allocation[t] = Allocation{
			Value:      b.value.StringFixed(2),
			Percentage: percentage.StringFixed(2),
			Count:      b.count,
		}
	}

	sort.SliceStable(enriched, func(i, j int) bool {
		return enriched[i].returnPct.GreaterThan(enriched[j].returnPct)
	})

	return Overview{
		Summary: Summary{
			TotalValue:            totalValue.StringFixed(2),
			TotalCost:             totalCost.StringFixed(2),
			TotalReturn:           totalReturn.StringFixed(2),
			TotalReturnPercentage: totalReturnPercentage.StringFixed(2),
			TotalInvestments:      len(investments),
			TotalTransactions:     totalTransactions,
		},
		AssetAllocation: allocation,
		TopPerformers:   topPerformers(enriched),
		WorstPerformers: worstPerformers(enriched),
		Investments:     enriched,
	}
}

// topPerformers is the head of the descending ranking.
func topPerformers(sorted []EnrichedInvestment) []EnrichedInvestment {
	n := len(sorted)
	if n > 3 {
		n = 3
	}
	top := make([]EnrichedInvestment, n)
	copy(top, sorted[:n])
	return top
}

// worstPerformers is the tail of the descending ranking, reversed so
// the single worst holding comes first.
func worstPerformers(sorted []EnrichedInvestment) []EnrichedInvestment {
	n := len(sorted)
	if n > 3 {
		n = 3
	}
	worst := make([]EnrichedInvestment, 0, n)
	for i := len(sorted) - 1; i >= len(sorted)-n; i-- {
		worst = append(worst, sorted[i])
	}
	return worst
}

// TypeBreakdown is one category's share in the condensed summary.
type TypeBreakdown struct {
	Type       string `json:"type"`
	Value      string `json:"value"`
	Percentage string `json:"percentage"`
}

// CondensedSummary is the payload of the summary endpoint.
type CondensedSummary struct {
	TotalValue       string          `json:"totalValue"`
	TotalCost        string          `json:"totalCost"`
	TotalReturn      string          `json:"totalReturn"`
	ReturnPercentage string          `json:"returnPercentage"`
	InvestmentCount  int64           `json:"investmentCount"`
	TransactionCount int64           `json:"transactionCount"`
	TypeBreakdown    []TypeBreakdown `json:"typeBreakdown"`
}

// BuildCondensedSummary computes the reduced totals-and-breakdown view.
// The breakdown is ordered by category name so the output is stable.
func BuildCondensedSummary(investments []models.Investment, investmentCount, transactionCount int64) CondensedSummary {
	totalValue := decimal.Zero
	totalCost := decimal.Zero
	byType := make(map[string]decimal.Decimal)

	for _, inv := range investments {
		value := inv.Quantity.Mul(inv.CurrentPrice)
		cost := inv.Quantity.Mul(inv.PurchasePrice)
		totalValue = totalValue.Add(value)
		totalCost = totalCost.Add(cost)
		byType[inv.Type] = byType[inv.Type].Add(value)
	}

	totalReturn := totalValue.Sub(totalCost)
	returnPercentage := decimal.Zero
	if totalCost.IsPositive() {
		returnPercentage = totalReturn.Div(totalCost).Mul(hundred)
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	breakdown := make([]TypeBreakdown, 0, len(types))
	for _, t := range types {
		percentage := decimal.Zero
		if totalValue.IsPositive() {
			percentage = byType[t].Div(totalValue).Mul(hundred)
		}
		breakdown = append(breakdown, TypeBreakdown{
			Type:       t,
			Value:      byType[t].StringFixed(2),
			Percentage: percentage.StringFixed(2),
		})
	}

	return CondensedSummary{
		TotalValue:       totalValue.StringFixed(2),
		TotalCost:        totalCost.StringFixed(2),
		TotalReturn:      totalReturn.StringFixed(2),
		ReturnPercentage: returnPercentage.StringFixed(2),
		InvestmentCount:  investmentCount,
		TransactionCount: transactionCount,
		TypeBreakdown:    breakdown,
	}
}

// EnrichedTransaction is a transaction with its execution value and,
// when the parent investment is loaded, its value at the current mark.
type EnrichedTransaction struct {
	models.Transaction
	TotalValue   string `json:"totalValue"`
	CurrentValue string `json:"currentValue,omitempty"`
	GainLoss     string `json:"gainLoss,omitempty"`
}

// EnrichTransaction computes the execution value and, when the parent
// investment's current price is available, the present value and
// gain/loss of the traded quantity.
func EnrichTransaction(t models.Transaction) EnrichedTransaction {
	totalValue := t.Quantity.Mul(t.Price)
	e := EnrichedTransaction{
		Transaction: t,
		TotalValue:  totalValue.StringFixed(2),
	}
	if t.Investment != nil {
		currentValue := t.Quantity.Mul(t.Investment.CurrentPrice)
		e.CurrentValue = currentValue.StringFixed(2)
		e.GainLoss = currentValue.Sub(totalValue).StringFixed(2)
	}
	return e
}

// EnrichTransactions maps EnrichTransaction over a list, always
// returning a non-nil slice.
func EnrichTransactions(list []models.Transaction) []EnrichedTransaction {
	enriched := make([]EnrichedTransaction, 0, len(list))
	for _, t := range list {
		enriched = append(enriched, EnrichTransaction(t))
	}
	return enriched
}
