package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/brokeclub/internal/models"
)

var hundred = decimal.NewFromInt(100)

// position accumulates the fold of a ledger in chronological order
type position struct {
	quantity     decimal.Decimal
	cost         decimal.Decimal // sum of qty*unitPrice over buys
	buyQuantity  decimal.Decimal // sum of qty over buys
	invested     decimal.Decimal // buy amounts minus sell amounts
	realized     decimal.Decimal
	unknown      int
	unresolvable int
}

// avgCost is the weighted-average buy price; sells do not move it
func (p *position) avgCost() decimal.Decimal {
	if !p.buyQuantity.IsPositive() {
		return decimal.Zero
	}
	return p.cost.Div(p.buyQuantity)
}

// resolve returns the entry's quantity and unit price. An explicit positive
// field wins; a missing one is derived from the amount and the other. When
// neither can be resolved both are zero.
func resolve(e *models.LedgerEntry) (qty, unitPrice decimal.Decimal) {
	var q, p decimal.Decimal
	if e.Quantity != nil {
		q = *e.Quantity
	}
	if e.UnitPrice != nil {
		p = *e.UnitPrice
	}

	switch {
	case q.IsPositive():
		qty = q
	case p.IsPositive():
		qty = e.Amount.Div(p)
	}

	switch {
	case p.IsPositive():
		unitPrice = p
	case qty.IsPositive():
		unitPrice = e.Amount.Div(qty)
	}
	return qty, unitPrice
}

// sortedByTime returns a copy of entries ordered by timestamp, keeping the
// stored order for equal timestamps
func sortedByTime(entries []*models.LedgerEntry) []*models.LedgerEntry {
	out := make([]*models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// fold applies every entry to an empty position
func fold(entries []*models.LedgerEntry) position {
	p := position{}
	for _, e := range sortedByTime(entries) {
		switch e.Kind {
		case models.EntryBuy:
			qty, price := resolve(e)
			if qty.IsZero() && price.IsZero() {
				p.unresolvable++
			}
			p.quantity = p.quantity.Add(qty)
			p.cost = p.cost.Add(qty.Mul(price))
			p.buyQuantity = p.buyQuantity.Add(qty)
			p.invested = p.invested.Add(e.Amount)

		case models.EntrySell:
			qty, price := resolve(e)
			if qty.IsZero() && price.IsZero() {
				p.unresolvable++
			}
			avg := p.avgCost()
			p.quantity = p.quantity.Sub(qty)
			p.invested = p.invested.Sub(e.Amount)
			p.realized = p.realized.Add(price.Sub(avg).Mul(qty))

		case models.EntryDividend:
			p.realized = p.realized.Add(e.Amount)

		default:
			p.unknown++
		}
	}
	return p
}

// snapshot prices a folded position. Money rounds to 2 places, quantity and
// average cost to 4, all with banker's rounding.
func snapshot(assetID string, p position, quote models.QuoteResult) models.PositionSnapshot {
	avg := p.avgCost()
	price := quote.Price

	percent := decimal.Zero
	if avg.IsPositive() && p.quantity.IsPositive() {
		percent = price.Div(avg).Sub(decimal.NewFromInt(1)).Mul(hundred)
	}

	return models.PositionSnapshot{
		AssetID:         assetID,
		Quantity:        p.quantity.RoundBank(4),
		WeightedAvgCost: avg.RoundBank(4),
		TotalInvested:   p.invested.RoundBank(2),
		RealizedGain:    p.realized.RoundBank(2),
		CurrentPrice:    price.RoundBank(2),
		CurrentValue:    price.Mul(p.quantity).RoundBank(2),
		UnrealizedGain:  price.Sub(avg).Mul(p.quantity).RoundBank(2),
		PercentReturn:   percent.RoundBank(2),
		IsQuoteStale:    quote.IsStale,
	}
}
