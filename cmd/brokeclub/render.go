package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/brokeclub/internal/models"
	"github.com/bobmcallan/brokeclub/internal/services/ingest"
	"github.com/bobmcallan/brokeclub/internal/services/quota"
)

// printMarkdown renders markdown for the terminal, falling back to the raw
// text when no renderer is available.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering output: %v\n", err)
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// formatMoney formats an amount in the currency's conventions. Unknown
// currency codes print the amount with two places and the code.
func formatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return strings.TrimSpace(amount.StringFixedBank(2) + " " + currency)
	}
	minor := amount.Shift(int32(cur.Fraction)).RoundBank(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

func formatPercent(p decimal.Decimal) string {
	return p.StringFixedBank(2) + "%"
}

func limitLabel(limit int) string {
	if limit >= quota.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", limit)
}

// cell escapes text for a markdown table cell
func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

func quoteMarkdown(ticker string, r models.QuoteResult, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", ticker)
	if r.Unavailable() {
		b.WriteString("No price available: nothing cached and no quota left today.\n")
		return b.String()
	}

	state := "live"
	switch {
	case r.IsStale:
		state = "stale"
	case r.FromCache:
		state = "cached"
	}

	b.WriteString("| Price | As of | State |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %s | %s |\n", formatMoney(r.Price, currency), r.AsOf.Format(time.RFC3339), state)
	return b.String()
}

func symbolsMarkdown(term string, matches []models.SymbolMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Symbols matching %q\n\n", term)
	if len(matches) == 0 {
		b.WriteString("No matches.\n")
		return b.String()
	}

	b.WriteString("| Symbol | Name | Region | Currency |\n|---|---|---|---|\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", cell(m.Symbol), cell(m.Name), cell(m.Region), cell(m.Currency))
	}
	return b.String()
}

// cardsMarkdown renders one row per position plus a totals row per currency.
// Stale prices are flagged with an asterisk.
func cardsMarkdown(userID string, cards []models.PortfolioCard, defaultCurrency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio %s\n\n", userID)
	if len(cards) == 0 {
		b.WriteString("No assets.\n")
		return b.String()
	}

	b.WriteString("| Ticker | Name | Quantity | Avg cost | Invested | Price | Value | Unrealized | Realized | Return |\n")
	b.WriteString("|---|---|--:|--:|--:|--:|--:|--:|--:|--:|\n")

	type totals struct{ invested, value, unrealized, realized decimal.Decimal }
	byCurrency := map[string]*totals{}
	var order []string
	stale := false

	for _, c := range cards {
		cur := c.Currency
		if cur == "" {
			cur = defaultCurrency
		}
		price := formatMoney(c.CurrentPrice, cur)
		if c.IsQuoteStale {
			price += " *"
			stale = true
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			cell(c.Ticker), cell(c.Name), c.Quantity.String(),
			formatMoney(c.WeightedAvgCost, cur), formatMoney(c.TotalInvested, cur), price,
			formatMoney(c.CurrentValue, cur), formatMoney(c.UnrealizedGain, cur),
			formatMoney(c.RealizedGain, cur), formatPercent(c.PercentReturn))

		t, ok := byCurrency[cur]
		if !ok {
			t = &totals{}
			byCurrency[cur] = t
			order = append(order, cur)
		}
		t.invested = t.invested.Add(c.TotalInvested)
		t.value = t.value.Add(c.CurrentValue)
		t.unrealized = t.unrealized.Add(c.UnrealizedGain)
		t.realized = t.realized.Add(c.RealizedGain)
	}

	for _, cur := range order {
		t := byCurrency[cur]
		fmt.Fprintf(&b, "| **Total %s** | | | | %s | | %s | %s | %s | |\n",
			cell(cur), formatMoney(t.invested, cur), formatMoney(t.value, cur),
			formatMoney(t.unrealized, cur), formatMoney(t.realized, cur))
	}

	if stale {
		b.WriteString("\n\\* price is stale: no fresh quote was available.\n")
	}
	return b.String()
}

func batchMarkdown(r *ingest.BatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Refresh %s\n\n", r.Reason)
	fmt.Fprintf(&b, "- Batch: `%s`\n", r.ID)
	fmt.Fprintf(&b, "- Quota before batch: %d\n", r.Remaining)
	fmt.Fprintf(&b, "- Tracked tickers: %d\n", r.Tracked)
	fmt.Fprintf(&b, "- Refreshed: %s\n", list(r.Refreshed))
	fmt.Fprintf(&b, "- Failed: %s\n", list(r.Failed))
	fmt.Fprintf(&b, "- Elapsed: %s\n", r.Elapsed.Round(time.Millisecond))
	return b.String()
}

func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
