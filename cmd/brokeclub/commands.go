package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/brokeclub/internal/app"
)

// as a CLI application the App lives for a single command.
func openApp() (*app.App, subcommands.ExitStatus) {
	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing brokeclub: %v\n", err)
		return nil, subcommands.ExitFailure
	}
	return a, subcommands.ExitSuccess
}

// quoteCmd resolves a price for one asset row.
type quoteCmd struct {
	assetID string
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "resolve the latest price of a ticker" }
func (*quoteCmd) Usage() string {
	return `brokeclub quote [-asset <id>] <ticker>

  Resolves a price through the quote cache, the daily quota and the vendor.
  Without -asset the ticker itself is used as the cache key.
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.assetID, "asset", "", "Asset row id owning the cached quote")
}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "quote requires exactly one ticker")
		return subcommands.ExitUsageError
	}
	ticker := strings.ToUpper(strings.TrimSpace(f.Arg(0)))
	assetID := c.assetID
	if assetID == "" {
		assetID = ticker
	}

	a, status := openApp()
	if a == nil {
		return status
	}
	defer a.Close()

	result := a.GetQuote(ctx, assetID, ticker)
	printMarkdown(quoteMarkdown(ticker, result, a.Config.Quotes.Currency))
	return subcommands.ExitSuccess
}

// remainingCmd prints today's remaining vendor calls.
type remainingCmd struct{}

func (*remainingCmd) Name() string     { return "remaining" }
func (*remainingCmd) Synopsis() string { return "show remaining vendor calls for today" }
func (*remainingCmd) Usage() string {
	return `brokeclub remaining

  Prints the number of quote calls still available today.
`
}

func (*remainingCmd) SetFlags(*flag.FlagSet) {}

func (*remainingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, status := openApp()
	if a == nil {
		return status
	}
	defer a.Close()

	remaining, err := a.RemainingQuota(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading quota: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%d of %s calls remaining\n", remaining, limitLabel(a.Quota.Limit()))
	return subcommands.ExitSuccess
}

// searchCmd looks up vendor symbols.
type searchCmd struct{}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search vendor symbols by name or ticker" }
func (*searchCmd) Usage() string {
	return `brokeclub search <term>

  Searches vendor symbols. Terms shorter than 3 characters return nothing.
`
}

func (*searchCmd) SetFlags(*flag.FlagSet) {}

func (*searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "search requires a term")
		return subcommands.ExitUsageError
	}
	term := strings.Join(f.Args(), " ")

	a, status := openApp()
	if a == nil {
		return status
	}
	defer a.Close()

	matches, err := a.SearchSymbols(ctx, term)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching symbols: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(symbolsMarkdown(term, matches))
	return subcommands.ExitSuccess
}

// cardsCmd values a user's holdings.
type cardsCmd struct {
	userID string
}

func (*cardsCmd) Name() string     { return "cards" }
func (*cardsCmd) Synopsis() string { return "display portfolio cards for a user" }
func (*cardsCmd) Usage() string {
	return `brokeclub cards -user <id>

  Values every asset the user holds against the latest available quotes.
`
}

func (c *cardsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userID, "user", "", "User id whose portfolio to display")
}

func (c *cardsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.userID == "" {
		fmt.Fprintln(os.Stderr, "cards requires -user")
		return subcommands.ExitUsageError
	}

	a, status := openApp()
	if a == nil {
		return status
	}
	defer a.Close()

	cards, err := a.GetPortfolioCards(ctx, c.userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building portfolio cards: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(cardsMarkdown(c.userID, cards, a.Config.Quotes.Currency))
	return subcommands.ExitSuccess
}

// refreshCmd runs one refresh batch now.
type refreshCmd struct {
	timeout time.Duration
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "refresh tracked tickers now" }
func (*refreshCmd) Usage() string {
	return `brokeclub refresh [-timeout <duration>]

  Runs one refresh batch outside the session clock, spending at most the
  remaining daily quota.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.timeout, "timeout", 5*time.Minute, "Maximum time for the whole batch")
}

func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, status := openApp()
	if a == nil {
		return status
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := a.RefreshNow(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error refreshing tickers: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(batchMarkdown(result))
	return subcommands.ExitSuccess
}
