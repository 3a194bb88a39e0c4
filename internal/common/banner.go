package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config, logger *Logger) {
	version := GetVersion()
	storage := config.Storage.Backend
	if config.Storage.Backend == "surrealdb" {
		storage = config.Storage.Backend + " " + config.Storage.Address
	}
	quota := fmt.Sprintf("%d calls/day", config.Quotes.DailyLimit)
	if config.Quotes.DailyLimit <= 0 {
		quota = "unlimited"
	}
	session := fmt.Sprintf("%s-%s %s", config.Schedule.Open, config.Schedule.Close, config.Schedule.Timezone)

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 64
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		` ___          _         ___ _      _    `,
		`| _ )_ _ ___ | |_____  / __| |_  _| |__ `,
		`| _ \ '_/ _ \| / / -_)| (__| | || | '_ \`,
		`|___/_| \___/|_\_\___| \___|_|\_,_|_.__/`,
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s  Quote ingestion & portfolio valuation%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	kvPad := 14
	kvLines := [][2]string{
		{"Version", GetFullVersion()},
		{"Environment", config.Environment},
		{"Storage", storage},
		{"Quota", quota},
		{"Session", session},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(os.Stderr, "%s  %-*s %s%s\n", textColor, kvPad, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	logger.Info().
		Str("version", version).
		Str("environment", config.Environment).
		Str("storage", storage).
		Int("daily_limit", config.Quotes.DailyLimit).
		Str("session", session).
		Msg("Application started")
}

// PrintShutdownBanner displays the application shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 42) + banner.ColorReset

	fmt.Fprintf(os.Stderr, "\n%s\n", hr)
	fmt.Fprintf(os.Stderr, "%s  BROKECLUB — SHUTTING DOWN%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n\n", hr)

	logger.Info().Msg("Application shutting down")
}
