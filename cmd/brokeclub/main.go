// Command brokeclub is the operator CLI for quotes, quota and portfolio cards.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "Path to brokeclub.toml (defaults to BROKECLUB_CONFIG, then the binary dir)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// register adds the brokeclub subcommands to the commander.
func register(c *subcommands.Commander) {
	c.Register(&quoteCmd{}, "quotes")
	c.Register(&remainingCmd{}, "quotes")
	c.Register(&refreshCmd{}, "quotes")
	c.Register(&searchCmd{}, "symbols")
	c.Register(&cardsCmd{}, "portfolio")
}
