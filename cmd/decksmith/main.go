// Command decksmith translates reservoir-engineering commands written in
// plain English into ECLIPSE SCHEDULE keywords.
//
// Usage:
//
//	decksmith translate "set well PROD-01 rate to 500 bbl/day"
//	decksmith translate --file commands.txt --workers 8 --json
//	decksmith translate --interactive
//	decksmith check
//	decksmith fmt-deck schedule.inc
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errIncomplete marks a translate invocation in which at least one command
// did not produce a deck. It maps to exit status 2.
var errIncomplete = errors.New("not every command was translated")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errIncomplete) {
			return 2
		}
		fmt.Fprintf(stderr, "decksmith: %v\n", err)
		return 1
	}
	return 0
}
