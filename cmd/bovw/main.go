// Command bovw builds and applies bag-of-visual-words vocabularies.
//
//	bovw aggregate -config cfg.json -manifest batch.json [-skip-failed] [-strict]
//	bovw learn     -config cfg.json
//	bovw assign    -config cfg.json -image path [-histogram]
//	bovw export    -config cfg.json -format npz|npy|parquet
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: bovw <command> [flags]

commands:
  aggregate  describe a labelled batch of images and append it to the corpus
  learn      cluster the corpus into a vocabulary
  assign     map an image to visual words
  export     write corpus and vocabulary for external tools

run "bovw <command> -h" for the flags of a command.
`

type command func(ctx context.Context, args []string, stdout io.Writer) error

var commands = map[string]command{
	"aggregate": runAggregate,
	"learn":     runLearn,
	"assign":    runAssign,
	"export":    runExport,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "bovw:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd(ctx, args[1:], stdout)
}
