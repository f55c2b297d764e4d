// Command equitysim-portfolio manages the set of tickers the simulation
// tracks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"equitysim/internal/config"
	"equitysim/internal/store"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: equitysim-portfolio <command> [tickers...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  add <ticker>...      Register tickers (they must have price history)\n")
		fmt.Fprintf(os.Stderr, "  remove <ticker>...   Unregister tickers\n")
		fmt.Fprintf(os.Stderr, "  list                 Print the registered tickers\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("EQUITYSIM_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "add":
		requireTickers(os.Args[2:])
		for _, t := range normalize(os.Args[2:]) {
			if err := s.AddTicker(ctx, t); err != nil {
				if errors.Is(err, store.ErrUnknownTicker) {
					log.Fatalf("%s has no price history; fetch or import bars first", t)
				}
				log.Fatalf("adding %s: %v", t, err)
			}
			fmt.Printf("added %s\n", t)
		}

	case "remove":
		requireTickers(os.Args[2:])
		for _, t := range normalize(os.Args[2:]) {
			if err := s.RemoveTicker(ctx, t); err != nil {
				log.Fatalf("removing %s: %v", t, err)
			}
			fmt.Printf("removed %s\n", t)
		}

	case "list":
		tickers, err := s.Tickers(ctx)
		if err != nil {
			log.Fatalf("listing tickers: %v", err)
		}
		for _, t := range tickers {
			fmt.Println(t)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func requireTickers(args []string) {
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}
}

func normalize(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.ToUpper(strings.TrimSpace(a)); a != "" {
			out = append(out, a)
		}
	}
	return out
}
