package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/railquery/railquery_core/internal/config"
	"github.com/railquery/railquery_core/internal/engine"
	"github.com/railquery/railquery_core/internal/interpreter"
	"github.com/railquery/railquery_core/internal/query"
	"github.com/railquery/railquery_core/internal/session"
	"github.com/railquery/railquery_core/internal/source"
	"github.com/railquery/railquery_core/internal/transfer"
)

// Local REPL for trying queries without running the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var interp interpreter.Interpreter
	if cfg.Interpreter.Enabled() {
		interp = interpreter.NewClient(cfg.Interpreter)
	}

	src := source.NewClient(cfg.Provider, nil, nil)
	eng := engine.New(
		query.NewNormalizer(interp),
		src,
		transfer.NewRouter(src, transfer.StaticHubSource{}),
		session.NewStore(cfg.Session.PageSize, cfg.Session.IdleTTL),
		interp,
	)

	fmt.Println(engine.HelpText())
	fmt.Println("\nType \"quit\" to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		fmt.Println(eng.HandleTurn(context.Background(), "repl", line))
	}
}
