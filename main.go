package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pagebuilder/internal/app"
	"pagebuilder/internal/config"
)

const usage = `usage: pagebuilder [serve|mcp]

  serve   run the HTTP API, websocket and MCP endpoint (default)
  mcp     run a standalone MCP server on stdin/stdout`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "serve":
		err = app.Run(ctx, cfg)
	case "mcp":
		// stdout carries the MCP protocol
		log.SetOutput(os.Stderr)
		err = app.ServeMCP(ctx, cfg)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("pagebuilder %s: %v", cmd, err)
	}
}
