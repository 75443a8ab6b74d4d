package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

// Version is set at build time
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	cli := &CLI{
		BaseURL: getEnv("AUTHGATE_URL", "http://localhost:8000"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}

	var err error
	switch cmd {
	case "register":
		err = cli.registerCommand(args)
	case "login":
		err = cli.loginCommand(args)
	case "simulate":
		err = cli.simulateCommand(args)
	case "version":
		fmt.Printf("authgate-cli %s\n", Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Print(`authgate-cli - Authgate Command Line Interface

Usage:
  authgate-cli <command> [options]

Environment Variables:
  AUTHGATE_URL  Base URL of the authgate dev backend (default: http://localhost:8000)

Commands:
  register  Create an account
    --username=NAME --email=EMAIL --password=PWD

  login     Log in with email and password through the handshake orchestrator
    --email=EMAIL --password=PWD

  simulate  Run the simulated external login against the dev backend

  version   Show CLI version
  help      Show this help

Examples:
  # Register an account
  authgate-cli register --username=alice --email=alice@example.com --password=secret123

  # Log in
  authgate-cli login --email=alice@example.com --password=secret123

  # Exercise the external credential path without a real third party
  authgate-cli simulate
`)
}
