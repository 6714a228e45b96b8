// file: cmd/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dkoosis/promptclinic/cmd/server"
	"github.com/dkoosis/promptclinic/internal/logging"
)

// Version information - should be set during build via ldflags.
var (
	Version    = "0.1.0-dev" // Default development version
	commitHash = "unknown"   //nolint:unused // Set via ldflags during build
	buildDate  = "unknown"   //nolint:unused // Set via ldflags during build
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		transportType := serveCmd.String("transport", "stdio", "Transport type (http or stdio).")
		serveConfigPath := serveCmd.String("config", "", "Path to configuration file.")
		requestTimeout := serveCmd.Duration("request-timeout", 30*time.Second, "Timeout for JSON-RPC requests.")
		shutdownTimeout := serveCmd.Duration("shutdown-timeout", 5*time.Second, "Timeout for graceful shutdown.")
		debug := serveCmd.Bool("debug", false, "Enable debug logging.")

		if err := serveCmd.Parse(os.Args[2:]); err != nil {
			log.Fatalf("Failed to parse serve command flags: %+v", err)
		}

		if err := server.RunServer(*transportType, *serveConfigPath, *requestTimeout, *shutdownTimeout, *debug); err != nil {
			logger := logging.GetLogger("main")
			logger.Error("Server failed.", "error", fmt.Sprintf("%+v", err))
			os.Exit(1)
		}

	case "version":
		fmt.Printf("promptclinic %s\n", Version)

	default:
		printUsage()
		os.Exit(1)
	}
}

// printUsage prints usage information for the command.
func printUsage() {
	// Standard log package: usage may print before logger setup.
	log.Println("Usage:")
	log.Println("  promptclinic serve [options]  - Start the prompt clinic MCP server")
	log.Println("  promptclinic version          - Print version information")
	log.Println("\nRun 'promptclinic serve -h' for help on serve options.")
}
