package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/thermal-stencil/internal/config"
	"github.com/ironsheep/thermal-stencil/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("thermal-stencil-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("thermal-stencil-mcp - MCP server for thermal transfer stencils")
			fmt.Println()
			fmt.Println("Usage: thermal-stencil-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  STENCIL_LOG_LEVEL=debug       debug, info, warn or error (default info)")
			fmt.Println("  STENCIL_LOG_FORMAT=console    json or console (default json)")
			fmt.Println("  STENCIL_SCREEN_DPI=96         Board pixels per inch")
			fmt.Println("  STENCIL_EXPORT_DPI=300        Print pixels per inch")
			fmt.Println("  STENCIL_MAX_DIMENSION=2048    Longest side of the working buffer")
			fmt.Println("  STENCIL_DEBOUNCE_MS=150       Delay before a stencil_render computes")
			fmt.Println("  STENCIL_PRESETS_FILE=path     YAML board presets replacing the built-in table")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	// Logging goes to stderr; stdout is for MCP protocol
	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	log.Debug("main", "starting", map[string]interface{}{
		"version":    Version,
		"build_time": BuildTime,
		"commit":     GitCommit,
	})

	srv, err := server.New(cfg, log, Version)
	if err != nil {
		log.Error("main", err, nil)
		os.Exit(1)
	}
	defer srv.Close()

	if err := srv.Run(); err != nil {
		log.Error("main", fmt.Errorf("server error: %w", err), nil)
		srv.Close()
		os.Exit(1)
	}
}
