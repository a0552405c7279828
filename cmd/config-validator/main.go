package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/orgoj/mongolog/internal/config"
)

func main() {
	// Parse command line flags
	flag.Parse()

	// Get config path from arguments
	if len(flag.Args()) < 1 {
		fmt.Println("Error: Config file path is required")
		fmt.Println("Usage: config-validator <config-file>")
		os.Exit(1)
	}
	configPath := flag.Args()[0]

	// Load and validate configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Resolve the derived settings the same way mongolog does
	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		fmt.Printf("Validation error: %v\n", err)
		os.Exit(1)
	}
	handlerOpts, err := cfg.HandlerOptions()
	if err != nil {
		fmt.Printf("Validation error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid!")
	fmt.Printf("  target:  %s %s.%s (connect timeout %s)\n",
		storeOpts.URI(), storeOpts.Database, storeOpts.Collection, storeOpts.ConnectTimeout)
	fmt.Printf("  handler: logger '%s', level %s, %d filter(s)\n",
		handlerOpts.LoggerName, handlerOpts.Level, len(handlerOpts.Filters))
	if handlerOpts.Template != "" {
		fmt.Printf("  template: %q\n", handlerOpts.Template)
	}
}
