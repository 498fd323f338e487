package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/assistkit/connectd/internal"
	"github.com/assistkit/connectd/internal/config"
	"github.com/assistkit/connectd/internal/log"
	"github.com/joho/godotenv"
)

var BuildVersion = "dev"

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version": "v1",
		"server": map[string]any{
			"baseURL":          "https://connectd.yourcompany.com",
			"addr":             ":6100",
			"postAuthRedirect": "https://app.yourcompany.com/settings/connections",
			"signingKey":       map[string]string{"$env": "CONNECTD_SIGNING_KEY"},
			"internalApiToken": map[string]string{"$env": "CONNECTD_INTERNAL_API_TOKEN"},
			"storage":          "memory",
		},
		"providers": map[string]any{
			"slack": map[string]any{
				"clientId":     map[string]string{"$env": "SLACK_CLIENT_ID"},
				"clientSecret": map[string]string{"$env": "SLACK_CLIENT_SECRET"},
			},
			"github": map[string]any{
				"clientId":     map[string]string{"$env": "GITHUB_CLIENT_ID"},
				"clientSecret": map[string]string{"$env": "GITHUB_CLIENT_SECRET"},
			},
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func main() {
	conf := flag.String("config", "", "path to config file (required)")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}
	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default config at: %s\n", *configInit)
		return
	}

	if *conf == "" {
		fmt.Fprintf(os.Stderr, "Error: -config flag is required\n")
		fmt.Fprintf(os.Stderr, "Run with -help for usage information\n")
		os.Exit(1)
	}

	// Local development convenience; a missing .env is not an error
	_ = godotenv.Load()

	cfg, err := config.Load(*conf)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting connectd", map[string]any{
		"version": BuildVersion,
		"config":  *conf,
	})

	ctx := context.Background()
	app, err := internal.NewConnectd(ctx, cfg)
	if err != nil {
		log.LogError("Failed to create application: %v", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		log.LogError("Failed to run application: %v", err)
		os.Exit(1)
	}
}
