package main

import (
	"fmt"

	"github.com/myriagon/credvault/internal/config"
	"github.com/myriagon/credvault/internal/port/provider"
	"github.com/myriagon/credvault/internal/service"

	// Adapter registration.
	_ "github.com/myriagon/credvault/internal/adapter/provider/apikey"
	_ "github.com/myriagon/credvault/internal/adapter/provider/google"
	_ "github.com/myriagon/credvault/internal/adapter/provider/hubspot"
	_ "github.com/myriagon/credvault/internal/adapter/provider/notion"
	_ "github.com/myriagon/credvault/internal/adapter/provider/slack"
	_ "github.com/myriagon/credvault/internal/adapter/provider/stripe"
)

// buildProviders instantiates every registered adapter with its client
// registration from config.
func buildProviders(cfg *config.Config) (*service.Providers, error) {
	specs := []struct {
		name  string
		creds config.ClientCredentials
	}{
		{"google", cfg.Providers.Google},
		{"slack", cfg.Providers.Slack},
		{"notion", cfg.Providers.Notion},
		{"hubspot", cfg.Providers.HubSpot},
		{"stripe", cfg.Providers.Stripe},
		{"apikey", config.ClientCredentials{}},
	}

	adapters := make([]provider.Adapter, 0, len(specs))
	for _, spec := range specs {
		a, err := provider.New(spec.name, provider.Config{
			ClientID:     spec.creds.ClientID,
			ClientSecret: spec.creds.ClientSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("build provider %s: %w", spec.name, err)
		}
		adapters = append(adapters, a)
	}

	return service.NewProviders(adapters...), nil
}
