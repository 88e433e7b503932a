// Package config loads runtime settings from the environment.
package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config carries every runtime setting. Defaults target the personal-site
// deployment; override per environment.
type Config struct {
	// Addr is the listen address for the HTTP API.
	Addr string `env:"AIMOD_ADDR,default=127.0.0.1:8787"`

	// AdminOrigin is the only origin allowed by CORS. Empty disables
	// cross-origin access entirely.
	AdminOrigin string `env:"AIMOD_ADMIN_ORIGIN,default=https://ericvanlare.com"`

	// Repository the requests are brokered against.
	GithubOwner string `env:"AIMOD_GITHUB_OWNER,default=ericvanlare"`
	GithubRepo  string `env:"AIMOD_GITHUB_REPO,default=ericvanlare-dot-com"`

	// RequestLabel marks issues managed by this service.
	RequestLabel string `env:"AIMOD_REQUEST_LABEL,default=ai-modification"`

	// AgentLogin is the coding agent's account name on the provider.
	AgentLogin string `env:"AIMOD_AGENT_LOGIN,default=copilot-swe-agent"`

	// PreviewDomain hosts per-branch preview deployments.
	PreviewDomain string `env:"AIMOD_PREVIEW_DOMAIN,default=ericvanlare-dot-com.pages.dev"`

	// AuditDBPath overrides the audit journal location. Empty uses the
	// default under the user's home directory.
	AuditDBPath string `env:"AIMOD_AUDIT_DB_PATH"`

	// API endpoint overrides, for GitHub Enterprise or testing.
	GithubURL        string `env:"AIMOD_GITHUB_URL"`
	GithubGraphQLURL string `env:"AIMOD_GITHUB_GRAPHQL_URL"`

	// CredentialsProfile selects a named profile from the credentials file.
	CredentialsProfile string `env:"AIMOD_CREDENTIALS_PROFILE"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
