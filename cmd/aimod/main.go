package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ericvanlare/aimod/internal/agent"
	"github.com/ericvanlare/aimod/internal/auditlog"
	"github.com/ericvanlare/aimod/internal/config"
	"github.com/ericvanlare/aimod/internal/credentials"
	ghclient "github.com/ericvanlare/aimod/internal/github"
	"github.com/ericvanlare/aimod/internal/preview"
	"github.com/ericvanlare/aimod/internal/reconcile"
	"github.com/ericvanlare/aimod/internal/request"
	"github.com/ericvanlare/aimod/internal/server"
)

var version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `aimod — AI site-modification request broker

Usage:
  aimod serve [flags]   Start the HTTP API server

Flags:
  --addr          Address to listen on (env: AIMOD_ADDR)
  --github-url    Override GitHub REST API endpoint (env: AIMOD_GITHUB_URL)
  --graphql-url   Override GitHub GraphQL endpoint (env: AIMOD_GITHUB_GRAPHQL_URL)
  --no-audit      Disable the local action journal
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	subcmd := os.Args[1]
	rest := os.Args[2:]

	var err error
	switch subcmd {
	case "serve":
		err = runServe(rest)
	case "--version", "version":
		fmt.Println("aimod " + version)
		return
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", subcmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "aimod %s: %v\n", subcmd, err)
		os.Exit(1)
	}
}

func runServe(args []string) error {
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	noAudit := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--addr":
			if i+1 < len(args) {
				cfg.Addr = args[i+1]
				i++
			}
		case "--github-url":
			if i+1 < len(args) {
				cfg.GithubURL = args[i+1]
				i++
			}
		case "--graphql-url":
			if i+1 < len(args) {
				cfg.GithubGraphQLURL = args[i+1]
				i++
			}
		case "--no-audit":
			noAudit = true
		}
	}

	creds, err := credentials.Resolve(credentials.DefaultPath(), cfg.CredentialsProfile)
	if err != nil {
		return fmt.Errorf("resolving credentials: %w", err)
	}

	var ghOpts []ghclient.Option
	if cfg.GithubURL != "" {
		ghOpts = append(ghOpts, ghclient.WithBaseURL(cfg.GithubURL))
	}
	if cfg.GithubGraphQLURL != "" {
		ghOpts = append(ghOpts, ghclient.WithGraphQLURL(cfg.GithubGraphQLURL))
	}
	if creds.HasGithubApp() {
		ghOpts = append(ghOpts, ghclient.WithAppAuth(ghclient.AppCredentials{
			ClientID:       creds.GithubAppClientID,
			InstallationID: creds.GithubAppInstallationID,
			PrivateKeyPath: creds.GithubAppPrivateKeyPath,
		}))
	}
	gh, err := ghclient.New(creds.GithubToken, ghclient.Repo{Owner: cfg.GithubOwner, Name: cfg.GithubRepo}, ghOpts...)
	if err != nil {
		return fmt.Errorf("creating github client: %w", err)
	}

	resolver := agent.NewResolver(gh, cfg.AgentLogin)
	broker := request.NewBroker(gh, resolver, cfg.RequestLabel, logger)
	prober := preview.NewProber(cfg.PreviewDomain)
	engine := reconcile.NewEngine(gh, reconcile.HeuristicLinker{}, prober, cfg.RequestLabel)

	var audit server.Audit
	if !noAudit {
		dbPath := cfg.AuditDBPath
		if dbPath == "" {
			dbPath, err = auditlog.DefaultPath()
			if err != nil {
				return fmt.Errorf("determining audit journal path: %w", err)
			}
		}
		journal, err := auditlog.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening audit journal: %w", err)
		}
		defer journal.Close()
		audit = journal
	}

	hub := server.NewHub(logger)

	srv, err := server.New(cfg.Addr, server.Config{
		Broker:      broker,
		Reconciler:  engine,
		Audit:       audit,
		Hub:         hub,
		AdminOrigin: cfg.AdminOrigin,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	logger.Info("aimod serving",
		"addr", srv.Addr(),
		"repo", cfg.GithubOwner+"/"+cfg.GithubRepo,
		"label", cfg.RequestLabel,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
