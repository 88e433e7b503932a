// Package github wraps the GitHub REST and GraphQL APIs behind typed,
// repository-bound operations. Calls are single-shot: failures surface as
// *ProviderError and are never retried here.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	jwt "github.com/golang-jwt/jwt/v4"
	gh "github.com/google/go-github/v68/github"
	"github.com/shurcooL/githubv4"
)

// Issue is a work item on the configured repository.
type Issue struct {
	Number  int
	Title   string
	Body    string
	State   string
	HTMLURL string
}

// PullRequest is a proposed change set. Merged is true iff the provider
// reports a merge timestamp.
type PullRequest struct {
	Number  int
	Body    string
	State   string
	HTMLURL string
	HeadRef string
	Merged  bool
}

// Repo identifies the repository all client operations target.
type Repo struct {
	Owner string
	Name  string
}

// ProviderError is a failed upstream call: a non-2xx REST response or a
// GraphQL response carrying a top-level error list.
type ProviderError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: github responded %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// Client is a typed GitHub API client bound to a single repository.
type Client struct {
	rest *gh.Client
	gql  *githubv4.Client
	repo Repo
}

// Option configures a Client.
type Option func(*clientConfig)

// AppCredentials holds GitHub App authentication parameters.
type AppCredentials struct {
	ClientID       string
	InstallationID int64
	PrivateKeyPath string
}

type clientConfig struct {
	baseURL    string
	graphqlURL string
	app        *AppCredentials
}

// readKeyFile is a variable for testing; defaults to os.ReadFile.
var readKeyFile = os.ReadFile

// WithBaseURL overrides the GitHub REST API base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithGraphQLURL overrides the GraphQL endpoint URL (useful for testing).
func WithGraphQLURL(url string) Option {
	return func(c *clientConfig) { c.graphqlURL = url }
}

// WithAppAuth configures GitHub App authentication using a Client ID,
// installation ID, and private key file. When set, token is ignored.
func WithAppAuth(app AppCredentials) Option {
	return func(c *clientConfig) { c.app = &app }
}

// New creates a Client for the given repository. When WithAppAuth is
// provided, the client authenticates as a GitHub App installation (the token
// parameter is ignored); otherwise it authenticates with the given personal
// access token.
func New(token string, repo Repo, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	var rest *gh.Client
	if cfg.app != nil {
		httpClient, err := newAppHTTPClient(cfg.app, cfg.baseURL)
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub App auth: %w", err)
		}
		rest = gh.NewClient(httpClient)
	} else {
		rest = gh.NewClient(nil).WithAuthToken(token)
	}
	if cfg.baseURL != "" {
		rest, _ = rest.WithEnterpriseURLs(cfg.baseURL, cfg.baseURL)
	}

	// The GraphQL client reuses the REST client's transport so both carry
	// the same credentials.
	var gql *githubv4.Client
	if cfg.graphqlURL != "" {
		gql = githubv4.NewEnterpriseClient(cfg.graphqlURL, rest.Client())
	} else {
		gql = githubv4.NewClient(rest.Client())
	}

	return &Client{rest: rest, gql: gql, repo: repo}, nil
}

// Repo returns the repository this client is bound to.
func (c *Client) Repo() Repo {
	return c.repo
}

// CreateIssue opens a new issue and returns it.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string) (Issue, error) {
	issue, _, err := c.rest.Issues.Create(ctx, c.repo.Owner, c.repo.Name, &gh.IssueRequest{
		Title:  gh.Ptr(title),
		Body:   gh.Ptr(body),
		Labels: &labels,
	})
	if err != nil {
		return Issue{}, providerErr("creating issue", err)
	}
	return issueFromGH(issue), nil
}

// GetIssue fetches a single issue by number.
func (c *Client) GetIssue(ctx context.Context, number int) (Issue, error) {
	issue, _, err := c.rest.Issues.Get(ctx, c.repo.Owner, c.repo.Name, number)
	if err != nil {
		return Issue{}, providerErr("fetching issue", err)
	}
	return issueFromGH(issue), nil
}

// CloseIssue transitions an issue to the closed state.
func (c *Client) CloseIssue(ctx context.Context, number int) error {
	_, _, err := c.rest.Issues.Edit(ctx, c.repo.Owner, c.repo.Name, number, &gh.IssueRequest{
		State: gh.Ptr("closed"),
	})
	if err != nil {
		return providerErr("closing issue", err)
	}
	return nil
}

// ListRequestIssues returns up to limit most-recently-created issues carrying
// the given label, in any state.
func (c *Client) ListRequestIssues(ctx context.Context, label string, limit int) ([]Issue, error) {
	issues, _, err := c.rest.Issues.ListByRepo(ctx, c.repo.Owner, c.repo.Name, &gh.IssueListByRepoOptions{
		Labels:      []string{label},
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, providerErr("listing issues", err)
	}
	out := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issueFromGH(issue))
	}
	return out, nil
}

// ListPullRequests returns up to limit most-recently-created pull requests,
// in any state.
func (c *Client) ListPullRequests(ctx context.Context, limit int) ([]PullRequest, error) {
	prs, _, err := c.rest.PullRequests.List(ctx, c.repo.Owner, c.repo.Name, &gh.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, providerErr("listing pull requests", err)
	}
	out := make([]PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, prFromGH(pr))
	}
	return out, nil
}

// MergePullRequest squash-merges a pull request.
func (c *Client) MergePullRequest(ctx context.Context, number int) error {
	_, _, err := c.rest.PullRequests.Merge(ctx, c.repo.Owner, c.repo.Name, number, "", &gh.PullRequestOptions{
		MergeMethod: "squash",
	})
	if err != nil {
		return providerErr("merging pull request", err)
	}
	return nil
}

// ClosePullRequest transitions a pull request to the closed state without
// merging.
func (c *Client) ClosePullRequest(ctx context.Context, number int) error {
	_, _, err := c.rest.PullRequests.Edit(ctx, c.repo.Owner, c.repo.Name, number, &gh.PullRequest{
		State: gh.Ptr("closed"),
	})
	if err != nil {
		return providerErr("closing pull request", err)
	}
	return nil
}

func issueFromGH(issue *gh.Issue) Issue {
	return Issue{
		Number:  issue.GetNumber(),
		Title:   issue.GetTitle(),
		Body:    issue.GetBody(),
		State:   issue.GetState(),
		HTMLURL: issue.GetHTMLURL(),
	}
}

func prFromGH(pr *gh.PullRequest) PullRequest {
	p := PullRequest{
		Number:  pr.GetNumber(),
		Body:    pr.GetBody(),
		State:   pr.GetState(),
		HTMLURL: pr.GetHTMLURL(),
		Merged:  pr.MergedAt != nil,
	}
	if pr.Head != nil {
		p.HeadRef = pr.Head.GetRef()
	}
	return p
}

// providerErr converts a go-github error into a *ProviderError, preserving
// the HTTP status and the provider's error message.
func providerErr(op string, err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		status := 0
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
		return &ProviderError{Op: op, StatusCode: status, Detail: ghErr.Message}
	}
	return &ProviderError{Op: op, Detail: err.Error()}
}

// newAppHTTPClient creates an http.Client with a GitHub App installation
// transport that uses Client ID (string) as the JWT issuer.
func newAppHTTPClient(app *AppCredentials, baseURL string) (*http.Client, error) {
	keyPath := expandHome(app.PrivateKeyPath)
	keyData, err := readKeyFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key %s: %w", app.PrivateKeyPath, err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	signer := &clientIDSigner{
		clientID: app.ClientID,
		method:   jwt.SigningMethodRS256,
		key:      key,
	}

	atr, err := ghinstallation.NewAppsTransportWithOptions(
		http.DefaultTransport, 0, // appID unused — our signer overrides the issuer
		ghinstallation.WithSigner(signer),
	)
	if err != nil {
		return nil, fmt.Errorf("creating apps transport: %w", err)
	}
	if baseURL != "" {
		atr.BaseURL = baseURL
	}

	itr := ghinstallation.NewFromAppsTransport(atr, app.InstallationID)
	if baseURL != "" {
		itr.BaseURL = baseURL
	}

	return &http.Client{Transport: itr}, nil
}

// clientIDSigner implements ghinstallation.Signer using a string Client ID
// as the JWT issuer instead of a numeric App ID.
type clientIDSigner struct {
	clientID string
	method   jwt.SigningMethod
	key      any
}

func (s *clientIDSigner) Sign(claims jwt.Claims) (string, error) {
	if rc, ok := claims.(*jwt.RegisteredClaims); ok {
		rc.Issuer = s.clientID
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.key)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
