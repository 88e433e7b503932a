// Package agent resolves the automated coding agent on the hosting platform
// and assigns it to request issues. The whole chain is best-effort: callers
// treat failures as "not assigned" and carry on.
package agent

import (
	"context"
	"fmt"

	"github.com/ericvanlare/aimod/internal/github"
)

// Client is the subset of the provider client actor resolution needs.
type Client interface {
	SuggestedActors(ctx context.Context) ([]github.Actor, error)
	IssueNodeID(ctx context.Context, number int) (string, error)
	AssignActor(ctx context.Context, issueNodeID, actorID string) error
}

// Resolver finds the coding agent among the repository's assignable actors
// and assigns it to issues.
type Resolver struct {
	client Client
	login  string
}

// NewResolver creates a Resolver matching the agent by its login. Only
// actors typed as bots are considered; a human user sharing the login is
// never matched.
func NewResolver(client Client, login string) *Resolver {
	return &Resolver{client: client, login: login}
}

// ResolveAndAssign looks up the agent among the repository's assignable
// actors and, if present, assigns it to the given issue. The agent being
// absent is not an error and reports (false, nil); any upstream failure is
// returned for the caller to swallow or log.
func (r *Resolver) ResolveAndAssign(ctx context.Context, issueNumber int) (bool, error) {
	actors, err := r.client.SuggestedActors(ctx)
	if err != nil {
		return false, fmt.Errorf("listing assignable actors: %w", err)
	}

	var agentID string
	for _, a := range actors {
		if a.Login == r.login && a.Type == "Bot" {
			agentID = a.ID
			break
		}
	}
	if agentID == "" {
		return false, nil
	}

	nodeID, err := r.client.IssueNodeID(ctx, issueNumber)
	if err != nil {
		return false, fmt.Errorf("resolving issue %d: %w", issueNumber, err)
	}

	if err := r.client.AssignActor(ctx, nodeID, agentID); err != nil {
		return false, fmt.Errorf("assigning agent to issue %d: %w", issueNumber, err)
	}
	return true, nil
}
