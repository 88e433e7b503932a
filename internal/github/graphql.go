package github

import (
	"context"

	"github.com/shurcooL/githubv4"
)

// Actor is an assignable actor suggested by the platform for the configured
// repository. Type carries the GraphQL typename ("Bot" or "User").
type Actor struct {
	Login string
	ID    string
	Type  string
}

// suggestedActorLimit bounds the capability query to the first candidates.
const suggestedActorLimit = 20

// SuggestedActors queries the repository for actors with the "can be
// assigned" capability, bounded to the first 20 candidates.
func (c *Client) SuggestedActors(ctx context.Context) ([]Actor, error) {
	var q struct {
		Repository struct {
			SuggestedActors struct {
				Nodes []struct {
					Login    githubv4.String
					Typename githubv4.String `graphql:"__typename"`
					Bot      struct {
						ID githubv4.String
					} `graphql:"... on Bot"`
					User struct {
						ID githubv4.String
					} `graphql:"... on User"`
				}
			} `graphql:"suggestedActors(capabilities: [CAN_BE_ASSIGNED], first: 20)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]any{
		"owner": githubv4.String(c.repo.Owner),
		"name":  githubv4.String(c.repo.Name),
	}

	if err := c.gql.Query(ctx, &q, variables); err != nil {
		return nil, &ProviderError{Op: "querying suggested actors", Detail: err.Error()}
	}

	actors := make([]Actor, 0, len(q.Repository.SuggestedActors.Nodes))
	for _, node := range q.Repository.SuggestedActors.Nodes {
		a := Actor{
			Login: string(node.Login),
			Type:  string(node.Typename),
		}
		switch a.Type {
		case "Bot":
			a.ID = string(node.Bot.ID)
		case "User":
			a.ID = string(node.User.ID)
		}
		actors = append(actors, a)
	}
	return actors, nil
}

// IssueNodeID resolves an issue number to its opaque GraphQL node identifier.
func (c *Client) IssueNodeID(ctx context.Context, number int) (string, error) {
	var q struct {
		Repository struct {
			Issue struct {
				ID githubv4.String
			} `graphql:"issue(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]any{
		"owner":  githubv4.String(c.repo.Owner),
		"name":   githubv4.String(c.repo.Name),
		"number": githubv4.Int(number),
	}

	if err := c.gql.Query(ctx, &q, variables); err != nil {
		return "", &ProviderError{Op: "resolving issue node id", Detail: err.Error()}
	}
	return string(q.Repository.Issue.ID), nil
}

// AssignActor binds an actor to an issue via the addAssigneesToAssignable
// mutation. Both arguments are opaque GraphQL node identifiers.
func (c *Client) AssignActor(ctx context.Context, issueNodeID, actorID string) error {
	var m struct {
		AddAssigneesToAssignable struct {
			Assignable struct {
				Issue struct {
					ID githubv4.String
				} `graphql:"... on Issue"`
			}
		} `graphql:"addAssigneesToAssignable(input: $input)"`
	}

	input := githubv4.AddAssigneesToAssignableInput{
		AssignableID: githubv4.ID(issueNodeID),
		AssigneeIDs:  []githubv4.ID{githubv4.ID(actorID)},
	}

	if err := c.gql.Mutate(ctx, &m, input, nil); err != nil {
		return &ProviderError{Op: "assigning actor", Detail: err.Error()}
	}
	return nil
}
