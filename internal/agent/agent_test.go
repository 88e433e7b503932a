package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ericvanlare/aimod/internal/agent"
	"github.com/ericvanlare/aimod/internal/github"
)

type fakeClient struct {
	actors     []github.Actor
	actorsErr  error
	nodeID     string
	nodeIDErr  error
	assignErr  error
	assignedTo []string
}

func (f *fakeClient) SuggestedActors(ctx context.Context) ([]github.Actor, error) {
	return f.actors, f.actorsErr
}

func (f *fakeClient) IssueNodeID(ctx context.Context, number int) (string, error) {
	return f.nodeID, f.nodeIDErr
}

func (f *fakeClient) AssignActor(ctx context.Context, issueNodeID, actorID string) error {
	f.assignedTo = append(f.assignedTo, issueNodeID+":"+actorID)
	return f.assignErr
}

func TestResolveAndAssign_AgentFound(t *testing.T) {
	fc := &fakeClient{
		actors: []github.Actor{
			{Login: "octocat", Type: "User", ID: "U_1"},
			{Login: "copilot-swe-agent", Type: "Bot", ID: "BOT_1"},
		},
		nodeID: "I_node42",
	}
	r := agent.NewResolver(fc, "copilot-swe-agent")

	assigned, err := r.ResolveAndAssign(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !assigned {
		t.Fatal("expected assigned=true")
	}
	if len(fc.assignedTo) != 1 || fc.assignedTo[0] != "I_node42:BOT_1" {
		t.Errorf("unexpected assignment calls: %v", fc.assignedTo)
	}
}

func TestResolveAndAssign_AgentAbsentIsNotAnError(t *testing.T) {
	fc := &fakeClient{
		actors: []github.Actor{{Login: "octocat", Type: "User", ID: "U_1"}},
	}
	r := agent.NewResolver(fc, "copilot-swe-agent")

	assigned, err := r.ResolveAndAssign(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assigned {
		t.Fatal("expected assigned=false when agent is unavailable")
	}
	if len(fc.assignedTo) != 0 {
		t.Errorf("expected no assignment calls, got %v", fc.assignedTo)
	}
}

func TestResolveAndAssign_HumanWithAgentLoginIgnored(t *testing.T) {
	fc := &fakeClient{
		actors: []github.Actor{{Login: "copilot-swe-agent", Type: "User", ID: "U_fake"}},
	}
	r := agent.NewResolver(fc, "copilot-swe-agent")

	assigned, err := r.ResolveAndAssign(context.Background(), 42)
	if err != nil || assigned {
		t.Fatalf("expected (false, nil), got (%v, %v)", assigned, err)
	}
}

func TestResolveAndAssign_PropagatesQueryError(t *testing.T) {
	fc := &fakeClient{actorsErr: errors.New("boom")}
	r := agent.NewResolver(fc, "copilot-swe-agent")

	if _, err := r.ResolveAndAssign(context.Background(), 42); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveAndAssign_PropagatesAssignError(t *testing.T) {
	fc := &fakeClient{
		actors:    []github.Actor{{Login: "copilot-swe-agent", Type: "Bot", ID: "BOT_1"}},
		nodeID:    "I_node42",
		assignErr: errors.New("boom"),
	}
	r := agent.NewResolver(fc, "copilot-swe-agent")

	assigned, err := r.ResolveAndAssign(context.Background(), 42)
	if err == nil {
		t.Fatal("expected error")
	}
	if assigned {
		t.Fatal("expected assigned=false on failure")
	}
}
