// Package request implements the change-request lifecycle operations:
// create, approve, reject, revise, and revert. Every operation issues
// single-shot provider calls and reports structured results; none of them
// wait for the coding agent to do anything.
package request

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericvanlare/aimod/internal/github"
)

// GitHub is the subset of the provider client the broker needs.
type GitHub interface {
	CreateIssue(ctx context.Context, title, body string, labels []string) (github.Issue, error)
	CloseIssue(ctx context.Context, number int) error
	MergePullRequest(ctx context.Context, number int) error
	ClosePullRequest(ctx context.Context, number int) error
}

// AgentResolver assigns the coding agent to a freshly created issue.
type AgentResolver interface {
	ResolveAndAssign(ctx context.Context, issueNumber int) (bool, error)
}

// ValidationError is a refused operation: required input was missing or
// empty. It maps to HTTP 400 at the API surface.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Steps of the revise sequence, in execution order.
const (
	StepClosePullRequest  = "close_pull_request"
	StepCloseIssue        = "close_issue"
	StepCreateReplacement = "create_replacement"
)

// ReviseError reports a revise sequence that failed partway through. The
// sequence is deliberately non-transactional: completed closures are not
// rolled back, and Completed tells the caller how far it got.
type ReviseError struct {
	Step      string
	Completed []string
	Err       error
}

func (e *ReviseError) Error() string {
	if len(e.Completed) == 0 {
		return fmt.Sprintf("revise step %s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("revise step %s failed after %s: %v", e.Step, strings.Join(e.Completed, ", "), e.Err)
}

func (e *ReviseError) Unwrap() error { return e.Err }

// Broker performs lifecycle operations against the configured repository.
type Broker struct {
	gh     GitHub
	agent  AgentResolver
	label  string
	logger *slog.Logger
}

// NewBroker creates a Broker. label is the workflow label stamped on every
// request issue.
func NewBroker(gh GitHub, agent AgentResolver, label string, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{gh: gh, agent: agent, label: label, logger: logger}
}

// CreateResult reports a created change request.
type CreateResult struct {
	IssueNumber   int    `json:"issueNumber"`
	IssueURL      string `json:"issueUrl"`
	Status        string `json:"status"`
	AgentAssigned bool   `json:"copilotAssigned"`
}

// Create opens a new request issue for the given description and attempts to
// assign the coding agent. Assignment failure does not fail the operation.
func (b *Broker) Create(ctx context.Context, description string) (CreateResult, error) {
	if strings.TrimSpace(description) == "" {
		return CreateResult{}, &ValidationError{Msg: "Description is required"}
	}

	issue, err := b.gh.CreateIssue(ctx,
		"[AI] "+truncateEllipsis(description, 60),
		requestBody(description),
		[]string{b.label},
	)
	if err != nil {
		return CreateResult{}, err
	}

	return CreateResult{
		IssueNumber:   issue.Number,
		IssueURL:      issue.HTMLURL,
		Status:        "pending",
		AgentAssigned: b.assign(ctx, issue.Number),
	}, nil
}

// ApproveResult reports a merged change set.
type ApproveResult struct {
	PRNumber int  `json:"prNumber"`
	Merged   bool `json:"merged"`
}

// Approve squash-merges the linked pull request.
func (b *Broker) Approve(ctx context.Context, prNumber int) (ApproveResult, error) {
	if prNumber <= 0 {
		return ApproveResult{}, &ValidationError{Msg: "PR number is required"}
	}
	if err := b.gh.MergePullRequest(ctx, prNumber); err != nil {
		return ApproveResult{}, err
	}
	return ApproveResult{PRNumber: prNumber, Merged: true}, nil
}

// RejectResult reports a closed change set.
type RejectResult struct {
	PRNumber int  `json:"prNumber"`
	Closed   bool `json:"closed"`
}

// Reject closes the linked pull request without merging.
func (b *Broker) Reject(ctx context.Context, prNumber int) (RejectResult, error) {
	if prNumber <= 0 {
		return RejectResult{}, &ValidationError{Msg: "PR number is required"}
	}
	if err := b.gh.ClosePullRequest(ctx, prNumber); err != nil {
		return RejectResult{}, err
	}
	return RejectResult{PRNumber: prNumber, Closed: true}, nil
}

// ReviseParams carries the inputs to a revision.
type ReviseParams struct {
	IssueNumber         int
	PRNumber            int
	OriginalDescription string
	Feedback            string
}

// ReviseResult reports a replacement request.
type ReviseResult struct {
	IssueNumber   int    `json:"issueNumber"`
	IssueURL      string `json:"issueUrl"`
	AgentAssigned bool   `json:"copilotAssigned"`
	ReplacedIssue int    `json:"replacedIssue"`
}

// Revise closes the old pull request and issue, then opens a replacement
// issue carrying the original description plus the feedback. The three
// upstream calls run in a fixed order with no rollback; a failure partway
// through is reported as a *ReviseError naming the completed steps.
func (b *Broker) Revise(ctx context.Context, p ReviseParams) (ReviseResult, error) {
	if p.IssueNumber <= 0 || p.PRNumber <= 0 {
		return ReviseResult{}, &ValidationError{Msg: "Issue number and PR number are required"}
	}
	if strings.TrimSpace(p.Feedback) == "" {
		return ReviseResult{}, &ValidationError{Msg: "Feedback is required"}
	}

	var completed []string

	if err := b.gh.ClosePullRequest(ctx, p.PRNumber); err != nil {
		return ReviseResult{}, &ReviseError{Step: StepClosePullRequest, Completed: completed, Err: err}
	}
	completed = append(completed, StepClosePullRequest)

	if err := b.gh.CloseIssue(ctx, p.IssueNumber); err != nil {
		return ReviseResult{}, &ReviseError{Step: StepCloseIssue, Completed: completed, Err: err}
	}
	completed = append(completed, StepCloseIssue)

	issue, err := b.gh.CreateIssue(ctx,
		"[AI] Revision: "+truncateEllipsis(p.OriginalDescription, 50),
		revisionBody(p.OriginalDescription, p.Feedback, p.IssueNumber),
		[]string{b.label},
	)
	if err != nil {
		return ReviseResult{}, &ReviseError{Step: StepCreateReplacement, Completed: completed, Err: err}
	}

	return ReviseResult{
		IssueNumber:   issue.Number,
		IssueURL:      issue.HTMLURL,
		AgentAssigned: b.assign(ctx, issue.Number),
		ReplacedIssue: p.IssueNumber,
	}, nil
}

// RevertResult reports a revert request.
type RevertResult struct {
	IssueNumber   int    `json:"issueNumber"`
	IssueURL      string `json:"issueUrl"`
	AgentAssigned bool   `json:"copilotAssigned"`
}

// Revert opens a new request issue asking the agent to undo a merged pull
// request's changes.
func (b *Broker) Revert(ctx context.Context, prNumber int, description string) (RevertResult, error) {
	if prNumber <= 0 {
		return RevertResult{}, &ValidationError{Msg: "PR number is required"}
	}

	title := truncate(description, 50)
	if title == "" {
		title = fmt.Sprintf("PR #%d", prNumber)
	}

	issue, err := b.gh.CreateIssue(ctx,
		"[AI] Revert: "+title,
		revertBody(prNumber, description),
		[]string{b.label},
	)
	if err != nil {
		return RevertResult{}, err
	}

	return RevertResult{
		IssueNumber:   issue.Number,
		IssueURL:      issue.HTMLURL,
		AgentAssigned: b.assign(ctx, issue.Number),
	}, nil
}

// assign runs the best-effort agent assignment. Failures are logged and
// reported as "not assigned"; the surrounding operation still succeeds.
func (b *Broker) assign(ctx context.Context, issueNumber int) bool {
	assigned, err := b.agent.ResolveAndAssign(ctx, issueNumber)
	if err != nil {
		b.logger.Warn("agent assignment failed", "issue", issueNumber, "error", err)
		return false
	}
	return assigned
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncateEllipsis(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
