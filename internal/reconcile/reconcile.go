// Package reconcile derives change-request status from the provider's
// current issue and pull-request state. Nothing here is cached or persisted:
// every call re-fetches and re-derives, so concurrent external edits are
// absorbed on the next read.
package reconcile

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ericvanlare/aimod/internal/github"
	"github.com/ericvanlare/aimod/internal/preview"
)

// Status is the derived state of a change request.
type Status string

const (
	StatusPending      Status = "pending"
	StatusBuilding     Status = "building"
	StatusPreviewReady Status = "preview_ready"
	StatusApplied      Status = "applied"
	StatusReplaced     Status = "replaced"
	StatusDiscarded    Status = "discarded"
)

// replacedMarker is stamped into replacement issue bodies by the revise
// operation; its presence on a closed issue means the request was superseded.
const replacedMarker = "This replaces issue #"

// Fetch windows over the provider's most-recently-created records.
const (
	issueFetchLimit = 20
	prFetchLimit    = 30
	// statusPRFetchLimit is the narrower window the legacy status view uses.
	statusPRFetchLimit = 20
)

// GitHub is the subset of the provider client the engine reads from.
type GitHub interface {
	GetIssue(ctx context.Context, number int) (github.Issue, error)
	ListRequestIssues(ctx context.Context, label string, limit int) ([]github.Issue, error)
	ListPullRequests(ctx context.Context, limit int) ([]github.PullRequest, error)
}

// Prober checks preview deployments and derives their URLs.
type Prober interface {
	URL(branchRef string) string
	Check(ctx context.Context, branchRef string) preview.Result
}

// ChangeRequest is a request issue with its derived status. Pointer fields
// serialize as null when no change set is linked.
type ChangeRequest struct {
	IssueNumber int     `json:"issueNumber"`
	IssueURL    string  `json:"issueUrl"`
	IssueState  string  `json:"issueState"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"createdAt"`
	PRNumber    *int    `json:"prNumber"`
	PRURL       *string `json:"prUrl"`
	PreviewURL  *string `json:"previewUrl"`
	Status      Status  `json:"status"`
}

// IssueStatus is the legacy single-issue view. Its 4-state status field
// (merged | pending | preview_ready | pr_created) predates the richer model
// in List and is kept as-is; callers depend on both shapes.
type IssueStatus struct {
	IssueNumber int     `json:"issueNumber"`
	IssueState  string  `json:"issueState"`
	PRNumber    *int    `json:"prNumber"`
	PRURL       *string `json:"prUrl"`
	PRState     string  `json:"prState"`
	PreviewURL  *string `json:"previewUrl"`
	Status      string  `json:"status"`
}

// Engine cross-references issues, pull requests, and preview probes.
type Engine struct {
	gh     GitHub
	linker Linker
	prober Prober
	label  string
}

// NewEngine creates an Engine reconciling issues carrying the given label.
func NewEngine(gh GitHub, linker Linker, prober Prober, label string) *Engine {
	return &Engine{gh: gh, linker: linker, prober: prober, label: label}
}

// List fetches the recent request issues and pull requests, then derives a
// status for each issue. Per-issue classification (including the preview
// probe) runs concurrently; results keep the issues' fetch order.
func (e *Engine) List(ctx context.Context) ([]ChangeRequest, error) {
	issues, err := e.gh.ListRequestIssues(ctx, e.label, issueFetchLimit)
	if err != nil {
		return nil, err
	}
	prs, err := e.gh.ListPullRequests(ctx, prFetchLimit)
	if err != nil {
		return nil, err
	}

	out := make([]ChangeRequest, len(issues))
	g, ctx := errgroup.WithContext(ctx)
	for i, issue := range issues {
		g.Go(func() error {
			out[i] = e.classify(ctx, issue, prs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// classify derives a single request's status. The case order is a priority
// chain: an explicit replacement outranks a discarded change set, which
// outranks a merge, which outranks in-flight states.
func (e *Engine) classify(ctx context.Context, issue github.Issue, prs []github.PullRequest) ChangeRequest {
	cr := ChangeRequest{
		IssueNumber: issue.Number,
		IssueURL:    issue.HTMLURL,
		IssueState:  issue.State,
		Description: stripTitlePrefixes(issue.Title),
		CreatedAt:   issue.State,
		Status:      StatusPending,
	}

	linked := e.linkedPR(issue.Number, prs)
	if linked != nil {
		cr.PRNumber = &linked.Number
		cr.PRURL = &linked.HTMLURL
	}

	replaced := strings.Contains(issue.Body, replacedMarker)

	switch {
	case replaced && issue.State == "closed":
		cr.Status = StatusReplaced
	case linked != nil && linked.State == "closed" && !linked.Merged:
		cr.Status = StatusDiscarded
	case linked != nil && linked.Merged:
		cr.Status = StatusApplied
	case linked != nil && linked.State == "open":
		res := e.prober.Check(ctx, linked.HeadRef)
		cr.PreviewURL = &res.URL
		if res.Ready {
			cr.Status = StatusPreviewReady
		} else {
			cr.Status = StatusBuilding
		}
	}
	return cr
}

// Status is the legacy single-issue variant. It derives the preview URL
// without probing it, so any open linked pull request reports
// preview_ready.
func (e *Engine) Status(ctx context.Context, issueNumber int) (IssueStatus, error) {
	issue, err := e.gh.GetIssue(ctx, issueNumber)
	if err != nil {
		return IssueStatus{}, err
	}
	prs, err := e.gh.ListPullRequests(ctx, statusPRFetchLimit)
	if err != nil {
		return IssueStatus{}, err
	}

	st := IssueStatus{
		IssueNumber: issueNumber,
		IssueState:  issue.State,
		PRState:     "not_found",
		Status:      "pending",
	}

	linked := e.linkedPR(issueNumber, prs)
	if linked == nil {
		return st, nil
	}

	st.PRNumber = &linked.Number
	st.PRURL = &linked.HTMLURL
	if linked.Merged {
		st.PRState = "merged"
	} else {
		st.PRState = linked.State
	}

	if !linked.Merged && linked.State == "open" {
		u := e.prober.URL(linked.HeadRef)
		st.PreviewURL = &u
	}

	switch {
	case linked.Merged:
		st.Status = "merged"
	case st.PreviewURL != nil:
		st.Status = "preview_ready"
	default:
		st.Status = "pr_created"
	}
	return st, nil
}

// linkedPR returns the first pull request in fetch order the linker matches.
// Multiple matches are possible; first wins.
func (e *Engine) linkedPR(issueNumber int, prs []github.PullRequest) *github.PullRequest {
	for i := range prs {
		if e.linker.Linked(issueNumber, prs[i]) {
			return &prs[i]
		}
	}
	return nil
}

var (
	aiPrefixRe      = regexp.MustCompile(`^\[AI\]\s*`)
	subjectPrefixRe = regexp.MustCompile(`^(Revision|Revert):\s*`)
)

// stripTitlePrefixes turns an issue title back into a human-readable
// description.
func stripTitlePrefixes(title string) string {
	s := aiPrefixRe.ReplaceAllString(title, "")
	return subjectPrefixRe.ReplaceAllString(s, "")
}
