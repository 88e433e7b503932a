package reconcile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ericvanlare/aimod/internal/github"
)

// Linker decides whether a pull request belongs to a request issue. The
// association is a textual convention, not a structural link, so it lives
// behind this interface where it can be swapped or tested on its own.
type Linker interface {
	Linked(issueNumber int, pr github.PullRequest) bool
}

// HeuristicLinker matches a pull request to an issue when the branch name
// contains the issue number, or when the body carries a closing keyword
// ("fixes/closes/resolves ... #N") for it.
type HeuristicLinker struct{}

func (HeuristicLinker) Linked(issueNumber int, pr github.PullRequest) bool {
	num := strconv.Itoa(issueNumber)
	if strings.Contains(pr.HeadRef, num) || strings.Contains(pr.HeadRef, "issue-"+num) {
		return true
	}
	if pr.Body != "" {
		re := regexp.MustCompile(`(?i)(fixes|closes|resolves)\s+.*#` + num + `\b`)
		return re.MatchString(pr.Body)
	}
	return false
}
