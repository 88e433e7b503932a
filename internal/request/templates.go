package request

import "fmt"

// The issue body templates are contractual: the reconciliation engine keys
// off the "This replaces issue #N" marker, and the coding agent reads the
// structured body. Keep wording changes in sync with reconcile.

func requestBody(description string) string {
	return fmt.Sprintf(`## Site Modification Request

%s

---
*This issue was created from the admin panel. Copilot will work on this and create a PR.*
`, description)
}

func revisionBody(originalDescription, feedback string, replacedIssue int) string {
	return fmt.Sprintf(`## Site Modification Request

%s

### Additional Changes Requested:
%s

---
*This replaces issue #%d. Copilot will work on this and create a PR.*
`, originalDescription, feedback, replacedIssue)
}

func revertBody(prNumber int, description string) string {
	if description == "" {
		description = "No description available"
	}
	return fmt.Sprintf(`## Site Modification Request

Undo the changes from PR #%d.

Original change: %s

Please revert the code changes made in that PR to restore the previous behavior.

---
*This is a revert request created from the admin panel. Copilot will work on this and create a PR.*
`, prNumber, description)
}
