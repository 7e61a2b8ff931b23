package workspace

import (
	"path"
	"regexp"
	"strings"
)

// unitPattern matches a work-unit branch name: a numeric prefix followed
// by a slug, e.g. "012-user-auth".
var unitPattern = regexp.MustCompile(`^\d+-[A-Za-z0-9][A-Za-z0-9._-]*$`)

const headRefPrefix = "ref: "

// ActiveUnit derives the active work-unit identifier from the checked-out
// branch recorded in .git/HEAD. A detached HEAD, a missing repository, or
// a branch that does not follow the numeric-prefix convention all yield
// no identifier; none of these are errors.
func (r *Reader) ActiveUnit() (string, bool) {
	head, ok := r.readFile(path.Join(".git", "HEAD"))
	if !ok {
		return "", false
	}

	line := strings.TrimSpace(head)
	if !strings.HasPrefix(line, headRefPrefix) {
		// Detached HEAD: a bare commit hash, no branch to derive from.
		return "", false
	}
	ref := strings.TrimSpace(strings.TrimPrefix(line, headRefPrefix))

	// Branch names may be namespaced (feature/012-user-auth); the unit
	// convention applies to the final path element.
	branch := path.Base(ref)
	if !unitPattern.MatchString(branch) {
		r.logger.Debug("workspace: branch does not name a work unit", "branch", branch)
		return "", false
	}
	return branch, true
}
