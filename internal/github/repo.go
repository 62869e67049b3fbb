package github

import (
	"fmt"
	"regexp"
	"strings"
)

var repoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^git@[^:]+:([^/]+)/([^/]+)$`),
	regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)$`),
	regexp.MustCompile(`^ssh://git@[^/]+/([^/]+)/([^/]+)$`),
}

// ParseRepoName turns a clone or web URL into "owner/name".
//
// Handles formats:
//   - git@github.com:org/repo
//   - https://github.com/org/repo
//   - ssh://git@github.com/org/repo
//   - org/repo
func ParseRepoName(remote string) (string, error) {
	remote = strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(remote), "/"), ".git")
	if remote == "" {
		return "", fmt.Errorf("empty repository reference")
	}

	for _, re := range repoPatterns {
		if m := re.FindStringSubmatch(remote); len(m) == 3 {
			return m[1] + "/" + m[2], nil
		}
	}

	// Fallback for other structures, e.g. path/to/repo
	parts := strings.Split(remote, "/")
	if len(parts) >= 2 && parts[len(parts)-2] != "" && parts[len(parts)-1] != "" {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1], nil
	}
	return "", fmt.Errorf("unable to parse repo from remote: %s", remote)
}
