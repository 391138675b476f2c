package dockersource

import (
	"path/filepath"
	"regexp"
	"strings"
)

// matchesAny reports whether name matches any exclusion pattern. A pattern
// prefixed "regex:" is compiled as a regular expression; anything else is
// a glob matched with path/filepath.Match, per §4.2.1 "glob or regex over
// container names".
func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if strings.HasPrefix(p, "regex:") {
			re, err := regexp.Compile(strings.TrimPrefix(p, "regex:"))
			if err != nil {
				continue
			}
			if re.MatchString(name) {
				return true
			}
			continue
		}
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
