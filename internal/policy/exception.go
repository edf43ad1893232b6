package policy

import (
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// Gap is a detected policy violation: an unmet required-evidence rule or a
// failing clause, tied to a path and/or behavior name.
type Gap struct {
	Path        string
	Behavior    string
	Rule        string
	Severity    string
	Description string
}

// Covers reports whether a valid exception's scope covers the gap.
// When scope declares both paths and behaviors, matching either dimension
// suffices; when only one is declared, that dimension decides. A matcher
// error never grants coverage. Coverage never alters the computed score, it
// only downgrades the gating severity of the specific gap.
func Covers(exc PolicyException, gap Gap, now time.Time) bool {
	if !exc.ValidAt(now) {
		return false
	}

	if gap.Rule != "" {
		for _, r := range exc.Scope.Rules {
			if r == gap.Rule {
				return true
			}
		}
	}
	if gap.Path != "" {
		for _, pattern := range exc.Scope.Paths {
			if MatchPath(pattern, gap.Path) {
				return true
			}
		}
	}
	if gap.Behavior != "" {
		for _, pattern := range exc.Scope.Behaviors {
			if matchBehavior(pattern, gap.Behavior) {
				return true
			}
		}
	}

	// An exception whose scope matches no dimension of this gap covers
	// nothing; default is always "not covered".
	return false
}

// FindCovering returns the first exception covering the gap, or nil.
func FindCovering(exceptions []PolicyException, gap Gap, now time.Time) *PolicyException {
	for i := range exceptions {
		if Covers(exceptions[i], gap, now) {
			return &exceptions[i]
		}
	}
	return nil
}

// MatchPath matches a glob pattern against a slash-separated path using
// doublestar semantics. If the pattern is malformed, fall back to the
// simplified regex translation rather than failing the run.
func MatchPath(pattern, path string) bool {
	ok, err := doublestar.Match(pattern, path)
	if err == nil {
		return ok
	}
	zap.L().Warn("policy: bad glob pattern, using regex fallback",
		zap.String("pattern", pattern),
		zap.Error(err),
	)
	return matchGlobFallback(pattern, path)
}

// matchGlobFallback translates glob tokens into an anchored regular
// expression: `**` becomes `.*` and `*` becomes `[^/]*`.
func matchGlobFallback(pattern, path string) bool {
	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(pattern); {
		if strings.HasPrefix(pattern[i:], "**") {
			sb.WriteString(".*")
			i += 2
			continue
		}
		if pattern[i] == '*' {
			sb.WriteString("[^/]*")
			i++
			continue
		}
		sb.WriteString(regexp.QuoteMeta(string(pattern[i])))
		i++
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		// Even the fallback failed; a matcher error must never grant
		// an exception.
		return false
	}
	return re.MatchString(path)
}

// matchBehavior matches a behavior scope entry as a regular expression
// against the behavior name. A pattern that does not compile matches
// nothing.
func matchBehavior(pattern, behavior string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		zap.L().Warn("policy: bad behavior pattern in exception scope",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		return false
	}
	return re.MatchString(behavior)
}
