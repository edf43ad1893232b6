package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exceptionNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func activeException(scope ExceptionScope) PolicyException {
	return PolicyException{
		ID:            "EXC-001",
		Scope:         scope,
		Justification: "migration in progress, tracked in TG-412",
		ExpiresAt:     "2026-06-30",
		Active:        true,
	}
}

func TestCovers_PathGlob(t *testing.T) {
	exc := activeException(ExceptionScope{Paths: []string{"legacy/**"}})

	assert.True(t, Covers(exc, Gap{Path: "legacy/billing/invoice.go"}, exceptionNow))
	assert.True(t, Covers(exc, Gap{Path: "legacy/a.go"}, exceptionNow))
	assert.False(t, Covers(exc, Gap{Path: "payments/charge.go"}, exceptionNow))
}

func TestCovers_SingleStarStaysWithinSegment(t *testing.T) {
	exc := activeException(ExceptionScope{Paths: []string{"legacy/*.go"}})

	assert.True(t, Covers(exc, Gap{Path: "legacy/invoice.go"}, exceptionNow))
	assert.False(t, Covers(exc, Gap{Path: "legacy/billing/invoice.go"},
		exceptionNow), "a single star must not cross path separators")
}

func TestCovers_BehaviorRegex(t *testing.T) {
	exc := activeException(ExceptionScope{Behaviors: []string{"^payment-.*"}})

	assert.True(t, Covers(exc, Gap{Behavior: "payment-retry"}, exceptionNow))
	assert.False(t, Covers(exc, Gap{Behavior: "refund-retry"}, exceptionNow))
}

func TestCovers_EitherDimensionSuffices(t *testing.T) {
	exc := activeException(ExceptionScope{
		Paths:     []string{"legacy/**"},
		Behaviors: []string{"^payment-"},
	})

	gap := Gap{Path: "payments/charge.go", Behavior: "payment-retry"}
	assert.True(t, Covers(exc, gap, exceptionNow), "behavior matches even though path does not")
}

func TestCovers_RuleID(t *testing.T) {
	exc := activeException(ExceptionScope{Rules: []string{"required_evidence[0]"}})

	assert.True(t, Covers(exc, Gap{Rule: "required_evidence[0]"}, exceptionNow))
	assert.False(t, Covers(exc, Gap{Rule: "required_evidence[1]"}, exceptionNow))
}

func TestCovers_ExpiredExceptionGrantsNothing(t *testing.T) {
	exc := activeException(ExceptionScope{Paths: []string{"**"}})
	exc.ExpiresAt = "2026-02-01"

	assert.False(t, Covers(exc, Gap{Path: "payments/charge.go"}, exceptionNow),
		"expired exceptions revert to full enforcement")
}

func TestCovers_InactiveException(t *testing.T) {
	exc := activeException(ExceptionScope{Paths: []string{"**"}})
	exc.Active = false

	assert.False(t, Covers(exc, Gap{Path: "anything.go"}, exceptionNow))
}

func TestCovers_BareDateExpiresEndOfDay(t *testing.T) {
	exc := activeException(ExceptionScope{Paths: []string{"**"}})
	exc.ExpiresAt = "2026-03-01"

	// Still valid during the expiry day itself.
	assert.True(t, exc.ValidAt(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)))
	assert.False(t, exc.ValidAt(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
}

func TestCovers_MatcherErrorNeverGrantsCoverage(t *testing.T) {
	exc := activeException(ExceptionScope{Behaviors: []string{"([unclosed"}})

	assert.False(t, Covers(exc, Gap{Behavior: "([unclosed"}, exceptionNow),
		"an uncompilable pattern matches nothing")
}

func TestMatchPath_GlobFallback(t *testing.T) {
	// A pattern doublestar rejects still gets the simplified translation.
	assert.True(t, matchGlobFallback("src/**/handler_*.go", "src/api/v2/handler_users.go"))
	assert.False(t, matchGlobFallback("src/*.go", "src/api/users.go"))
}

func TestFindCovering(t *testing.T) {
	exceptions := []PolicyException{
		activeException(ExceptionScope{Paths: []string{"legacy/**"}}),
		activeException(ExceptionScope{Behaviors: []string{"^payment-"}}),
	}
	exceptions[1].ID = "EXC-002"

	found := FindCovering(exceptions, Gap{Behavior: "payment-retry"}, exceptionNow)
	require.NotNil(t, found)
	assert.Equal(t, "EXC-002", found.ID)

	assert.Nil(t, FindCovering(exceptions, Gap{Path: "core/auth.go"}, exceptionNow))
}

func TestActiveExceptions(t *testing.T) {
	cfg := Default()
	cfg.Exceptions = []PolicyException{
		activeException(ExceptionScope{Paths: []string{"a/**"}}),
		activeException(ExceptionScope{Paths: []string{"b/**"}}),
	}
	cfg.Exceptions[1].ExpiresAt = "2025-01-01"

	active := cfg.ActiveExceptions(exceptionNow)
	require.Len(t, active, 1)
	assert.Equal(t, []string{"a/**"}, active[0].Scope.Paths)
}
