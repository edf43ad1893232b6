// Package model defines the canonical data model shared by the evidence
// aggregation, policy, verdict, and history subsystems.
package model

import "time"

// ClauseStatus is the outcome a verification tier reported for one clause.
type ClauseStatus string

const (
	StatusPass    ClauseStatus = "pass"
	StatusFail    ClauseStatus = "fail"
	StatusPartial ClauseStatus = "partial"
	StatusUnknown ClauseStatus = "unknown"
)

// Valid reports whether s is one of the four recognized statuses.
func (s ClauseStatus) Valid() bool {
	switch s {
	case StatusPass, StatusFail, StatusPartial, StatusUnknown:
		return true
	}
	return false
}

// EvidenceSource identifies the verification method that produced a result.
type EvidenceSource string

const (
	SourceFormal    EvidenceSource = "formal"
	SourceRuntime   EvidenceSource = "runtime"
	SourceHeuristic EvidenceSource = "heuristic"
)

// Valid reports whether e is a recognized evidence source.
func (e EvidenceSource) Valid() bool {
	switch e {
	case SourceFormal, SourceRuntime, SourceHeuristic:
		return true
	}
	return false
}

// TrustCategory is the closed set of clause categories that participate in
// scoring. Every clause belongs to exactly one category.
type TrustCategory string

const (
	CategoryPreconditions  TrustCategory = "preconditions"
	CategoryPostconditions TrustCategory = "postconditions"
	CategoryInvariants     TrustCategory = "invariants"
	CategoryTemporal       TrustCategory = "temporal"
	CategoryChaos          TrustCategory = "chaos"
	CategoryCoverage       TrustCategory = "coverage"
)

// Categories lists all trust categories in canonical order. Aggregation and
// reporting iterate this slice so output ordering is deterministic.
var Categories = []TrustCategory{
	CategoryPreconditions,
	CategoryPostconditions,
	CategoryInvariants,
	CategoryTemporal,
	CategoryChaos,
	CategoryCoverage,
}

// Valid reports whether c is a recognized trust category.
func (c TrustCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ClauseResult is the canonical record for one verified clause. Producers
// emit these (via the evidence normalizer) and never mutate them afterwards.
type ClauseResult struct {
	ID             string         `json:"id"`
	Category       TrustCategory  `json:"category"`
	Status         ClauseStatus   `json:"status"`
	Confidence     int            `json:"confidence"`
	EvidenceSource EvidenceSource `json:"evidence_source"`
	Message        string         `json:"message,omitempty"`
	ProducedAt     time.Time      `json:"produced_at"`
}

// StatusCounts tallies clause outcomes within one category.
type StatusCounts struct {
	Pass    int `json:"pass"`
	Fail    int `json:"fail"`
	Partial int `json:"partial"`
	Unknown int `json:"unknown"`
}

// Total returns the number of clauses counted.
func (c StatusCounts) Total() int {
	return c.Pass + c.Fail + c.Partial + c.Unknown
}

// CategoryScore is the derived per-category score, recomputed each run.
// Weight is the effective (re-normalized) weight used for composition.
type CategoryScore struct {
	Category TrustCategory `json:"category"`
	Score    int           `json:"score"`
	Weight   float64       `json:"weight"`
	Counts   StatusCounts  `json:"counts"`
}

// Verdict is the canonical gate decision. The proof-bundle vocabulary
// (PROVEN / INCOMPLETE_PROOF / VIOLATED / UNPROVEN) is a presentation
// mapping applied at the rendering boundary, never a second decision path.
type Verdict string

const (
	VerdictShip   Verdict = "SHIP"
	VerdictWarn   Verdict = "WARN"
	VerdictNoShip Verdict = "NO_SHIP"
)

// TrustReport is the output of one gate run. It is not persisted directly;
// the history subsystem summarizes it into a TrustHistoryEntry.
type TrustReport struct {
	Score      int             `json:"score"`
	Verdict    Verdict         `json:"verdict"`
	Categories []CategoryScore `json:"categories"`
	Reasons    []string        `json:"reasons"`
}

// RunMetadata describes the verification run that produced a batch of
// clause results.
type RunMetadata struct {
	SpecFile    string    `json:"spec_file,omitempty"`
	ImplFile    string    `json:"impl_file,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	ProjectRoot string    `json:"project_root"`
	CommitHash  string    `json:"commit_hash,omitempty"`
}

// TrustHistoryEntry is the append-only historical summary of one run.
// Entries are never mutated after being written.
type TrustHistoryEntry struct {
	Score             int                    `json:"score"`
	Verdict           Verdict                `json:"verdict"`
	Timestamp         time.Time              `json:"timestamp"`
	CategoryScores    map[TrustCategory]int  `json:"category_scores"`
	EvidenceBreakdown map[EvidenceSource]int `json:"evidence_breakdown"`
	Counts            StatusCounts           `json:"counts"`
	CommitHash        string                 `json:"commit_hash,omitempty"`
	Fingerprint       string                 `json:"fingerprint"`
}
