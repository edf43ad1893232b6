package verdict

import "github.com/sells-group/trustgate/internal/model"

// Vocabulary selects how a canonical verdict is rendered.
type Vocabulary string

const (
	// VocabularyShip renders SHIP / WARN / NO_SHIP.
	VocabularyShip Vocabulary = "ship"
	// VocabularyProof renders the proof-bundle terms PROVEN /
	// INCOMPLETE_PROOF / VIOLATED / UNPROVEN.
	VocabularyProof Vocabulary = "proof"
)

// Render translates the canonical verdict at the presentation boundary.
// The decision logic is never duplicated per vocabulary: UNPROVEN is the
// proof-bundle rendering of a run with no evidence at all, which under the
// ship vocabulary surfaces as NO_SHIP.
func Render(v model.Verdict, vocab Vocabulary, evidenceCount int) string {
	if vocab != VocabularyProof {
		return string(v)
	}
	if evidenceCount == 0 {
		return "UNPROVEN"
	}
	switch v {
	case model.VerdictShip:
		return "PROVEN"
	case model.VerdictWarn:
		return "INCOMPLETE_PROOF"
	default:
		return "VIOLATED"
	}
}
