// Package policy turns a ranked candidate list into a reconciliation outcome.
package policy

import (
	"fmt"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
)

// Outcome classifies the result of a search for one invoice.
type Outcome string

const (
	OutcomeNoMatch             Outcome = "no_match"
	OutcomeAutoConfirmEligible Outcome = "auto_confirm_eligible"
	OutcomeReviewable          Outcome = "reviewable"
	OutcomeLowConfidence       Outcome = "low_confidence"
	OutcomeAlreadyReconciled   Outcome = "already_reconciled"
)

// Thresholds are the confidence levels that gate confirmation.
type Thresholds struct {
	AutoConfirm float64 `json:"auto_confirm"`
	Review      float64 `json:"review"`
}

// DefaultThresholds returns the standard 0.85 / 0.70 levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoConfirm: 0.85,
		Review:      0.70,
	}
}

// Validate checks 0 <= Review <= AutoConfirm <= 1.
func (t Thresholds) Validate() error {
	if t.Review < 0 || t.AutoConfirm > 1 || t.Review > t.AutoConfirm {
		return fmt.Errorf("invalid thresholds: review=%.2f auto_confirm=%.2f (need 0 <= review <= auto_confirm <= 1)",
			t.Review, t.AutoConfirm)
	}
	return nil
}

// Classify returns the outcome for a single confidence value.
func (t Thresholds) Classify(confidence float64) Outcome {
	switch {
	case confidence >= t.AutoConfirm:
		return OutcomeAutoConfirmEligible
	case confidence >= t.Review:
		return OutcomeReviewable
	default:
		return OutcomeLowConfidence
	}
}

// Decide classifies a candidate list sorted best first. Any non-empty list
// is offerable; only an empty one is a no match.
func (t Thresholds) Decide(candidates []model.MatchCandidate) Outcome {
	if len(candidates) == 0 {
		return OutcomeNoMatch
	}
	return t.Classify(candidates[0].Confidence)
}

// RequiresOverride reports whether a manual confirm at confidence must
// carry an explicit override.
func (t Thresholds) RequiresOverride(confidence float64) bool {
	return confidence < t.Review
}

// ConfirmMethod returns the method recorded for a manual confirm.
func (t Thresholds) ConfirmMethod(confidence float64) model.Method {
	if t.RequiresOverride(confidence) {
		return model.MethodManualOverride
	}
	return model.MethodManual
}
