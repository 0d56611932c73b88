package policy

import (
	"testing"

	"github.com/eshaffer321/invoice-reconciler/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func candidates(confidences ...float64) []model.MatchCandidate {
	out := make([]model.MatchCandidate, 0, len(confidences))
	for i, c := range confidences {
		out = append(out, model.MatchCandidate{TransactionID: int64(i + 1), Confidence: c})
	}
	return out
}

func TestDecide(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name       string
		candidates []model.MatchCandidate
		want       Outcome
	}{
		{"empty list", nil, OutcomeNoMatch},
		{"exactly auto threshold", candidates(0.85), OutcomeAutoConfirmEligible},
		{"high best with weak tail", candidates(0.97, 0.30), OutcomeAutoConfirmEligible},
		{"just below auto", candidates(0.8499), OutcomeReviewable},
		{"exactly review threshold", candidates(0.70), OutcomeReviewable},
		{"below review", candidates(0.69, 0.2), OutcomeLowConfidence},
		{"zero confidence is still offerable", candidates(0), OutcomeLowConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, th.Decide(tt.candidates))
		})
	}
}

func TestConfirmMethod(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, model.MethodManual, th.ConfirmMethod(0.9))
	assert.Equal(t, model.MethodManual, th.ConfirmMethod(0.7))
	assert.Equal(t, model.MethodManualOverride, th.ConfirmMethod(0.69))
	assert.True(t, th.RequiresOverride(0.1))
	assert.False(t, th.RequiresOverride(0.75))
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.NoError(t, Thresholds{AutoConfirm: 0.5, Review: 0.5}.Validate())
	assert.Error(t, Thresholds{AutoConfirm: 0.6, Review: 0.8}.Validate())
	assert.Error(t, Thresholds{AutoConfirm: 1.2, Review: 0.7}.Validate())
	assert.Error(t, Thresholds{AutoConfirm: 0.8, Review: -0.1}.Validate())
}
