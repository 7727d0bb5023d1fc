package analysis

import (
	"testing"

	"github.com/finsight/finsight/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEmptyProfile(t *testing.T) {
	r := NewRecommender()

	assert.Nil(t, r.Generate(nil))
	assert.Nil(t, r.Generate(&model.BehaviorProfile{InsufficientData: true}))
	assert.Empty(t, r.Generate(&model.BehaviorProfile{UserID: 1}))
}

func TestGenerateOnePerFactor(t *testing.T) {
	profile := &model.BehaviorProfile{
		UserID: 7,
		RiskFactors: []model.RiskFactor{
			model.RiskHighVolatility,
			model.RiskLowSavings,
		},
		VolatilityScore: 80,
		SavingsRate:     5,
	}

	recs := NewRecommender().Generate(profile)
	require.Len(t, recs, 2)

	factors := []model.RiskFactor{recs[0].Factor, recs[1].Factor}
	assert.Contains(t, factors, model.RiskHighVolatility)
	assert.Contains(t, factors, model.RiskLowSavings)
	for _, rec := range recs {
		assert.Equal(t, int64(7), rec.UserID)
		assert.NotEmpty(t, rec.Title)
		assert.NotEmpty(t, rec.Rationale)
		assert.NotEmpty(t, rec.ExpectedImpact)
		assert.GreaterOrEqual(t, rec.Confidence, 0.0)
		assert.LessOrEqual(t, rec.Confidence, 1.0)
	}
}

func TestGenerateOrdering(t *testing.T) {
	profile := &model.BehaviorProfile{
		UserID: 1,
		RiskFactors: []model.RiskFactor{
			model.RiskRisingExpenses,    // low priority
			model.RiskLowSavings,        // medium
			model.RiskFrequentSpikes,    // medium
			model.RiskHighVolatility,    // high
			model.RiskNegativeCashflow,  // high
		},
		DecliningMonths: 6,   // confidence 1.0
		VolatilityScore: 55,  // barely past 50: low confidence
		SpikeFrequency:  0.2, // confidence 1.0
		SavingsRate:     8,   // barely below 10: lower confidence
		ExpenseGrowth:   0.3,
	}

	recs := NewRecommender().Generate(profile)
	require.Len(t, recs, 5)

	// High priorities first, ordered by confidence within the tier.
	assert.Equal(t, model.RiskNegativeCashflow, recs[0].Factor)
	assert.Equal(t, model.RiskHighVolatility, recs[1].Factor)
	assert.Equal(t, model.PriorityHigh, recs[0].Priority)
	assert.Equal(t, model.PriorityHigh, recs[1].Priority)

	assert.Equal(t, model.RiskFrequentSpikes, recs[2].Factor)
	assert.Equal(t, model.RiskLowSavings, recs[3].Factor)
	assert.Equal(t, model.PriorityMedium, recs[2].Priority)
	assert.Equal(t, model.PriorityMedium, recs[3].Priority)

	assert.Equal(t, model.RiskRisingExpenses, recs[4].Factor)
	assert.Equal(t, model.PriorityLow, recs[4].Priority)

	for i := 1; i < len(recs); i++ {
		if recs[i].Priority == recs[i-1].Priority {
			assert.GreaterOrEqual(t, recs[i-1].Confidence, recs[i].Confidence)
		}
	}
}

func TestGenerateSkipsUnknownFactors(t *testing.T) {
	profile := &model.BehaviorProfile{
		UserID:      1,
		RiskFactors: []model.RiskFactor{"mystery_factor", model.RiskLowSavings},
	}

	recs := NewRecommender().Generate(profile)
	require.Len(t, recs, 1)
	assert.Equal(t, model.RiskLowSavings, recs[0].Factor)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name      string
		metric    float64
		threshold float64
		want      float64
	}{
		{"at threshold", 50, 50, 0.5},
		{"halfway past", 75, 50, 0.75},
		{"at saturation", 100, 50, 1.0},
		{"beyond saturation clips", 500, 50, 1.0},
		{"below threshold clips toward zero", -60, 50, 0.0},
		{"zero threshold", 5, 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, confidence(tt.metric, tt.threshold), 1e-9)
		})
	}
}

func TestConfidenceReflectsDistancePastThreshold(t *testing.T) {
	near := &model.BehaviorProfile{
		UserID:          1,
		RiskFactors:     []model.RiskFactor{model.RiskHighVolatility},
		VolatilityScore: 51,
	}
	far := &model.BehaviorProfile{
		UserID:          1,
		RiskFactors:     []model.RiskFactor{model.RiskHighVolatility},
		VolatilityScore: 150,
	}

	r := NewRecommender()
	nearRecs := r.Generate(near)
	farRecs := r.Generate(far)
	require.Len(t, nearRecs, 1)
	require.Len(t, farRecs, 1)

	assert.Less(t, nearRecs[0].Confidence, farRecs[0].Confidence)
}
