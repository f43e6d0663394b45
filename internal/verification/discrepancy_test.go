package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func area(v float64) ClaimedMetrics {
	return ClaimedMetrics{Area: &v}
}

func TestEvaluateAreaThreshold(t *testing.T) {
	p := DefaultDiscrepancyPolicy()

	cases := []struct {
		name      string
		claimed   float64
		estimated float64
		want      Severity
	}{
		{name: "ten percent under", claimed: 100, estimated: 90},
		{name: "exactly fifteen percent", claimed: 100, estimated: 85},
		{name: "eight percent under", claimed: 100, estimated: 92},
		{name: "twenty percent under", claimed: 100, estimated: 80, want: SeverityMedium},
		{name: "twenty percent over", claimed: 100, estimated: 120, want: SeverityMedium},
		{name: "thirty percent under", claimed: 100, estimated: 70, want: SeverityHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Evaluate(area(tc.claimed), &AIMetrics{EstimatedArea: tc.estimated, Confidence: 90})
			if tc.want == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, DiscrepancyArea, got[0].Kind)
			assert.Equal(t, tc.want, got[0].Severity)
		})
	}
}

func TestEvaluateMessageCitesBothValues(t *testing.T) {
	got := DefaultDiscrepancyPolicy().Evaluate(area(100), &AIMetrics{EstimatedArea: 70})
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "100.0")
	assert.Contains(t, got[0].Message, "70.0")
	assert.Contains(t, got[0].Message, "30.0%")
}

func TestEvaluateMissingValues(t *testing.T) {
	p := DefaultDiscrepancyPolicy()
	assert.Nil(t, p.Evaluate(area(100), nil))
	assert.Empty(t, p.Evaluate(ClaimedMetrics{}, &AIMetrics{EstimatedArea: 40}))
	assert.Empty(t, p.Evaluate(area(100), &AIMetrics{EstimatedArea: 0}))
}

func TestEvaluateCrackFindings(t *testing.T) {
	p := DefaultDiscrepancyPolicy()

	got := p.Evaluate(area(100), &AIMetrics{EstimatedArea: 100, CrackDetected: true,
		Detections: []Detection{{Label: "crack", IsCrack: true}}})
	require.Len(t, got, 1)
	assert.Equal(t, DiscrepancyCondition, got[0].Kind)
	assert.Equal(t, SeverityMedium, got[0].Severity)
	assert.Contains(t, got[0].Message, "1 crack(s)")

	many := []Detection{{IsCrack: true}, {IsCrack: true}, {IsCrack: true}, {Label: "door"}}
	got = p.Evaluate(area(100), &AIMetrics{EstimatedArea: 100, CrackDetected: true, Detections: many})
	require.Len(t, got, 1)
	assert.Equal(t, SeverityHigh, got[0].Severity)
}

func TestEvaluateHonoursConfiguredThresholds(t *testing.T) {
	p := DiscrepancyPolicy{MediumThreshold: 0.05, HighThreshold: 0.5}
	got := p.Evaluate(area(100), &AIMetrics{EstimatedArea: 70})
	require.Len(t, got, 1)
	assert.Equal(t, SeverityMedium, got[0].Severity)
}

func TestSummarize(t *testing.T) {
	p := DefaultDiscrepancyPolicy()

	v := p.Summarize(area(100), nil)
	assert.False(t, v.Analyzed)
	assert.False(t, v.HasDiscrepancy)

	v = p.Summarize(area(100), &AIMetrics{EstimatedArea: 92, Confidence: 88})
	assert.True(t, v.Analyzed)
	assert.False(t, v.HasDiscrepancy)
	assert.Equal(t, SeverityNone, v.Severity)
	assert.False(t, v.NeedsConfirmation)
	require.NotNil(t, v.AreaDifference)
	assert.InDelta(t, 8.0, *v.AreaDifference, 0.001)

	v = p.Summarize(area(100), &AIMetrics{EstimatedArea: 70, Confidence: 55, CrackDetected: true})
	assert.True(t, v.HasDiscrepancy)
	assert.Equal(t, SeverityHigh, v.Severity)
	assert.True(t, v.NeedsConfirmation)
}
