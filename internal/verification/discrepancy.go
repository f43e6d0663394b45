package verification

import (
	"fmt"
	"math"
)

// DiscrepancyKind names what a discrepancy is about
type DiscrepancyKind string

const (
	DiscrepancyArea      DiscrepancyKind = "area"
	DiscrepancyCondition DiscrepancyKind = "condition"
)

// Severity orders discrepancies from none to high
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) weight() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	}
	return 0
}

// Discrepancy is a derived mismatch between declared and analysed values
type Discrepancy struct {
	Kind     DiscrepancyKind `json:"kind"`
	Severity Severity        `json:"severity"`
	Message  string          `json:"message"`
}

// Verdict summarizes the discrepancies of a record
type Verdict struct {
	Analyzed          bool     `json:"analyzed"`
	HasDiscrepancy    bool     `json:"has_discrepancy"`
	Severity          Severity `json:"severity"`
	Recommendation    string   `json:"recommendation"`
	NeedsConfirmation bool     `json:"needs_confirmation"`
	AreaDifference    *float64 `json:"area_difference_percent,omitempty"`
}

// DiscrepancyPolicy holds the thresholds used to classify findings.
// Ratios are fractions of the claimed value.
type DiscrepancyPolicy struct {
	MediumThreshold float64 `json:"medium_threshold"`
	HighThreshold   float64 `json:"high_threshold"`
	HighCrackCount  int     `json:"high_crack_count"`
	MinConfidence   float64 `json:"min_confidence"`
}

func DefaultDiscrepancyPolicy() DiscrepancyPolicy {
	return DiscrepancyPolicy{
		MediumThreshold: 0.15,
		HighThreshold:   0.25,
		HighCrackCount:  3,
		MinConfidence:   70,
	}
}

// areaRatio returns |claimed-estimated|/claimed, or false when either side is absent
func areaRatio(claimed ClaimedMetrics, ai *AIMetrics) (float64, bool) {
	if ai == nil || claimed.Area == nil || *claimed.Area <= 0 || ai.EstimatedArea <= 0 {
		return 0, false
	}
	return math.Abs(*claimed.Area-ai.EstimatedArea) / *claimed.Area, true
}

// Evaluate derives the discrepancies for a metrics pair. It is pure and
// returns nil when there is no analysis.
func (p DiscrepancyPolicy) Evaluate(claimed ClaimedMetrics, ai *AIMetrics) []Discrepancy {
	if ai == nil {
		return nil
	}
	var out []Discrepancy

	if ratio, ok := areaRatio(claimed, ai); ok && ratio > p.MediumThreshold {
		sev := SeverityMedium
		if ratio > p.HighThreshold {
			sev = SeverityHigh
		}
		out = append(out, Discrepancy{
			Kind:     DiscrepancyArea,
			Severity: sev,
			Message: fmt.Sprintf("Area discrepancy: claimed %.1f sq.m, AI estimated %.1f sq.m (%.1f%% difference)",
				*claimed.Area, ai.EstimatedArea, ratio*100),
		})
	}

	if ai.CrackDetected {
		cracks := ai.CrackCount()
		sev := SeverityMedium
		if p.HighCrackCount > 0 && cracks >= p.HighCrackCount {
			sev = SeverityHigh
		}
		msg := "Structural issues detected in photos"
		if cracks > 0 {
			msg = fmt.Sprintf("Structural issues detected: %d crack(s) found in photos", cracks)
		}
		out = append(out, Discrepancy{Kind: DiscrepancyCondition, Severity: sev, Message: msg})
	}
	return out
}

// Summarize builds the verdict shown next to the analysis result
func (p DiscrepancyPolicy) Summarize(claimed ClaimedMetrics, ai *AIMetrics) Verdict {
	v := Verdict{Severity: SeverityNone}
	if ai == nil {
		v.Recommendation = "Analysis not yet available"
		return v
	}
	v.Analyzed = true
	if ratio, ok := areaRatio(claimed, ai); ok {
		pct := math.Round(ratio*1000) / 10
		v.AreaDifference = &pct
	}
	for _, d := range p.Evaluate(claimed, ai) {
		v.HasDiscrepancy = true
		if d.Severity.weight() > v.Severity.weight() {
			v.Severity = d.Severity
		}
	}
	v.NeedsConfirmation = ai.Confidence < p.MinConfidence

	switch v.Severity {
	case SeverityHigh:
		v.Recommendation = "Correct the declared details or expect a manual review"
	case SeverityMedium:
		v.Recommendation = "Review the flagged findings before confirming"
	default:
		v.Recommendation = "Analysis matches the declared information"
	}
	return v
}
