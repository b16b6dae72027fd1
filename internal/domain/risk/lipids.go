package risk

import "github.com/hcevision/cardio/internal/domain/normalize"

// LDL goals in mg/dL per category.
const (
	TargetExtreme  = 40.0
	TargetVeryHigh = 55.0
	TargetHigh     = 70.0
	TargetModerate = 100.0
	TargetLow      = 116.0
)

const (
	RecommendGoalMet   = "Goal met. Maintain current therapy."
	RecommendHigh      = "High-potency statin:\n• Atorvastatin 40-80 mg\n• Rosuvastatin 20-40 mg\n(Consider ezetimibe if the goal is not reached)"
	RecommendModerate  = "Moderate-potency statin:\n• Atorvastatin 10-20 mg\n• Rosuvastatin 5-10 mg"
	RecommendLow       = "Low/moderate-potency statin."
	RecommendLifestyle = "Healthy lifestyle."
)

// LipidCategory picks the cardiovascular risk category driving the LDL goal.
// Rules are evaluated in priority order and the first match wins.
func LipidCategory(age int, a normalize.Antecedents) (string, float64) {
	switch {
	case a.Has(normalize.PriorACS) && a.Any(normalize.Diabetes, normalize.RenalDisease, normalize.Smoking):
		return CategoryExtreme, TargetExtreme
	case a.Any(normalize.VascularDisease, normalize.PriorACS, normalize.Stroke):
		return CategoryVeryHigh, TargetVeryHigh
	case a.Any(normalize.Diabetes, normalize.RenalDisease, normalize.Dyslipidemia):
		return CategoryHigh, TargetHigh
	case age > 50 && a.Any(normalize.Hypertension, normalize.Smoking, normalize.Obesity):
		return CategoryModerate, TargetModerate
	default:
		return CategoryLow, TargetLow
	}
}

// Lipids assesses the current LDL against the category goal.
func Lipids(age int, a normalize.Antecedents, ldl float64) LipidManagement {
	category, target := LipidCategory(age, a)

	reduction := 0.0
	if ldl > target {
		reduction = (ldl - target) / ldl * 100
	}

	return LipidManagement{
		LDLCurrent:         ldl,
		RiskCategory:       category,
		LDLTarget:          target,
		ReductionNeededPct: round1(reduction),
		Recommendation:     recommendation(ldl, target, reduction),
	}
}

func recommendation(ldl, target, reduction float64) string {
	switch {
	case ldl <= target:
		return RecommendGoalMet
	case reduction >= 50:
		return RecommendHigh
	case reduction >= 30:
		return RecommendModerate
	case reduction > 0:
		return RecommendLow
	default:
		return RecommendLifestyle
	}
}
